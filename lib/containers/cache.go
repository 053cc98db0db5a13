// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import "context"

// Source is the backing store that a Cache loads values from (and,
// on Flush, writes dirty values back to).
type Source[K comparable, V any] interface {
	// Load populates *ptr with the value for k.
	Load(ctx context.Context, k K, ptr *V)
	// Flush is called for every entry currently held by the
	// cache, whether or not it is pinned, and for every unused
	// slot.
	Flush(ctx context.Context, ptr *V)
}

// Cache is a fixed-capacity, reference-counted cache of values keyed
// by K. Acquire/Release calls nest: a key may be Acquire()d more than
// once, and is only eligible for eviction once every Acquire() has a
// matching Release().
type Cache[K comparable, V any] interface {
	// Acquire returns a pointer to the (possibly just-loaded)
	// value for k, pinning it in the cache. It blocks if the
	// cache is full and nothing is evictable.
	Acquire(ctx context.Context, k K) *V
	// Release unpins one reference to k previously obtained from
	// Acquire. It panics if k is not currently held.
	Release(k K)
	// Delete removes k from the cache, blocking until any
	// outstanding references are Release()d.
	Delete(k K)
	// Flush calls the Source's Flush for every entry in the
	// cache, including unused slots.
	Flush(ctx context.Context)
}

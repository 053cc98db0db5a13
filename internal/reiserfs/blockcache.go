// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"
	"fmt"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/lib/containers"
	"lukeshu.com/reiserfs-progs-ng/lib/diskio"
)

// BlockCache is a reference-counted cache of fixed-size disk blocks,
// backed by a containers.Cache so that a block held by an in-progress
// tree traversal can never be evicted out from under it. Grounded on
// the reference driver's BlockCache: GetBlock/PutBlock pin and unpin a
// block, and the cache itself owns the "read it once, keep it until
// something else needs the slot" policy.
type BlockCache struct {
	dev       diskio.File[int64]
	blockSize uint32
	cache     containers.Cache[uint64, Block]
}

// NewBlockCache wraps dev, treating it as blockCount blocks of
// blockSize bytes each, and caching up to capacity of them at once.
func NewBlockCache(dev diskio.File[int64], blockCount uint64, blockSize uint32, capacity int) *BlockCache {
	bc := &BlockCache{dev: dev, blockSize: blockSize}
	bc.cache = containers.NewLRUCache[uint64, Block](capacity, blockSource{bc: bc, blockCount: blockCount})
	return bc
}

// blockSource is the containers.Source that actually touches the
// device; it exists only so BlockCache itself doesn't have to
// implement the Source methods (which would expose Load/Flush on
// BlockCache's own method set).
type blockSource struct {
	bc         *BlockCache
	blockCount uint64
}

func (s blockSource) Load(ctx context.Context, number uint64, ptr *Block) {
	ptr.Number = number
	ptr.Kind = KindUnknown
	ptr.Checked = false
	ptr.Data = nil
	ptr.Err = nil
	if number >= s.blockCount {
		ptr.Err = rerr.New("BlockCache.GetBlock", rerr.BadValue)
		return
	}
	buf := make([]byte, s.bc.blockSize)
	off := int64(number) * int64(s.bc.blockSize)
	if _, err := s.bc.dev.ReadAt(buf, off); err != nil {
		ptr.Err = rerr.Wrap("BlockCache.GetBlock", rerr.IoError, err)
		return
	}
	ptr.Data = buf
}

// Flush is a no-op: this is a read-only driver, so a cached block is
// never dirty.
func (s blockSource) Flush(ctx context.Context, ptr *Block) {}

// GetBlock returns the block at number, pinning it in the cache. The
// caller must call PutBlock when done. The returned Block's Kind
// persists across Get/Put cycles (set once by whoever first recognizes
// it as formatted or unformatted), matching the reference driver's
// "kind sticks for the life of the cache entry" behavior.
func (bc *BlockCache) GetBlock(ctx context.Context, number uint64) (*Block, error) {
	b := bc.cache.Acquire(ctx, number)
	if b.Err != nil {
		err := b.Err
		bc.cache.Release(number)
		bc.cache.Delete(number)
		return nil, err
	}
	return b, nil
}

// PutBlock releases one reference to the block previously obtained
// from GetBlock.
func (bc *BlockCache) PutBlock(b *Block) {
	bc.cache.Release(b.Number)
}

// BlockSize returns the cache's fixed block size in bytes.
func (bc *BlockCache) BlockSize() uint32 { return bc.blockSize }

func (bc *BlockCache) String() string {
	return fmt.Sprintf("BlockCache(%s, blockSize=%d)", bc.dev.Name(), bc.blockSize)
}

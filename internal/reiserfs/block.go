// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

// BlockKind classifies what a cached block currently holds. A block
// starts out Unknown and is tagged Formatted or Unformatted the first
// time something decides what it is (a tree node, vs. file data or a
// bitmap).
type BlockKind int

const (
	KindUnknown BlockKind = iota
	KindFormatted
	KindUnformatted
)

// Block is one cached, fixed-size disk block plus the bookkeeping the
// tree navigator needs: its kind, and whether it has already passed
// Node.Check once this mount (re-checking an already-checked node on
// every traversal would be wasted work on a read-only, presumably
// unchanging, device).
type Block struct {
	Number  uint64
	Data    []byte
	Kind    BlockKind
	Checked bool

	// Err is set by the backing Source when the block could not be
	// read from the device. A Cache has no error return of its own,
	// so BlockCache.GetBlock surfaces this after Acquire.
	Err error
}

// AsNode returns a Node view over b, or (Node{}, false) if b has never
// been tagged Formatted.
func (b *Block) AsNode() (Node, bool) {
	if b.Kind != KindFormatted {
		return Node{}, false
	}
	return Node{Block: b}, true
}

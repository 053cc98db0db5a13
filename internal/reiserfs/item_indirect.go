// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import "encoding/binary"

// IndirectItem lists the raw block numbers holding a file's contents,
// contiguous from the item's key offset.
type IndirectItem struct {
	Item
}

// AsIndirect views it as an IndirectItem.
func (it Item) AsIndirect() IndirectItem { return IndirectItem{Item: it} }

// CountBlocks returns the number of block-number entries the item
// holds.
func (it IndirectItem) CountBlocks() int { return it.Len() / 4 }

// BlockNumberAt returns the index'th block number, or 0 (a "hole" —
// a sparse, all-zero region of the file) if out of range.
func (it IndirectItem) BlockNumberAt(index int) uint32 {
	if index < 0 || index >= it.CountBlocks() {
		return 0
	}
	return binary.LittleEndian.Uint32(it.Data()[index*4 : index*4+4])
}

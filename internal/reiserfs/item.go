// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import "lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"

// Item is one leaf item: its header plus a view of its body bytes.
// Key.Format comes from the item header's Version field, not guessed —
// a leaf item always knows its own format.
type Item struct {
	Node  LeafNode
	Index int
}

// ItemAt constructs an Item view over the index'th item of leaf,
// mirroring Item::SetTo: it validates the item's header before
// handing back a view that Data() will slice the node's bytes with,
// so a corrupt header surfaces here as BadData rather than as a panic
// or an out-of-bounds slice once Data() is called.
func ItemAt(leaf LeafNode, index int) (Item, error) {
	if index < 0 || index >= leaf.CountItems() {
		return Item{}, rerr.New("ItemAt", rerr.BadValue)
	}
	it := Item{Node: leaf, Index: index}
	if err := it.Check(uint32(len(leaf.Data))); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (it Item) header() ItemHead { return it.Node.ItemHeaderAt(it.Index) }

// Format reports whether the item header encodes its key in the 3.5
// or 3.6 format (ItemHead.Version, not guessed).
func (it Item) Format() KeyFormat {
	if it.header().Version == uint16(FormatV2) {
		return KeyFormat36
	}
	return KeyFormat35
}

// Key decodes the item's key under its own declared format.
func (it Item) Key() VKey { return DecodeKey(it.header().Key, it.Format()) }

// Len returns the item body length in bytes.
func (it Item) Len() int { return int(it.header().Len) }

// Data returns the item's raw body bytes.
func (it Item) Data() []byte { return it.Node.ItemBody(it.Index) }

// Check validates that the item's declared location+length actually
// falls within the node's data, mirroring Item::Check's base-class
// bounds check (subtype Check methods build on top of this one).
func (it Item) Check(blockSize uint32) error {
	h := it.header()
	end := uint32(h.Location) + uint32(h.Len)
	if uint32(h.Location) < it.Node.itemSpaceOffset() || end > blockSize {
		return rerr.New("Item.Check", rerr.BadData)
	}
	return nil
}

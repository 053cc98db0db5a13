// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

const dirEntryHeadSize = 16

// DirItem is a leaf item holding a directory's entries: a packed
// array of DirEntryHead followed by the (not null-terminated) entry
// names, the names running back-to-front from the end of the item.
type DirItem struct {
	Item
}

// AsDir views it as a DirItem.
func (it Item) AsDir() DirItem { return DirItem{Item: it} }

// EntryCount returns the number of entries: ItemHead.FreeSpaceRsv
// doubles as the entry count on a directory item (it only means
// "reserved free space" on an indirect item).
func (it DirItem) EntryCount() int { return int(it.header().FreeSpaceRsv) }

func (it DirItem) entryNameSpaceOffset() uint32 {
	return uint32(it.EntryCount()) * dirEntryHeadSize
}

// EntryHeadAt returns the index'th entry's fixed header.
func (it DirItem) EntryHeadAt(index int) (DirEntryHead, error) {
	if index < 0 || index >= it.EntryCount() {
		return DirEntryHead{}, rerr.New("DirItem.EntryHeadAt", rerr.BadValue)
	}
	off := index * dirEntryHeadSize
	data := it.Data()
	var h DirEntryHead
	if _, err := binstruct.Unmarshal(data[off:off+dirEntryHeadSize], &h); err != nil {
		return DirEntryHead{}, rerr.Wrap("DirItem.EntryHeadAt", rerr.BadData, err)
	}
	return h, nil
}

// EntryNameAt returns the index'th entry's name bytes, validating
// that its declared location falls within the entry's portion of the
// item and deriving its length from the gap to the previous entry's
// name (or the item's end, for entry 0) — the on-disk format does not
// null-terminate names.
func (it DirItem) EntryNameAt(index int) ([]byte, error) {
	h, err := it.EntryHeadAt(index)
	if err != nil {
		return nil, err
	}
	if uint32(h.Location) < it.entryNameSpaceOffset() || uint32(h.Location) > uint32(it.Len()) {
		return nil, rerr.New("DirItem.EntryNameAt", rerr.BadData)
	}
	maxEnd := uint32(it.Len())
	if index > 0 {
		prev, err := it.EntryHeadAt(index - 1)
		if err != nil {
			return nil, err
		}
		maxEnd = uint32(prev.Location)
	}
	data := it.Data()
	name := data[h.Location:maxEnd]
	// Names are NUL-padded to their slot, not NUL-terminated in the
	// sense of requiring one; trim at the first NUL if present.
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	return name, nil
}

// IsVisible reports whether the entry's visibility bit is set; a
// clear bit marks an entry a directory listing must skip (the
// reference driver uses this for "." entries and tombstones left by
// in-progress operations neither of which this read-only driver ever
// produces itself, but images it mounts may carry).
func (h DirEntryHead) IsVisible() bool { return h.State&dehVisible != 0 }

// IsHidden is the negation of IsVisible.
func (h DirEntryHead) IsHidden() bool { return !h.IsVisible() }

// IndexOfName returns the index of the entry named name, or -1.
func (it DirItem) IndexOfName(name string) int {
	for i := 0; i < it.EntryCount(); i++ {
		n, err := it.EntryNameAt(i)
		if err != nil {
			continue
		}
		if string(n) == name {
			return i
		}
	}
	return -1
}

// Check validates that the declared entry count's headers can
// possibly fit within the item, beyond the base Item.Check bounds
// check.
func (it DirItem) Check(blockSize uint32) error {
	if err := it.Item.Check(blockSize); err != nil {
		return err
	}
	if it.entryNameSpaceOffset() > uint32(it.Len()) {
		return rerr.New("DirItem.Check", rerr.BadData)
	}
	return nil
}

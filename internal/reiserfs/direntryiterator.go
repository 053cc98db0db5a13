// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// DirEntryIterator walks a directory's entries one at a time, across
// DirEntry item boundaries. With fixedHash set, it only ever yields
// entries whose key offset shares the hash portion of offset — the
// collision bucket a particular name hashes into — and a backward walk
// (GetPrevious) latches done once it passes the bucket's first entry
// (generation number 0).
type DirEntryIterator struct {
	tree      *Tree
	items     *ObjectItemIterator
	dirID     uint32
	objectID  uint32
	offset    uint64
	fixedHash bool

	dirItem  DirItem
	haveItem bool
	index    int // -1 means "need the next/previous DirItem"
	done     bool
}

// NewDirEntryIterator returns an iterator over dirID/objectID's
// entries, positioned to begin at offset.
func NewDirEntryIterator(tree *Tree, dirID, objectID uint32, offset uint64, fixedHash bool) *DirEntryIterator {
	return &DirEntryIterator{
		tree:      tree,
		items:     NewObjectItemIterator(tree, dirID, objectID, offset),
		dirID:     dirID,
		objectID:  objectID,
		offset:    offset,
		fixedHash: fixedHash,
		index:     -1,
	}
}

func (dit *DirEntryIterator) Close(ctx context.Context) { dit.items.Close(ctx) }

// Rewind restarts the iteration at the same (dirID, objectID, offset,
// fixedHash) it was constructed with.
func (dit *DirEntryIterator) Rewind() {
	dit.items = NewObjectItemIterator(dit.tree, dit.dirID, dit.objectID, dit.offset)
	dit.haveItem = false
	dit.index = -1
	dit.done = false
}

// GetNext returns the next entry belonging to the directory: the item
// it lives in, plus its entry index within that item.
func (dit *DirEntryIterator) GetNext(ctx context.Context) (DirItem, int, error) {
	for dit.index < 0 || dit.index >= dit.dirItem.EntryCount() {
		item, err := dit.items.GetNext(ctx, TypeDirEntry)
		if err != nil {
			return DirItem{}, 0, rerr.New("DirEntryIterator.GetNext", rerr.NotFound)
		}
		dirItem := item.AsDir()
		if dirItem.Check(dit.tree.BlockSize()) == nil {
			dit.dirItem, dit.haveItem = dirItem, true
			dit.index = 0
			for dit.index < dirItem.EntryCount() {
				head, err := dirItem.EntryHeadAt(dit.index)
				if err != nil || uint64(head.Offset) >= dit.offset {
					break
				}
				dit.index++
			}
		} else {
			dit.index = -1
		}
	}

	entry, err := dit.dirItem.EntryHeadAt(dit.index)
	if err != nil {
		return DirItem{}, 0, err
	}
	if dit.fixedHash && offsetHashValue(uint64(entry.Offset)) != offsetHashValue(dit.offset) {
		return DirItem{}, 0, rerr.New("DirEntryIterator.GetNext", rerr.NotFound)
	}
	foundItem, foundIndex := dit.dirItem, dit.index
	dit.index++
	return foundItem, foundIndex, nil
}

// GetPrevious is GetNext's mirror, walking backward and latching
// done once a fixed-hash walk passes the bucket's first entry.
func (dit *DirEntryIterator) GetPrevious(ctx context.Context) (DirItem, int, error) {
	if dit.done {
		return DirItem{}, 0, rerr.New("DirEntryIterator.GetPrevious", rerr.NotFound)
	}
	for dit.index < 0 || dit.index >= dit.dirItem.EntryCount() {
		item, err := dit.items.GetPrevious(ctx, TypeDirEntry)
		if err != nil {
			return DirItem{}, 0, rerr.New("DirEntryIterator.GetPrevious", rerr.NotFound)
		}
		dirItem := item.AsDir()
		if dirItem.Check(dit.tree.BlockSize()) == nil {
			dit.dirItem, dit.haveItem = dirItem, true
			dit.index = dirItem.EntryCount() - 1
		} else {
			dit.index = -1
		}
	}

	for dit.index >= 0 {
		entry, err := dit.dirItem.EntryHeadAt(dit.index)
		if err != nil {
			return DirItem{}, 0, err
		}
		if uint64(entry.Offset) <= dit.offset {
			break
		}
		dit.index--
	}

	if dit.index < 0 {
		return DirItem{}, 0, rerr.New("DirEntryIterator.GetPrevious", rerr.NotFound)
	}
	entry, err := dit.dirItem.EntryHeadAt(dit.index)
	if err != nil {
		return DirItem{}, 0, err
	}
	if dit.fixedHash && offsetHashValue(uint64(entry.Offset)) != offsetHashValue(dit.offset) {
		return DirItem{}, 0, rerr.New("DirEntryIterator.GetPrevious", rerr.NotFound)
	}
	foundItem, foundIndex := dit.dirItem, dit.index
	dit.done = dit.fixedHash && offsetGeneration(uint64(entry.Offset)) == 0
	dit.index--
	return foundItem, foundIndex, nil
}

func (dit *DirEntryIterator) Suspend() error          { return dit.items.Suspend() }
func (dit *DirEntryIterator) Resume(ctx context.Context) error { return dit.items.Resume(ctx) }

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// ObjectItemIterator walks only the items belonging to one object
// (dirID, objectID), in either direction, stopping as soon as the
// underlying ItemIterator wanders onto a different object.
type ObjectItemIterator struct {
	it        *ItemIterator
	dirID     uint32
	objectID  uint32
	startOff  uint64
	fFindFirst bool
	fDone     bool
}

// NewObjectItemIterator returns an iterator over (dirID, objectID)'s
// items starting at the item with the greatest key not exceeding
// startOffset. The first GetNext/GetPrevious
// call performs the initial tree descent (FindRightMostClose); later
// calls just step the underlying ItemIterator.
func NewObjectItemIterator(tree *Tree, dirID, objectID uint32, startOffset uint64) *ObjectItemIterator {
	return &ObjectItemIterator{
		it:        NewItemIterator(tree),
		dirID:     dirID,
		objectID:  objectID,
		startOff:  startOffset,
		fFindFirst: true,
	}
}

func (oit *ObjectItemIterator) Close(ctx context.Context) { oit.it.Close(ctx) }

func (oit *ObjectItemIterator) Suspend() error                  { return oit.it.Suspend() }
func (oit *ObjectItemIterator) Resume(ctx context.Context) error { return oit.it.Resume(ctx) }

func (oit *ObjectItemIterator) belongsToObject(k VKey) bool {
	return k.DirID == oit.dirID && k.ObjectID == oit.objectID
}

// GetNext returns the next item belonging to the object whose Key().Type
// equals wantType (TypeAny matches anything), or rerr.NotFound once the
// object's items are exhausted.
func (oit *ObjectItemIterator) GetNext(ctx context.Context, wantType ItemType) (Item, error) {
	if oit.fDone {
		return Item{}, rerr.New("ObjectItemIterator.GetNext", rerr.NotFound)
	}
	for {
		var (
			item Item
			err  error
		)
		if oit.fFindFirst {
			oit.fFindFirst = false
			k := NewVKey(oit.dirID, oit.objectID, oit.startOff, TypeAny, KeyFormat35)
			item, err = oit.it.FindRightMostClose(ctx, k)
		} else {
			item, err = oit.it.GoToNext(ctx)
		}
		if err != nil {
			oit.fDone = true
			return Item{}, rerr.New("ObjectItemIterator.GetNext", rerr.NotFound)
		}
		if !oit.belongsToObject(item.Key()) {
			oit.fDone = true
			return Item{}, rerr.New("ObjectItemIterator.GetNext", rerr.NotFound)
		}
		if wantType == TypeAny || item.Key().Type == wantType {
			return item, nil
		}
	}
}

// GetPrevious is GetNext's mirror, walking backward from the first
// position found.
func (oit *ObjectItemIterator) GetPrevious(ctx context.Context, wantType ItemType) (Item, error) {
	if oit.fDone {
		return Item{}, rerr.New("ObjectItemIterator.GetPrevious", rerr.NotFound)
	}
	for {
		var (
			item Item
			err  error
		)
		if oit.fFindFirst {
			oit.fFindFirst = false
			k := NewVKey(oit.dirID, oit.objectID, oit.startOff, TypeAny, KeyFormat35)
			item, err = oit.it.FindRightMostClose(ctx, k)
		} else {
			item, err = oit.it.GoToPrevious(ctx)
		}
		if err != nil {
			oit.fDone = true
			return Item{}, rerr.New("ObjectItemIterator.GetPrevious", rerr.NotFound)
		}
		if !oit.belongsToObject(item.Key()) {
			oit.fDone = true
			return Item{}, rerr.New("ObjectItemIterator.GetPrevious", rerr.NotFound)
		}
		if wantType == TypeAny || item.Key().Type == wantType {
			return item, nil
		}
	}
}

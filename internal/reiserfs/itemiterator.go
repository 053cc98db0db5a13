// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// ItemIterator walks a Tree one leaf item at a time, in key order. It
// sits directly above treeIterator: every move it makes either stays
// within the current leaf (cheap) or asks the treeIterator to climb to
// a sibling leaf (GoToNextLeaf/GoToPreviousLeaf).
type ItemIterator struct {
	ti    *treeIterator
	index int // item index within ti.current, once ti.current.IsLeaf()
}

// NewItemIterator returns an iterator bound to tree, not yet
// positioned on any item; call FindRightMost or FindRightMostClose
// before GetCurrent.
func NewItemIterator(tree *Tree) *ItemIterator {
	return &ItemIterator{ti: newTreeIterator(tree)}
}

// Close releases the block(s) the iterator is holding pinned.
func (it *ItemIterator) Close(ctx context.Context) {
	it.ti.release()
	for it.ti.path.Len() > 0 {
		_ = it.ti.path.Pop()
	}
}

// searchRightMostLeaf finds the rightmost item index in leaf whose key
// is not greater than k, or -1 if every item's key is greater than k.
// Unlike the internal-node search, this probes the lower bound first:
// if even item 0's key is greater than k, there is no match in this
// leaf at all.
func searchRightMostLeaf(leaf LeafNode, k VKey) int {
	count := leaf.CountItems()
	if count == 0 {
		return -1
	}
	firstKey := DecodeKey(leaf.ItemHeaderAt(0).Key, formatOf(leaf.ItemHeaderAt(0)))
	if k.Less(firstKey) {
		return -1
	}
	lower, upper := 0, count-1
	for lower < upper {
		mid := (lower + upper + 1) / 2
		midKey := DecodeKey(leaf.ItemHeaderAt(mid).Key, formatOf(leaf.ItemHeaderAt(mid)))
		if midKey.Less(k) || midKey.Equal(k) {
			lower = mid
		} else {
			upper = mid - 1
		}
	}
	return lower
}

func formatOf(h ItemHead) KeyFormat {
	if h.Version == uint16(FormatV2) {
		return KeyFormat36
	}
	return KeyFormat35
}

// FindRightMostClose repositions the iterator at the item with the
// greatest key not exceeding k, descending from the tree root; that
// item's key need not equal k — used by ObjectItemIterator, whose
// start offset rarely lands on an exact key match.
func (it *ItemIterator) FindRightMostClose(ctx context.Context, k VKey) (Item, error) {
	if err := it.ti.reset(ctx); err != nil {
		return Item{}, err
	}
	if err := it.ti.findRightMostLeaf(ctx, k); err != nil {
		return Item{}, err
	}
	leaf := it.ti.current.AsLeaf()
	idx := searchRightMostLeaf(leaf, k)
	if idx < 0 {
		if err := it.ti.goToPreviousLeaf(ctx); err != nil {
			return Item{}, rerr.New("ItemIterator.FindRightMost", rerr.NotFound)
		}
		leaf = it.ti.current.AsLeaf()
		idx = leaf.CountItems() - 1
		if idx < 0 {
			return Item{}, rerr.New("ItemIterator.FindRightMost", rerr.NotFound)
		}
	}
	it.index = idx
	return ItemAt(leaf, idx)
}

// FindRightMost is FindRightMostClose, but fails with NotFound unless
// the item it lands on has a key equal to k.
func (it *ItemIterator) FindRightMost(ctx context.Context, k VKey) (Item, error) {
	item, err := it.FindRightMostClose(ctx, k)
	if err != nil {
		return Item{}, err
	}
	if !item.Key().Equal(k) {
		return Item{}, rerr.New("ItemIterator.FindRightMost", rerr.NotFound)
	}
	return item, nil
}

// GetCurrent returns the item the iterator is positioned on.
func (it *ItemIterator) GetCurrent() (Item, error) {
	if !it.ti.current.IsLeaf() {
		return Item{}, rerr.New("ItemIterator.GetCurrent", rerr.NotFound)
	}
	return ItemAt(it.ti.current.AsLeaf(), it.index)
}

// GoToNext advances to the next item in key order, crossing into the
// next leaf if the current one is exhausted.
func (it *ItemIterator) GoToNext(ctx context.Context) (Item, error) {
	leaf := it.ti.current.AsLeaf()
	if it.index+1 < leaf.CountItems() {
		it.index++
		return ItemAt(it.ti.current.AsLeaf(), it.index)
	}
	if err := it.ti.goToNextLeaf(ctx); err != nil {
		return Item{}, rerr.New("ItemIterator.GoToNext", rerr.NotFound)
	}
	leaf = it.ti.current.AsLeaf()
	if leaf.CountItems() == 0 {
		return Item{}, rerr.New("ItemIterator.GoToNext", rerr.NotFound)
	}
	it.index = 0
	return ItemAt(leaf, 0)
}

// GoToPrevious retreats to the previous item in key order, crossing
// into the previous leaf if the current one is exhausted.
func (it *ItemIterator) GoToPrevious(ctx context.Context) (Item, error) {
	if it.index > 0 {
		it.index--
		return ItemAt(it.ti.current.AsLeaf(), it.index)
	}
	if err := it.ti.goToPreviousLeaf(ctx); err != nil {
		return Item{}, rerr.New("ItemIterator.GoToPrevious", rerr.NotFound)
	}
	leaf := it.ti.current.AsLeaf()
	if leaf.CountItems() == 0 {
		return Item{}, rerr.New("ItemIterator.GoToPrevious", rerr.NotFound)
	}
	it.index = leaf.CountItems() - 1
	return ItemAt(leaf, it.index)
}

// Suspend releases the iterator's pinned leaf, letting callers hold
// onto positional state (index) without pinning cache capacity while
// they do unrelated work, then Resume to re-pin it.
func (it *ItemIterator) Suspend() error { return it.ti.suspend() }

// Resume re-pins the node the iterator was suspended at.
func (it *ItemIterator) Resume(ctx context.Context) error { return it.ti.resume(ctx) }

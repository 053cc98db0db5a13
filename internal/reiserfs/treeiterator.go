// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// treeDirection names the four primitive moves a treeIterator can
// make.
type treeDirection int

const (
	dirForward treeDirection = iota
	dirBackwards
	dirUp
	dirDown
)

// treeIterator walks the S+tree one node at a time, holding the
// current node pinned in the block cache and a bounded stack of
// ancestor (block, child-index) pairs it can climb back up through.
// It never looks at item contents — that's itemIterator's job.
type treeIterator struct {
	tree    *Tree
	current Node
	index   int
	path    *treePath
}

func newTreeIterator(tree *Tree) *treeIterator {
	return &treeIterator{tree: tree, path: newTreePath(tree.treeHeight)}
}

// reset re-pins the tree's root as the iterator's current node,
// releasing whatever it was previously holding.
func (ti *treeIterator) reset(ctx context.Context) error {
	ti.release()
	ti.path = newTreePath(ti.tree.treeHeight)
	root, err := ti.tree.GetNode(ctx, ti.tree.rootBlock)
	if err != nil {
		return err
	}
	ti.current = root
	ti.index = 0
	return nil
}

func (ti *treeIterator) release() {
	if ti.current.Block != nil {
		ti.tree.PutNode(ti.current)
		ti.current = Node{}
	}
}

// goTo performs one primitive move. FORWARD/BACKWARDS only change the
// child index of an internal node's current position; UP/DOWN replace
// the current node.
func (ti *treeIterator) goTo(ctx context.Context, dir treeDirection) error {
	switch dir {
	case dirForward:
		if ti.current.IsInternal() && ti.index < ti.current.CountItems() {
			ti.index++
			return nil
		}
		return rerr.New("treeIterator.goTo", rerr.NotFound)
	case dirBackwards:
		if ti.current.IsInternal() && ti.index > 0 {
			ti.index--
			return nil
		}
		return rerr.New("treeIterator.goTo", rerr.NotFound)
	case dirUp:
		return ti.popTopNode(ctx)
	case dirDown:
		if !ti.current.IsInternal() {
			return rerr.New("treeIterator.goTo", rerr.NotFound)
		}
		internal := ti.current.AsInternal()
		if ti.index < 0 || ti.index > internal.CountItems() {
			return rerr.New("treeIterator.goTo", rerr.NotFound)
		}
		child := internal.ChildAt(ti.index)
		node, err := ti.tree.GetNode(ctx, uint64(child.BlockNumber))
		if err != nil {
			return err
		}
		if err := ti.pushCurrentNode(node, 0); err != nil {
			ti.tree.PutNode(node)
			return err
		}
		return nil
	}
	return rerr.New("treeIterator.goTo", rerr.BadValue)
}

func (ti *treeIterator) pushCurrentNode(newTop Node, newIndex int) error {
	if err := ti.path.Push(ti.current.Number, ti.index); err != nil {
		return err
	}
	ti.tree.PutNode(ti.current)
	ti.current = newTop
	ti.index = newIndex
	return nil
}

func (ti *treeIterator) popTopNode(ctx context.Context) error {
	if ti.path.Len() == 0 {
		return rerr.New("treeIterator.popTopNode", rerr.NotFound)
	}
	elem, err := ti.path.Top()
	if err != nil {
		return err
	}
	node, err := ti.tree.GetNode(ctx, elem.blockNumber)
	if err != nil {
		return err
	}
	ti.release()
	ti.current = node
	ti.index = elem.index
	return ti.path.Pop()
}

// goToNextLeaf / goToPreviousLeaf walk sideways at leaf level: climb
// until a FORWARD/BACKWARDS step succeeds, then descend the resulting
// branch to its leftmost (forward) or rightmost (backward) leaf.
func (ti *treeIterator) goToNextLeaf(ctx context.Context) error {
	if !ti.current.IsLeaf() {
		return rerr.New("treeIterator.goToNextLeaf", rerr.NotFound)
	}
	found := false
	for !found {
		if err := ti.goTo(ctx, dirUp); err != nil {
			return err
		}
		found = ti.goTo(ctx, dirForward) == nil
	}
	for ti.current.IsInternal() {
		if err := ti.goTo(ctx, dirDown); err != nil {
			return err
		}
	}
	return nil
}

func (ti *treeIterator) goToPreviousLeaf(ctx context.Context) error {
	if !ti.current.IsLeaf() {
		return rerr.New("treeIterator.goToPreviousLeaf", rerr.NotFound)
	}
	found := false
	for !found {
		if err := ti.goTo(ctx, dirUp); err != nil {
			return err
		}
		found = ti.goTo(ctx, dirBackwards) == nil
	}
	if err := ti.goTo(ctx, dirDown); err != nil {
		return err
	}
	for ti.current.IsInternal() {
		ti.index = ti.current.CountItems()
		if err := ti.goTo(ctx, dirDown); err != nil {
			return err
		}
	}
	return nil
}

// findRightMostLeaf descends from the iterator's current node,
// choosing at each internal level the rightmost child that may
// contain k, until it reaches a leaf.
func (ti *treeIterator) findRightMostLeaf(ctx context.Context, k VKey) error {
	for ti.current.IsInternal() {
		internal := ti.current.AsInternal()
		index := searchRightMostForKey(internal, k)
		ti.index = index
		if err := ti.goTo(ctx, dirDown); err != nil {
			return err
		}
	}
	return nil
}

// searchRightMostForKey guesses each separator key's format
// independently (internal-node keys have no reliable version tag),
// matching the reference driver's Key (not VKey) comparisons at this
// level, which compare dir_id/object_id/offset only.
func searchRightMostForKey(node InternalNode, k VKey) int {
	lower, upper := 0, node.CountItems()
	for lower < upper {
		mid := (lower + upper) / 2
		raw := node.KeyAt(mid)
		midKey := DecodeKey(raw, GuessFormat(raw))
		if k.Less(midKey) {
			upper = mid
		} else {
			lower = mid + 1
		}
	}
	return lower
}

func (ti *treeIterator) suspend() error {
	if ti.current.Block == nil {
		return nil // not positioned yet, or already suspended
	}
	if err := ti.pushCurrentNode(Node{}, 0); err != nil {
		return err
	}
	ti.current = Node{}
	return nil
}

func (ti *treeIterator) resume(ctx context.Context) error {
	if ti.current.Block != nil || ti.path.Len() == 0 {
		return nil // nothing was suspended
	}
	return ti.popTopNode(ctx)
}

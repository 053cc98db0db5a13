// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// Tree is the S+tree navigator bound to one volume's block cache and
// root block. Its own surface is small — GetBlock/GetNode, plus
// FindDirEntry/FindStatItem — the real work lives in the iterator
// types below, which it spawns.
type Tree struct {
	cache      *BlockCache
	rootBlock  uint64
	treeHeight int
	keyFormat  KeyFormat
}

// NewTree binds a Tree to cache, rooted at rootBlock, with the
// superblock's declared tree height (tolerated, not enforced, if it
// exceeds MaxTreeHeight — see treePath).
func NewTree(cache *BlockCache, rootBlock uint64, treeHeight int, keyFormat KeyFormat) *Tree {
	if treeHeight < 1 {
		treeHeight = 1
	}
	return &Tree{cache: cache, rootBlock: rootBlock, treeHeight: treeHeight, keyFormat: keyFormat}
}

func (t *Tree) BlockSize() uint32 { return t.cache.BlockSize() }

// GetBlock pins and returns the raw block at number.
func (t *Tree) GetBlock(ctx context.Context, number uint64) (*Block, error) {
	return t.cache.GetBlock(ctx, number)
}

// GetNode pins and returns number as a Node, tagging it Formatted on
// first sight and validating it (Node.Check) exactly once per cache
// lifetime, per Block.Checked.
func (t *Tree) GetNode(ctx context.Context, number uint64) (Node, error) {
	b, err := t.cache.GetBlock(ctx, number)
	if err != nil {
		return Node{}, err
	}
	if b.Kind == KindUnknown {
		b.Kind = KindFormatted
	}
	if b.Kind != KindFormatted {
		t.cache.PutBlock(b)
		return Node{}, rerr.New("Tree.GetNode", rerr.BadData)
	}
	node := Node{Block: b}
	if !b.Checked {
		if err := node.Check(t.cache.BlockSize()); err != nil {
			t.cache.PutBlock(b)
			return Node{}, err
		}
		b.Checked = true
	}
	return node, nil
}

func (t *Tree) PutNode(n Node) { t.cache.PutBlock(n.Block) }

// WalkLeaves calls fn once for every leaf node in the tree, left to
// right, stopping at the first error fn or the walk itself returns.
// It exists for reiserfs-fsck's whole-tree validation pass; nothing
// in the mount path needs to visit every leaf.
func (t *Tree) WalkLeaves(ctx context.Context, fn func(Node) error) error {
	ti := newTreeIterator(t)
	defer ti.release()
	if err := ti.reset(ctx); err != nil {
		return err
	}
	for ti.current.IsInternal() {
		ti.index = 0
		if err := ti.goTo(ctx, dirDown); err != nil {
			return err
		}
	}
	for {
		if err := fn(ti.current); err != nil {
			return err
		}
		if err := ti.goToNextLeaf(ctx); err != nil {
			if rerr.Is(err, rerr.NotFound) {
				return nil
			}
			return err
		}
	}
}

// FindStatItem locates the stat item for (dirID, objectID).
func (t *Tree) FindStatItem(ctx context.Context, dirID, objectID uint32) (Item, error) {
	it := NewItemIterator(t)
	defer it.Close(ctx)
	k := NewVKey(dirID, objectID, uint64(StatDataOffset), TypeStatData, KeyFormat35)
	return it.FindRightMost(ctx, k)
}

// FindDirEntry searches directory (dirID, objectID) for name, trying
// the hash fast path first (if a hash function is known) and falling
// back to a linear object-item scan otherwise.
func (t *Tree) FindDirEntry(ctx context.Context, dirID, objectID uint32, name string, hashFn HashFunc) (DirItem, int, error) {
	if hashFn != nil {
		offset := KeyOffsetForName(hashFn, name)
		dit := NewDirEntryIterator(t, dirID, objectID, uint64(offset), true)
		defer dit.Close(ctx)
		for {
			item, index, err := dit.GetPrevious(ctx)
			if err != nil {
				return DirItem{}, 0, rerr.New("Tree.FindDirEntry", rerr.NotFound)
			}
			n, err := item.EntryNameAt(index)
			if err == nil && string(n) == name {
				return item, index, nil
			}
		}
	}

	oit := NewObjectItemIterator(t, dirID, objectID, 0)
	defer oit.Close(ctx)
	for {
		item, err := oit.GetNext(ctx, TypeDirEntry)
		if err != nil {
			return DirItem{}, 0, rerr.New("Tree.FindDirEntry", rerr.NotFound)
		}
		dirItem := item.AsDir()
		if dirItem.Check(t.cache.BlockSize()) != nil {
			continue
		}
		if idx := dirItem.IndexOfName(name); idx >= 0 {
			return dirItem, idx, nil
		}
	}
}

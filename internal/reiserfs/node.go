// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

const blockHeadSize = 24 // len(RawKey)=16 + 2+2+2+2

// Node is a view over a Block known to be Formatted: a BlockHead
// followed by either CountItems keys+children (internal) or
// CountItems item headers+bodies (leaf).
type Node struct {
	*Block
}

func (n Node) header() BlockHead {
	var h BlockHead
	if _, err := binstruct.Unmarshal(n.Data[:blockHeadSize], &h); err != nil {
		// Data is always at least one block long and blockHeadSize
		// is far smaller than any legal block size; a failure here
		// means the in-memory buffer itself is malformed, which is
		// a programmer error, not a disk error.
		panic(err)
	}
	return h
}

// Level returns the node's tree level: LeafLevel (1) for a leaf,
// greater for an internal node.
func (n Node) Level() uint16 { return n.header().Level }

// CountItems returns the number of items (leaf) or keys (internal)
// the node holds. An internal node has CountItems()+1 children.
func (n Node) CountItems() int { return int(n.header().ItemCount) }

// FreeSpace returns the node's declared free space in bytes.
func (n Node) FreeSpace() uint16 { return n.header().FreeSpace }

// IsLeaf reports whether the node is at LeafLevel.
func (n Node) IsLeaf() bool { return n.Level() == LeafLevel }

// IsInternal reports whether the node is above LeafLevel.
func (n Node) IsInternal() bool { return n.Level() > LeafLevel }

// Check validates that the node's declared free space, plus the
// node's minimum fixed-size overhead, doesn't exceed the block size —
// the cheap sanity check every node gets before being trusted, run at
// most once per cache lifetime (Block.Checked).
func (n Node) Check(blockSize uint32) error {
	if uint32(n.FreeSpace())+blockHeadSize > blockSize {
		return rerr.New("Node.Check", rerr.BadData)
	}
	if n.IsInternal() {
		return n.asInternal().checkInternal(blockSize)
	}
	return n.asLeaf().checkLeaf(blockSize)
}

// AsInternal returns an InternalNode view, which is only meaningful
// when IsInternal() is true.
func (n Node) AsInternal() InternalNode { return n.asInternal() }
func (n Node) asInternal() InternalNode { return InternalNode{Node: n} }

// AsLeaf returns a LeafNode view, which is only meaningful when
// IsLeaf() is true.
func (n Node) AsLeaf() LeafNode { return n.asLeaf() }
func (n Node) asLeaf() LeafNode { return LeafNode{Node: n} }

// InternalNode is a Node known to be above LeafLevel: CountItems()
// keys followed by CountItems()+1 DiskChild descriptors.
type InternalNode struct {
	Node
}

func (n InternalNode) keysOffset() int { return blockHeadSize }

// KeyAt returns the raw on-disk key separating ChildAt(index) from
// ChildAt(index+1). index must be in [0, CountItems()).
func (n InternalNode) KeyAt(index int) RawKey {
	const rawKeySize = 16
	off := n.keysOffset() + index*rawKeySize
	var k RawKey
	if _, err := binstruct.Unmarshal(n.Data[off:off+rawKeySize], &k); err != nil {
		panic(err)
	}
	return k
}

func (n InternalNode) childsOffset() int {
	const rawKeySize = 16
	return n.keysOffset() + n.CountItems()*rawKeySize
}

// ChildAt returns the index'th child descriptor. index must be in
// [0, CountItems()].
func (n InternalNode) ChildAt(index int) DiskChild {
	const diskChildSize = 10
	off := n.childsOffset() + index*diskChildSize
	var c DiskChild
	if _, err := binstruct.Unmarshal(n.Data[off:off+diskChildSize], &c); err != nil {
		panic(err)
	}
	return c
}

func (n InternalNode) checkInternal(blockSize uint32) error {
	const rawKeySize, diskChildSize = 16, 10
	size := uint32(blockHeadSize) + uint32(n.CountItems())*rawKeySize + uint32(n.CountItems()+1)*diskChildSize
	if size+uint32(n.FreeSpace()) > blockSize {
		return rerr.New("InternalNode.Check", rerr.BadData)
	}
	return nil
}

// LeafNode is a Node known to be at LeafLevel: CountItems() ItemHead
// headers (each blockHeadSize..+itemHeadSize), followed by the item
// bodies they point into via ItemHead.Location.
type LeafNode struct {
	Node
}

const itemHeadSize = 24

func (n LeafNode) headersOffset() int { return blockHeadSize }

// ItemHeaderAt returns the index'th item's header. index must be in
// [0, CountItems()).
func (n LeafNode) ItemHeaderAt(index int) ItemHead {
	off := n.headersOffset() + index*itemHeadSize
	var h ItemHead
	if _, err := binstruct.Unmarshal(n.Data[off:off+itemHeadSize], &h); err != nil {
		panic(err)
	}
	return h
}

// ItemBody returns the raw bytes of the index'th item.
func (n LeafNode) ItemBody(index int) []byte {
	h := n.ItemHeaderAt(index)
	return n.Data[h.Location : int(h.Location)+int(h.Len)]
}

// LeftKey returns the first item's key — the smallest key in the
// subtree rooted at this node.
func (n LeafNode) LeftKey() (RawKey, error) {
	if n.CountItems() == 0 {
		return RawKey{}, rerr.New("LeafNode.LeftKey", rerr.BadData)
	}
	return n.ItemHeaderAt(0).Key, nil
}

// RightKey returns the last item's key — the largest key in the
// subtree rooted at this node.
func (n LeafNode) RightKey() (RawKey, error) {
	if n.CountItems() == 0 {
		return RawKey{}, rerr.New("LeafNode.RightKey", rerr.BadData)
	}
	return n.ItemHeaderAt(n.CountItems() - 1).Key, nil
}

// itemSpaceOffset is the minimum valid start of item-body data: right
// after the fixed-size item headers.
func (n LeafNode) itemSpaceOffset() uint32 {
	return uint32(itemHeadSize)*uint32(n.CountItems()) + blockHeadSize
}

func (n LeafNode) checkLeaf(blockSize uint32) error {
	if n.itemSpaceOffset()+uint32(n.FreeSpace()) > blockSize {
		return rerr.New("LeafNode.Check", rerr.BadData)
	}
	return nil
}

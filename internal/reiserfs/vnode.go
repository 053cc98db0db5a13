// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

// VNodeID is the flat 64-bit inode number this driver hands to its
// VFS host: the object's (dirID, objectID) pair packed into one
// value, so no separate id-to-key lookup table is ever needed.
type VNodeID uint64

// NewVNodeID packs dirID/objectID into a VNodeID.
func NewVNodeID(dirID, objectID uint32) VNodeID {
	return VNodeID(uint64(dirID)<<32 | uint64(objectID))
}

// DirID unpacks the directory-ID half of id.
func (id VNodeID) DirID() uint32 { return uint32(id >> 32) }

// ObjectID unpacks the object-ID half of id.
func (id VNodeID) ObjectID() uint32 { return uint32(id) }

// VNode is the in-memory handle a mounted volume keeps for one live
// object: its identity, its parent directory (valid only when the
// object is itself a directory — ReiserFS objects are otherwise
// potentially multiply-linked and have no single well-defined
// parent), and its cached stat data.
type VNode struct {
	ID       VNodeID
	ParentID VNodeID
	Stat     StatData
}

// NewVNode builds a VNode for (dirID, objectID), with stat already
// decoded from its stat item.
func NewVNode(dirID, objectID uint32, stat StatData) VNode {
	return VNode{ID: NewVNodeID(dirID, objectID), Stat: stat}
}

func (n VNode) IsDir() bool      { return n.Stat.IsDir() }
func (n VNode) IsFile() bool     { return n.Stat.IsFile() }
func (n VNode) IsSymlink() bool  { return n.Stat.IsSymlink() }
func (n VNode) IsEsoteric() bool { return n.Stat.IsEsoteric() }

// WithParent returns a copy of n with its parent directory recorded,
// set once the caller has resolved the object's ".." entry.
func (n VNode) WithParent(dirID, objectID uint32) VNode {
	n.ParentID = NewVNodeID(dirID, objectID)
	return n
}

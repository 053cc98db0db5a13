// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dlog"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/settings"
	"lukeshu.com/reiserfs-progs-ng/lib/diskio"
)

// defaultBlockCacheCapacity bounds how many blocks Volume keeps
// pinned-or-recently-used at once; plenty for the shallow traversals
// a directory lookup or file read performs.
const defaultBlockCacheCapacity = 256

// Volume is a mounted ReiserFS filesystem: the open device, its
// decoded superblock, the S+tree built on top of it, the detected
// directory-hash function, and the entries configuration hides.
type Volume struct {
	dev        diskio.File[int64]
	deviceName string

	superblock Superblock
	cache      *BlockCache
	tree       *Tree
	hashFn     HashFunc

	settings      *settings.Settings
	negativeIDs   map[VNodeID]struct{}
	rootVNode     VNode
	volumeName    string
}

// Mount opens path, validates and decodes its superblock, and brings
// up the block cache, tree, hash function, and negative-entry list —
// everything FindVNode/FindDirEntry/ReadLink need.
func Mount(ctx context.Context, path string, settingsFile io.Reader) (*Volume, error) {
	dev, err := diskio.OpenOSFile(path)
	if err != nil {
		return nil, rerr.Wrap("Mount", rerr.IoError, err)
	}

	var sett *settings.Settings
	if settingsFile != nil {
		sett, err = settings.Load(settingsFile, filepath.Base(path))
		if err != nil {
			return nil, err
		}
	} else {
		sett = settings.Empty()
	}

	v := &Volume{dev: dev, deviceName: path, settings: sett, negativeIDs: map[VNodeID]struct{}{}}

	sb, err := ReadSuperblock(ctx, dev)
	if err != nil {
		return nil, err
	}
	if sb.State() != StateValid {
		return nil, rerr.New("Mount", rerr.BadData)
	}
	v.superblock = sb
	v.volumeName = resolveVolumeName(sb, sett)

	v.cache = NewBlockCache(dev, uint64(sb.CountBlocks()), uint32(sb.BlockSize()), defaultBlockCacheCapacity)
	v.tree = NewTree(v.cache, uint64(sb.RootBlock()), int(sb.TreeHeight()), sb.KeyFormat())
	if int(sb.TreeHeight()) > MaxTreeHeight {
		dlog.Warnf(ctx, "reiserfs: %s: tree height %d exceeds %d", path, sb.TreeHeight(), MaxTreeHeight)
	}

	root, err := v.FindVNode(ctx, RootParentObjectID, RootObjectID)
	if err != nil {
		return nil, rerr.Wrap("Mount", rerr.NotFound, err)
	}
	v.rootVNode = root

	v.initHashFunction(ctx)
	v.initNegativeEntries(ctx)

	dlog.Infof(ctx, "reiserfs: mounted %s (%s), block size %d, %d blocks, hash=%v",
		path, v.volumeName, sb.BlockSize(), sb.CountBlocks(), v.hashFn != nil)
	return v, nil
}

// Identify reports how confident this driver is that dev holds a
// ReiserFS volume, mirroring reiserfs_identify_partition: a decodable,
// valid-state superblock scores 0.8 (matching the reference driver's
// fixed confidence value), anything else scores -1 to say "not ours".
func Identify(ctx context.Context, dev diskio.File[int64]) float64 {
	sb, err := ReadSuperblock(ctx, dev)
	if err != nil {
		return -1
	}
	if sb.State() != StateValid {
		return -1
	}
	return 0.8
}

func resolveVolumeName(sb Superblock, sett *settings.Settings) string {
	if label := sb.Label(); label != "" {
		return label
	}
	return sett.GetVolumeName()
}

func (v *Volume) Name() string          { return v.volumeName }
func (v *Volume) DeviceName() string    { return v.deviceName }
func (v *Volume) BlockSize() uint32     { return v.tree.BlockSize() }
func (v *Volume) CountBlocks() uint32   { return v.superblock.CountBlocks() }
func (v *Volume) CountFreeBlocks() uint32 { return v.superblock.CountFreeBlocks() }
func (v *Volume) RootVNode() VNode      { return v.rootVNode }
func (v *Volume) HideEsoteric() bool    { return v.settings.GetHideEsoteric() }

// FindVNode resolves (dirID, objectID)'s stat data, and — for
// directories — its parent via the ".." entry, into a VNode.
func (v *Volume) FindVNode(ctx context.Context, dirID, objectID uint32) (VNode, error) {
	item, err := v.tree.FindStatItem(ctx, dirID, objectID)
	if err != nil {
		return VNode{}, rerr.Wrap("Volume.FindVNode", rerr.NotFound, err)
	}
	sd, err := DecodeStatData(item.Data())
	if err != nil {
		return VNode{}, err
	}
	node := NewVNode(dirID, objectID, sd)
	if node.IsDir() {
		// A missing ".." (the root directory has none) is not
		// fatal to resolving this VNode: its ParentID is simply
		// left at the zero value.
		if dirItem, idx, err := v.tree.FindDirEntry(ctx, dirID, objectID, "..", v.hashFn); err == nil {
			if entry, err := dirItem.EntryHeadAt(idx); err == nil {
				node = node.WithParent(entry.DirID, entry.ObjectID)
			}
		}
	}
	return node, nil
}

// FindVNodeByID is FindVNode, addressed by the packed VNodeID.
func (v *Volume) FindVNodeByID(ctx context.Context, id VNodeID) (VNode, error) {
	return v.FindVNode(ctx, id.DirID(), id.ObjectID())
}

// FindDirEntry resolves entryName within dir to the VNode it names.
// entryName must not be "." or ".." — callers resolve those
// synthetically (see internal/reiserfsmount), matching the reference
// driver's contract.
func (v *Volume) FindDirEntry(ctx context.Context, dir VNode, entryName string) (VNode, error) {
	dirItem, idx, err := v.tree.FindDirEntry(ctx, dir.ID.DirID(), dir.ID.ObjectID(), entryName, v.hashFn)
	if err != nil {
		return VNode{}, rerr.Wrap("Volume.FindDirEntry", rerr.NotFound, err)
	}
	entry, err := dirItem.EntryHeadAt(idx)
	if err != nil {
		return VNode{}, err
	}
	return v.FindVNode(ctx, entry.DirID, entry.ObjectID)
}

// ReadLink reads a symlink's full target.
func (v *Volume) ReadLink(ctx context.Context, node VNode) (string, error) {
	if !node.IsSymlink() {
		return "", rerr.New("Volume.ReadLink", rerr.BadValue)
	}
	sr := NewStreamReader(v.tree, node.ID.DirID(), node.ID.ObjectID())
	defer sr.Close(ctx)
	buf := make([]byte, node.Stat.Size())
	n, err := sr.ReadAt(ctx, 0, buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// IsNegativeEntry reports whether id was configured (via the
// settings file's hide_entries) to be hidden from directory listings
// and lookups.
func (v *Volume) IsNegativeEntry(id VNodeID) bool {
	_, hidden := v.negativeIDs[id]
	return hidden
}

// Tree exposes the underlying S+tree, e.g. for directory iteration
// by internal/reiserfsmount's ReadDir.
func (v *Volume) Tree() *Tree { return v.tree }

func (v *Volume) initHashFunction(ctx context.Context) {
	code := v.superblock.HashFunctionCode()
	fn := hashFuncFor(code)
	if fn == nil || !v.verifyHashFunction(ctx, fn) {
		dlog.Infof(ctx, "reiserfs: no or wrong directory hash function declared; detecting")
		detected := v.detectHashFunction(ctx)
		fn = hashFuncFor(detected)
		if fn != nil && !v.verifyHashFunction(ctx, fn) {
			dlog.Infof(ctx, "reiserfs: detected hash function did not verify")
			fn = nil
		}
	}
	v.hashFn = fn
}

// detectHashFunction walks the root directory's entries looking for
// one whose offset is only consistent with a single candidate hash
// function, exactly as the reference driver's auto-detection does.
func (v *Volume) detectHashFunction(ctx context.Context) uint32 {
	dit := NewDirEntryIterator(v.tree, v.rootVNode.ID.DirID(), v.rootVNode.ID.ObjectID(), uint64(DotDotOffset)+1, false)
	defer dit.Close(ctx)

	candidates := []uint32{TeaHash, YuraHash, R5Hash}
	found := UnsetHash
	for found == UnsetHash {
		item, idx, err := dit.GetNext(ctx)
		if err != nil {
			break
		}
		entry, err := item.EntryHeadAt(idx)
		if err != nil {
			continue
		}
		name, err := item.EntryNameAt(idx)
		if err != nil {
			continue
		}
		for _, code := range candidates {
			fn := hashFuncFor(code)
			testOffset := KeyOffsetForName(fn, string(name))
			if offsetHashValue(uint64(entry.Offset)) == offsetHashValue(uint64(testOffset)) {
				if found != UnsetHash {
					found = UnsetHash
					break
				}
				found = code
			}
		}
	}
	return found
}

// verifyHashFunction confirms fn reproduces every root-directory
// entry's hash offset.
func (v *Volume) verifyHashFunction(ctx context.Context, fn HashFunc) bool {
	dit := NewDirEntryIterator(v.tree, v.rootVNode.ID.DirID(), v.rootVNode.ID.ObjectID(), uint64(DotDotOffset)+1, false)
	defer dit.Close(ctx)

	for {
		item, idx, err := dit.GetNext(ctx)
		if err != nil {
			return true
		}
		entry, err := item.EntryHeadAt(idx)
		if err != nil {
			continue
		}
		name, err := item.EntryNameAt(idx)
		if err != nil {
			continue
		}
		testOffset := KeyOffsetForName(fn, string(name))
		if offsetHashValue(uint64(entry.Offset)) != offsetHashValue(uint64(testOffset)) {
			return false
		}
	}
}

func (v *Volume) initNegativeEntries(ctx context.Context) {
	for i := 0; ; i++ {
		entry, ok := v.settings.HiddenEntryAt(i)
		if !ok {
			break
		}
		if entry == "" || strings.HasPrefix(entry, "/") {
			continue
		}
		node, err := v.findEntry(ctx, v.rootVNode, entry)
		if err != nil {
			dlog.Infof(ctx, "reiserfs: configured hidden entry not found: %q", entry)
			continue
		}
		if node.ID != v.rootVNode.ID {
			v.negativeIDs[node.ID] = struct{}{}
		}
	}
}

// findEntry resolves a '/'-separated relative path from root,
// without following symlinks.
func (v *Volume) findEntry(ctx context.Context, root VNode, path string) (VNode, error) {
	current := root
	for _, component := range strings.Split(strings.Trim(path, "/"), "/") {
		if component == "" {
			continue
		}
		next, err := v.FindDirEntry(ctx, current, component)
		if err != nil {
			return VNode{}, err
		}
		current = next
	}
	return current, nil
}

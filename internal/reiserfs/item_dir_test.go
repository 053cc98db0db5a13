// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

// buildDirLeaf assembles a single-item leaf block holding a directory
// item with entries (in on-disk order, names packed back-to-front),
// mirroring what Tree.GetNode would hand back for a real disk block.
func buildDirLeaf(t *testing.T, blockSize uint32, entries []struct {
	name    string
	dirID   uint32
	objID   uint32
	visible bool
}) LeafNode {
	t.Helper()

	n := len(entries)
	headSize := uint32(dirEntryHeadSize)
	nameSpaceOffset := uint32(n) * headSize

	// Lay out names back-to-front: entries[0]'s name sits closest to
	// the end of the item, entries[n-1]'s name sits right after the
	// header array — the reverse of EntryNameAt's traversal order.
	nameBytes := make([][]byte, n)
	totalNameLen := uint32(0)
	for i := n - 1; i >= 0; i-- {
		nameBytes[i] = []byte(entries[i].name)
		totalNameLen += uint32(len(nameBytes[i]))
	}
	itemLen := nameSpaceOffset + totalNameLen

	body := make([]byte, itemLen)
	loc := itemLen
	for i := 0; i < n; i++ {
		loc -= uint32(len(nameBytes[i]))
		copy(body[loc:], nameBytes[i])
		state := uint16(0)
		if entries[i].visible {
			state = dehVisible
		}
		h := DirEntryHead{
			Offset:   uint32(i + 1),
			DirID:    entries[i].dirID,
			ObjectID: entries[i].objID,
			Location: uint16(loc),
			State:    state,
		}
		buf, err := binstruct.Marshal(h)
		require.NoError(t, err)
		copy(body[i*int(headSize):], buf)
	}

	itemHead := ItemHead{
		Key:          NewVKey(1, 2, 0, TypeDirEntry, KeyFormat35).Encode(),
		Len:          uint16(itemLen),
		FreeSpaceRsv: uint16(n),
		Location:     uint16(blockHeadSize + itemHeadSize),
		Version:      uint16(FormatV1),
	}
	ihBuf, err := binstruct.Marshal(itemHead)
	require.NoError(t, err)

	bh := BlockHead{Level: LeafLevel, ItemCount: 1}
	bhBuf, err := binstruct.Marshal(bh)
	require.NoError(t, err)

	data := make([]byte, blockSize)
	copy(data, bhBuf)
	copy(data[blockHeadSize:], ihBuf)
	copy(data[blockHeadSize+itemHeadSize:], body)

	block := &Block{Number: 1, Data: data, Kind: KindFormatted}
	return Node{Block: block}.AsLeaf()
}

func TestDirItemEntryIteration(t *testing.T) {
	t.Parallel()

	leaf := buildDirLeaf(t, 256, []struct {
		name    string
		dirID   uint32
		objID   uint32
		visible bool
	}{
		{".", 1, 2, false},
		{"..", 1, 1, true},
		{"foo", 1, 5, true},
	})

	item, err := ItemAt(leaf, 0)
	require.NoError(t, err)
	dir := item.AsDir()

	require.NoError(t, dir.Check(256))
	assert.Equal(t, 3, dir.EntryCount())

	for i, want := range []string{".", "..", "foo"} {
		name, err := dir.EntryNameAt(i)
		require.NoError(t, err)
		assert.Equal(t, want, string(name))
	}

	dotHead, err := dir.EntryHeadAt(0)
	require.NoError(t, err)
	assert.True(t, dotHead.IsHidden())

	dotdotHead, err := dir.EntryHeadAt(1)
	require.NoError(t, err)
	assert.True(t, dotdotHead.IsVisible())

	assert.Equal(t, 2, dir.IndexOfName("foo"))
	assert.Equal(t, -1, dir.IndexOfName("missing"))
}

func TestDirItemEntryHeadAtOutOfRange(t *testing.T) {
	t.Parallel()

	leaf := buildDirLeaf(t, 256, []struct {
		name    string
		dirID   uint32
		objID   uint32
		visible bool
	}{
		{".", 1, 2, false},
	})
	item, err := ItemAt(leaf, 0)
	require.NoError(t, err)
	dir := item.AsDir()

	_, err = dir.EntryHeadAt(-1)
	assert.Error(t, err)
	_, err = dir.EntryHeadAt(dir.EntryCount())
	assert.Error(t, err)
}

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVNodeIDPacking(t *testing.T) {
	t.Parallel()

	id := NewVNodeID(RootParentObjectID, RootObjectID)
	assert.Equal(t, RootParentObjectID, id.DirID())
	assert.Equal(t, RootObjectID, id.ObjectID())
}

func TestVNodeClassification(t *testing.T) {
	t.Parallel()

	dirSD, err := DecodeStatData(mustMarshalStatDataV2(t, modeFmtDir|0o755))
	assert.NoError(t, err)
	dir := NewVNode(1, 2, dirSD)
	assert.True(t, dir.IsDir())
	assert.False(t, dir.IsFile())
	assert.False(t, dir.IsSymlink())
	assert.False(t, dir.IsEsoteric())

	fileSD, err := DecodeStatData(mustMarshalStatDataV2(t, modeFmtReg|0o644))
	assert.NoError(t, err)
	file := NewVNode(1, 3, fileSD)
	assert.True(t, file.IsFile())
	assert.False(t, file.IsDir())

	esotericSD, err := DecodeStatData(mustMarshalStatDataV2(t, 0o644)) // no recognized format bits set
	assert.NoError(t, err)
	esoteric := NewVNode(1, 4, esotericSD)
	assert.True(t, esoteric.IsEsoteric())
}

func TestVNodeWithParent(t *testing.T) {
	t.Parallel()

	n := NewVNode(1, 2, StatData{})
	assert.Equal(t, VNodeID(0), n.ParentID)

	n = n.WithParent(5, 6)
	assert.Equal(t, NewVNodeID(5, 6), n.ParentID)
}

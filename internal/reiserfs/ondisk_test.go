// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemTypeString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ  ItemType
		want string
	}{
		{TypeStatData, "stat-data"},
		{TypeIndirect, "indirect"},
		{TypeDirect, "direct"},
		{TypeDirEntry, "direntry"},
		{TypeAny, "any"},
		{ItemType(99), "ItemType(99)"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.typ.String())
	}
}

func TestDirEntryHeadVisibility(t *testing.T) {
	t.Parallel()

	visible := DirEntryHead{State: dehVisible}
	assert.True(t, visible.IsVisible())
	assert.False(t, visible.IsHidden())

	hidden := DirEntryHead{State: 0}
	assert.False(t, hidden.IsVisible())
	assert.True(t, hidden.IsHidden())
}

func TestSuperblockBinaryStaticSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 76, SuperblockV1{}.BinaryStaticSize())
	assert.Equal(t, 204, SuperblockV2{}.BinaryStaticSize())
}

func TestItemHeadBinaryStaticSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 24, ItemHead{}.BinaryStaticSize())
	assert.Equal(t, 16, DirEntryHead{}.BinaryStaticSize())
	assert.Equal(t, 16, RawKey{}.BinaryStaticSize())
}

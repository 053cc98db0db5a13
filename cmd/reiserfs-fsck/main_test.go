// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs"
)

func TestReportPrintOrdersItemTypesByValue(t *testing.T) {
	t.Parallel()

	r := &report{
		leaves:   3,
		badNodes: 1,
		badItems: 2,
		itemCounts: map[reiserfs.ItemType]int{
			reiserfs.TypeDirEntry: 5,
			reiserfs.TypeStatData: 7,
			reiserfs.TypeDirect:   2,
		},
	}

	f, err := os.CreateTemp(t.TempDir(), "report")
	require.NoError(t, err)
	defer f.Close()

	r.print(f)

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "leaves visited")
	assert.Contains(t, out, "stat-data items")
	assert.Contains(t, out, "direntry items")
	assert.Contains(t, out, "direct items")

	// TypeStatData (0) sorts before TypeDirect (2) before TypeDirEntry (3).
	statIdx := strings.Index(out, "stat-data items")
	directIdx := strings.Index(out, "direct items")
	direntryIdx := strings.Index(out, "direntry items")
	assert.True(t, statIdx < directIdx)
	assert.True(t, directIdx < direntryIdx)
}

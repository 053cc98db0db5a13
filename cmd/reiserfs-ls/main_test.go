// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs"
	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

func vnodeWithMode(t *testing.T, mode uint16) reiserfs.VNode {
	t.Helper()
	d := reiserfs.StatDataV2{Mode: mode, NLink: 1}
	buf, err := binstruct.Marshal(d)
	require.NoError(t, err)
	sd, err := reiserfs.DecodeStatData(buf)
	require.NoError(t, err)
	return reiserfs.NewVNode(1, 2, sd)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dir", kindOf(vnodeWithMode(t, 0o040755)))
	assert.Equal(t, "file", kindOf(vnodeWithMode(t, 0o100644)))
	assert.Equal(t, "symlink", kindOf(vnodeWithMode(t, 0o120777)))
	assert.Equal(t, "esoteric", kindOf(vnodeWithMode(t, 0o010644)))
}

func TestPrintStat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printStat(&buf, "/foo", vnodeWithMode(t, 0o100644))
	assert.Contains(t, buf.String(), "/foo")
	assert.Contains(t, buf.String(), "file")
}

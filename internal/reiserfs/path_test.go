// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreePathPushTopPop(t *testing.T) {
	t.Parallel()

	p := newTreePath(3)
	assert.Equal(t, 0, p.Len())

	_, err := p.Top()
	assert.Error(t, err, "Top on an empty path must fail")
	assert.Error(t, p.Pop(), "Pop on an empty path must fail")

	require.NoError(t, p.Push(100, 1))
	require.NoError(t, p.Push(200, 2))
	assert.Equal(t, 2, p.Len())

	top, err := p.Top()
	require.NoError(t, err)
	assert.Equal(t, pathElement{blockNumber: 200, index: 2}, top)

	require.NoError(t, p.Pop())
	top, err = p.Top()
	require.NoError(t, err)
	assert.Equal(t, pathElement{blockNumber: 100, index: 1}, top)
}

func TestTreePathRespectsMaxLen(t *testing.T) {
	t.Parallel()

	p := newTreePath(1)
	require.NoError(t, p.Push(1, 0))
	assert.Error(t, p.Push(2, 0), "Push beyond maxLen must fail")
	assert.Equal(t, 1, p.Len())
}

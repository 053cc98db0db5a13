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

func mustMarshalStatDataV2(t *testing.T, mode uint16) []byte {
	t.Helper()
	d := StatDataV2{Mode: mode, NLink: 1, Size: 0, UID: 0, GID: 0}
	buf, err := binstruct.Marshal(d)
	require.NoError(t, err)
	return buf
}

func mustMarshalStatDataV1(t *testing.T, mode uint16) []byte {
	t.Helper()
	d := StatDataV1{Mode: mode, NLink: 1}
	buf, err := binstruct.Marshal(d)
	require.NoError(t, err)
	return buf
}

func TestDecodeStatDataPicksFormatByLength(t *testing.T) {
	t.Parallel()

	v2, err := DecodeStatData(mustMarshalStatDataV2(t, modeFmtReg|0o644))
	require.NoError(t, err)
	assert.True(t, v2.IsFile())
	assert.Equal(t, uint32(1), v2.NLink())

	v1, err := DecodeStatData(mustMarshalStatDataV1(t, modeFmtDir|0o755))
	require.NoError(t, err)
	assert.True(t, v1.IsDir())
	assert.Equal(t, uint32(1), v1.NLink())
}

func TestDecodeStatDataRejectsWrongLength(t *testing.T) {
	t.Parallel()

	_, err := DecodeStatData(make([]byte, 7))
	assert.Error(t, err)
}

func TestStatDataModeClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode     uint16
		isDir    bool
		isFile   bool
		isLink   bool
		esoteric bool
	}{
		{modeFmtDir | 0o755, true, false, false, false},
		{modeFmtReg | 0o644, false, true, false, false},
		{modeFmtLnk | 0o777, false, false, true, false},
		{0o644, false, false, false, true}, // fifo/socket/device: no recognized format bits
	}
	for _, tc := range tests {
		sd, err := DecodeStatData(mustMarshalStatDataV2(t, tc.mode))
		require.NoError(t, err)
		assert.Equal(t, tc.isDir, sd.IsDir(), "mode %#o", tc.mode)
		assert.Equal(t, tc.isFile, sd.IsFile(), "mode %#o", tc.mode)
		assert.Equal(t, tc.isLink, sd.IsSymlink(), "mode %#o", tc.mode)
		assert.Equal(t, tc.esoteric, sd.IsEsoteric(), "mode %#o", tc.mode)
	}
}

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

// memDevice is a diskio.File[int64] backed by an in-memory buffer, for
// building hand-shaped fixture images without touching a real disk.
type memDevice struct {
	data []byte
}

func (m *memDevice) Name() string { return "fixture" }

func (m *memDevice) Size() (int64, error) { return int64(len(m.data)), nil }

func (m *memDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (m *memDevice) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:], p), nil
}

func putAt(buf []byte, offset int64, v any) {
	enc, err := binstruct.Marshal(v)
	if err != nil {
		panic(err)
	}
	copy(buf[offset:], enc)
}

func TestReadSuperblockV1Fixture(t *testing.T) {
	t.Parallel()

	sb := SuperblockV1{
		BlockCount: 1024,
		FreeBlocks: 100,
		RootBlock:  20,
		BlockSize:  4096,
		State:      StateValid,
		TreeHeight: 3,
		BmapNr:     1,
	}
	copy(sb.Magic[:], MagicV1)

	buf := make([]byte, OldSuperblockOffset+SuperblockV1{}.BinaryStaticSize())
	putAt(buf, OldSuperblockOffset, sb)
	dev := &memDevice{data: buf}

	got, err := ReadSuperblock(context.Background(), dev)
	require.NoError(t, err)
	assert.Equal(t, FormatV1, got.Format)
	assert.Equal(t, uint16(4096), got.BlockSize())
	assert.Equal(t, uint32(1024), got.CountBlocks())
	assert.Equal(t, uint32(100), got.CountFreeBlocks())
	assert.Equal(t, uint32(20), got.RootBlock())
	assert.Equal(t, uint16(3), got.TreeHeight())
	assert.Equal(t, uint16(StateValid), got.State())
	assert.Equal(t, KeyFormat35, got.KeyFormat())
	assert.Equal(t, UnsetHash, got.HashFunctionCode())
}

func TestReadSuperblockV2Fixture(t *testing.T) {
	t.Parallel()

	sb := SuperblockV2{
		BlockCount:       2048,
		FreeBlocks:       500,
		RootBlock:        30,
		BlockSize:        4096,
		State:            StateValid,
		HashFunctionCode: R5Hash,
		TreeHeight:       4,
		BmapNr:           1,
		Version:          1,
	}
	copy(sb.Magic[:], MagicV2)

	size := int(NewSuperblockOffset) + SuperblockV2{}.BinaryStaticSize()
	buf := make([]byte, size)
	// Leave the legacy offset all zeros, so ReadSuperblock's v1 attempt
	// fails its magic check and falls through to the v2 offset, exactly
	// as it must for a volume created with the superblock only at the
	// current location.
	putAt(buf, NewSuperblockOffset, sb)
	dev := &memDevice{data: buf}

	got, err := ReadSuperblock(context.Background(), dev)
	require.NoError(t, err)
	assert.Equal(t, FormatV2, got.Format)
	assert.Equal(t, uint16(4096), got.BlockSize())
	assert.Equal(t, uint32(2048), got.CountBlocks())
	assert.Equal(t, uint32(500), got.CountFreeBlocks())
	assert.Equal(t, uint32(30), got.RootBlock())
	assert.Equal(t, uint16(4), got.TreeHeight())
	assert.Equal(t, uint16(StateValid), got.State())
	assert.Equal(t, KeyFormat36, got.KeyFormat())
	assert.Equal(t, R5Hash, got.HashFunctionCode())
}

func TestReadSuperblockRejectsBadMagic(t *testing.T) {
	t.Parallel()

	size := int(NewSuperblockOffset) + SuperblockV2{}.BinaryStaticSize()
	buf := make([]byte, size) // all zero: no valid magic anywhere
	dev := &memDevice{data: buf}

	_, err := ReadSuperblock(context.Background(), dev)
	assert.Error(t, err)
}

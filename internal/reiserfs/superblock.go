// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"bytes"
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
	"lukeshu.com/reiserfs-progs-ng/lib/diskio"
)

// Superblock normalizes the v1/v2 on-disk superblock formats behind
// one set of accessors, mirroring the reference driver's SuperBlock
// class.
type Superblock struct {
	Format uint32 // FormatV1 or FormatV2
	v1     SuperblockV1
	v2     SuperblockV2
}

func readSuperblockAt(dev diskio.File[int64], offset int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := dev.ReadAt(buf, offset); err != nil {
		return nil, rerr.Wrap("readSuperblockAt", rerr.IoError, err)
	}
	return buf, nil
}

// magicMatches mirrors the reference read_super_block's recognition
// check: strncmp(superBlock->s_magic, magic, strlen(magic)). Only the
// short ASCII magic string's own bytes are compared; trailing padding
// in the on-disk field (and in our MagicV1/MagicV2 constants, which
// carry it for documentation) is never examined.
func magicMatches(field []byte, magic string) bool {
	if len(field) < len(magic) {
		return false
	}
	return bytes.Equal(field[:len(magic)], []byte(magic))
}

// ReadSuperblock locates and decodes the volume's superblock. As the
// reference driver does, it tries the 3.5 layout at the legacy offset
// first, then the 3.6 layout at the current offset; the first one
// whose magic matches wins.
func ReadSuperblock(ctx context.Context, dev diskio.File[int64]) (Superblock, error) {
	v1size := SuperblockV1{}.BinaryStaticSize()
	if buf, err := readSuperblockAt(dev, OldSuperblockOffset, v1size); err == nil {
		var sb SuperblockV1
		if _, uerr := binstruct.Unmarshal(buf, &sb); uerr == nil && magicMatches(sb.Magic[:], MagicV1) {
			return Superblock{Format: FormatV1, v1: sb}, nil
		}
	}

	v2size := SuperblockV2{}.BinaryStaticSize()
	buf, err := readSuperblockAt(dev, NewSuperblockOffset, v2size)
	if err != nil {
		return Superblock{}, err
	}
	var sb SuperblockV2
	if _, uerr := binstruct.Unmarshal(buf, &sb); uerr != nil {
		return Superblock{}, rerr.Wrap("ReadSuperblock", rerr.BadData, uerr)
	}
	if !magicMatches(sb.Magic[:], MagicV2) {
		return Superblock{}, rerr.New("ReadSuperblock", rerr.NotFound)
	}
	return Superblock{Format: FormatV2, v2: sb}, nil
}

func (sb Superblock) BlockSize() uint16 {
	if sb.Format == FormatV2 {
		return sb.v2.BlockSize
	}
	return sb.v1.BlockSize
}

func (sb Superblock) CountBlocks() uint32 {
	if sb.Format == FormatV2 {
		return sb.v2.BlockCount
	}
	return sb.v1.BlockCount
}

func (sb Superblock) CountFreeBlocks() uint32 {
	if sb.Format == FormatV2 {
		return sb.v2.FreeBlocks
	}
	return sb.v1.FreeBlocks
}

func (sb Superblock) RootBlock() uint32 {
	if sb.Format == FormatV2 {
		return sb.v2.RootBlock
	}
	return sb.v1.RootBlock
}

func (sb Superblock) TreeHeight() uint16 {
	if sb.Format == FormatV2 {
		return sb.v2.TreeHeight
	}
	return sb.v1.TreeHeight
}

func (sb Superblock) State() uint16 {
	if sb.Format == FormatV2 {
		return sb.v2.State
	}
	return sb.v1.State
}

// HashFunctionCode returns the declared hash function, or UnsetHash on
// a v1 (3.5) volume, which never records one.
func (sb Superblock) HashFunctionCode() uint32 {
	if sb.Format == FormatV2 {
		return sb.v2.HashFunctionCode
	}
	return UnsetHash
}

// KeyFormat returns the key format items default to on this volume
// (still subject to being overridden per-item by ItemHead.Version).
func (sb Superblock) KeyFormat() KeyFormat {
	if sb.Format == FormatV2 {
		return KeyFormat36
	}
	return KeyFormat35
}

// Label always returns "": neither reiserfs_super_block nor
// reiserfs_super_block_v1 carries a volume-label field on disk. Volume
// naming falls back entirely to the mount settings; see
// resolveVolumeName.
func (sb Superblock) Label() string { return "" }

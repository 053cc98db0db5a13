// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package reiserfs implements a read-only driver for the ReiserFS
// v3.5/v3.6 on-disk format: block cache, S+tree navigation, item
// decoding, and stream reading.
package reiserfs

import "fmt"

// Fixed byte offsets at which a superblock may be found.
const (
	OldSuperblockOffset = 8192  // v3.5
	NewSuperblockOffset = 65536 // v3.6, and v3.5 volumes created after the offset moved
)

// Superblock magic strings, found at SuperblockV1.Magic /
// SuperblockV2.Magic.
const (
	MagicV1 = "ReIsErFs\x00\x00\x00\x00"
	MagicV2 = "ReIsEr2Fs\x00\x00\x00"
)

// Format versions.
const (
	FormatV1 uint32 = 0 // 3.5
	FormatV2 uint32 = 1 // 3.6
)

// Volume state. Anything other than StateValid refuses to mount.
const (
	StateValid   = 1
	StateIsError = 2
)

// Well-known object ids.
const (
	RootParentObjectID uint32 = 1
	RootObjectID       uint32 = 2
)

// Reserved directory-entry offsets.
const (
	StatDataOffset uint32 = 0
	DotOffset      uint32 = 1
	DotDotOffset   uint32 = 2
)

// Key-format-3.5 uniqueness sentinels (the second half of a v1 key).
const (
	V1StatDataUniqueness uint32 = 0
	V1IndirectUniqueness uint32 = 0xFFFFFFFE
	V1DirectUniqueness   uint32 = 0xFFFFFFFF
	V1DirEntryUniqueness uint32 = 500
	V1AnyUniqueness      uint32 = 555
)

// ItemType is the logical item-kind, independent of key format.
type ItemType int

const (
	TypeStatData ItemType = iota
	TypeIndirect
	TypeDirect
	TypeDirEntry
	TypeAny
)

func (t ItemType) String() string {
	switch t {
	case TypeStatData:
		return "stat-data"
	case TypeIndirect:
		return "indirect"
	case TypeDirect:
		return "direct"
	case TypeDirEntry:
		return "direntry"
	case TypeAny:
		return "any"
	default:
		return fmt.Sprintf("ItemType(%d)", int(t))
	}
}

// MaxTreeHeight mirrors kMaxTreeHeight from the original driver: the
// tree navigator sizes its path buffers to the superblock's declared
// height, but warns (does not fail) if that height exceeds this.
const MaxTreeHeight = 5

// OptimalIOSize is reported to the host VFS as the filesystem's
// preferred I/O size, independent of the on-disk block size.
const OptimalIOSize = 65536

// SuperblockV1 is the on-disk layout of a ReiserFS 3.5.X (X >= 10)
// superblock (reiserfs_super_block_v1): 76 bytes, magic at offset 52.
type SuperblockV1 struct {
	BlockCount          uint32
	FreeBlocks          uint32
	RootBlock           uint32
	JournalBlock        uint32
	JournalDevice       uint32
	OrigJournalSize     uint32
	JournalTransMax     uint32
	JournalBlockCount   uint32
	JournalMaxBatch     uint32
	JournalMaxCommitAge uint32
	JournalMaxTransAge  uint32
	BlockSize           uint16
	OIDMaxSize          uint16
	OIDCurSize          uint16
	State               uint16
	Magic               [16]byte
	TreeHeight          uint16
	BmapNr              uint16
	Reserved            uint32
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (SuperblockV1) BinaryStaticSize() int { return 4*11 + 2*4 + 16 + 2*2 + 4 }

// SuperblockV2 is the on-disk layout of a ReiserFS 3.6 superblock
// (reiserfs_super_block): 204 bytes. It shares SuperblockV1's leading
// 52 bytes field-for-field, but its magic is 12 bytes (not 16), so the
// two structs are decoded independently rather than one embedding the
// other.
type SuperblockV2 struct {
	BlockCount          uint32
	FreeBlocks          uint32
	RootBlock           uint32
	JournalBlock        uint32
	JournalDevice       uint32
	OrigJournalSize     uint32
	JournalTransMax     uint32
	JournalBlockCount   uint32
	JournalMaxBatch     uint32
	JournalMaxCommitAge uint32
	JournalMaxTransAge  uint32
	BlockSize           uint16
	OIDMaxSize          uint16
	OIDCurSize          uint16
	State               uint16
	Magic               [12]byte
	HashFunctionCode    uint32
	TreeHeight          uint16
	BmapNr              uint16
	Version             uint16
	Reserved            uint16
	InodeGeneration     uint32
	_                   [124]byte // zero filled by mkreiserfs, not decoded
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (SuperblockV2) BinaryStaticSize() int {
	return 4*11 + 2*4 + 12 + 4 + 2*4 + 4 + 124
}

// Hash function codes as stored in SuperblockV2.HashFunctionCode.
const (
	UnsetHash uint32 = 0
	TeaHash   uint32 = 1
	YuraHash  uint32 = 2
	R5Hash    uint32 = 3
)

// BlockHead is the 24-byte header at the start of every formatted
// (tree node) block.
type BlockHead struct {
	Level     uint16
	ItemCount uint16
	FreeSpace uint16
	Reserved  uint16
	RightKey  RawKey
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (BlockHead) BinaryStaticSize() int { return 2 + 2 + 2 + 2 + 16 }

// LeafLevel is BlockHead.Level for a leaf node. Anything greater is
// an internal node at that height.
const LeafLevel = 1

// RawKey is the 16-byte on-disk key: 8 bytes of (dir_id, object_id)
// followed by 8 bytes whose interpretation is a union over two
// formats (see Key/VKey in keys.go) and is therefore decoded by hand
// rather than through binstruct's field-by-field reflection.
type RawKey struct {
	DirID    uint32
	ObjectID uint32
	Tail     [8]byte // v1: offset(u32) + uniqueness(u32); v2: packed offset(60)+type(4), all little-endian
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (RawKey) BinaryStaticSize() int { return 16 }

// DiskChild is an internal node's per-child descriptor.
type DiskChild struct {
	BlockNumber uint32
	Size        uint16
	Reserved1   uint16
	Reserved2   uint16
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (DiskChild) BinaryStaticSize() int { return 4 + 2 + 2 + 2 }

// ItemHead is the 24-byte leaf item header.
type ItemHead struct {
	Key          RawKey
	Len          uint16
	FreeSpaceRsv uint16 // indirect items only (0 on v3.6 on-disk); also doubles as EntryCount for DirEntry items
	Location     uint16
	Version      uint16
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (ItemHead) BinaryStaticSize() int { return 16 + 2 + 2 + 2 + 2 }

// StatDataV1 is the 32-byte v1 stat-data layout.
type StatDataV1 struct {
	Mode      uint16
	NLink     uint16
	UID       uint16
	GID       uint16
	Size      uint32
	ATime     uint32
	MTime     uint32
	CTime     uint32
	Rdev      uint32
	Blocks    uint32 // first_direct_byte in some trees; treated as blocks here
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (StatDataV1) BinaryStaticSize() int { return 2*4 + 4*6 }

// StatDataV2 is the 44-byte v2 stat-data layout.
type StatDataV2 struct {
	Mode       uint16
	Reserved   uint16
	NLink      uint32
	Size       uint64
	UID        uint32
	GID        uint32
	ATime      uint32
	MTime      uint32
	CTime      uint32
	Blocks     uint32
	Rdev       uint32 // shares storage with Generation on non-device files
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (StatDataV2) BinaryStaticSize() int { return 2 + 2 + 4 + 8 + 4*7 }

// DirEntryHead is the 16-byte fixed portion of one directory entry.
// Unlike RawKey's tail, a directory entry's offset is always a plain
// 32-bit field regardless of key format: an entry's type is always
// implicitly DirEntry, and name-hash offsets comfortably fit 32 bits,
// so there is no type nibble to pack alongside it.
type DirEntryHead struct {
	Offset   uint32
	DirID    uint32
	ObjectID uint32
	Location uint16
	State    uint16
}

// BinaryStaticSize implements binstruct.StaticSizer.
func (DirEntryHead) BinaryStaticSize() int { return 4 + 4 + 4 + 2 + 2 }

// DirEntry visibility bit within DirEntryHead.State.
const dehVisible = 1 << 2

// POSIX mode bits this driver cares about (subset of <sys/stat.h>).
const (
	modeFmtMask = 0xF000
	modeFmtDir  = 0x4000
	modeFmtReg  = 0x8000
	modeFmtLnk  = 0xA000
)

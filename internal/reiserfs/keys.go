// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import "encoding/binary"

// KeyFormat distinguishes the two on-disk encodings of a key's
// trailing 8 bytes. It is never stored in the key itself; it must
// come from context (the containing item's version, or be guessed).
type KeyFormat int

const (
	KeyFormat35 KeyFormat = iota
	KeyFormat36
)

// v2 key-type nibble values (KeyFormat36).
const (
	v2TypeStatData = 0
	v2TypeIndirect = 1
	v2TypeDirect   = 2
	v2TypeDirEntry = 3
	v2TypeAny      = 15
)

const v2OffsetMask = (uint64(1) << 60) - 1

// VKey is the in-memory, format-tagged key used throughout the tree
// and iterator layers: (dir_id, object_id, offset, type), plus the
// format it was decoded under (retained only so a caller can
// re-encode it, never consulted by Compare).
type VKey struct {
	DirID    uint32
	ObjectID uint32
	Offset   uint64
	Type     ItemType
	Format   KeyFormat
}

// NewVKey builds a VKey directly, as Tree.FindStatItem and
// Tree.FindDirEntry's hash fast-path do when they need a key to
// search for rather than one decoded from disk.
func NewVKey(dirID, objectID uint32, offset uint64, typ ItemType, format KeyFormat) VKey {
	return VKey{DirID: dirID, ObjectID: objectID, Offset: offset, Type: typ, Format: format}
}

// GuessFormat inspects raw's trailing 8 bytes as if they were a v2
// packed offset+type and returns KeyFormat36 if the type nibble is one
// of the four known v2 item types, else KeyFormat35. This mirrors
// Key::GuessVersion in the original driver: a standalone key (no
// containing item to supply a version) guesses 3.6 if doing so
// produces a recognizable type.
func GuessFormat(raw RawKey) KeyFormat {
	packed := binary.LittleEndian.Uint64(raw.Tail[:])
	switch packed >> 60 {
	case v2TypeStatData, v2TypeIndirect, v2TypeDirect, v2TypeDirEntry:
		return KeyFormat36
	default:
		return KeyFormat35
	}
}

// DecodeKey interprets raw under the given format.
func DecodeKey(raw RawKey, format KeyFormat) VKey {
	k := VKey{DirID: raw.DirID, ObjectID: raw.ObjectID, Format: format}
	switch format {
	case KeyFormat36:
		packed := binary.LittleEndian.Uint64(raw.Tail[:])
		k.Offset = packed & v2OffsetMask
		switch packed >> 60 {
		case v2TypeStatData:
			k.Type = TypeStatData
		case v2TypeIndirect:
			k.Type = TypeIndirect
		case v2TypeDirect:
			k.Type = TypeDirect
		case v2TypeDirEntry:
			k.Type = TypeDirEntry
		default:
			k.Type = TypeAny
		}
	default: // KeyFormat35
		offset := binary.LittleEndian.Uint32(raw.Tail[0:4])
		uniqueness := binary.LittleEndian.Uint32(raw.Tail[4:8])
		k.Offset = uint64(offset)
		switch uniqueness {
		case V1StatDataUniqueness:
			k.Type = TypeStatData
		case V1IndirectUniqueness:
			k.Type = TypeIndirect
		case V1DirectUniqueness:
			k.Type = TypeDirect
		case V1DirEntryUniqueness:
			k.Type = TypeDirEntry
		default:
			k.Type = TypeAny
		}
	}
	return k
}

// Encode renders k back to its on-disk RawKey representation, per
// k.Format.
func (k VKey) Encode() RawKey {
	raw := RawKey{DirID: k.DirID, ObjectID: k.ObjectID}
	switch k.Format {
	case KeyFormat36:
		var typeNibble uint64
		switch k.Type {
		case TypeStatData:
			typeNibble = v2TypeStatData
		case TypeIndirect:
			typeNibble = v2TypeIndirect
		case TypeDirect:
			typeNibble = v2TypeDirect
		case TypeDirEntry:
			typeNibble = v2TypeDirEntry
		default:
			typeNibble = v2TypeAny
		}
		packed := (k.Offset & v2OffsetMask) | (typeNibble << 60)
		binary.LittleEndian.PutUint64(raw.Tail[:], packed)
	default:
		binary.LittleEndian.PutUint32(raw.Tail[0:4], uint32(k.Offset))
		var uniqueness uint32
		switch k.Type {
		case TypeStatData:
			uniqueness = V1StatDataUniqueness
		case TypeIndirect:
			uniqueness = V1IndirectUniqueness
		case TypeDirect:
			uniqueness = V1DirectUniqueness
		case TypeDirEntry:
			uniqueness = V1DirEntryUniqueness
		default:
			uniqueness = V1AnyUniqueness
		}
		binary.LittleEndian.PutUint32(raw.Tail[4:8], uniqueness)
	}
	return raw
}

// Compare orders a before b: dir_id, then object_id, then offset, all
// as unsigned integers. Type is compared only if compareTypes is
// true — by default two keys differing only in type compare equal,
// which is what lets a search key with Type=TypeAny match any item at
// that (dir_id, object_id, offset).
func (a VKey) Compare(b VKey, compareTypes bool) int {
	switch {
	case a.DirID < b.DirID:
		return -1
	case a.DirID > b.DirID:
		return 1
	}
	switch {
	case a.ObjectID < b.ObjectID:
		return -1
	case a.ObjectID > b.ObjectID:
		return 1
	}
	switch {
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	}
	if compareTypes && a.Type != b.Type {
		if a.Type < b.Type {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether a sorts strictly before b, ignoring type.
func (a VKey) Less(b VKey) bool { return a.Compare(b, false) < 0 }

// Equal reports whether a and b address the same (dir_id, object_id,
// offset), ignoring type.
func (a VKey) Equal(b VKey) bool { return a.Compare(b, false) == 0 }

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

// StatData is the format-independent view over a stat item's body:
// whichever of StatDataV1/StatDataV2 the item's length identifies,
// normalized to one set of accessors.
type StatData struct {
	v2     bool
	dataV1 StatDataV1
	dataV2 StatDataV2
}

// DecodeStatData picks the 32- or 44-byte layout by matching body's
// length exactly, as the reference driver's StatItem::GetStatData
// does, and fails closed on any other length.
func DecodeStatData(body []byte) (StatData, error) {
	switch len(body) {
	case StatDataV2{}.BinaryStaticSize():
		var d StatDataV2
		if _, err := binstruct.Unmarshal(body, &d); err != nil {
			return StatData{}, rerr.Wrap("DecodeStatData", rerr.BadData, err)
		}
		return StatData{v2: true, dataV2: d}, nil
	case StatDataV1{}.BinaryStaticSize():
		var d StatDataV1
		if _, err := binstruct.Unmarshal(body, &d); err != nil {
			return StatData{}, rerr.Wrap("DecodeStatData", rerr.BadData, err)
		}
		return StatData{dataV1: d}, nil
	default:
		return StatData{}, rerr.New("DecodeStatData", rerr.BadData)
	}
}

func (sd StatData) Mode() uint16 {
	if sd.v2 {
		return sd.dataV2.Mode
	}
	return sd.dataV1.Mode
}

func (sd StatData) NLink() uint32 {
	if sd.v2 {
		return sd.dataV2.NLink
	}
	return uint32(sd.dataV1.NLink)
}

func (sd StatData) UID() uint32 {
	if sd.v2 {
		return sd.dataV2.UID
	}
	return uint32(sd.dataV1.UID)
}

func (sd StatData) GID() uint32 {
	if sd.v2 {
		return sd.dataV2.GID
	}
	return uint32(sd.dataV1.GID)
}

func (sd StatData) Size() uint64 {
	if sd.v2 {
		return sd.dataV2.Size
	}
	return uint64(sd.dataV1.Size)
}

func (sd StatData) ATime() uint32 {
	if sd.v2 {
		return sd.dataV2.ATime
	}
	return sd.dataV1.ATime
}

func (sd StatData) MTime() uint32 {
	if sd.v2 {
		return sd.dataV2.MTime
	}
	return sd.dataV1.MTime
}

func (sd StatData) CTime() uint32 {
	if sd.v2 {
		return sd.dataV2.CTime
	}
	return sd.dataV1.CTime
}

func (sd StatData) Blocks() uint32 {
	if sd.v2 {
		return sd.dataV2.Blocks
	}
	return sd.dataV1.Blocks
}

func (sd StatData) RDev() uint32 {
	if sd.v2 {
		return sd.dataV2.Rdev
	}
	return sd.dataV1.Rdev
}

func (sd StatData) IsDir() bool  { return sd.Mode()&modeFmtMask == modeFmtDir }
func (sd StatData) IsFile() bool { return sd.Mode()&modeFmtMask == modeFmtReg }
func (sd StatData) IsSymlink() bool {
	return sd.Mode()&modeFmtMask == modeFmtLnk
}

// IsEsoteric reports whether the object is something other than a
// directory, regular file, or symlink (a device node, fifo, or
// socket) — ReiserFS stores these but this driver exposes them only
// as opaque directory entries, never opening their content.
func (sd StatData) IsEsoteric() bool {
	return !sd.IsDir() && !sd.IsFile() && !sd.IsSymlink()
}

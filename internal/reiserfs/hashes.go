// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import "encoding/binary"

// HashFunc computes a directory-entry name hash. Implementations
// return the same 32-bit value the on-disk hash functions do; only
// bits 7..30 end up in a key's offset field (see getHashValue and
// KeyOffsetForName).
type HashFunc func(name []byte) uint32

// Generation-number / offset-encoding constants, shared by all three
// hash functions' callers.
const (
	maxGenerationNumber = 127
)

// teaCore runs n TEA rounds of mixing (a,b,c,d) into (h0,h1), per the
// reference TEACORE macro.
func teaCore(h0, h1, a, b, c, d uint32, rounds int) (uint32, uint32) {
	const delta = 0x9E3779B9
	sum := uint32(0)
	b0, b1 := h0, h1
	for i := 0; i < rounds; i++ {
		sum += delta
		b0 += ((b1 << 4) + a) ^ (b1 + sum) ^ ((b1 >> 5) + b)
		b1 += ((b0 << 4) + c) ^ (b0 + sum) ^ ((b0 >> 5) + d)
	}
	return h0 + b0, h1 + b1
}

func loadWordLE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// loadTailWord loads up to 4 bytes starting at msg[off:], filling any
// bytes past len(msg) with pad — the reference implementation uses
// the message length (replicated into every byte of pad) as filler
// for a short final word.
func loadTailWord(msg []byte, off int, pad uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], pad)
	for i := 0; i < 4; i++ {
		if off+i < len(msg) {
			buf[i] = msg[off+i]
		}
	}
	return loadWordLE(buf[:])
}

// teaHash is the TEA-derived hash used by default on most ReiserFS
// volumes. Transliterated from the reference implementation's
// keyed_hash: DELTA=0x9E3779B9, 10 full rounds per 16-byte block plus
// 6 partial rounds over the final (possibly short, pad-filled) block.
func teaHash(msg []byte) uint32 {
	const (
		fullRounds = 10
		partRounds = 6
	)
	h0, h1 := uint32(0x9464a485), uint32(0x542e1a94)

	length := uint32(len(msg))
	pad := length | length<<8
	pad |= pad << 16

	for len(msg) >= 16 {
		a := loadWordLE(msg[0:4])
		b := loadWordLE(msg[4:8])
		c := loadWordLE(msg[8:12])
		d := loadWordLE(msg[12:16])
		h0, h1 = teaCore(h0, h1, a, b, c, d, fullRounds)
		msg = msg[16:]
	}

	a := loadTailWord(msg, 0, pad)
	b := loadTailWord(msg, 4, pad)
	c := loadTailWord(msg, 8, pad)
	d := loadTailWord(msg, 12, pad)
	h0, h1 = teaCore(h0, h1, a, b, c, d, partRounds)

	return h1
}

// yuraHash is a transliteration of the reference yura_hash: a
// positional hash that treats every byte as if it were a decimal
// digit contributing to a base-10 number, padding the name out to 256
// "digits" (256-40 of them taken from the byte value i itself, the
// 40-length "short name" gap filled with '0') before shifting left by
// 7 to leave room for the generation counter.
func yuraHash(msg []byte) uint32 {
	if len(msg) == 0 {
		return 0
	}
	length := int32(len(msg))

	m := make([]int32, length)
	for i, b := range msg {
		m[i] = int32(int8(b))
	}

	var pow int32
	var i, j int32
	for pow, i = 1, 1; i < length; i++ {
		pow *= 10
	}

	var a int32
	if length == 1 {
		a = m[0] - 48
	} else {
		a = (m[0] - 48) * pow
	}

	for i = 1; i < length; i++ {
		c := m[i] - 48
		for pow, j = 1, i; j < length-1; j++ {
			pow *= 10
		}
		a += c * pow
	}

	for ; i < 40; i++ {
		c := int32('0') - 48
		for pow, j = 1, i; j < length-1; j++ {
			pow *= 10
		}
		a += c * pow
	}

	for ; i < 256; i++ {
		c := i
		for pow, j = 1, i; j < length-1; j++ {
			pow *= 10
		}
		a += c * pow
	}

	a <<= 7
	return uint32(a)
}

// r5Hash is the simplest of the three: a multiplicative rolling hash.
func r5Hash(msg []byte) uint32 {
	a := uint32(0)
	for _, c := range msg {
		a += uint32(c) << 4
		a += uint32(c) >> 4
		a *= 11
	}
	return a
}

// HashCode identifies which of the three hash functions a superblock
// declares (or UnsetHash).
type HashCode uint32

func hashFuncFor(code uint32) HashFunc {
	switch code {
	case TeaHash:
		return teaHash
	case YuraHash:
		return yuraHash
	case R5Hash:
		return r5Hash
	default:
		return nil
	}
}

// getHashValue extracts the 24-bit hash field (bits 7..30) that a
// directory-entry offset packs a raw hash value into, discarding the
// low 7 generation-counter bits and the top sign/type bit.
func getHashValue(hash uint32) uint32 {
	return hash & 0x7fffff80
}

// KeyOffsetForName computes the directory-entry key offset for name
// under hashFn, exactly mirroring key_offset_for_name: "." and ""
// both map to DotOffset, ".." maps to DotDotOffset, and everything
// else is the hash's bucket value with the maximum generation number
// added as the starting generation.
func KeyOffsetForName(hashFn HashFunc, name string) uint32 {
	switch name {
	case "", ".":
		return DotOffset
	case "..":
		return DotDotOffset
	}
	res := getHashValue(hashFn([]byte(name)))
	if res == 0 {
		res = 128
	}
	return res + maxGenerationNumber
}

// offsetHashValue and offsetGeneration split a directory-entry key's
// offset into its hash-bucket and generation-counter components,
// inverse to the packing KeyOffsetForName performs (modulo the
// generation counter itself, which FindDirEntry's hash fast path
// walks downward from maxGenerationNumber).
func offsetHashValue(offset uint64) uint32 {
	return getHashValue(uint32(offset))
}

func offsetGeneration(offset uint64) uint32 {
	return uint32(offset) & 0x7f
}

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFuncForKnownCodes(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, hashFuncFor(TeaHash))
	assert.NotNil(t, hashFuncFor(YuraHash))
	assert.NotNil(t, hashFuncFor(R5Hash))
	assert.Nil(t, hashFuncFor(UnsetHash))
	assert.Nil(t, hashFuncFor(9999))
}

func TestHashFuncsAreDeterministic(t *testing.T) {
	t.Parallel()

	names := []string{"a", "foo.txt", "a-much-longer-filename-that-spans-more-than-one-block.dat", ""}
	for _, fn := range []HashFunc{teaHash, yuraHash, r5Hash} {
		for _, name := range names {
			a := fn([]byte(name))
			b := fn([]byte(name))
			assert.Equal(t, a, b)
		}
	}
}

func TestYuraHashMatchesReferenceValues(t *testing.T) {
	t.Parallel()

	// Values computed by the reference yura_hash() implementation.
	cases := []struct {
		name string
		want uint32
	}{
		{"1", 4078208},
		{"12", 4079616},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, yuraHash([]byte(c.name)), "name %q", c.name)
	}
}

func TestHashFuncsDistinguishNames(t *testing.T) {
	t.Parallel()

	for _, fn := range []HashFunc{teaHash, yuraHash, r5Hash} {
		assert.NotEqual(t, fn([]byte("alice")), fn([]byte("bob")))
	}
}

func TestKeyOffsetForNameSpecialCases(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(DotOffset), KeyOffsetForName(teaHash, "."))
	assert.Equal(t, uint32(DotOffset), KeyOffsetForName(teaHash, ""))
	assert.Equal(t, uint32(DotDotOffset), KeyOffsetForName(teaHash, ".."))
}

func TestKeyOffsetForNameStartsAtMaxGeneration(t *testing.T) {
	t.Parallel()

	off := KeyOffsetForName(teaHash, "regular-file")
	assert.Equal(t, uint32(maxGenerationNumber), offsetGeneration(uint64(off)))
}

func TestOffsetHashValueMasksGenerationBits(t *testing.T) {
	t.Parallel()

	off := KeyOffsetForName(r5Hash, "somename")
	bucket := offsetHashValue(uint64(off))
	assert.Equal(t, uint32(0), bucket&0x7f, "generation bits must not leak into the hash bucket")
}

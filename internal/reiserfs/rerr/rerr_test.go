// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package rerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndIs(t *testing.T) {
	t.Parallel()

	err := New("Tree.FindStatItem", NotFound)
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, BadData))
	assert.False(t, Is(nil, NotFound))
	assert.False(t, Is(errors.New("plain"), NotFound))
}

func TestWrapNilPassesThrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Wrap("op", BadData, nil))
}

func TestWrapPreservesCauseAndUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk read failed")
	err := Wrap("Tree.GetBlock", IoError, cause)
	assert.True(t, Is(err, IoError))
	assert.ErrorIs(t, err, cause)

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "Tree.GetBlock", e.Op)
	assert.Equal(t, cause, e.Err)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	cases := map[Kind]string{
		BadValue:       "bad value",
		NotFound:       "not found",
		BadData:        "bad data",
		IoError:        "I/O error",
		NoMemory:       "no memory",
		ReadOnlyDevice: "read-only device",
		NotAllowed:     "not allowed",
		NameTooLong:    "name too long",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
	assert.Contains(t, Kind(99).String(), "rerr.Kind")
}

func TestErrorMessageFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Op: bad value", New("Op", BadValue).Error())

	cause := errors.New("boom")
	assert.Equal(t, "Op: I/O error: boom", Wrap("Op", IoError, cause).Error())
}

// Copyright (C) 2022  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package diskio provides the narrow file-like interface that the
// rest of the tree uses to address an underlying block device, plus
// the Ref helper for reading/writing a single (un)marshalable value
// at a given address.
package diskio

// File is the minimal random-access interface the filesystem layer
// needs from an underlying device or image file. A is the address
// type (a block number or a byte offset, depending on the caller).
type File[A ~int64] interface {
	Name() string
	Size() (A, error)
	ReadAt(p []byte, off A) (n int, err error)
	WriteAt(p []byte, off A) (n int, err error)
}

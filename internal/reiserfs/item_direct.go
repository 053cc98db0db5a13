// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

// DirectItem holds file data inline in the tree, used for a file's
// final partial block (or the whole file, for tiny files packed into
// the tail).
type DirectItem struct {
	Item
}

// AsDirect views it as a DirectItem.
func (it Item) AsDirect() DirectItem { return DirectItem{Item: it} }

// Bytes returns the item's raw file-data bytes.
func (it DirectItem) Bytes() []byte { return it.Data() }

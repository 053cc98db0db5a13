// Copyright (C) 2022  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import "os"

// OSFile adapts *os.File to File[int64], the shape the tree/volume
// layer expects from whatever backs a mounted device.
type OSFile struct {
	*os.File
}

// OpenOSFile opens name read-only and wraps it as a File[int64].
func OpenOSFile(name string) (*OSFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &OSFile{File: f}, nil
}

func (f *OSFile) Size() (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package jsonutil provides small helpers for rendering raw on-disk
// byte strings (object names, opaque key payloads) into JSON-safe
// hex literals. No command in this module calls it at present.
package jsonutil

import (
	"io"
)

// EncodeHexString writes str to w as a JSON string literal of lowercase
// hex digits, e.g. []byte{0xab, 0x01} -> `"ab01"`.
func EncodeHexString[T ~[]byte | ~string](w io.Writer, str T) error {
	const hextable = "0123456789abcdef"
	var buf [2]byte
	buf[0] = '"'
	if _, err := w.Write(buf[:1]); err != nil {
		return err
	}
	for i := 0; i < len(str); i++ {
		buf[0] = hextable[str[i]>>4]
		buf[1] = hextable[str[i]&0x0f]
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	buf[0] = '"'
	if _, err := w.Write(buf[:1]); err != nil {
		return err
	}
	return nil
}

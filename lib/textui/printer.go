// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: Apache-2.0

package textui

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats numbers with thousands separators, which makes the
// block and object-id counters that cmd/reiserfs-* prints much
// easier to read at a glance.
var printer = message.NewPrinter(language.AmericanEnglish)

// Fprintf is like fmt.Fprintf, but integers are grouped with the
// locale's thousands separator.
func Fprintf(w io.Writer, format string, args ...any) (int, error) {
	return printer.Fprintf(w, format, args...)
}

// Sprintf is like fmt.Sprintf, but integers are grouped with the
// locale's thousands separator.
func Sprintf(format string, args ...any) string {
	return printer.Sprintf(format, args...)
}

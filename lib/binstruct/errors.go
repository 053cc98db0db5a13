// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package binstruct

import (
	"fmt"
	"reflect"
)

// InvalidTypeError is returned when a Go type cannot be statically
// sized or (un)marshaled because its shape doesn't correspond to
// anything in the on-disk format.
type InvalidTypeError struct {
	Type reflect.Type
	Err  error
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("binstruct: %v: %v", e.Type, e.Err)
}

func (e *InvalidTypeError) Unwrap() error { return e.Err }

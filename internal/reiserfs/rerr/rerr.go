// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package rerr defines the closed error taxonomy that every layer of
// the driver returns, so a VFS binding can classify a failure by Kind
// without string-matching.
package rerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// BadValue means the caller violated a contract (nil pointer,
	// out-of-range index).
	BadValue Kind = iota
	// NotFound means a key, name, or path component does not exist.
	NotFound
	// BadData means an on-disk structure failed a consistency check.
	BadData
	// IoError means the underlying block read failed.
	IoError
	// NoMemory means an allocation failed.
	NoMemory
	// ReadOnlyDevice means a mutating operation was requested.
	ReadOnlyDevice
	// NotAllowed means a permission check failed.
	NotAllowed
	// NameTooLong means a path component exceeded the host's
	// file-name length limit.
	NameTooLong
)

func (k Kind) String() string {
	switch k {
	case BadValue:
		return "bad value"
	case NotFound:
		return "not found"
	case BadData:
		return "bad data"
	case IoError:
		return "I/O error"
	case NoMemory:
		return "no memory"
	case ReadOnlyDevice:
		return "read-only device"
	case NotAllowed:
		return "not allowed"
	case NameTooLong:
		return "name too long"
	default:
		return fmt.Sprintf("rerr.Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned throughout the driver.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "Tree.FindStatItem"
	Err  error  // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with no wrapped cause.
func New(op string, kind Kind) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap constructs an *Error wrapping err, classified as kind.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

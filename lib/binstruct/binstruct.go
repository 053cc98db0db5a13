// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package binstruct decodes and encodes the little-endian, densely
// packed structures used by on-disk filesystem formats.
//
// Fields are (un)marshaled in declaration order with no implicit
// padding; a type opts out of the default behavior by implementing
// Marshaler/Unmarshaler (and, since its size is then no longer
// derivable from reflection, StaticSizer as well).
package binstruct

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Marshaler is implemented by types that encode themselves to their
// on-disk representation.
type Marshaler interface {
	MarshalBinary() ([]byte, error)
}

// Unmarshaler is implemented by types that decode themselves from
// their on-disk representation, returning the number of bytes
// consumed.
type Unmarshaler interface {
	UnmarshalBinary([]byte) (int, error)
}

// Marshal encodes obj per the rules documented on the package.
func Marshal(obj any) ([]byte, error) {
	buf := make([]byte, StaticSize(obj))
	n, err := marshalInto(buf, reflect.ValueOf(obj))
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Unmarshal decodes into ptr (which must be a pointer) from dat,
// returning the number of bytes consumed.
func Unmarshal(dat []byte, ptr any) (int, error) {
	val := reflect.ValueOf(ptr)
	if val.Kind() != reflect.Ptr {
		return 0, &InvalidTypeError{Type: val.Type(), Err: fmt.Errorf("Unmarshal requires a pointer")}
	}
	return unmarshalInto(dat, val.Elem())
}

func marshalInto(buf []byte, val reflect.Value) (int, error) {
	if val.CanAddr() && val.Addr().Type().Implements(marshalerType) {
		//nolint:forcetypeassert // checked via Implements above.
		out, err := val.Addr().Interface().(Marshaler).MarshalBinary()
		if err != nil {
			return 0, err
		}
		return copy(buf, out), nil
	}
	if val.Type().Implements(marshalerType) {
		//nolint:forcetypeassert // checked via Implements above.
		out, err := val.Interface().(Marshaler).MarshalBinary()
		if err != nil {
			return 0, err
		}
		return copy(buf, out), nil
	}

	switch val.Kind() {
	case reflect.Uint8:
		buf[0] = uint8(val.Uint())
		return sizeof8, nil
	case reflect.Int8:
		buf[0] = uint8(val.Int())
		return sizeof8, nil
	case reflect.Uint16, reflect.Int16:
		var u uint16
		if val.Kind() == reflect.Uint16 {
			u = uint16(val.Uint())
		} else {
			u = uint16(val.Int())
		}
		binary.LittleEndian.PutUint16(buf, u)
		return sizeof16, nil
	case reflect.Uint32, reflect.Int32:
		var u uint32
		if val.Kind() == reflect.Uint32 {
			u = uint32(val.Uint())
		} else {
			u = uint32(val.Int())
		}
		binary.LittleEndian.PutUint32(buf, u)
		return sizeof32, nil
	case reflect.Uint64, reflect.Int64:
		var u uint64
		if val.Kind() == reflect.Uint64 {
			u = val.Uint()
		} else {
			u = uint64(val.Int())
		}
		binary.LittleEndian.PutUint64(buf, u)
		return sizeof64, nil
	case reflect.Ptr:
		return marshalInto(buf, val.Elem())
	case reflect.Array:
		off := 0
		for i := 0; i < val.Len(); i++ {
			n, err := marshalInto(buf[off:], val.Index(i))
			if err != nil {
				return 0, err
			}
			off += n
		}
		return off, nil
	case reflect.Struct:
		off := 0
		for i := 0; i < val.NumField(); i++ {
			if val.Type().Field(i).PkgPath != "" {
				continue // unexported
			}
			n, err := marshalInto(buf[off:], val.Field(i))
			if err != nil {
				return 0, err
			}
			off += n
		}
		return off, nil
	default:
		return 0, &InvalidTypeError{Type: val.Type(), Err: fmt.Errorf("unsupported kind %v", val.Kind())}
	}
}

func unmarshalInto(dat []byte, val reflect.Value) (int, error) {
	if val.CanAddr() && val.Addr().Type().Implements(unmarshalerType) {
		//nolint:forcetypeassert // checked via Implements above.
		return val.Addr().Interface().(Unmarshaler).UnmarshalBinary(dat)
	}

	switch val.Kind() {
	case reflect.Uint8:
		if len(dat) < sizeof8 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetUint(uint64(dat[0]))
		return sizeof8, nil
	case reflect.Int8:
		if len(dat) < sizeof8 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetInt(int64(int8(dat[0])))
		return sizeof8, nil
	case reflect.Uint16:
		if len(dat) < sizeof16 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetUint(uint64(binary.LittleEndian.Uint16(dat)))
		return sizeof16, nil
	case reflect.Int16:
		if len(dat) < sizeof16 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetInt(int64(int16(binary.LittleEndian.Uint16(dat))))
		return sizeof16, nil
	case reflect.Uint32:
		if len(dat) < sizeof32 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetUint(uint64(binary.LittleEndian.Uint32(dat)))
		return sizeof32, nil
	case reflect.Int32:
		if len(dat) < sizeof32 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetInt(int64(int32(binary.LittleEndian.Uint32(dat))))
		return sizeof32, nil
	case reflect.Uint64:
		if len(dat) < sizeof64 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetUint(binary.LittleEndian.Uint64(dat))
		return sizeof64, nil
	case reflect.Int64:
		if len(dat) < sizeof64 {
			return 0, fmt.Errorf("binstruct.Unmarshal: %d bytes is too short", len(dat))
		}
		val.SetInt(int64(binary.LittleEndian.Uint64(dat)))
		return sizeof64, nil
	case reflect.Ptr:
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		return unmarshalInto(dat, val.Elem())
	case reflect.Array:
		off := 0
		for i := 0; i < val.Len(); i++ {
			n, err := unmarshalInto(dat[off:], val.Index(i))
			if err != nil {
				return 0, err
			}
			off += n
		}
		return off, nil
	case reflect.Struct:
		off := 0
		for i := 0; i < val.NumField(); i++ {
			if val.Type().Field(i).PkgPath != "" {
				continue // unexported
			}
			n, err := unmarshalInto(dat[off:], val.Field(i))
			if err != nil {
				return 0, err
			}
			off += n
		}
		return off, nil
	default:
		return 0, &InvalidTypeError{Type: val.Type(), Err: fmt.Errorf("unsupported kind %v", val.Kind())}
	}
}

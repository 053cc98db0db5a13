// Copyright (C) 2019-2022  Ambassador Labs
// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: Apache-2.0
//
// Contains code based on:
// https://github.com/datawire/dlib/blob/b09ab2e017e16d261f05fff5b3b860d645e774d4/dlog/logger_logrus.go
// https://github.com/datawire/dlib/blob/b09ab2e017e16d261f05fff5b3b860d645e774d4/dlog/logger_testing.go
// https://github.com/telepresenceio/telepresence/blob/ece94a40b00a90722af36b12e40f91cbecc0550c/pkg/log/formatter.go

package textui

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/pflag"
)

type LogLevelFlag struct {
	Level dlog.LogLevel
}

var _ pflag.Value = (*LogLevelFlag)(nil)

// Type implements pflag.Value.
func (*LogLevelFlag) Type() string { return "loglevel" }

// Set implements pflag.Value.
func (lvl *LogLevelFlag) Set(str string) error {
	switch strings.ToLower(str) {
	case "error":
		lvl.Level = dlog.LogLevelError
	case "warn", "warning":
		lvl.Level = dlog.LogLevelWarn
	case "info":
		lvl.Level = dlog.LogLevelInfo
	case "debug":
		lvl.Level = dlog.LogLevelDebug
	case "trace":
		lvl.Level = dlog.LogLevelTrace
	default:
		return fmt.Errorf("invalid log level: %q", str)
	}
	return nil
}

// String implements fmt.Stringer (and pflag.Value).
func (lvl *LogLevelFlag) String() string {
	switch lvl.Level {
	case dlog.LogLevelError:
		return "error"
	case dlog.LogLevelWarn:
		return "warn"
	case dlog.LogLevelInfo:
		return "info"
	case dlog.LogLevelDebug:
		return "debug"
	case dlog.LogLevelTrace:
		return "trace"
	default:
		panic(fmt.Errorf("invalid log level: %#v", lvl.Level))
	}
}

type logger struct {
	parent *logger
	out    io.Writer
	lvl    dlog.LogLevel

	// only valid if parent is non-nil
	fieldKey string
	fieldVal any
}

var _ dlog.OptimizedLogger = (*logger)(nil)

// NewLogger returns a dlog.Logger that writes structured,
// single-line-per-record output to out, filtering out anything more
// verbose than lvl.
func NewLogger(out io.Writer, lvl dlog.LogLevel) dlog.Logger {
	return &logger{
		out: out,
		lvl: lvl,
	}
}

// Helper implements dlog.Logger.
func (*logger) Helper() {}

// WithField implements dlog.Logger.
func (l *logger) WithField(key string, value any) dlog.Logger {
	return &logger{
		parent: l,
		out:    l.out,
		lvl:    l.lvl,

		fieldKey: key,
		fieldVal: value,
	}
}

type logWriter struct {
	log *logger
	lvl dlog.LogLevel
}

// Write implements io.Writer.
func (lw logWriter) Write(data []byte) (int, error) {
	lw.log.log(lw.lvl, func(w io.Writer) {
		_, _ = w.Write(data)
	})
	return len(data), nil
}

// StdLogger implements dlog.Logger.
func (l *logger) StdLogger(lvl dlog.LogLevel) *log.Logger {
	return log.New(logWriter{log: l, lvl: lvl}, "", 0)
}

// Log implements dlog.Logger.
func (*logger) Log(dlog.LogLevel, string) {
	panic("should not happen: optimized log methods should be used instead")
}

// UnformattedLog implements dlog.OptimizedLogger.
func (l *logger) UnformattedLog(lvl dlog.LogLevel, args ...any) {
	l.log(lvl, func(w io.Writer) {
		_, _ = fmt.Fprint(w, args...)
	})
}

// UnformattedLogln implements dlog.OptimizedLogger.
func (l *logger) UnformattedLogln(lvl dlog.LogLevel, args ...any) {
	l.log(lvl, func(w io.Writer) {
		_, _ = fmt.Fprintln(w, args...)
	})
}

// UnformattedLogf implements dlog.OptimizedLogger.
func (l *logger) UnformattedLogf(lvl dlog.LogLevel, format string, args ...any) {
	l.log(lvl, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, format, args...)
	})
}

var (
	logBufPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
	logMu      sync.Mutex
	thisModDir string
)

func init() {
	//nolint:dogsled // I can't change the signature of the stdlib.
	_, file, _, _ := runtime.Caller(0)
	thisModDir = filepath.Dir(filepath.Dir(filepath.Dir(file)))
}

func (l *logger) log(lvl dlog.LogLevel, writeMsg func(io.Writer)) {
	// boilerplate /////////////////////////////////////////////////////////
	if lvl > l.lvl {
		return
	}
	//nolint:forcetypeassert // this pool only ever holds *bytes.Buffer.
	logBuf := logBufPool.Get().(*bytes.Buffer)
	defer logBufPool.Put(logBuf)
	defer logBuf.Reset()

	// time ////////////////////////////////////////////////////////////////
	now := time.Now()
	const timeFmt = "15:04:05.0000"
	logBuf.WriteString(now.Format(timeFmt))

	// level ///////////////////////////////////////////////////////////////
	switch lvl {
	case dlog.LogLevelError:
		logBuf.WriteString(" ERR")
	case dlog.LogLevelWarn:
		logBuf.WriteString(" WRN")
	case dlog.LogLevelInfo:
		logBuf.WriteString(" INF")
	case dlog.LogLevelDebug:
		logBuf.WriteString(" DBG")
	case dlog.LogLevelTrace:
		logBuf.WriteString(" TRC")
	}

	// fields //////////////////////////////////////////////////////////////
	fields := make(map[string]any)
	var fieldKeys []string
	for f := l; f.parent != nil; f = f.parent {
		if _, ok := fields[f.fieldKey]; ok {
			continue
		}
		fields[f.fieldKey] = f.fieldVal
		fieldKeys = append(fieldKeys, f.fieldKey)
	}
	sort.Slice(fieldKeys, func(i, j int) bool {
		iOrd := fieldOrd(fieldKeys[i])
		jOrd := fieldOrd(fieldKeys[j])
		if iOrd != jOrd {
			return iOrd < jOrd
		}
		return fieldKeys[i] < fieldKeys[j]
	})

	// message /////////////////////////////////////////////////////////////
	logBuf.WriteString(" : ")
	writeMsg(logBuf)

	// fields //////////////////////////////////////////////////////////////
	if len(fieldKeys) > 0 {
		logBuf.WriteString(" :")
	}
	for _, fieldKey := range fieldKeys {
		writeField(logBuf, fieldKey, fields[fieldKey])
	}

	// caller //////////////////////////////////////////////////////////////
	if lvl >= dlog.LogLevelDebug {
		const (
			thisModule             = "lukeshu.com/reiserfs-progs-ng"
			thisPackage            = "lukeshu.com/reiserfs-progs-ng/lib/textui"
			maximumCallerDepth int = 25
			minimumCallerDepth int = 3 // runtime.Callers + .log + .Log
		)
		var pcs [maximumCallerDepth]uintptr
		depth := runtime.Callers(minimumCallerDepth, pcs[:])
		frames := runtime.CallersFrames(pcs[:depth])
		for f, again := frames.Next(); again; f, again = frames.Next() {
			if !strings.HasPrefix(f.Function, thisModule+"/") {
				continue
			}
			if strings.HasPrefix(f.Function, thisPackage+".") {
				continue
			}
			file := f.File
			if i := strings.LastIndex(file, thisModDir+"/"); i >= 0 {
				file = file[i+len(thisModDir+"/"):]
			}
			fmt.Fprintf(logBuf, " (from %s:%d)", file, f.Line)
			break
		}
	}

	// boilerplate /////////////////////////////////////////////////////////
	logBuf.WriteByte('\n')

	logMu.Lock()
	_, _ = l.out.Write(logBuf.Bytes())
	logMu.Unlock()
}

// fieldOrd returns the sort-position for a given log-field-key.  Lower
// values are positioned further to the left; ties break lexically.
func fieldOrd(key string) int {
	switch key {
	case "THREAD": // dgroup
		return -99
	case "dexec.pid":
		return -98
	case "reiserfs.mount.step":
		return -20
	case "reiserfs.volume":
		return -19
	case "reiserfs.block":
		return -10
	case "reiserfs.tree.search.key":
		return -9
	case "reiserfs.hash.detect.entry":
		return -5
	default:
		return 1
	}
}

func writeField(w io.Writer, key string, val any) {
	//nolint:forcetypeassert // this pool only ever holds *bytes.Buffer.
	valBuf := logBufPool.Get().(*bytes.Buffer)
	defer func() {
		valBuf.Reset()
		logBufPool.Put(valBuf)
	}()
	fmt.Fprint(valBuf, val)
	needsQuote := bytes.HasPrefix(valBuf.Bytes(), []byte(`"`))
	if !needsQuote {
		for _, r := range valBuf.Bytes() {
			if !(unicode.IsPrint(rune(r)) && r != ' ') {
				needsQuote = true
				break
			}
		}
	}

	valStr := valBuf.String()
	if needsQuote {
		valStr = fmt.Sprintf("%q", valBuf.Bytes())
	}

	name := key
	if name == "THREAD" {
		name = "thread"
		switch {
		case len(valStr) == 0 || valStr == "/main":
			return
		case strings.HasPrefix(valStr, "/main/"):
			valStr = strings.TrimPrefix(valStr, "/main/")
		case strings.HasPrefix(valStr, "/"):
			valStr = strings.TrimPrefix(valStr, "/")
		}
	} else {
		name = strings.TrimPrefix(name, "reiserfs.")
	}

	fmt.Fprintf(w, " %s=%s", name, valStr)
}

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package settings parses the reiserfs driver-settings file: a
// brace-delimited "name value... { nested parameters }" grammar,
// one "volume" block per mounted device, read to pick up the
// volume's display name and which directory entries to hide.
package settings

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

const (
	defaultVolumeNameFallback = "ReiserFS untitled"
	defaultHideEsoteric       = true
)

// Parameter is one "name value... { children }" node of the parsed
// settings tree.
type Parameter struct {
	Name     string
	Values   []string
	Children []*Parameter
}

// FirstValue returns the parameter's first value, or "" if it has
// none.
func (p *Parameter) FirstValue() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// Find returns the last top-level child named name — matching the
// driver_settings convention that a repeated parameter's final
// occurrence wins.
func (p *Parameter) Find(name string) *Parameter {
	var found *Parameter
	for _, c := range p.Children {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// FindAll returns every top-level child named name, in file order.
func (p *Parameter) FindAll(name string) []*Parameter {
	var found []*Parameter
	for _, c := range p.Children {
		if c.Name == name {
			found = append(found, c)
		}
	}
	return found
}

func (p *Parameter) stringValue(name, unknown, noArg string) string {
	c := p.Find(name)
	if c == nil {
		return unknown
	}
	if len(c.Values) == 0 {
		return noArg
	}
	return c.Values[0]
}

func (p *Parameter) boolValue(name string, unknown, noArg bool) bool {
	const unknownSentinel, noArgSentinel = "\x00unknown", "\x00noarg"
	v := p.stringValue(name, unknownSentinel, noArgSentinel)
	switch v {
	case unknownSentinel:
		return unknown
	case noArgSentinel:
		return noArg
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on", "enable", "enabled":
		return true
	case "0", "false", "no", "off", "disable", "disabled":
		return false
	}
	return unknown
}

func (p *Parameter) int64Value(name string, unknown, noArg int64) int64 {
	const unknownSentinel, noArgSentinel = "\x00unknown", "\x00noarg"
	v := p.stringValue(name, unknownSentinel, noArgSentinel)
	switch v {
	case unknownSentinel:
		return unknown
	case noArgSentinel:
		return noArg
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return unknown
	}
	return n
}

// root is a synthetic top-level Parameter holding every parsed
// statement as a child, so Find/FindAll apply uniformly at every
// level, including the document root.
func parse(r io.Reader) (*Parameter, error) {
	toks, err := tokenize(r)
	if err != nil {
		return nil, err
	}
	root := &Parameter{}
	_, err = parseChildren(toks, 0, root)
	return root, err
}

// tokenize splits the settings file into tokens, treating '{', '}',
// '#'-to-end-of-line comments, and whitespace as delimiters; anything
// else (optionally quoted) is a word.
func tokenize(r io.Reader) ([]string, error) {
	var toks []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		i := 0
		for i < len(line) {
			c := line[i]
			switch {
			case c == ' ' || c == '\t':
				i++
			case c == '{' || c == '}':
				toks = append(toks, string(c))
				i++
			case c == '"':
				j := i + 1
				for j < len(line) && line[j] != '"' {
					j++
				}
				toks = append(toks, line[i+1:j])
				i = j + 1
			default:
				j := i
				for j < len(line) && line[j] != ' ' && line[j] != '\t' && line[j] != '{' && line[j] != '}' {
					j++
				}
				toks = append(toks, line[i:j])
				i = j
			}
		}
	}
	return toks, sc.Err()
}

// parseChildren consumes statements into parent.Children until it
// sees a closing '}' (or runs out of tokens), returning the index
// just past what it consumed.
func parseChildren(toks []string, pos int, parent *Parameter) (int, error) {
	for pos < len(toks) {
		if toks[pos] == "}" {
			return pos + 1, nil
		}
		param := &Parameter{Name: toks[pos]}
		pos++
		for pos < len(toks) && toks[pos] != "{" && toks[pos] != "}" {
			param.Values = append(param.Values, toks[pos])
			pos++
		}
		if pos < len(toks) && toks[pos] == "{" {
			var err error
			pos, err = parseChildren(toks, pos+1, param)
			if err != nil {
				return pos, err
			}
		}
		parent.Children = append(parent.Children, param)
	}
	return pos, nil
}

// Settings holds the resolved configuration for one mounted volume:
// global defaults overridden by its own "volume" block, if any.
type Settings struct {
	defaultVolumeName string
	volumeName        string
	hideEsoteric      bool
	hiddenEntries     []string
}

// Load parses r (the reiserfs driver-settings file contents) and
// resolves settings for the volume matching volumeName (compared
// against each "volume NAME { ... }" block's sole value) — matching
// by name is the path this driver's single-device FUSE mount always
// takes, Haiku's legacy offset+size matching has no analog here.
func Load(r io.Reader, volumeName string) (*Settings, error) {
	root, err := parse(r)
	if err != nil {
		return nil, err
	}
	s := &Settings{hideEsoteric: defaultHideEsoteric}
	s.defaultVolumeName = root.stringValue("default_volume_name", "", "")
	s.hideEsoteric = root.boolValue("hide_esoteric_entries", defaultHideEsoteric, defaultHideEsoteric)

	var volume *Parameter
	for _, v := range root.FindAll("volume") {
		if len(v.Values) == 1 && v.Values[0] == volumeName {
			volume = v
		}
	}
	if volume != nil {
		s.volumeName = volume.stringValue("name", "", "")
		s.hideEsoteric = volume.boolValue("hide_esoteric_entries", s.hideEsoteric, s.hideEsoteric)
		for _, p := range volume.FindAll("hide_entries") {
			s.hiddenEntries = append(s.hiddenEntries, p.Values...)
		}
	}

	s.defaultVolumeName = checkVolumeName(s.defaultVolumeName)
	s.volumeName = checkVolumeName(s.volumeName)
	s.hiddenEntries = filterEntryNames(s.hiddenEntries)
	return s, nil
}

// Empty returns a Settings populated entirely with defaults, for use
// when no settings file is present.
func Empty() *Settings {
	return &Settings{hideEsoteric: defaultHideEsoteric}
}

func (s *Settings) GetDefaultVolumeName() string {
	if s.defaultVolumeName != "" {
		return s.defaultVolumeName
	}
	return defaultVolumeNameFallback
}

func (s *Settings) GetVolumeName() string {
	if s.volumeName != "" {
		return s.volumeName
	}
	return s.GetDefaultVolumeName()
}

func (s *Settings) GetHideEsoteric() bool { return s.hideEsoteric }

// HiddenEntryAt returns the index'th configured hidden-entry path,
// or ("", false) past the end.
func (s *Settings) HiddenEntryAt(index int) (string, bool) {
	if index < 0 || index >= len(s.hiddenEntries) {
		return "", false
	}
	return s.hiddenEntries[index], true
}

const maxVolumeNameLength = 32 // B_FILE_NAME_LENGTH-ish bound

func checkVolumeName(name string) string {
	if len(name) >= maxVolumeNameLength {
		name = name[:maxVolumeNameLength-1]
	}
	for _, r := range name {
		if r == '/' {
			return ""
		}
	}
	return name
}

func filterEntryNames(entries []string) []string {
	out := entries[:0]
	for _, e := range entries {
		if e != "" && !strings.HasPrefix(e, "/") {
			out = append(out, e)
		}
	}
	return out
}

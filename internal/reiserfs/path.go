// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import "lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"

// pathElement records one suspended level of a tree descent: the
// block the iterator was at, and the child index it was pointing
// into.
type pathElement struct {
	blockNumber uint64
	index       int
}

// treePath is a fixed-capacity stack of pathElements, sized to the
// volume's declared tree height (a height above MaxTreeHeight is used
// as is — see NewTree).
type treePath struct {
	elements []pathElement
	maxLen   int
}

func newTreePath(maxLen int) *treePath {
	return &treePath{elements: make([]pathElement, 0, maxLen), maxLen: maxLen}
}

func (p *treePath) Len() int { return len(p.elements) }

func (p *treePath) Push(blockNumber uint64, index int) error {
	if len(p.elements) >= p.maxLen {
		return rerr.New("treePath.Push", rerr.BadData)
	}
	p.elements = append(p.elements, pathElement{blockNumber: blockNumber, index: index})
	return nil
}

func (p *treePath) Top() (pathElement, error) {
	if len(p.elements) == 0 {
		return pathElement{}, rerr.New("treePath.Top", rerr.BadValue)
	}
	return p.elements[len(p.elements)-1], nil
}

func (p *treePath) Pop() error {
	if len(p.elements) == 0 {
		return rerr.New("treePath.Pop", rerr.BadValue)
	}
	p.elements = p.elements[:len(p.elements)-1]
	return nil
}

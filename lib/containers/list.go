// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

// LinkedListEntry is one node of a LinkedList.
type LinkedListEntry[T any] struct {
	Value T

	// Older is the entry that was Store()d before this one, or
	// nil if this is the Oldest entry.
	Older *LinkedListEntry[T]
	// Newer is the entry that was Store()d after this one, or
	// nil if this is the Newest entry.
	Newer *LinkedListEntry[T]

	owner *LinkedList[T]
}

// LinkedList is an intrusive doubly-linked list, used by lruCache to
// track entries in least-recently-used order without allocating on
// every promotion.
type LinkedList[T any] struct {
	Oldest *LinkedListEntry[T]
	Newest *LinkedListEntry[T]
}

// IsEmpty reports whether the list has no entries.
func (l *LinkedList[T]) IsEmpty() bool { return l.Oldest == nil }

// Store appends entry as the Newest entry of the list.
func (l *LinkedList[T]) Store(entry *LinkedListEntry[T]) {
	entry.Older = l.Newest
	entry.Newer = nil
	entry.owner = l
	if l.Newest != nil {
		l.Newest.Newer = entry
	} else {
		l.Oldest = entry
	}
	l.Newest = entry
}

// Delete removes entry from the list it currently belongs to.
func (l *LinkedList[T]) Delete(entry *LinkedListEntry[T]) {
	if entry.owner != l {
		return
	}
	if entry.Older != nil {
		entry.Older.Newer = entry.Newer
	} else {
		l.Oldest = entry.Newer
	}
	if entry.Newer != nil {
		entry.Newer.Older = entry.Older
	} else {
		l.Newest = entry.Older
	}
	entry.Older = nil
	entry.Newer = nil
	entry.owner = nil
}

// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfs

import (
	"context"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// StreamReader reads a regular file's or symlink's byte stream —
// the concatenation of its Indirect/Direct item bodies in key order —
// as a flat, randomly-addressable sequence. It tracks which item it
// last visited and that item's [itemOffset, itemOffset+itemSize)
// span in stream-space, so a ReadAt close to the last one is a cheap
// walk rather than a fresh descent from the tree root.
type StreamReader struct {
	tree     *Tree
	dirID    uint32
	objectID uint32
	blockSize uint32

	items *ObjectItemIterator

	item        Item
	haveItem    bool
	streamSize  int64 // -1 until known
	itemOffset  int64 // -1 until the first seekTo
	itemSize    int64
}

// NewStreamReader returns a reader for (dirID, objectID)'s stream.
func NewStreamReader(tree *Tree, dirID, objectID uint32) *StreamReader {
	return &StreamReader{
		tree:       tree,
		dirID:      dirID,
		objectID:   objectID,
		blockSize:  tree.BlockSize(),
		items:      NewObjectItemIterator(tree, dirID, objectID, uint64(StatDataOffset)),
		streamSize: -1,
		itemOffset: -1,
	}
}

func (sr *StreamReader) Close(ctx context.Context) { sr.items.Close(ctx) }

// streamSizeOf retrieves and caches the object's declared size from
// its stat item, the first time it's needed.
func (sr *StreamReader) streamSizeOf(ctx context.Context) (int64, error) {
	if sr.streamSize >= 0 {
		return sr.streamSize, nil
	}
	item, err := sr.items.GetNext(ctx, TypeStatData)
	if err != nil {
		return 0, err
	}
	sd, err := DecodeStatData(item.Data())
	if err != nil {
		return 0, err
	}
	sr.item, sr.haveItem = item, true
	sr.streamSize = int64(sd.Size())
	return sr.streamSize, nil
}

// ReadAt fills buffer with the stream bytes starting at position,
// truncating at the stream's end; it returns the number of bytes
// actually copied. It is not safe for concurrent use — like the tree
// iterators it wraps, a StreamReader holds a single cursor.
func (sr *StreamReader) ReadAt(ctx context.Context, position int64, buffer []byte) (int, error) {
	if position < 0 {
		return 0, rerr.New("StreamReader.ReadAt", rerr.BadValue)
	}
	size, err := sr.streamSizeOf(ctx)
	if err != nil {
		return 0, err
	}
	want := len(buffer)
	if position >= size {
		return 0, nil
	}
	if position+int64(want) > size {
		want = int(size - position)
	}

	read := 0
	for read < want {
		if err := sr.seekTo(ctx, position); err != nil {
			return read, err
		}
		inItemOffset := position - sr.itemOffset
		if inItemOffset < 0 {
			inItemOffset = 0
		}
		toRead := sr.itemSize - inItemOffset
		if remaining := int64(want - read); toRead > remaining {
			toRead = remaining
		}
		if toRead <= 0 {
			return read, rerr.New("StreamReader.ReadAt", rerr.IoError)
		}

		var rerrv error
		switch sr.item.Key().Type {
		case TypeIndirect:
			rerrv = sr.readIndirectItem(ctx, inItemOffset, buffer[read:read+int(toRead)])
		case TypeDirect:
			rerrv = sr.readDirectItem(inItemOffset, buffer[read:read+int(toRead)])
		default:
			rerrv = rerr.New("StreamReader.ReadAt", rerr.BadData)
		}
		if rerrv != nil {
			return read, rerrv
		}
		position += toRead
		read += int(toRead)
	}
	return read, nil
}

// seekTo positions the reader's cursor so that position falls within
// [itemOffset, itemOffset+itemSize), fetching item accordingly. It
// mirrors the reference reader's three-way policy: jump back to the
// start and walk forward when position is well before the current
// item (cheaper than walking backward item-by-item), otherwise walk
// backward or forward one item at a time.
func (sr *StreamReader) seekTo(ctx context.Context, position int64) error {
	if _, err := sr.streamSizeOf(ctx); err != nil {
		return err
	}
	if sr.itemOffset < 0 {
		sr.itemOffset = 0
	}

	switch {
	case 2*position < sr.itemOffset:
		sr.items.Close(ctx)
		sr.items = NewObjectItemIterator(sr.tree, sr.dirID, sr.objectID, uint64(StatDataOffset))
		sr.streamSize, sr.itemOffset, sr.itemSize = -1, -1, 0
		sr.haveItem = false
		return sr.seekTo(ctx, position)

	case position < sr.itemOffset:
		for position < sr.itemOffset {
			item, err := sr.items.GetPrevious(ctx, TypeAny)
			if err != nil {
				return err
			}
			sr.item, sr.haveItem = item, true
			sr.itemSize = sr.spanOf(item)
			sr.itemOffset -= sr.itemSize
		}
		return nil

	case position >= sr.itemOffset+sr.itemSize:
		for position >= sr.itemOffset+sr.itemSize {
			item, err := sr.items.GetNext(ctx, TypeAny)
			if err != nil {
				return err
			}
			sr.itemOffset += sr.itemSize
			sr.item, sr.haveItem = item, true
			remaining := sr.streamSize - sr.itemOffset
			span := sr.spanOf(item)
			if span > remaining {
				span = remaining
			}
			sr.itemSize = span
		}
		return nil
	}
	return nil
}

// spanOf returns how many stream bytes item covers: an Indirect item's
// block count times this reader's block size, a Direct item's body
// length, and 0 for any other item type.
func (sr *StreamReader) spanOf(item Item) int64 {
	switch item.Key().Type {
	case TypeIndirect:
		return int64(item.AsIndirect().CountBlocks()) * int64(sr.blockSize)
	case TypeDirect:
		return int64(item.Len())
	default:
		return 0
	}
}

func (sr *StreamReader) readIndirectItem(ctx context.Context, offset int64, buffer []byte) error {
	indirect := sr.item.AsIndirect()
	skip := uint32(0)
	if offset > 0 {
		skip = uint32(offset / int64(sr.blockSize))
		if count := uint32(indirect.CountBlocks()); skip > count {
			skip = count
		}
	}
	remaining := buffer
	for i := int(skip); len(remaining) > 0 && i < indirect.CountBlocks(); i++ {
		blockOffset := int64(i) * int64(sr.blockSize)
		localOffset := offset - blockOffset
		if localOffset < 0 {
			localOffset = 0
		}
		toRead := int64(sr.blockSize) - localOffset
		if toRead > int64(len(remaining)) {
			toRead = int64(len(remaining))
		}

		blockNumber := indirect.BlockNumberAt(i)
		if blockNumber == 0 {
			// A hole: the reference driver has no such concept for
			// block number 0 (it is never a valid data block), so
			// the bytes are simply left zeroed.
			for j := int64(0); j < toRead; j++ {
				remaining[j] = 0
			}
		} else {
			b, err := sr.tree.GetBlock(ctx, uint64(blockNumber))
			if err != nil {
				return rerr.Wrap("StreamReader._ReadIndirectItem", rerr.IoError, err)
			}
			copy(remaining[:toRead], b.Data[localOffset:localOffset+toRead])
			sr.tree.cache.PutBlock(b)
		}
		remaining = remaining[toRead:]
	}
	return nil
}

func (sr *StreamReader) readDirectItem(offset int64, buffer []byte) error {
	data := sr.item.AsDirect().Bytes()
	if offset < 0 || offset+int64(len(buffer)) > int64(len(data)) {
		return rerr.New("StreamReader._ReadDirectItem", rerr.BadData)
	}
	copy(buffer, data[offset:offset+int64(len(buffer))])
	return nil
}

// Suspend/Resume release and re-acquire the underlying cache pin,
// same as ItemIterator's.
func (sr *StreamReader) Suspend() error          { return sr.items.it.Suspend() }
func (sr *StreamReader) Resume(ctx context.Context) error { return sr.items.it.Resume(ctx) }

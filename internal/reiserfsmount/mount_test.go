// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package reiserfsmount

import (
	"syscall"
	"testing"

	"github.com/jacobsa/fuse/fuseutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs"
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
	"lukeshu.com/reiserfs-progs-ng/lib/binstruct"
)

func TestToErrnoMapsEveryKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind rerr.Kind
		want syscall.Errno
	}{
		{rerr.NotFound, syscall.ENOENT},
		{rerr.ReadOnlyDevice, syscall.EROFS},
		{rerr.NotAllowed, syscall.EACCES},
		{rerr.BadValue, syscall.EINVAL},
		{rerr.NameTooLong, syscall.ENAMETOOLONG},
		{rerr.NoMemory, syscall.ENOMEM},
		{rerr.BadData, syscall.EIO},
		{rerr.IoError, syscall.EIO},
	}
	for _, c := range cases {
		got := toErrno(rerr.New("op", c.kind))
		assert.Equal(t, c.want, got, "kind %v", c.kind)
	}
}

func TestToErrnoNilIsNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, toErrno(nil))
}

func statDataFrom(t *testing.T, mode uint16) reiserfs.StatData {
	t.Helper()
	d := reiserfs.StatDataV2{Mode: mode, NLink: 2, Size: 123, UID: 1000, GID: 1000}
	buf, err := binstruct.Marshal(d)
	require.NoError(t, err)
	sd, err := reiserfs.DecodeStatData(buf)
	require.NoError(t, err)
	return sd
}

func TestStatDataToAttrs(t *testing.T) {
	t.Parallel()

	sd := statDataFrom(t, 0o100644) // regular file
	attrs := statDataToAttrs(sd)
	assert.Equal(t, uint64(123), attrs.Size)
	assert.Equal(t, uint32(2), attrs.Nlink)
	assert.Equal(t, uint32(1000), attrs.Uid)
	assert.Equal(t, uint32(1000), attrs.Gid)
}

func TestDirentTypeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fuseutil.DT_Directory, direntTypeFor(statDataFrom(t, 0o040755)))
	assert.Equal(t, fuseutil.DT_File, direntTypeFor(statDataFrom(t, 0o100644)))
	assert.Equal(t, fuseutil.DT_Link, direntTypeFor(statDataFrom(t, 0o120777)))
	assert.Equal(t, fuseutil.DT_Unknown, direntTypeFor(statDataFrom(t, 0o010644))) // fifo
}

func TestInodeForRoundTrip(t *testing.T) {
	t.Parallel()

	id := reiserfs.NewVNodeID(1, 2)
	assert.Equal(t, id, vnodeIDFor(inodeFor(id)))
}

func TestCheckAccessPermissionsRoot(t *testing.T) {
	t.Parallel()

	assert.NoError(t, checkAccessPermissions(rOK|wOK|xOK, 0o000, 1000, 0))
}

func TestCheckAccessPermissionsOwnerVsOther(t *testing.T) {
	t.Parallel()

	// mode 0640: owner rw-, everyone else ---.
	assert.NoError(t, checkAccessPermissions(rOK|wOK, 0o640, 1000, 1000), "owning uid gets the owner bits")
	assert.Error(t, checkAccessPermissions(rOK, 0o640, 1000, 2000), "non-owning uid falls through to the other bits")
	assert.Error(t, checkAccessPermissions(xOK, 0o640, 1000, 1000), "owner rw- has no execute bit")
}


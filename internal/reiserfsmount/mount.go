// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package reiserfsmount binds a mounted reiserfs.Volume to a
// read-only FUSE filesystem, realizing the driver's host VFS
// interface (lookup, read_stat, open/read, open_dir/read_dir,
// read_symlink, access) as a github.com/jacobsa/fuse server.
package reiserfsmount

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/datawire/dlib/dcontext"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs"
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs/rerr"
)

// optimalIOSize is reported by StatFS as the FUSE transfer size hint,
// independent of the volume's actual block size — matching the
// reference driver's kOptimalIOSize. Per-inode attributes carry no
// block size.
const optimalIOSize = 65536

// MountRO brings up a read-only FUSE mount of vol at mountpoint and
// blocks until ctx is canceled (at which point it unmounts) or the
// serve loop exits with an error.
func MountRO(ctx context.Context, vol *reiserfs.Volume, mountpoint string) error {
	fs := &fileSystem{vol: vol, mountpoint: mountpoint}
	cfg := &fuse.MountConfig{
		FSName:   vol.DeviceName(),
		Subtype:  "reiserfs",
		ReadOnly: true,
		Options: map[string]string{
			"allow_other": "",
		},
	}
	return fuseMount(ctx, mountpoint, fuseutil.NewFileSystemServer(fs), cfg)
}

// fuseMount runs server under a dgroup pair: one goroutine serves the
// mount until ctx is canceled, the other retries fuse.Unmount (the
// mount can be transiently busy) until the serve goroutine returns.
func fuseMount(ctx context.Context, mountpoint string, server fuse.Server, cfg *fuse.MountConfig) error {
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		ShutdownOnNonError: true,
	})
	mounted := uint32(1)
	grp.Go("unmount", func(ctx context.Context) error {
		<-ctx.Done()
		var err error
		var gotNil bool
		for atomic.LoadUint32(&mounted) != 0 {
			if _err := fuse.Unmount(mountpoint); _err == nil {
				gotNil = true
			} else if !gotNil {
				err = _err
			}
		}
		if gotNil {
			return nil
		}
		return err
	})
	grp.Go("mount", func(ctx context.Context) error {
		defer atomic.StoreUint32(&mounted, 0)

		cfg.OpContext = ctx
		cfg.ErrorLogger = dlog.StdLogger(ctx, dlog.LogLevelError)
		cfg.DebugLogger = dlog.StdLogger(ctx, dlog.LogLevelDebug)

		mountHandle, err := fuse.Mount(mountpoint, server, cfg)
		if err != nil {
			return err
		}
		dlog.Infof(ctx, "reiserfs: mounted %q", mountpoint)
		return mountHandle.Join(dcontext.HardContext(ctx))
	})
	return grp.Wait()
}

// dirHandle is what open_dir hands back: the directory's entries,
// eagerly resolved (hidden/esoteric/negative entries already filtered
// out, a synthetic ".." appended if the tree had none) so read_dir is
// a plain slice walk and rewind_dir needs no cooperation from the
// tree layer at all.
type dirHandle struct {
	entries []direntry
}

type direntry struct {
	name string
	id   reiserfs.VNodeID
	typ  fuseutil.DirentType
}

// fileHandle is what open hands back: a suspended StreamReader plus
// a mutex, since every read_stat/open/close hook may run on its own
// goroutine but the StreamReader's resume/seek/suspend sequence is
// not safe for concurrent use.
type fileHandle struct {
	mu sync.Mutex
	sr *reiserfs.StreamReader
}

type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	vol        *reiserfs.Volume
	mountpoint string

	lastHandle uint64

	mu          sync.Mutex
	dirHandles  map[fuseops.HandleID]*dirHandle
	fileHandles map[fuseops.HandleID]*fileHandle
}

func (fs *fileSystem) newHandle() fuseops.HandleID {
	return fuseops.HandleID(atomic.AddUint64(&fs.lastHandle, 1))
}

func (fs *fileSystem) rootInode() fuseops.InodeID {
	return inodeFor(fs.vol.RootVNode().ID)
}

func inodeFor(id reiserfs.VNodeID) fuseops.InodeID { return fuseops.InodeID(id) }

func vnodeIDFor(inode fuseops.InodeID) reiserfs.VNodeID { return reiserfs.VNodeID(inode) }

// resolveInode maps fuseops.RootInodeID to the volume's actual root
// VNodeID; every other inode number already *is* a VNodeID.
func (fs *fileSystem) resolveInode(inode fuseops.InodeID) reiserfs.VNodeID {
	if inode == fuseops.RootInodeID {
		return fs.vol.RootVNode().ID
	}
	return vnodeIDFor(inode)
}

func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case rerr.Is(err, rerr.NotFound):
		return syscall.ENOENT
	case rerr.Is(err, rerr.ReadOnlyDevice):
		return syscall.EROFS
	case rerr.Is(err, rerr.NotAllowed):
		return syscall.EACCES
	case rerr.Is(err, rerr.BadValue):
		return syscall.EINVAL
	case rerr.Is(err, rerr.NameTooLong):
		return syscall.ENAMETOOLONG
	case rerr.Is(err, rerr.NoMemory):
		return syscall.ENOMEM
	case rerr.Is(err, rerr.BadData), rerr.Is(err, rerr.IoError):
		return syscall.EIO
	default:
		return syscall.EIO
	}
}

// POSIX access(2) mode bits, as passed to check_access_permissions.
const (
	rOK = 4
	wOK = 2
	xOK = 1
)

// checkAccessPermissions mirrors the reference check_access_permissions:
// root (uid 0) always passes; otherwise the owner's permission bits
// apply when the requesting uid matches the node's, and the "other"
// bits apply otherwise. jacobsa/fuse's OpContext carries no gid, so
// (unlike the reference implementation) a non-owning request never
// gets the group bits — it falls through to "other", same as it would
// for a genuinely non-member caller.
func checkAccessPermissions(accessMode, fileMode, fileUID, reqUID uint32) error {
	if reqUID == 0 {
		return nil
	}
	var bits uint32
	if reqUID == fileUID {
		bits = (fileMode >> 6) & 07
	} else {
		bits = fileMode & 07
	}
	if accessMode&^bits != 0 {
		return rerr.New("checkAccessPermissions", rerr.NotAllowed)
	}
	return nil
}

func unixToTime(sec uint32) time.Time { return time.Unix(int64(sec), 0) }

func statDataToAttrs(sd reiserfs.StatData) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  sd.Size(),
		Nlink: sd.NLink(),
		Mode:  uint32(sd.Mode()),
		Atime: unixToTime(sd.ATime()),
		Mtime: unixToTime(sd.MTime()),
		Ctime: unixToTime(sd.CTime()),
		Uid:   sd.UID(),
		Gid:   sd.GID(),
	}
}

func direntTypeFor(sd reiserfs.StatData) fuseutil.DirentType {
	switch {
	case sd.IsDir():
		return fuseutil.DT_Directory
	case sd.IsFile():
		return fuseutil.DT_File
	case sd.IsSymlink():
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_Unknown
	}
}

func (fs *fileSystem) StatFS(_ context.Context, op *fuseops.StatFSOp) error {
	op.IoSize = optimalIOSize
	op.BlockSize = fs.vol.BlockSize()
	op.Blocks = uint64(fs.vol.CountBlocks())
	op.BlocksFree = uint64(fs.vol.CountFreeBlocks())
	op.BlocksAvailable = op.BlocksFree
	// ReiserFS has no fixed inode pool; report unknown, as the
	// reference driver does.
	op.Inodes = 0
	op.InodesFree = 0
	return nil
}

func (fs *fileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	dirID := fs.resolveInode(op.Parent)
	dir, err := fs.vol.FindVNodeByID(ctx, dirID)
	if err != nil {
		return toErrno(err)
	}
	if !dir.IsDir() {
		return syscall.ENOENT
	}

	var node reiserfs.VNode
	switch op.Name {
	case ".":
		node = dir
	case "..":
		node, err = fs.vol.FindVNodeByID(ctx, dir.ParentID)
		if err != nil {
			return toErrno(err)
		}
	default:
		node, err = fs.vol.FindDirEntry(ctx, dir, op.Name)
		if err != nil {
			return toErrno(err)
		}
		if (node.IsEsoteric() && fs.vol.HideEsoteric()) || fs.vol.IsNegativeEntry(node.ID) {
			return syscall.ENOENT
		}
	}

	op.Entry = fuseops.ChildInodeEntry{
		Child:      inodeFor(node.ID),
		Attributes: statDataToAttrs(node.Stat),
	}
	return nil
}

func (fs *fileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	node, err := fs.vol.FindVNodeByID(ctx, fs.resolveInode(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = statDataToAttrs(node.Stat)
	return nil
}

// loadDirEntries resolves every entry of dir into a direntry,
// dropping entries whose visibility bit is clear, whose object is
// esoteric and configured to be hidden, and whose id is a configured
// negative entry — then, if no ".." was ever encountered (the root
// directory has none on disk), synthesizes one pointing back at dir
// itself. This mirrors the reference driver's read_dir loop exactly,
// including that quirk: a root with no ".." entry reports itself as
// its own parent, not its real parent.
func (fs *fileSystem) loadDirEntries(ctx context.Context, dir reiserfs.VNode) ([]direntry, error) {
	tree := fs.vol.Tree()
	dit := reiserfs.NewDirEntryIterator(tree, dir.ID.DirID(), dir.ID.ObjectID(), 0, false)
	defer dit.Close(ctx)

	var entries []direntry
	sawDotDot := false
	for {
		item, idx, err := dit.GetNext(ctx)
		if err != nil {
			break
		}
		head, err := item.EntryHeadAt(idx)
		if err != nil {
			continue
		}
		if head.IsHidden() {
			continue
		}
		id := reiserfs.NewVNodeID(head.DirID, head.ObjectID)
		if fs.vol.IsNegativeEntry(id) {
			continue
		}
		name, err := item.EntryNameAt(idx)
		if err != nil || len(name) == 0 {
			continue
		}
		statItem, err := tree.FindStatItem(ctx, head.DirID, head.ObjectID)
		if err != nil {
			continue
		}
		sd, err := reiserfs.DecodeStatData(statItem.Data())
		if err != nil {
			continue
		}
		if sd.IsEsoteric() && fs.vol.HideEsoteric() {
			continue
		}
		if string(name) == ".." {
			sawDotDot = true
		}
		entries = append(entries, direntry{name: string(name), id: id, typ: direntTypeFor(sd)})
	}

	if !sawDotDot {
		entries = append(entries, direntry{name: "..", id: dir.ID, typ: fuseutil.DT_Directory})
	}
	return entries, nil
}

func (fs *fileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	node, err := fs.vol.FindVNodeByID(ctx, fs.resolveInode(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	if !node.IsDir() {
		return syscall.ENOTDIR
	}
	entries, err := fs.loadDirEntries(ctx, node)
	if err != nil {
		return toErrno(err)
	}

	handle := fs.newHandle()
	fs.mu.Lock()
	if fs.dirHandles == nil {
		fs.dirHandles = make(map[fuseops.HandleID]*dirHandle)
	}
	fs.dirHandles[handle] = &dirHandle{entries: entries}
	fs.mu.Unlock()

	op.Handle = handle
	return nil
}

func (fs *fileSystem) ReadDir(_ context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	dh, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	for i := int(op.Offset); i < len(dh.entries); i++ {
		e := dh.entries[i]
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  inodeFor(e.id),
			Name:   e.name,
			Type:   e.typ,
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *fileSystem) ReleaseDirHandle(_ context.Context, op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	_, ok := fs.dirHandles[op.Handle]
	delete(fs.dirHandles, op.Handle)
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}
	return nil
}

func (fs *fileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	node, err := fs.vol.FindVNodeByID(ctx, fs.resolveInode(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	if !node.IsFile() {
		if node.IsDir() {
			return syscall.EISDIR
		}
		return syscall.EINVAL
	}

	// Reject any open that asks for write access, same combined test
	// the reference driver runs before it will even construct a
	// StreamReader: O_WRONLY/O_RDWR via the access-mode bits, plus
	// O_TRUNC/O_CREAT regardless of access mode.
	flags := uint32(op.OpenFlags)
	accMode := flags & syscall.O_ACCMODE
	if accMode == syscall.O_WRONLY || accMode == syscall.O_RDWR || flags&(syscall.O_TRUNC|syscall.O_CREAT) != 0 {
		return toErrno(rerr.New("OpenFile", rerr.ReadOnlyDevice))
	}

	if err := checkAccessPermissions(rOK, uint32(node.Stat.Mode()), node.Stat.UID(), op.OpContext.Uid); err != nil {
		return toErrno(err)
	}

	sr := reiserfs.NewStreamReader(fs.vol.Tree(), node.ID.DirID(), node.ID.ObjectID())
	if err := sr.Suspend(); err != nil {
		sr.Close(ctx)
		return toErrno(err)
	}

	handle := fs.newHandle()
	fs.mu.Lock()
	if fs.fileHandles == nil {
		fs.fileHandles = make(map[fuseops.HandleID]*fileHandle)
	}
	fs.fileHandles[handle] = &fileHandle{sr: sr}
	fs.mu.Unlock()

	op.Handle = handle
	op.KeepPageCache = true
	return nil
}

func (fs *fileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	fh, ok := fs.fileHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	fh.mu.Lock()
	defer fh.mu.Unlock()

	if err := fh.sr.Resume(ctx); err != nil {
		return toErrno(err)
	}
	defer fh.sr.Suspend()

	var dat []byte
	if op.Dst != nil {
		size := op.Size
		if int64(len(op.Dst)) < size {
			size = int64(len(op.Dst))
		}
		dat = op.Dst[:size]
	} else {
		dat = make([]byte, op.Size)
		op.Data = [][]byte{dat}
	}

	n, err := fh.sr.ReadAt(ctx, op.Offset, dat)
	op.BytesRead = n
	if err != nil {
		return toErrno(err)
	}
	return nil
}

func (fs *fileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	fh, ok := fs.fileHandles[op.Handle]
	delete(fs.fileHandles, op.Handle)
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}
	fh.sr.Close(ctx)
	return nil
}

func (fs *fileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	node, err := fs.vol.FindVNodeByID(ctx, fs.resolveInode(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	target, err := fs.vol.ReadLink(ctx, node)
	if err != nil {
		return toErrno(err)
	}
	op.Target = target
	return nil
}

func (fs *fileSystem) Destroy() {}

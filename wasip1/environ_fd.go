package wasip1

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/internal/vfs"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"go.uber.org/zap"
)

// with runs fn on the node of fd.
func (e *Environ) with(fd abi.Fd, fn func(v *vfs.VINode) error) error {
	v, err := e.fds.get(fd)
	if err != nil {
		return err
	}
	defer v.Release()
	return fn(v)
}

func (e *Environ) FdAdvise(fd abi.Fd, offset, length abi.FileSize, advice abi.Advice) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.FdAdvise(offset, length, advice) })
}

func (e *Environ) FdAllocate(fd abi.Fd, offset, length abi.FileSize) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.FdAllocate(offset, length) })
}

// FdClose removes fd from the table and from every pooled poller before the
// node is released.
func (e *Environ) FdClose(fd abi.Fd) error {
	v, err := e.fds.remove(fd)
	if err != nil {
		return err
	}
	e.scrub(v)
	v.Release()
	Logger().Debug("fd_close", fdField(fd))
	return nil
}

func (e *Environ) FdDatasync(fd abi.Fd) error {
	return e.with(fd, (*vfs.VINode).FdDatasync)
}

func (e *Environ) FdFdstatGet(fd abi.Fd) (st abi.Fdstat, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		st, err = v.FdFdstatGet()
		return err
	})
	return st, err
}

func (e *Environ) FdFdstatSetFlags(fd abi.Fd, flags abi.FdFlags) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.FdFdstatSetFlags(flags) })
}

func (e *Environ) FdFdstatSetRights(fd abi.Fd, base, inheriting abi.Rights) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.FdFdstatSetRights(base, inheriting) })
}

func (e *Environ) FdFilestatGet(fd abi.Fd) (st abi.Filestat, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		st, err = v.FdFilestatGet()
		return err
	})
	return st, err
}

func (e *Environ) FdFilestatSetSize(fd abi.Fd, size abi.FileSize) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.FdFilestatSetSize(size) })
}

func (e *Environ) FdFilestatSetTimes(fd abi.Fd, atim, mtim abi.Timestamp, flags abi.FstFlags) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.FdFilestatSetTimes(atim, mtim, flags) })
}

func (e *Environ) FdPread(fd abi.Fd, iovs inode.IOVecs, offset abi.FileSize) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.FdPread(iovs, offset)
		return err
	})
	return n, err
}

// FdPrestatGet describes a preopened directory. Other descriptors are BADF.
func (e *Environ) FdPrestatGet(fd abi.Fd) (st abi.Prestat, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		if !v.IsPreopen() {
			return abi.ErrnoBadf
		}
		st = abi.Prestat{Tag: abi.PreopenTypeDir, NameLen: uint32(len(v.Name()))}
		return nil
	})
	return st, err
}

// FdPrestatDirName copies the guest path of a preopen into buf.
func (e *Environ) FdPrestatDirName(fd abi.Fd, buf []byte) error {
	return e.with(fd, func(v *vfs.VINode) error {
		if !v.IsPreopen() {
			return abi.ErrnoBadf
		}
		if len(buf) < len(v.Name()) {
			return abi.ErrnoNameTooLong
		}
		copy(buf, v.Name())
		return nil
	})
}

func (e *Environ) FdPwrite(fd abi.Fd, iovs inode.IOVecs, offset abi.FileSize) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.FdPwrite(iovs, offset)
		return err
	})
	return n, err
}

func (e *Environ) FdRead(fd abi.Fd, iovs inode.IOVecs) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.FdRead(iovs)
		return err
	})
	return n, err
}

func (e *Environ) FdReaddir(fd abi.Fd, buf []byte, cookie abi.DirCookie) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.FdReaddir(buf, cookie)
		return err
	})
	return n, err
}

// FdRenumber closes to and moves from into its place. Both must be open.
func (e *Environ) FdRenumber(from, to abi.Fd) error {
	old, err := e.fds.renumber(from, to)
	if err != nil {
		return err
	}
	if old != nil {
		e.scrub(old)
		old.Release()
	}
	Logger().Debug("fd_renumber", zap.Uint32("from", uint32(from)), zap.Uint32("to", uint32(to)))
	return nil
}

func (e *Environ) FdSeek(fd abi.Fd, offset abi.FileDelta, whence abi.Whence) (pos abi.FileSize, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		pos, err = v.FdSeek(offset, whence)
		return err
	})
	return pos, err
}

func (e *Environ) FdSync(fd abi.Fd) error {
	return e.with(fd, (*vfs.VINode).FdSync)
}

func (e *Environ) FdTell(fd abi.Fd) (pos abi.FileSize, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		pos, err = v.FdTell()
		return err
	})
	return pos, err
}

func (e *Environ) FdWrite(fd abi.Fd, iovs inode.IOVecs) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.FdWrite(iovs)
		return err
	})
	return n, err
}

func (e *Environ) PathCreateDirectory(fd abi.Fd, path string) error {
	return e.with(fd, func(v *vfs.VINode) error { return vfs.PathCreateDirectory(v, path) })
}

func (e *Environ) PathFilestatGet(fd abi.Fd, lookup abi.LookupFlags, path string) (st abi.Filestat, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		st, err = vfs.PathFilestatGet(v, path, lookup)
		return err
	})
	return st, err
}

func (e *Environ) PathFilestatSetTimes(fd abi.Fd, lookup abi.LookupFlags, path string,
	atim, mtim abi.Timestamp, flags abi.FstFlags) error {
	return e.with(fd, func(v *vfs.VINode) error {
		return vfs.PathFilestatSetTimes(v, path, lookup, atim, mtim, flags)
	})
}

func (e *Environ) PathLink(oldFd abi.Fd, lookup abi.LookupFlags, oldPath string, newFd abi.Fd, newPath string) error {
	return e.with(oldFd, func(oldDir *vfs.VINode) error {
		return e.with(newFd, func(newDir *vfs.VINode) error {
			return vfs.PathLink(oldDir, oldPath, lookup, newDir, newPath)
		})
	})
}

// PathOpen opens path relative to fd and installs the result under a new
// descriptor.
func (e *Environ) PathOpen(fd abi.Fd, lookup abi.LookupFlags, path string, oflags abi.OFlags,
	base, inheriting abi.Rights, fdflags abi.FdFlags) (newFd abi.Fd, err error) {
	err = e.with(fd, func(dir *vfs.VINode) error {
		v, err := vfs.PathOpen(dir, path, lookup, oflags, base, inheriting, fdflags)
		if err != nil {
			return err
		}
		newFd = e.fds.insert(v)
		return nil
	})
	return newFd, err
}

func (e *Environ) PathReadlink(fd abi.Fd, path string, buf []byte) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = vfs.PathReadlink(v, path, buf)
		return err
	})
	return n, err
}

func (e *Environ) PathRemoveDirectory(fd abi.Fd, path string) error {
	return e.with(fd, func(v *vfs.VINode) error { return vfs.PathRemoveDirectory(v, path) })
}

func (e *Environ) PathRename(oldFd abi.Fd, oldPath string, newFd abi.Fd, newPath string) error {
	return e.with(oldFd, func(oldDir *vfs.VINode) error {
		return e.with(newFd, func(newDir *vfs.VINode) error {
			return vfs.PathRename(oldDir, oldPath, newDir, newPath)
		})
	})
}

func (e *Environ) PathSymlink(oldPath string, fd abi.Fd, newPath string) error {
	return e.with(fd, func(v *vfs.VINode) error { return vfs.PathSymlink(oldPath, v, newPath) })
}

func (e *Environ) PathUnlinkFile(fd abi.Fd, path string) error {
	return e.with(fd, func(v *vfs.VINode) error { return vfs.PathUnlinkFile(v, path) })
}

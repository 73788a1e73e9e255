//go:build linux || darwin

package inode

import (
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

const defaultMode = 0o644

func closeFd(fd int) error {
	return fromErrno(unix.Close(fd))
}

// Open opens a host path directly. It is only used for preopens; guest paths
// always go through PathOpen on a directory node.
func Open(path string, oflags abi.OFlags, fdflags abi.FdFlags, vfs VFSFlags) (*INode, error) {
	fd, err := unix.Open(path, openFlags(oflags, fdflags, vfs), defaultMode)
	if err != nil {
		return nil, fromErrno(err)
	}
	return newINode(fd), nil
}

func (n *INode) FdAdvise(offset, length abi.FileSize, advice abi.Advice) error {
	return fromErrno(fadvise(n.fd, int64(offset), int64(length), advice))
}

func (n *INode) FdAllocate(offset, length abi.FileSize) error {
	return fromErrno(fallocate(n.fd, int64(offset), int64(length)))
}

func (n *INode) FdDatasync() error {
	return fromErrno(fdatasync(n.fd))
}

func (n *INode) FdSync() error {
	return fromErrno(unix.Fsync(n.fd))
}

// FdFdstatGet fills the filetype and flags. Rights are owned by the caller.
func (n *INode) FdFdstatGet() (abi.Fdstat, error) {
	typ, err := n.Filetype()
	if err != nil {
		return abi.Fdstat{}, err
	}
	flags, err := unix.FcntlInt(uintptr(n.fd), unix.F_GETFL, 0)
	if err != nil {
		return abi.Fdstat{}, fromErrno(err)
	}
	return abi.Fdstat{Filetype: typ, Flags: wasiFdFlags(flags)}, nil
}

func (n *INode) FdFdstatSetFlags(fdflags abi.FdFlags) error {
	_, err := unix.FcntlInt(uintptr(n.fd), unix.F_SETFL, nativeFdFlags(fdflags))
	return fromErrno(err)
}

func (n *INode) FdFilestatGet() (abi.Filestat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(n.fd, &st); err != nil {
		return abi.Filestat{}, fromErrno(err)
	}
	fs := toFilestat(&st)
	if fs.Filetype == abi.FiletypeSocketStream {
		fs.Filetype = n.socketFiletype()
	}
	return fs, nil
}

func (n *INode) FdFilestatSetSize(size abi.FileSize) error {
	return fromErrno(unix.Ftruncate(n.fd, int64(size)))
}

func (n *INode) FdFilestatSetTimes(atim, mtim abi.Timestamp, flags abi.FstFlags) error {
	if err := checkFstFlags(flags); err != nil {
		return err
	}
	ts := [2]unix.Timespec{
		fstTimespec(flags, abi.FstAtim, abi.FstAtimNow, atim),
		fstTimespec(flags, abi.FstMtim, abi.FstMtimNow, mtim),
	}
	return fromErrno(futimens(n.fd, &ts))
}

// fstTimespec picks the utimensat value for one timestamp.
func fstTimespec(flags, set, setNow abi.FstFlags, ts abi.Timestamp) unix.Timespec {
	switch {
	case flags&setNow != 0:
		return unix.Timespec{Nsec: utimeNow}
	case flags&set != 0:
		return unix.NsecToTimespec(int64(ts))
	}
	return unix.Timespec{Nsec: utimeOmit}
}

func (n *INode) FdPread(iovs IOVecs, offset abi.FileSize) (abi.Size, error) {
	nread, err := preadv(n.fd, iovs, int64(offset))
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Size(nread), nil
}

func (n *INode) FdPwrite(iovs IOVecs, offset abi.FileSize) (abi.Size, error) {
	nwritten, err := pwritev(n.fd, iovs, int64(offset))
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Size(nwritten), nil
}

func (n *INode) FdRead(iovs IOVecs) (abi.Size, error) {
	if iovecsLen(iovs) == 0 {
		return 0, nil
	}
	nread, err := readv(n.fd, iovs)
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Size(nread), nil
}

func (n *INode) FdWrite(iovs IOVecs) (abi.Size, error) {
	if iovecsLen(iovs) == 0 {
		return 0, nil
	}
	nwritten, err := writev(n.fd, iovs)
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Size(nwritten), nil
}

func (n *INode) FdSeek(offset abi.FileDelta, whence abi.Whence) (abi.FileSize, error) {
	w, err := nativeWhence(whence)
	if err != nil {
		return 0, err
	}
	pos, err := unix.Seek(n.fd, int64(offset), w)
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.FileSize(pos), nil
}

func (n *INode) FdTell() (abi.FileSize, error) {
	return n.FdSeek(0, abi.WhenceCur)
}

// Filetype reports the WASI filetype of the open descriptor.
func (n *INode) Filetype() (abi.Filetype, error) {
	var st unix.Stat_t
	if err := unix.Fstat(n.fd, &st); err != nil {
		return abi.FiletypeUnknown, fromErrno(err)
	}
	typ := filetypeFromMode(uint32(st.Mode))
	if typ == abi.FiletypeSocketStream {
		typ = n.socketFiletype()
	}
	return typ, nil
}

func (n *INode) IsDirectory() bool {
	typ, err := n.Filetype()
	return err == nil && typ == abi.FiletypeDirectory
}

// CanBrowse reports whether the process may search the directory.
func (n *INode) CanBrowse() bool {
	return unix.Faccessat(n.fd, ".", unix.X_OK, 0) == nil
}

func (n *INode) PathCreateDirectory(path string) error {
	return fromErrno(unix.Mkdirat(n.fd, path, 0o755))
}

// PathFilestatGet stats path relative to n without following a final
// symlink. Links are expanded by the resolver before this is reached.
func (n *INode) PathFilestatGet(path string) (abi.Filestat, error) {
	var st unix.Stat_t
	if err := unix.Fstatat(n.fd, path, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return abi.Filestat{}, fromErrno(err)
	}
	return toFilestat(&st), nil
}

func (n *INode) PathFilestatSetTimes(path string, atim, mtim abi.Timestamp, flags abi.FstFlags) error {
	if err := checkFstFlags(flags); err != nil {
		return err
	}
	ts := []unix.Timespec{
		fstTimespec(flags, abi.FstAtim, abi.FstAtimNow, atim),
		fstTimespec(flags, abi.FstMtim, abi.FstMtimNow, mtim),
	}
	return fromErrno(unix.UtimesNanoAt(n.fd, path, ts, unix.AT_SYMLINK_NOFOLLOW))
}

func (n *INode) PathLink(oldPath string, newDir *INode, newPath string) error {
	return fromErrno(unix.Linkat(n.fd, oldPath, newDir.fd, newPath, 0))
}

// PathOpen opens path relative to n. A final symlink is never followed.
func (n *INode) PathOpen(path string, oflags abi.OFlags, fdflags abi.FdFlags, vfs VFSFlags) (*INode, error) {
	flags := openFlags(oflags, fdflags, vfs) | unix.O_NOFOLLOW
	for {
		fd, err := unix.Openat(n.fd, path, flags, defaultMode)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fromErrno(err)
		}
		return newINode(fd), nil
	}
}

// PathReadlink copies the link target into buf, truncating it if needed.
func (n *INode) PathReadlink(path string, buf []byte) (abi.Size, error) {
	nread, err := unix.Readlinkat(n.fd, path, buf)
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Size(nread), nil
}

func (n *INode) PathRemoveDirectory(path string) error {
	return fromErrno(unix.Unlinkat(n.fd, path, unix.AT_REMOVEDIR))
}

func (n *INode) PathRename(oldPath string, newDir *INode, newPath string) error {
	return fromErrno(unix.Renameat(n.fd, oldPath, newDir.fd, newPath))
}

func (n *INode) PathSymlink(oldPath, newPath string) error {
	return fromErrno(unix.Symlinkat(oldPath, n.fd, newPath))
}

func (n *INode) PathUnlinkFile(path string) error {
	return fromErrno(unix.Unlinkat(n.fd, path, 0))
}

// ReadableBytes reports how many bytes can be read without blocking.
func (n *INode) ReadableBytes() (uint64, bool) {
	v, err := unix.IoctlGetInt(n.fd, ioctlReadable)
	if err != nil || v < 0 {
		return 0, false
	}
	return uint64(v), true
}

// WritableBytes reports the free space in a socket send buffer.
func (n *INode) WritableBytes() (uint64, bool) {
	size, err := unix.GetsockoptInt(n.fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, false
	}
	queued, err := unix.IoctlGetInt(n.fd, unix.TIOCOUTQ)
	if err != nil || queued > size {
		return 0, false
	}
	return uint64(size - queued), true
}

func checkFstFlags(flags abi.FstFlags) error {
	if flags&abi.FstAtim != 0 && flags&abi.FstAtimNow != 0 {
		return abi.ErrnoInval
	}
	if flags&abi.FstMtim != 0 && flags&abi.FstMtimNow != 0 {
		return abi.ErrnoInval
	}
	return nil
}

func toFilestat(st *unix.Stat_t) abi.Filestat {
	return abi.Filestat{
		Dev:      uint64(st.Dev),
		Ino:      uint64(st.Ino),
		Filetype: filetypeFromMode(uint32(st.Mode)),
		Nlink:    uint64(st.Nlink),
		Size:     abi.FileSize(st.Size),
		Atim:     abi.Timestamp(st.Atim.Nano()),
		Mtim:     abi.Timestamp(st.Mtim.Nano()),
		Ctim:     abi.Timestamp(st.Ctim.Nano()),
	}
}

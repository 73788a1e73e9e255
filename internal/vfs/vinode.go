// Package vfs layers WASI capabilities over native handles. A VINode checks
// the rights required by every call before the handle is touched and is the
// unit shared by the descriptor table, pollers and path resolution.
package vfs

import (
	"sync/atomic"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

const (
	stdinRights  = abi.RightFdAdvise | abi.RightFdFilestatGet | abi.RightFdRead | abi.RightPollFdReadwrite
	stdoutRights = abi.RightFdAdvise | abi.RightFdDatasync | abi.RightFdFilestatGet |
		abi.RightFdSync | abi.RightFdWrite | abi.RightPollFdReadwrite
)

// VINode is a reference counted, rights checked wrapper of an inode.
type VINode struct {
	refs       atomic.Int32
	node       *inode.INode
	base       atomic.Uint64
	inheriting atomic.Uint64
	name       string
}

// New takes ownership of node. The returned VINode holds one reference.
func New(node *inode.INode, base, inheriting abi.Rights, name string) *VINode {
	v := &VINode{node: node, name: name}
	v.refs.Store(1)
	v.base.Store(uint64(base))
	v.inheriting.Store(uint64(inheriting))
	return v
}

func StdIn() *VINode  { return New(inode.StdIn(), stdinRights, 0, "") }
func StdOut() *VINode { return New(inode.StdOut(), stdoutRights, 0, "") }
func StdErr() *VINode { return New(inode.StdErr(), stdoutRights, 0, "") }

// Acquire adds a reference and returns v.
func (v *VINode) Acquire() *VINode {
	v.refs.Add(1)
	return v
}

// Release drops a reference. The native handle is closed with the last one.
func (v *VINode) Release() {
	switch n := v.refs.Add(-1); {
	case n == 0:
		v.node.Close()
	case n < 0:
		panic("vfs: VINode released too many times")
	}
}

func (v *VINode) Node() *inode.INode { return v.node }

// Name is the guest path of a preopen, empty otherwise.
func (v *VINode) Name() string { return v.name }

func (v *VINode) IsPreopen() bool { return v.name != "" }

func (v *VINode) Rights() (base, inheriting abi.Rights) {
	return abi.Rights(v.base.Load()), abi.Rights(v.inheriting.Load())
}

// Can reports whether v holds the required rights, taking implied rights
// into account.
func (v *VINode) Can(required, requiredInheriting abi.Rights) bool {
	base, inheriting := v.Rights()
	return abi.Imply(base).Contains(required) && abi.Imply(inheriting).Contains(requiredInheriting)
}

// SetRights shrinks the rights of v. Growing either set fails with
// NOTCAPABLE and leaves v unchanged.
func (v *VINode) SetRights(base, inheriting abi.Rights) error {
	curBase, curInheriting := v.Rights()
	if !curBase.Contains(base) || !curInheriting.Contains(inheriting) {
		return abi.ErrnoNotCapable
	}
	v.base.Store(uint64(base))
	v.inheriting.Store(uint64(inheriting))
	return nil
}

func (v *VINode) check(required abi.Rights) error {
	if !v.Can(required, 0) {
		return abi.ErrnoNotCapable
	}
	return nil
}

func (v *VINode) FdAdvise(offset, length abi.FileSize, advice abi.Advice) error {
	if err := v.check(abi.RightFdAdvise); err != nil {
		return err
	}
	return v.node.FdAdvise(offset, length, advice)
}

func (v *VINode) FdAllocate(offset, length abi.FileSize) error {
	if err := v.check(abi.RightFdAllocate); err != nil {
		return err
	}
	return v.node.FdAllocate(offset, length)
}

func (v *VINode) FdDatasync() error {
	if err := v.check(abi.RightFdDatasync); err != nil {
		return err
	}
	return v.node.FdDatasync()
}

// FdFdstatGet needs no rights; it reports them.
func (v *VINode) FdFdstatGet() (abi.Fdstat, error) {
	st, err := v.node.FdFdstatGet()
	if err != nil {
		return abi.Fdstat{}, err
	}
	st.RightsBase, st.RightsInheriting = v.Rights()
	return st, nil
}

func (v *VINode) FdFdstatSetFlags(flags abi.FdFlags) error {
	required := abi.RightFdFdstatSetFlags
	if flags&abi.FdFlagDsync != 0 {
		required |= abi.RightFdDatasync
	}
	if flags&(abi.FdFlagRsync|abi.FdFlagSync) != 0 {
		required |= abi.RightFdSync
	}
	if err := v.check(required); err != nil {
		return err
	}
	return v.node.FdFdstatSetFlags(flags)
}

func (v *VINode) FdFdstatSetRights(base, inheriting abi.Rights) error {
	return v.SetRights(base, inheriting)
}

func (v *VINode) FdFilestatGet() (abi.Filestat, error) {
	if err := v.check(abi.RightFdFilestatGet); err != nil {
		return abi.Filestat{}, err
	}
	return v.node.FdFilestatGet()
}

func (v *VINode) FdFilestatSetSize(size abi.FileSize) error {
	if err := v.check(abi.RightFdFilestatSetSize); err != nil {
		return err
	}
	return v.node.FdFilestatSetSize(size)
}

func (v *VINode) FdFilestatSetTimes(atim, mtim abi.Timestamp, flags abi.FstFlags) error {
	if err := v.check(abi.RightFdFilestatSetTimes); err != nil {
		return err
	}
	return v.node.FdFilestatSetTimes(atim, mtim, flags)
}

func (v *VINode) FdPread(iovs inode.IOVecs, offset abi.FileSize) (abi.Size, error) {
	if err := v.check(abi.RightFdRead | abi.RightFdSeek); err != nil {
		return 0, err
	}
	return v.node.FdPread(iovs, offset)
}

func (v *VINode) FdPwrite(iovs inode.IOVecs, offset abi.FileSize) (abi.Size, error) {
	if err := v.check(abi.RightFdWrite | abi.RightFdSeek); err != nil {
		return 0, err
	}
	return v.node.FdPwrite(iovs, offset)
}

func (v *VINode) FdRead(iovs inode.IOVecs) (abi.Size, error) {
	if err := v.check(abi.RightFdRead); err != nil {
		return 0, err
	}
	return v.node.FdRead(iovs)
}

func (v *VINode) FdWrite(iovs inode.IOVecs) (abi.Size, error) {
	if err := v.check(abi.RightFdWrite); err != nil {
		return 0, err
	}
	return v.node.FdWrite(iovs)
}

func (v *VINode) FdReaddir(buf []byte, cookie abi.DirCookie) (abi.Size, error) {
	if err := v.check(abi.RightFdReaddir); err != nil {
		return 0, err
	}
	return v.node.FdReaddir(buf, cookie)
}

// FdSeek needs only FD_TELL when it does not move the offset.
func (v *VINode) FdSeek(offset abi.FileDelta, whence abi.Whence) (abi.FileSize, error) {
	required := abi.RightFdSeek
	if whence == abi.WhenceCur && offset == 0 {
		required = abi.RightFdTell
	}
	if err := v.check(required); err != nil {
		return 0, err
	}
	return v.node.FdSeek(offset, whence)
}

func (v *VINode) FdSync() error {
	if err := v.check(abi.RightFdSync); err != nil {
		return err
	}
	return v.node.FdSync()
}

func (v *VINode) FdTell() (abi.FileSize, error) {
	if err := v.check(abi.RightFdTell); err != nil {
		return 0, err
	}
	return v.node.FdTell()
}

func (v *VINode) SockBind(addr abi.SockAddr) error {
	return v.node.SockBind(addr)
}

func (v *VINode) SockListen(backlog int32) error {
	return v.node.SockListen(backlog)
}

// SockAccept returns the accepted connection with the rights of v.
func (v *VINode) SockAccept(flags abi.FdFlags) (*VINode, error) {
	if err := v.check(abi.RightSockAccept); err != nil {
		return nil, err
	}
	conn, err := v.node.SockAccept(flags)
	if err != nil {
		return nil, err
	}
	base, inheriting := v.Rights()
	return New(conn, base, inheriting, ""), nil
}

func (v *VINode) SockConnect(addr abi.SockAddr) error {
	return v.node.SockConnect(addr)
}

func (v *VINode) SockRecv(iovs inode.IOVecs, flags abi.RiFlags) (abi.Size, abi.RoFlags, error) {
	if err := v.check(abi.RightFdRead); err != nil {
		return 0, 0, err
	}
	return v.node.SockRecv(iovs, flags)
}

func (v *VINode) SockRecvFrom(iovs inode.IOVecs, flags abi.RiFlags) (abi.Size, abi.SockAddr, abi.RoFlags, error) {
	if err := v.check(abi.RightFdRead); err != nil {
		return 0, abi.SockAddr{}, 0, err
	}
	return v.node.SockRecvFrom(iovs, flags)
}

func (v *VINode) SockSend(iovs inode.IOVecs, flags abi.SiFlags) (abi.Size, error) {
	if err := v.check(abi.RightFdWrite); err != nil {
		return 0, err
	}
	return v.node.SockSend(iovs, flags)
}

func (v *VINode) SockSendTo(iovs inode.IOVecs, addr abi.SockAddr, flags abi.SiFlags) (abi.Size, error) {
	if err := v.check(abi.RightFdWrite); err != nil {
		return 0, err
	}
	return v.node.SockSendTo(iovs, addr, flags)
}

func (v *VINode) SockShutdown(how abi.SdFlags) error {
	if err := v.check(abi.RightSockShutdown); err != nil {
		return err
	}
	return v.node.SockShutdown(how)
}

func (v *VINode) SockGetOpt(level abi.SockOptLevel, name abi.SockOptSo) (int32, error) {
	return v.node.SockGetOpt(level, name)
}

func (v *VINode) SockSetOpt(level abi.SockOptLevel, name abi.SockOptSo, value int32) error {
	return v.node.SockSetOpt(level, name, value)
}

func (v *VINode) SockGetLocalAddr() (abi.SockAddr, error) {
	return v.node.SockGetLocalAddr()
}

func (v *VINode) SockGetPeerAddr() (abi.SockAddr, error) {
	return v.node.SockGetPeerAddr()
}

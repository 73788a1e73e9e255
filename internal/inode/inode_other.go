//go:build !linux && !darwin

package inode

import "github.com/foxxorcat/wazero-wasip1/wasip1/abi"

var errNoSys error = abi.ErrnoNoSys

type dirStream struct{}

func (*dirStream) close() {}

func closeFd(int) error { return nil }

func Open(string, abi.OFlags, abi.FdFlags, VFSFlags) (*INode, error) { return nil, errNoSys }

func SockOpen(abi.AddressFamily, abi.SockType) (*INode, error) { return nil, errNoSys }

func ClockResGet(abi.ClockID) (abi.Timestamp, error) { return 0, errNoSys }

func ClockTimeGet(abi.ClockID, abi.Timestamp) (abi.Timestamp, error) { return 0, errNoSys }

func ProcRaise(abi.Signal) error { return errNoSys }

func SchedYield() error { return nil }

func (n *INode) FdAdvise(abi.FileSize, abi.FileSize, abi.Advice) error { return errNoSys }
func (n *INode) FdAllocate(abi.FileSize, abi.FileSize) error           { return errNoSys }
func (n *INode) FdDatasync() error                                     { return errNoSys }
func (n *INode) FdSync() error                                         { return errNoSys }
func (n *INode) FdFdstatGet() (abi.Fdstat, error)                      { return abi.Fdstat{}, errNoSys }
func (n *INode) FdFdstatSetFlags(abi.FdFlags) error                    { return errNoSys }
func (n *INode) FdFilestatGet() (abi.Filestat, error)                  { return abi.Filestat{}, errNoSys }
func (n *INode) FdFilestatSetSize(abi.FileSize) error                  { return errNoSys }
func (n *INode) FdFilestatSetTimes(abi.Timestamp, abi.Timestamp, abi.FstFlags) error {
	return errNoSys
}
func (n *INode) FdPread(IOVecs, abi.FileSize) (abi.Size, error)  { return 0, errNoSys }
func (n *INode) FdPwrite(IOVecs, abi.FileSize) (abi.Size, error) { return 0, errNoSys }
func (n *INode) FdRead(IOVecs) (abi.Size, error)                 { return 0, errNoSys }
func (n *INode) FdWrite(IOVecs) (abi.Size, error)                { return 0, errNoSys }
func (n *INode) FdReaddir([]byte, abi.DirCookie) (abi.Size, error) {
	return 0, errNoSys
}
func (n *INode) FdSeek(abi.FileDelta, abi.Whence) (abi.FileSize, error) { return 0, errNoSys }
func (n *INode) FdTell() (abi.FileSize, error)                          { return 0, errNoSys }
func (n *INode) Filetype() (abi.Filetype, error)                        { return 0, errNoSys }
func (n *INode) IsDirectory() bool                                      { return false }
func (n *INode) CanBrowse() bool                                        { return false }

func (n *INode) PathCreateDirectory(string) error             { return errNoSys }
func (n *INode) PathFilestatGet(string) (abi.Filestat, error) { return abi.Filestat{}, errNoSys }
func (n *INode) PathFilestatSetTimes(string, abi.Timestamp, abi.Timestamp, abi.FstFlags) error {
	return errNoSys
}
func (n *INode) PathLink(string, *INode, string) error { return errNoSys }
func (n *INode) PathOpen(string, abi.OFlags, abi.FdFlags, VFSFlags) (*INode, error) {
	return nil, errNoSys
}
func (n *INode) PathReadlink(string, []byte) (abi.Size, error) { return 0, errNoSys }
func (n *INode) PathRemoveDirectory(string) error              { return errNoSys }
func (n *INode) PathRename(string, *INode, string) error       { return errNoSys }
func (n *INode) PathSymlink(string, string) error              { return errNoSys }
func (n *INode) PathUnlinkFile(string) error                   { return errNoSys }

func (n *INode) ReadableBytes() (uint64, bool) { return 0, false }
func (n *INode) WritableBytes() (uint64, bool) { return 0, false }

func (n *INode) SockBind(abi.SockAddr) error            { return errNoSys }
func (n *INode) SockListen(int32) error                 { return errNoSys }
func (n *INode) SockAccept(abi.FdFlags) (*INode, error) { return nil, errNoSys }
func (n *INode) SockConnect(abi.SockAddr) error         { return errNoSys }
func (n *INode) SockRecv(IOVecs, abi.RiFlags) (abi.Size, abi.RoFlags, error) {
	return 0, 0, errNoSys
}
func (n *INode) SockRecvFrom(IOVecs, abi.RiFlags) (abi.Size, abi.SockAddr, abi.RoFlags, error) {
	return 0, abi.SockAddr{}, 0, errNoSys
}
func (n *INode) SockSend(IOVecs, abi.SiFlags) (abi.Size, error) { return 0, errNoSys }
func (n *INode) SockSendTo(IOVecs, abi.SockAddr, abi.SiFlags) (abi.Size, error) {
	return 0, errNoSys
}
func (n *INode) SockShutdown(abi.SdFlags) error { return errNoSys }
func (n *INode) SockGetOpt(abi.SockOptLevel, abi.SockOptSo) (int32, error) {
	return 0, errNoSys
}
func (n *INode) SockSetOpt(abi.SockOptLevel, abi.SockOptSo, int32) error { return errNoSys }
func (n *INode) SockGetLocalAddr() (abi.SockAddr, error)                 { return abi.SockAddr{}, errNoSys }
func (n *INode) SockGetPeerAddr() (abi.SockAddr, error)                  { return abi.SockAddr{}, errNoSys }

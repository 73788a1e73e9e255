package wasip1

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/internal/vfs"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

func (e *Environ) SockOpen(family abi.AddressFamily, typ abi.SockType) (abi.Fd, error) {
	v, err := vfs.SockOpen(family, typ)
	if err != nil {
		return 0, err
	}
	return e.fds.insert(v), nil
}

func (e *Environ) SockBind(fd abi.Fd, addr abi.SockAddr) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.SockBind(addr) })
}

func (e *Environ) SockListen(fd abi.Fd, backlog int32) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.SockListen(backlog) })
}

func (e *Environ) SockAccept(fd abi.Fd, flags abi.FdFlags) (newFd abi.Fd, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		conn, err := v.SockAccept(flags)
		if err != nil {
			return err
		}
		newFd = e.fds.insert(conn)
		return nil
	})
	return newFd, err
}

func (e *Environ) SockConnect(fd abi.Fd, addr abi.SockAddr) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.SockConnect(addr) })
}

func (e *Environ) SockRecv(fd abi.Fd, iovs inode.IOVecs, flags abi.RiFlags) (n abi.Size, ro abi.RoFlags, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, ro, err = v.SockRecv(iovs, flags)
		return err
	})
	return n, ro, err
}

func (e *Environ) SockRecvFrom(fd abi.Fd, iovs inode.IOVecs, flags abi.RiFlags) (n abi.Size, from abi.SockAddr, ro abi.RoFlags, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, from, ro, err = v.SockRecvFrom(iovs, flags)
		return err
	})
	return n, from, ro, err
}

func (e *Environ) SockSend(fd abi.Fd, iovs inode.IOVecs, flags abi.SiFlags) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.SockSend(iovs, flags)
		return err
	})
	return n, err
}

func (e *Environ) SockSendTo(fd abi.Fd, iovs inode.IOVecs, to abi.SockAddr, flags abi.SiFlags) (n abi.Size, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		n, err = v.SockSendTo(iovs, to, flags)
		return err
	})
	return n, err
}

func (e *Environ) SockShutdown(fd abi.Fd, how abi.SdFlags) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.SockShutdown(how) })
}

func (e *Environ) SockGetOpt(fd abi.Fd, level abi.SockOptLevel, name abi.SockOptSo) (value int32, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		value, err = v.SockGetOpt(level, name)
		return err
	})
	return value, err
}

func (e *Environ) SockSetOpt(fd abi.Fd, level abi.SockOptLevel, name abi.SockOptSo, value int32) error {
	return e.with(fd, func(v *vfs.VINode) error { return v.SockSetOpt(level, name, value) })
}

func (e *Environ) SockGetLocalAddr(fd abi.Fd) (addr abi.SockAddr, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		addr, err = v.SockGetLocalAddr()
		return err
	})
	return addr, err
}

func (e *Environ) SockGetPeerAddr(fd abi.Fd) (addr abi.SockAddr, err error) {
	err = e.with(fd, func(v *vfs.VINode) error {
		addr, err = v.SockGetPeerAddr()
		return err
	})
	return addr, err
}

//go:build linux || darwin

package inode

import (
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

// SockOpen creates an unconnected socket.
func SockOpen(family abi.AddressFamily, typ abi.SockType) (*INode, error) {
	af, err := nativeFamily(family)
	if err != nil {
		return nil, err
	}
	st, err := nativeSockType(typ)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(af, st, 0)
	if err != nil {
		return nil, fromErrno(err)
	}
	unix.CloseOnExec(fd)
	return newINode(fd), nil
}

func (n *INode) SockBind(addr abi.SockAddr) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}
	return fromErrno(unix.Bind(n.fd, sa))
}

func (n *INode) SockListen(backlog int32) error {
	return fromErrno(unix.Listen(n.fd, int(backlog)))
}

func (n *INode) SockAccept(fdflags abi.FdFlags) (*INode, error) {
	for {
		nfd, _, err := unix.Accept(n.fd)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fromErrno(err)
		}
		unix.CloseOnExec(nfd)
		child := newINode(nfd)
		if fdflags&abi.FdFlagNonblock != 0 {
			if err := unix.SetNonblock(nfd, true); err != nil {
				child.Close()
				return nil, fromErrno(err)
			}
		}
		return child, nil
	}
}

func (n *INode) SockConnect(addr abi.SockAddr) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}
	return fromErrno(unix.Connect(n.fd, sa))
}

func (n *INode) SockRecv(iovs IOVecs, flags abi.RiFlags) (abi.Size, abi.RoFlags, error) {
	nread, _, roflags, err := n.recvmsg(iovs, flags)
	return nread, roflags, err
}

func (n *INode) SockRecvFrom(iovs IOVecs, flags abi.RiFlags) (abi.Size, abi.SockAddr, abi.RoFlags, error) {
	return n.recvmsg(iovs, flags)
}

func (n *INode) recvmsg(iovs IOVecs, flags abi.RiFlags) (abi.Size, abi.SockAddr, abi.RoFlags, error) {
	nread, _, recvflags, from, err := unix.RecvmsgBuffers(n.fd, iovs, nil, nativeRecvFlags(flags))
	if err != nil {
		return 0, abi.SockAddr{}, 0, fromErrno(err)
	}
	var roflags abi.RoFlags
	if recvflags&unix.MSG_TRUNC != 0 {
		roflags |= abi.RecvDataTruncated
	}
	return abi.Size(nread), fromSockaddr(from), roflags, nil
}

func (n *INode) SockSend(iovs IOVecs, flags abi.SiFlags) (abi.Size, error) {
	return n.sendmsg(iovs, nil)
}

func (n *INode) SockSendTo(iovs IOVecs, addr abi.SockAddr, flags abi.SiFlags) (abi.Size, error) {
	sa, err := toSockaddr(addr)
	if err != nil {
		return 0, err
	}
	return n.sendmsg(iovs, sa)
}

func (n *INode) sendmsg(iovs IOVecs, to unix.Sockaddr) (abi.Size, error) {
	nwritten, err := unix.SendmsgBuffers(n.fd, iovs, nil, to, 0)
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Size(nwritten), nil
}

func (n *INode) SockShutdown(how abi.SdFlags) error {
	native, err := nativeShutdown(how)
	if err != nil {
		return err
	}
	return fromErrno(unix.Shutdown(n.fd, native))
}

// SockGetOpt reads an integer socket option. Timeouts are reported in
// microseconds and SO_LINGER in seconds, zero when disabled.
func (n *INode) SockGetOpt(level abi.SockOptLevel, name abi.SockOptSo) (int32, error) {
	lvl, opt, err := nativeOpt(level, name)
	if err != nil {
		return 0, err
	}
	switch name {
	case abi.SockOptLinger:
		l, err := unix.GetsockoptLinger(n.fd, lvl, opt)
		if err != nil {
			return 0, fromErrno(err)
		}
		if l.Onoff == 0 {
			return 0, nil
		}
		return int32(l.Linger), nil
	case abi.SockOptRcvTimeo, abi.SockOptSndTimeo:
		tv, err := unix.GetsockoptTimeval(n.fd, lvl, opt)
		if err != nil {
			return 0, fromErrno(err)
		}
		return int32(tv.Nano() / 1000), nil
	case abi.SockOptType:
		v, err := unix.GetsockoptInt(n.fd, lvl, opt)
		if err != nil {
			return 0, fromErrno(err)
		}
		switch v {
		case unix.SOCK_DGRAM:
			return int32(abi.SockTypeDgram), nil
		case unix.SOCK_STREAM:
			return int32(abi.SockTypeStream), nil
		}
		return int32(abi.SockTypeAny), nil
	case abi.SockOptError:
		v, err := unix.GetsockoptInt(n.fd, lvl, opt)
		if err != nil {
			return 0, fromErrno(err)
		}
		return int32(translateErrno(unix.Errno(v))), nil
	}
	v, err := unix.GetsockoptInt(n.fd, lvl, opt)
	if err != nil {
		return 0, fromErrno(err)
	}
	return int32(v), nil
}

func (n *INode) SockSetOpt(level abi.SockOptLevel, name abi.SockOptSo, value int32) error {
	lvl, opt, err := nativeOpt(level, name)
	if err != nil {
		return err
	}
	switch name {
	case abi.SockOptType, abi.SockOptError, abi.SockOptAcceptConn:
		return abi.ErrnoNoProtoOpt
	case abi.SockOptLinger:
		l := &unix.Linger{}
		if value > 0 {
			l.Onoff = 1
			l.Linger = value
		}
		return fromErrno(unix.SetsockoptLinger(n.fd, lvl, opt, l))
	case abi.SockOptRcvTimeo, abi.SockOptSndTimeo:
		tv := unix.NsecToTimeval(int64(value) * 1000)
		return fromErrno(unix.SetsockoptTimeval(n.fd, lvl, opt, &tv))
	}
	return fromErrno(unix.SetsockoptInt(n.fd, lvl, opt, int(value)))
}

func (n *INode) SockGetLocalAddr() (abi.SockAddr, error) {
	sa, err := unix.Getsockname(n.fd)
	if err != nil {
		return abi.SockAddr{}, fromErrno(err)
	}
	return fromSockaddr(sa), nil
}

func (n *INode) SockGetPeerAddr() (abi.SockAddr, error) {
	sa, err := unix.Getpeername(n.fd)
	if err != nil {
		return abi.SockAddr{}, fromErrno(err)
	}
	return fromSockaddr(sa), nil
}

func (n *INode) socketFiletype() abi.Filetype {
	v, err := unix.GetsockoptInt(n.fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return abi.FiletypeUnknown
	}
	switch v {
	case unix.SOCK_DGRAM:
		return abi.FiletypeSocketDgram
	case unix.SOCK_STREAM:
		return abi.FiletypeSocketStream
	}
	return abi.FiletypeUnknown
}

func nativeOpt(level abi.SockOptLevel, name abi.SockOptSo) (int, int, error) {
	lvl, err := nativeSockOptLevel(level)
	if err != nil {
		return 0, 0, err
	}
	opt, err := nativeSockOpt(name)
	if err != nil {
		return 0, 0, err
	}
	return lvl, opt, nil
}

func toSockaddr(addr abi.SockAddr) (unix.Sockaddr, error) {
	switch addr.Family {
	case abi.AddressFamilyInet4:
		if len(addr.Addr) != 4 {
			return nil, abi.ErrnoInval
		}
		sa := &unix.SockaddrInet4{Port: int(addr.Port)}
		copy(sa.Addr[:], addr.Addr)
		return sa, nil
	case abi.AddressFamilyInet6:
		if len(addr.Addr) != 16 {
			return nil, abi.ErrnoInval
		}
		sa := &unix.SockaddrInet6{Port: int(addr.Port)}
		copy(sa.Addr[:], addr.Addr)
		return sa, nil
	case abi.AddressFamilyUnix:
		return &unix.SockaddrUnix{Name: string(addr.Addr)}, nil
	}
	return nil, abi.ErrnoAfNoSupport
}

func fromSockaddr(sa unix.Sockaddr) abi.SockAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return abi.SockAddr{Family: abi.AddressFamilyInet4, Addr: append([]byte(nil), sa.Addr[:]...), Port: uint16(sa.Port)}
	case *unix.SockaddrInet6:
		return abi.SockAddr{Family: abi.AddressFamilyInet6, Addr: append([]byte(nil), sa.Addr[:]...), Port: uint16(sa.Port)}
	case *unix.SockaddrUnix:
		return abi.SockAddr{Family: abi.AddressFamilyUnix, Addr: []byte(sa.Name)}
	}
	return abi.SockAddr{Family: abi.AddressFamilyUnspec}
}

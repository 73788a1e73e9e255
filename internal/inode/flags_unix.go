//go:build linux || darwin

package inode

import (
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

func openFlags(oflags abi.OFlags, fdflags abi.FdFlags, vfs VFSFlags) int {
	flags := unix.O_CLOEXEC
	if oflags&abi.OFlagCreat != 0 {
		flags |= unix.O_CREAT
	}
	if oflags&abi.OFlagDirectory != 0 {
		flags |= unix.O_DIRECTORY
	}
	if oflags&abi.OFlagExcl != 0 {
		flags |= unix.O_EXCL
	}
	if oflags&abi.OFlagTrunc != 0 {
		flags |= unix.O_TRUNC
	}
	flags |= nativeFdFlags(fdflags)

	switch {
	case vfs&Read != 0 && vfs&Write != 0:
		flags |= unix.O_RDWR
	case vfs&Write != 0:
		flags |= unix.O_WRONLY
	default:
		flags |= unix.O_RDONLY
	}
	return flags
}

func nativeFdFlags(fdflags abi.FdFlags) int {
	var flags int
	if fdflags&abi.FdFlagAppend != 0 {
		flags |= unix.O_APPEND
	}
	if fdflags&abi.FdFlagDsync != 0 {
		flags |= unix.O_DSYNC
	}
	if fdflags&abi.FdFlagNonblock != 0 {
		flags |= unix.O_NONBLOCK
	}
	if fdflags&abi.FdFlagRsync != 0 {
		flags |= oRsync
	}
	if fdflags&abi.FdFlagSync != 0 {
		flags |= unix.O_SYNC
	}
	return flags
}

func wasiFdFlags(flags int) abi.FdFlags {
	var fdflags abi.FdFlags
	if flags&unix.O_APPEND != 0 {
		fdflags |= abi.FdFlagAppend
	}
	if flags&unix.O_DSYNC != 0 {
		fdflags |= abi.FdFlagDsync
	}
	if flags&unix.O_NONBLOCK != 0 {
		fdflags |= abi.FdFlagNonblock
	}
	// O_SYNC includes the O_DSYNC bit on Linux.
	if flags&unix.O_SYNC == unix.O_SYNC {
		fdflags |= abi.FdFlagSync
		if oRsync == unix.O_SYNC {
			fdflags |= abi.FdFlagRsync
		}
	}
	return fdflags
}

func nativeWhence(whence abi.Whence) (int, error) {
	switch whence {
	case abi.WhenceSet:
		return unix.SEEK_SET, nil
	case abi.WhenceCur:
		return unix.SEEK_CUR, nil
	case abi.WhenceEnd:
		return unix.SEEK_END, nil
	}
	return 0, abi.ErrnoInval
}

func filetypeFromMode(mode uint32) abi.Filetype {
	switch mode & unix.S_IFMT {
	case unix.S_IFBLK:
		return abi.FiletypeBlockDevice
	case unix.S_IFCHR:
		return abi.FiletypeCharacterDevice
	case unix.S_IFDIR:
		return abi.FiletypeDirectory
	case unix.S_IFREG:
		return abi.FiletypeRegularFile
	case unix.S_IFSOCK:
		return abi.FiletypeSocketStream
	case unix.S_IFLNK:
		return abi.FiletypeSymbolicLink
	}
	return abi.FiletypeUnknown
}

func nativeFamily(family abi.AddressFamily) (int, error) {
	switch family {
	case abi.AddressFamilyInet4:
		return unix.AF_INET, nil
	case abi.AddressFamilyInet6:
		return unix.AF_INET6, nil
	case abi.AddressFamilyUnix:
		return unix.AF_UNIX, nil
	case abi.AddressFamilyUnspec:
		return unix.AF_UNSPEC, nil
	}
	return 0, abi.ErrnoInval
}

func nativeSockType(typ abi.SockType) (int, error) {
	switch typ {
	case abi.SockTypeDgram:
		return unix.SOCK_DGRAM, nil
	case abi.SockTypeStream:
		return unix.SOCK_STREAM, nil
	case abi.SockTypeAny:
		return 0, nil
	}
	return 0, abi.ErrnoInval
}

func nativeSockOptLevel(level abi.SockOptLevel) (int, error) {
	switch level {
	case abi.SockOptLevelSocket:
		return unix.SOL_SOCKET, nil
	}
	return 0, abi.ErrnoInval
}

func nativeSockOpt(name abi.SockOptSo) (int, error) {
	switch name {
	case abi.SockOptReuseAddr:
		return unix.SO_REUSEADDR, nil
	case abi.SockOptType:
		return unix.SO_TYPE, nil
	case abi.SockOptError:
		return unix.SO_ERROR, nil
	case abi.SockOptDontRoute:
		return unix.SO_DONTROUTE, nil
	case abi.SockOptBroadcast:
		return unix.SO_BROADCAST, nil
	case abi.SockOptSndBuf:
		return unix.SO_SNDBUF, nil
	case abi.SockOptRcvBuf:
		return unix.SO_RCVBUF, nil
	case abi.SockOptKeepAlive:
		return unix.SO_KEEPALIVE, nil
	case abi.SockOptOOBInline:
		return unix.SO_OOBINLINE, nil
	case abi.SockOptLinger:
		return unix.SO_LINGER, nil
	case abi.SockOptRcvLowat:
		return unix.SO_RCVLOWAT, nil
	case abi.SockOptRcvTimeo:
		return unix.SO_RCVTIMEO, nil
	case abi.SockOptSndTimeo:
		return unix.SO_SNDTIMEO, nil
	case abi.SockOptAcceptConn:
		return unix.SO_ACCEPTCONN, nil
	case abi.SockOptBindToDevice:
		return soBindToDevice()
	}
	return 0, abi.ErrnoInval
}

func nativeRecvFlags(flags abi.RiFlags) int {
	var native int
	if flags&abi.RecvPeek != 0 {
		native |= unix.MSG_PEEK
	}
	if flags&abi.RecvWaitall != 0 {
		native |= unix.MSG_WAITALL
	}
	return native
}

func nativeShutdown(how abi.SdFlags) (int, error) {
	switch how {
	case abi.ShutRd:
		return unix.SHUT_RD, nil
	case abi.ShutWr:
		return unix.SHUT_WR, nil
	case abi.ShutRd | abi.ShutWr:
		return unix.SHUT_RDWR, nil
	}
	return 0, abi.ErrnoInval
}

func nativeSignal(sig abi.Signal) (unix.Signal, error) {
	switch sig {
	case abi.SignalNone:
		return 0, nil
	case abi.SignalHup:
		return unix.SIGHUP, nil
	case abi.SignalInt:
		return unix.SIGINT, nil
	case abi.SignalQuit:
		return unix.SIGQUIT, nil
	case abi.SignalIll:
		return unix.SIGILL, nil
	case abi.SignalTrap:
		return unix.SIGTRAP, nil
	case abi.SignalAbrt:
		return unix.SIGABRT, nil
	case abi.SignalBus:
		return unix.SIGBUS, nil
	case abi.SignalFpe:
		return unix.SIGFPE, nil
	case abi.SignalKill:
		return unix.SIGKILL, nil
	case abi.SignalUsr1:
		return unix.SIGUSR1, nil
	case abi.SignalSegv:
		return unix.SIGSEGV, nil
	case abi.SignalUsr2:
		return unix.SIGUSR2, nil
	case abi.SignalPipe:
		return unix.SIGPIPE, nil
	case abi.SignalAlrm:
		return unix.SIGALRM, nil
	case abi.SignalTerm:
		return unix.SIGTERM, nil
	case abi.SignalChld:
		return unix.SIGCHLD, nil
	case abi.SignalCont:
		return unix.SIGCONT, nil
	case abi.SignalStop:
		return unix.SIGSTOP, nil
	case abi.SignalTstp:
		return unix.SIGTSTP, nil
	case abi.SignalTtin:
		return unix.SIGTTIN, nil
	case abi.SignalTtou:
		return unix.SIGTTOU, nil
	case abi.SignalUrg:
		return unix.SIGURG, nil
	case abi.SignalXcpu:
		return unix.SIGXCPU, nil
	case abi.SignalXfsz:
		return unix.SIGXFSZ, nil
	case abi.SignalVtalrm:
		return unix.SIGVTALRM, nil
	case abi.SignalProf:
		return unix.SIGPROF, nil
	case abi.SignalWinch:
		return unix.SIGWINCH, nil
	case abi.SignalPoll:
		return unix.SIGIO, nil
	case abi.SignalPwr:
		return sigPwr()
	case abi.SignalSys:
		return unix.SIGSYS, nil
	}
	return 0, abi.ErrnoInval
}

func nativeClock(id abi.ClockID) (int32, error) {
	switch id {
	case abi.ClockRealtime:
		return unix.CLOCK_REALTIME, nil
	case abi.ClockMonotonic:
		return unix.CLOCK_MONOTONIC, nil
	case abi.ClockProcessCPUTime:
		return unix.CLOCK_PROCESS_CPUTIME_ID, nil
	case abi.ClockThreadCPUTime:
		return unix.CLOCK_THREAD_CPUTIME_ID, nil
	}
	return 0, abi.ErrnoInval
}

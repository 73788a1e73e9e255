//go:build linux || darwin

package inode

import (
	"errors"
	"io/fs"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

// MapError converts an error returned by x/sys/unix into an abi.Errno.
func MapError(err error) error {
	return fromErrno(err)
}

// fromErrno maps a native error to its WASI errno. Unknown codes become IO.
func fromErrno(err error) error {
	if err == nil {
		return nil
	}
	var werr abi.Errno
	if errors.As(err, &werr) {
		return werr
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		switch {
		case errors.Is(err, fs.ErrPermission):
			return abi.ErrnoAcces
		case errors.Is(err, fs.ErrExist):
			return abi.ErrnoExist
		case errors.Is(err, fs.ErrNotExist):
			return abi.ErrnoNoEnt
		case errors.Is(err, fs.ErrInvalid):
			return abi.ErrnoInval
		case errors.Is(err, fs.ErrClosed):
			return abi.ErrnoBadf
		}
		return abi.ErrnoIO
	}
	return translateErrno(errno)
}

func translateErrno(errno unix.Errno) abi.Errno {
	switch errno {
	case 0:
		return abi.ErrnoSuccess
	case unix.E2BIG:
		return abi.Errno2Big
	case unix.EACCES:
		return abi.ErrnoAcces
	case unix.EADDRINUSE:
		return abi.ErrnoAddrInUse
	case unix.EADDRNOTAVAIL:
		return abi.ErrnoAddrNotAvail
	case unix.EAFNOSUPPORT:
		return abi.ErrnoAfNoSupport
	case unix.EAGAIN:
		return abi.ErrnoAgain
	case unix.EALREADY:
		return abi.ErrnoAlready
	case unix.EBADF:
		return abi.ErrnoBadf
	case unix.EBADMSG:
		return abi.ErrnoBadMsg
	case unix.EBUSY:
		return abi.ErrnoBusy
	case unix.ECANCELED:
		return abi.ErrnoCanceled
	case unix.ECHILD:
		return abi.ErrnoChild
	case unix.ECONNABORTED:
		return abi.ErrnoConnAborted
	case unix.ECONNREFUSED:
		return abi.ErrnoConnRefused
	case unix.ECONNRESET:
		return abi.ErrnoConnReset
	case unix.EDEADLK:
		return abi.ErrnoDeadlk
	case unix.EDESTADDRREQ:
		return abi.ErrnoDestAddrReq
	case unix.EDOM:
		return abi.ErrnoDom
	case unix.EDQUOT:
		return abi.ErrnoDquot
	case unix.EEXIST:
		return abi.ErrnoExist
	case unix.EFAULT:
		return abi.ErrnoFault
	case unix.EFBIG:
		return abi.ErrnoFbig
	case unix.EHOSTUNREACH:
		return abi.ErrnoHostUnreach
	case unix.EIDRM:
		return abi.ErrnoIdrm
	case unix.EILSEQ:
		return abi.ErrnoIlseq
	case unix.EINPROGRESS:
		return abi.ErrnoInProgress
	case unix.EINTR:
		return abi.ErrnoIntr
	case unix.EINVAL:
		return abi.ErrnoInval
	case unix.EIO:
		return abi.ErrnoIO
	case unix.EISCONN:
		return abi.ErrnoIsConn
	case unix.EISDIR:
		return abi.ErrnoIsDir
	case unix.ELOOP:
		return abi.ErrnoLoop
	case unix.EMFILE:
		return abi.ErrnoMfile
	case unix.EMLINK:
		return abi.ErrnoMlink
	case unix.EMSGSIZE:
		return abi.ErrnoMsgSize
	case unix.EMULTIHOP:
		return abi.ErrnoMultihop
	case unix.ENAMETOOLONG:
		return abi.ErrnoNameTooLong
	case unix.ENETDOWN:
		return abi.ErrnoNetDown
	case unix.ENETRESET:
		return abi.ErrnoNetReset
	case unix.ENETUNREACH:
		return abi.ErrnoNetUnreach
	case unix.ENFILE:
		return abi.ErrnoNfile
	case unix.ENOBUFS:
		return abi.ErrnoNoBufs
	case unix.ENODEV:
		return abi.ErrnoNoDev
	case unix.ENOENT:
		return abi.ErrnoNoEnt
	case unix.ENOEXEC:
		return abi.ErrnoNoExec
	case unix.ENOLCK:
		return abi.ErrnoNoLck
	case unix.ENOLINK:
		return abi.ErrnoNoLink
	case unix.ENOMEM:
		return abi.ErrnoNoMem
	case unix.ENOMSG:
		return abi.ErrnoNoMsg
	case unix.ENOPROTOOPT:
		return abi.ErrnoNoProtoOpt
	case unix.ENOSPC:
		return abi.ErrnoNoSpc
	case unix.ENOSYS:
		return abi.ErrnoNoSys
	case unix.ENOTCONN:
		return abi.ErrnoNotConn
	case unix.ENOTDIR:
		return abi.ErrnoNotDir
	case unix.ENOTEMPTY:
		return abi.ErrnoNotEmpty
	case unix.ENOTRECOVERABLE:
		return abi.ErrnoNotRecoverable
	case unix.ENOTSOCK:
		return abi.ErrnoNotSock
	case unix.ENOTSUP:
		return abi.ErrnoNotSup
	case unix.ENOTTY:
		return abi.ErrnoNoTTY
	case unix.ENXIO:
		return abi.ErrnoNxio
	case unix.EOVERFLOW:
		return abi.ErrnoOverflow
	case unix.EOWNERDEAD:
		return abi.ErrnoOwnerDead
	case unix.EPERM:
		return abi.ErrnoPerm
	case unix.EPIPE:
		return abi.ErrnoPipe
	case unix.EPROTO:
		return abi.ErrnoProto
	case unix.EPROTONOSUPPORT:
		return abi.ErrnoProtoNoSupport
	case unix.EPROTOTYPE:
		return abi.ErrnoProtoType
	case unix.ERANGE:
		return abi.ErrnoRange
	case unix.EROFS:
		return abi.ErrnoRofs
	case unix.ESPIPE:
		return abi.ErrnoSpipe
	case unix.ESRCH:
		return abi.ErrnoSrch
	case unix.ESTALE:
		return abi.ErrnoStale
	case unix.ETIMEDOUT:
		return abi.ErrnoTimedOut
	case unix.ETXTBSY:
		return abi.ErrnoTxtBsy
	case unix.EXDEV:
		return abi.ErrnoXdev
	}
	return abi.ErrnoIO
}

package abi

import "errors"

// Errno is a WASI preview1 error code. It implements error so every layer can
// return it directly; the numbering is fixed by the ABI.
type Errno uint16

const (
	ErrnoSuccess Errno = iota
	Errno2Big
	ErrnoAcces
	ErrnoAddrInUse
	ErrnoAddrNotAvail
	ErrnoAfNoSupport
	ErrnoAgain
	ErrnoAlready
	ErrnoBadf
	ErrnoBadMsg
	ErrnoBusy
	ErrnoCanceled
	ErrnoChild
	ErrnoConnAborted
	ErrnoConnRefused
	ErrnoConnReset
	ErrnoDeadlk
	ErrnoDestAddrReq
	ErrnoDom
	ErrnoDquot
	ErrnoExist
	ErrnoFault
	ErrnoFbig
	ErrnoHostUnreach
	ErrnoIdrm
	ErrnoIlseq
	ErrnoInProgress
	ErrnoIntr
	ErrnoInval
	ErrnoIO
	ErrnoIsConn
	ErrnoIsDir
	ErrnoLoop
	ErrnoMfile
	ErrnoMlink
	ErrnoMsgSize
	ErrnoMultihop
	ErrnoNameTooLong
	ErrnoNetDown
	ErrnoNetReset
	ErrnoNetUnreach
	ErrnoNfile
	ErrnoNoBufs
	ErrnoNoDev
	ErrnoNoEnt
	ErrnoNoExec
	ErrnoNoLck
	ErrnoNoLink
	ErrnoNoMem
	ErrnoNoMsg
	ErrnoNoProtoOpt
	ErrnoNoSpc
	ErrnoNoSys
	ErrnoNotConn
	ErrnoNotDir
	ErrnoNotEmpty
	ErrnoNotRecoverable
	ErrnoNotSock
	ErrnoNotSup
	ErrnoNoTTY
	ErrnoNxio
	ErrnoOverflow
	ErrnoOwnerDead
	ErrnoPerm
	ErrnoPipe
	ErrnoProto
	ErrnoProtoNoSupport
	ErrnoProtoType
	ErrnoRange
	ErrnoRofs
	ErrnoSpipe
	ErrnoSrch
	ErrnoStale
	ErrnoTimedOut
	ErrnoTxtBsy
	ErrnoXdev
	ErrnoNotCapable
)

var errnoNames = [...]string{
	ErrnoSuccess:        "SUCCESS",
	Errno2Big:           "2BIG",
	ErrnoAcces:          "ACCES",
	ErrnoAddrInUse:      "ADDRINUSE",
	ErrnoAddrNotAvail:   "ADDRNOTAVAIL",
	ErrnoAfNoSupport:    "AFNOSUPPORT",
	ErrnoAgain:          "AGAIN",
	ErrnoAlready:        "ALREADY",
	ErrnoBadf:           "BADF",
	ErrnoBadMsg:         "BADMSG",
	ErrnoBusy:           "BUSY",
	ErrnoCanceled:       "CANCELED",
	ErrnoChild:          "CHILD",
	ErrnoConnAborted:    "CONNABORTED",
	ErrnoConnRefused:    "CONNREFUSED",
	ErrnoConnReset:      "CONNRESET",
	ErrnoDeadlk:         "DEADLK",
	ErrnoDestAddrReq:    "DESTADDRREQ",
	ErrnoDom:            "DOM",
	ErrnoDquot:          "DQUOT",
	ErrnoExist:          "EXIST",
	ErrnoFault:          "FAULT",
	ErrnoFbig:           "FBIG",
	ErrnoHostUnreach:    "HOSTUNREACH",
	ErrnoIdrm:           "IDRM",
	ErrnoIlseq:          "ILSEQ",
	ErrnoInProgress:     "INPROGRESS",
	ErrnoIntr:           "INTR",
	ErrnoInval:          "INVAL",
	ErrnoIO:             "IO",
	ErrnoIsConn:         "ISCONN",
	ErrnoIsDir:          "ISDIR",
	ErrnoLoop:           "LOOP",
	ErrnoMfile:          "MFILE",
	ErrnoMlink:          "MLINK",
	ErrnoMsgSize:        "MSGSIZE",
	ErrnoMultihop:       "MULTIHOP",
	ErrnoNameTooLong:    "NAMETOOLONG",
	ErrnoNetDown:        "NETDOWN",
	ErrnoNetReset:       "NETRESET",
	ErrnoNetUnreach:     "NETUNREACH",
	ErrnoNfile:          "NFILE",
	ErrnoNoBufs:         "NOBUFS",
	ErrnoNoDev:          "NODEV",
	ErrnoNoEnt:          "NOENT",
	ErrnoNoExec:         "NOEXEC",
	ErrnoNoLck:          "NOLCK",
	ErrnoNoLink:         "NOLINK",
	ErrnoNoMem:          "NOMEM",
	ErrnoNoMsg:          "NOMSG",
	ErrnoNoProtoOpt:     "NOPROTOOPT",
	ErrnoNoSpc:          "NOSPC",
	ErrnoNoSys:          "NOSYS",
	ErrnoNotConn:        "NOTCONN",
	ErrnoNotDir:         "NOTDIR",
	ErrnoNotEmpty:       "NOTEMPTY",
	ErrnoNotRecoverable: "NOTRECOVERABLE",
	ErrnoNotSock:        "NOTSOCK",
	ErrnoNotSup:         "NOTSUP",
	ErrnoNoTTY:          "NOTTY",
	ErrnoNxio:           "NXIO",
	ErrnoOverflow:       "OVERFLOW",
	ErrnoOwnerDead:      "OWNERDEAD",
	ErrnoPerm:           "PERM",
	ErrnoPipe:           "PIPE",
	ErrnoProto:          "PROTO",
	ErrnoProtoNoSupport: "PROTONOSUPPORT",
	ErrnoProtoType:      "PROTOTYPE",
	ErrnoRange:          "RANGE",
	ErrnoRofs:           "ROFS",
	ErrnoSpipe:          "SPIPE",
	ErrnoSrch:           "SRCH",
	ErrnoStale:          "STALE",
	ErrnoTimedOut:       "TIMEDOUT",
	ErrnoTxtBsy:         "TXTBSY",
	ErrnoXdev:           "XDEV",
	ErrnoNotCapable:     "NOTCAPABLE",
}

// Name returns the WASI spelling of the code, e.g. "NOTCAPABLE".
func (e Errno) Name() string {
	if int(e) < len(errnoNames) {
		return errnoNames[e]
	}
	return "UNKNOWN"
}

func (e Errno) Error() string {
	return "wasi errno " + e.Name()
}

// ToErrno converts an error returned by any layer into the code surfaced to
// the guest. nil is SUCCESS; errors that carry no Errno become IO.
func ToErrno(err error) Errno {
	if err == nil {
		return ErrnoSuccess
	}
	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	return ErrnoIO
}

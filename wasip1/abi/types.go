package abi

// Fd is a guest-visible descriptor number.
type Fd uint32

type (
	FileSize  uint64
	FileDelta int64
	Timestamp uint64
	DirCookie uint64
	Size      uint32
)

// FdFlags are descriptor flags (fdflags).
type FdFlags uint16

const (
	FdFlagAppend FdFlags = 1 << iota
	FdFlagDsync
	FdFlagNonblock
	FdFlagRsync
	FdFlagSync
)

// OFlags are path_open flags (oflags).
type OFlags uint16

const (
	OFlagCreat OFlags = 1 << iota
	OFlagDirectory
	OFlagExcl
	OFlagTrunc
)

// LookupFlags control symlink handling during path resolution.
type LookupFlags uint32

const LookupSymlinkFollow LookupFlags = 1

// FstFlags select which timestamps fd_filestat_set_times changes.
type FstFlags uint16

const (
	FstAtim FstFlags = 1 << iota
	FstAtimNow
	FstMtim
	FstMtimNow
)

type Filetype uint8

const (
	FiletypeUnknown Filetype = iota
	FiletypeBlockDevice
	FiletypeCharacterDevice
	FiletypeDirectory
	FiletypeRegularFile
	FiletypeSocketDgram
	FiletypeSocketStream
	FiletypeSymbolicLink
)

type Whence uint8

const (
	WhenceSet Whence = iota
	WhenceCur
	WhenceEnd
)

type Advice uint8

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceWillNeed
	AdviceDontNeed
	AdviceNoReuse
)

type ClockID uint32

const (
	ClockRealtime ClockID = iota
	ClockMonotonic
	ClockProcessCPUTime
	ClockThreadCPUTime
)

type EventType uint8

const (
	EventTypeClock EventType = iota
	EventTypeFdRead
	EventTypeFdWrite
)

type EventRWFlags uint16

const EventFdReadwriteHangup EventRWFlags = 1

type SubClockFlags uint16

const SubscriptionClockAbstime SubClockFlags = 1

type RiFlags uint16

const (
	RecvPeek RiFlags = 1 << iota
	RecvWaitall
)

type RoFlags uint16

const RecvDataTruncated RoFlags = 1

type SiFlags uint16

type SdFlags uint8

const (
	ShutRd SdFlags = 1 << iota
	ShutWr
)

type PreopenType uint8

const PreopenTypeDir PreopenType = 0

type Signal uint8

const (
	SignalNone Signal = iota
	SignalHup
	SignalInt
	SignalQuit
	SignalIll
	SignalTrap
	SignalAbrt
	SignalBus
	SignalFpe
	SignalKill
	SignalUsr1
	SignalSegv
	SignalUsr2
	SignalPipe
	SignalAlrm
	SignalTerm
	SignalChld
	SignalCont
	SignalStop
	SignalTstp
	SignalTtin
	SignalTtou
	SignalUrg
	SignalXcpu
	SignalXfsz
	SignalVtalrm
	SignalProf
	SignalWinch
	SignalPoll
	SignalPwr
	SignalSys
)

// AddressFamily is the socket address family of the sock_* extension.
type AddressFamily uint8

const (
	AddressFamilyUnspec AddressFamily = iota
	AddressFamilyInet4
	AddressFamilyInet6
	AddressFamilyUnix
)

type SockType uint8

const (
	SockTypeAny SockType = iota
	SockTypeDgram
	SockTypeStream
)

type SockOptLevel uint32

const SockOptLevelSocket SockOptLevel = 0

type SockOptSo uint32

const (
	SockOptReuseAddr SockOptSo = iota
	SockOptType
	SockOptError
	SockOptDontRoute
	SockOptBroadcast
	SockOptSndBuf
	SockOptRcvBuf
	SockOptKeepAlive
	SockOptOOBInline
	SockOptLinger
	SockOptRcvLowat
	SockOptRcvTimeo
	SockOptSndTimeo
	SockOptAcceptConn
	SockOptBindToDevice
)

// SockAddr is a socket address exchanged with the guest. Addr holds 4 bytes
// for Inet4, 16 for Inet6 and the path bytes for Unix.
type SockAddr struct {
	Family AddressFamily
	Addr   []byte
	Port   uint16
}

type Fdstat struct {
	Filetype         Filetype
	Flags            FdFlags
	RightsBase       Rights
	RightsInheriting Rights
}

type Filestat struct {
	Dev      uint64
	Ino      uint64
	Filetype Filetype
	Nlink    uint64
	Size     FileSize
	Atim     Timestamp
	Mtim     Timestamp
	Ctim     Timestamp
}

type Prestat struct {
	Tag     PreopenType
	NameLen uint32
}

type Dirent struct {
	Next   DirCookie
	Ino    uint64
	Namlen uint32
	Type   Filetype
}

type SubscriptionClock struct {
	ID        ClockID
	Timeout   Timestamp
	Precision Timestamp
	Flags     SubClockFlags
}

type Subscription struct {
	Userdata uint64
	Type     EventType
	Clock    SubscriptionClock
	// Fd is set for EventTypeFdRead and EventTypeFdWrite.
	Fd Fd
}

type EventFdReadwrite struct {
	NBytes FileSize
	Flags  EventRWFlags
}

type Event struct {
	Userdata    uint64
	Error       Errno
	Type        EventType
	FdReadwrite EventFdReadwrite
}

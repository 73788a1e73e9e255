package inode

import (
	"unsafe"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

const (
	oRsync        = unix.O_RSYNC
	ioctlReadable = unix.TIOCINQ
	utimeNow      = unix.UTIME_NOW
	utimeOmit     = unix.UTIME_OMIT
)

// futimens is utimensat with a NULL path, which targets fd itself.
func futimens(fd int, ts *[2]unix.Timespec) error {
	_, _, errno := unix.Syscall6(unix.SYS_UTIMENSAT, uintptr(fd), 0, uintptr(unsafe.Pointer(ts)), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func soBindToDevice() (int, error) { return unix.SO_BINDTODEVICE, nil }

func sigPwr() (unix.Signal, error) { return unix.SIGPWR, nil }

func nativeAdvice(advice abi.Advice) (int, error) {
	switch advice {
	case abi.AdviceNormal:
		return unix.FADV_NORMAL, nil
	case abi.AdviceSequential:
		return unix.FADV_SEQUENTIAL, nil
	case abi.AdviceRandom:
		return unix.FADV_RANDOM, nil
	case abi.AdviceWillNeed:
		return unix.FADV_WILLNEED, nil
	case abi.AdviceDontNeed:
		return unix.FADV_DONTNEED, nil
	case abi.AdviceNoReuse:
		return unix.FADV_NOREUSE, nil
	}
	return 0, abi.ErrnoInval
}

func fadvise(fd int, offset, length int64, advice abi.Advice) error {
	native, err := nativeAdvice(advice)
	if err != nil {
		return err
	}
	return unix.Fadvise(fd, offset, length, native)
}

func fallocate(fd int, offset, length int64) error {
	return unix.Fallocate(fd, 0, offset, length)
}

func fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}

func clockResolution(id int32) (int64, error) {
	var ts unix.Timespec
	if err := unix.ClockGetres(id, &ts); err != nil {
		return 0, err
	}
	return ts.Nano(), nil
}

func readv(fd int, iovs IOVecs) (int, error) {
	return unix.Readv(fd, iovs)
}

func writev(fd int, iovs IOVecs) (int, error) {
	return unix.Writev(fd, iovs)
}

func preadv(fd int, iovs IOVecs, offset int64) (int, error) {
	return unix.Preadv(fd, iovs, offset)
}

func pwritev(fd int, iovs IOVecs, offset int64) (int, error) {
	return unix.Pwritev(fd, iovs, offset)
}

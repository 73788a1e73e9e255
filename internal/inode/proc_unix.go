//go:build linux || darwin

package inode

import (
	"runtime"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

func ClockResGet(id abi.ClockID) (abi.Timestamp, error) {
	clock, err := nativeClock(id)
	if err != nil {
		return 0, err
	}
	res, err := clockResolution(clock)
	if err != nil {
		return 0, fromErrno(err)
	}
	return abi.Timestamp(res), nil
}

func ClockTimeGet(id abi.ClockID, precision abi.Timestamp) (abi.Timestamp, error) {
	clock, err := nativeClock(id)
	if err != nil {
		return 0, err
	}
	var ts unix.Timespec
	if err := unix.ClockGettime(clock, &ts); err != nil {
		return 0, fromErrno(err)
	}
	return abi.Timestamp(ts.Nano()), nil
}

// ProcRaise delivers sig to the host process.
func ProcRaise(sig abi.Signal) error {
	native, err := nativeSignal(sig)
	if err != nil {
		return err
	}
	return fromErrno(unix.Kill(unix.Getpid(), native))
}

func SchedYield() error {
	runtime.Gosched()
	return nil
}

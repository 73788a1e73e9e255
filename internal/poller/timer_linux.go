package poller

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

// Timer is a timerfd bound to one clock.
type Timer struct {
	fd    int
	clock abi.ClockID
}

func newTimer(id abi.ClockID) (*Timer, error) {
	var clock int
	switch id {
	case abi.ClockRealtime:
		clock = unix.CLOCK_REALTIME
	case abi.ClockMonotonic:
		clock = unix.CLOCK_MONOTONIC
	case abi.ClockProcessCPUTime, abi.ClockThreadCPUTime:
		return nil, abi.ErrnoNotSup
	default:
		return nil, abi.ErrnoInval
	}
	fd, err := unix.TimerfdCreate(clock, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, inode.MapError(err)
	}
	return &Timer{fd: fd, clock: id}, nil
}

// set arms the timer. A zero relative timeout would disarm a timerfd, so the
// caller treats it as already expired.
func (t *Timer) set(timeout abi.Timestamp, abstime bool) error {
	flags := 0
	if abstime {
		flags = unix.TFD_TIMER_ABSTIME
	}
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(int64(timeout))}
	return inode.MapError(unix.TimerfdSettime(t.fd, flags, &spec, nil))
}

func (t *Timer) disarm() {
	var spec unix.ItimerSpec
	unix.TimerfdSettime(t.fd, 0, &spec, nil)
	var buf [8]byte
	unix.Read(t.fd, buf[:])
}

func (t *Timer) close() {
	unix.Close(t.fd)
}

package poller

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// relative returns the nanoseconds until s expires, never negative.
func relative(s *sub) (int64, error) {
	if !s.abstime {
		return int64(s.timeout), nil
	}
	now, err := inode.ClockTimeGet(s.clock, 0)
	if err != nil {
		return 0, err
	}
	if s.timeout <= now {
		return 0, nil
	}
	return int64(s.timeout - now), nil
}

func monotonicNow() int64 {
	now, err := inode.ClockTimeGet(abi.ClockMonotonic, 0)
	if err != nil {
		return 0
	}
	return int64(now)
}

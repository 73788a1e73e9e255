//go:build !linux

package poller

import "github.com/foxxorcat/wazero-wasip1/wasip1/abi"

// Timer is unused outside Linux; kqueue and poll(2) carry timeouts natively.
type Timer struct {
	clock abi.ClockID
}

func newTimer(abi.ClockID) (*Timer, error) { return nil, abi.ErrnoNoSys }

func (t *Timer) disarm() {}

func (t *Timer) close() {}

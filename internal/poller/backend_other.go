//go:build !linux && !darwin

package poller

import "github.com/foxxorcat/wazero-wasip1/wasip1/abi"

type stubBackend struct{}

func defaultBackend(*TimerPool) backend { return stubBackend{} }

func (stubBackend) open() error                                { return abi.ErrnoNoSys }
func (stubBackend) supportsEdge() bool                         { return false }
func (stubBackend) update(int, interest, interest, bool) error { return abi.ErrnoNoSys }
func (stubBackend) arm(*Poller, *sub) error                    { return abi.ErrnoNoSys }
func (stubBackend) disarm(*Poller, *sub)                       {}
func (stubBackend) wait(*Poller, bool) error                   { return abi.ErrnoNoSys }
func (stubBackend) close() error                               { return nil }

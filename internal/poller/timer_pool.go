package poller

import (
	"sync"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// TimerPool caches native timers per clock id so a poll cycle does not
// create and destroy one every time. It is safe for concurrent use.
type TimerPool struct {
	mu     sync.Mutex
	free   map[abi.ClockID][]*Timer
	closed bool
}

func NewTimerPool() *TimerPool {
	return &TimerPool{free: make(map[abi.ClockID][]*Timer)}
}

// Acquire returns an idle timer for id, creating one when none is cached.
func (tp *TimerPool) Acquire(id abi.ClockID) (*Timer, error) {
	tp.mu.Lock()
	if timers := tp.free[id]; len(timers) > 0 {
		t := timers[len(timers)-1]
		tp.free[id] = timers[:len(timers)-1]
		tp.mu.Unlock()
		return t, nil
	}
	tp.mu.Unlock()
	return newTimer(id)
}

// Release disarms t and caches it for reuse.
func (tp *TimerPool) Release(t *Timer) {
	if t == nil {
		return
	}
	t.disarm()
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.closed {
		t.close()
		return
	}
	tp.free[t.clock] = append(tp.free[t.clock], t)
}

// Idle returns the number of cached timers for id.
func (tp *TimerPool) Idle(id abi.ClockID) int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.free[id])
}

// Close destroys every cached timer. Timers released later are destroyed
// immediately.
func (tp *TimerPool) Close() error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.closed = true
	for id, timers := range tp.free {
		for _, t := range timers {
			t.close()
		}
		delete(tp.free, id)
	}
	return nil
}

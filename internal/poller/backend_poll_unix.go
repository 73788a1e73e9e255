//go:build linux || darwin

package poller

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

const (
	pollEventRead  = unix.POLLIN | unix.POLLPRI
	pollEventWrite = unix.POLLOUT
)

// pollBackend keeps registrations in memory and builds a poll(2) set per
// wait. It has no edge triggering.
type pollBackend struct {
	fds       map[int]interest
	deadlines map[uint64]int64
	set       []unix.PollFd
}

func newPollBackend(*TimerPool) *pollBackend {
	return &pollBackend{
		fds:       make(map[int]interest),
		deadlines: make(map[uint64]int64),
	}
}

func (b *pollBackend) open() error { return nil }

func (b *pollBackend) supportsEdge() bool { return false }

func (b *pollBackend) update(fd int, old, cur interest, edge bool) error {
	if edge {
		return abi.ErrnoNoSys
	}
	if cur == 0 {
		delete(b.fds, fd)
		return nil
	}
	b.fds[fd] = cur
	return nil
}

func (b *pollBackend) arm(p *Poller, s *sub) error {
	rel, err := relative(s)
	if err != nil {
		return err
	}
	if rel == 0 {
		s.ready = true
		return nil
	}
	s.deadline = monotonicNow() + rel
	b.deadlines[s.token] = s.deadline
	return nil
}

func (b *pollBackend) disarm(p *Poller, s *sub) {
	delete(b.deadlines, s.token)
}

// timeout returns the poll(2) timeout in milliseconds, rounded up.
func (b *pollBackend) timeout(block bool) int {
	if !block {
		return 0
	}
	if len(b.deadlines) == 0 {
		return -1
	}
	now := monotonicNow()
	next := int64(-1)
	for _, dl := range b.deadlines {
		if rem := dl - now; next < 0 || rem < next {
			next = rem
		}
	}
	if next <= 0 {
		return 0
	}
	return int((next + 999_999) / 1_000_000)
}

func (b *pollBackend) wait(p *Poller, block bool) error {
	b.set = b.set[:0]
	for fd, mask := range b.fds {
		var events int16
		if mask&interestRead != 0 {
			events |= pollEventRead
		}
		if mask&interestWrite != 0 {
			events |= pollEventWrite
		}
		b.set = append(b.set, unix.PollFd{Fd: int32(fd), Events: events})
	}

	for {
		n, err := unix.Poll(b.set, b.timeout(block))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return inode.MapError(err)
		}
		fired := n > 0
		for _, pfd := range b.set {
			if pfd.Revents == 0 {
				continue
			}
			r := readiness{
				readable: pfd.Revents&pollEventRead != 0,
				writable: pfd.Revents&pollEventWrite != 0,
				hangup:   pfd.Revents&unix.POLLHUP != 0,
			}
			switch {
			case pfd.Revents&unix.POLLNVAL != 0:
				r.err = abi.ErrnoBadf
			case pfd.Revents&unix.POLLERR != 0:
				if r.err = socketError(int(pfd.Fd)); r.err == abi.ErrnoSuccess {
					r.hangup = true
				}
			}
			p.fireFd(int(pfd.Fd), r)
		}
		now := monotonicNow()
		for token, dl := range b.deadlines {
			if dl <= now {
				delete(b.deadlines, token)
				p.fireClock(token)
				fired = true
			}
		}
		if fired || !block {
			return nil
		}
	}
}

func (b *pollBackend) close() error {
	clear(b.fds)
	clear(b.deadlines)
	return nil
}

package poller

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

// timerTag marks epoll records that belong to a clock subscription.
const timerTag = 1

type epollBackend struct {
	epfd   int
	timers *TimerPool
	armed  map[int32]uint64 // timerfd -> clock token
	buf    []unix.EpollEvent
}

func newEpollBackend(timers *TimerPool) *epollBackend {
	if timers == nil {
		timers = NewTimerPool()
	}
	return &epollBackend{epfd: -1, timers: timers, armed: make(map[int32]uint64)}
}

func (b *epollBackend) open() error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return inode.MapError(err)
	}
	b.epfd = fd
	return nil
}

func (b *epollBackend) supportsEdge() bool { return true }

func epollMask(i interest, edge bool) uint32 {
	var events uint32
	if i&interestRead != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if i&interestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	if edge {
		events |= unix.EPOLLET
	}
	return events
}

func (b *epollBackend) update(fd int, old, cur interest, edge bool) error {
	var err error
	switch {
	case cur == 0:
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	case old == 0:
		ev := unix.EpollEvent{Events: epollMask(cur, edge), Fd: int32(fd)}
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
		if err == unix.EEXIST {
			err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		}
	default:
		ev := unix.EpollEvent{Events: epollMask(cur, edge), Fd: int32(fd)}
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		if err == unix.ENOENT {
			err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
		}
	}
	// Regular files and directories cannot be polled and are always ready.
	if err == unix.EPERM {
		return errAlwaysReady
	}
	return inode.MapError(err)
}

func (b *epollBackend) arm(p *Poller, s *sub) error {
	if s.timeout == 0 {
		s.ready = true
		return nil
	}
	t, err := b.timers.Acquire(s.clock)
	if err != nil {
		return err
	}
	s.timer = t
	if err := t.set(s.timeout, s.abstime); err != nil {
		return err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(t.fd), Pad: timerTag}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, t.fd, &ev); err != nil {
		return inode.MapError(err)
	}
	b.armed[int32(t.fd)] = s.token
	return nil
}

func (b *epollBackend) disarm(p *Poller, s *sub) {
	t := s.timer
	if t == nil {
		return
	}
	s.timer = nil
	if _, ok := b.armed[int32(t.fd)]; ok {
		unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, t.fd, nil)
		delete(b.armed, int32(t.fd))
	}
	b.timers.Release(t)
}

func (b *epollBackend) wait(p *Poller, block bool) error {
	if n := len(p.subs); cap(b.buf) < n {
		b.buf = make([]unix.EpollEvent, n)
	}
	buf := b.buf[:cap(b.buf)]
	timeout := -1
	if !block {
		timeout = 0
	}
	for {
		n, err := unix.EpollWait(b.epfd, buf, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return inode.MapError(err)
		}
		for _, ev := range buf[:n] {
			if ev.Pad == timerTag {
				if token, ok := b.armed[ev.Fd]; ok {
					p.fireClock(token)
				}
				continue
			}
			r := readiness{
				readable: ev.Events&unix.EPOLLIN != 0,
				writable: ev.Events&unix.EPOLLOUT != 0,
				hangup:   ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
			}
			if ev.Events&unix.EPOLLERR != 0 {
				if r.err = socketError(int(ev.Fd)); r.err == abi.ErrnoSuccess {
					r.hangup = true
				}
			}
			p.fireFd(int(ev.Fd), r)
		}
		return nil
	}
}

func (b *epollBackend) close() error {
	if b.epfd < 0 {
		return nil
	}
	err := unix.Close(b.epfd)
	b.epfd = -1
	return inode.MapError(err)
}

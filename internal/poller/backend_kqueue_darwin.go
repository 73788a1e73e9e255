package poller

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

type kqueueBackend struct {
	kq    int
	armed map[uint64]struct{}
	buf   []unix.Kevent_t
}

func newKqueueBackend(*TimerPool) *kqueueBackend {
	return &kqueueBackend{kq: -1, armed: make(map[uint64]struct{})}
}

func (b *kqueueBackend) open() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return inode.MapError(err)
	}
	unix.CloseOnExec(kq)
	b.kq = kq
	return nil
}

func (b *kqueueBackend) supportsEdge() bool { return true }

func (b *kqueueBackend) update(fd int, old, cur interest, edge bool) error {
	var changes []unix.Kevent_t
	for _, f := range []struct {
		mask   interest
		filter int16
	}{
		{interestRead, unix.EVFILT_READ},
		{interestWrite, unix.EVFILT_WRITE},
	} {
		var flags uint16
		switch {
		case cur&f.mask != 0:
			flags = unix.EV_ADD | unix.EV_ENABLE
			if edge {
				flags |= unix.EV_CLEAR
			}
		case old&f.mask != 0:
			flags = unix.EV_DELETE
		default:
			continue
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: f.filter, Flags: flags})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	if err == unix.ENOENT && cur == 0 {
		return nil
	}
	return inode.MapError(err)
}

func (b *kqueueBackend) arm(p *Poller, s *sub) error {
	rel, err := relative(s)
	if err != nil {
		return err
	}
	if rel == 0 {
		s.ready = true
		return nil
	}
	change := unix.Kevent_t{
		Ident:  s.token,
		Filter: unix.EVFILT_TIMER,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
		Fflags: unix.NOTE_NSECONDS,
		Data:   rel,
	}
	if _, err := unix.Kevent(b.kq, []unix.Kevent_t{change}, nil, nil); err != nil {
		return inode.MapError(err)
	}
	b.armed[s.token] = struct{}{}
	return nil
}

func (b *kqueueBackend) disarm(p *Poller, s *sub) {
	if _, ok := b.armed[s.token]; !ok {
		return
	}
	delete(b.armed, s.token)
	change := unix.Kevent_t{Ident: s.token, Filter: unix.EVFILT_TIMER, Flags: unix.EV_DELETE}
	unix.Kevent(b.kq, []unix.Kevent_t{change}, nil, nil)
}

func (b *kqueueBackend) wait(p *Poller, block bool) error {
	if n := 2 * len(p.subs); cap(b.buf) < n {
		b.buf = make([]unix.Kevent_t, n)
	}
	buf := b.buf[:cap(b.buf)]
	var timeout *unix.Timespec
	if !block {
		timeout = &unix.Timespec{}
	}
	for {
		n, err := unix.Kevent(b.kq, nil, buf, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return inode.MapError(err)
		}
		for _, ev := range buf[:n] {
			if ev.Filter == unix.EVFILT_TIMER {
				delete(b.armed, ev.Ident)
				p.fireClock(ev.Ident)
				continue
			}
			r := readiness{
				readable: ev.Filter == unix.EVFILT_READ,
				writable: ev.Filter == unix.EVFILT_WRITE,
				hangup:   ev.Flags&unix.EV_EOF != 0,
			}
			if ev.Flags&unix.EV_ERROR != 0 {
				r.err = abi.ToErrno(inode.MapError(unix.Errno(ev.Data)))
			} else if r.hangup && ev.Fflags != 0 {
				r.err = abi.ToErrno(inode.MapError(unix.Errno(ev.Fflags)))
			}
			p.fireFd(int(ev.Ident), r)
		}
		return nil
	}
}

func (b *kqueueBackend) close() error {
	if b.kq < 0 {
		return nil
	}
	err := unix.Close(b.kq)
	b.kq = -1
	return inode.MapError(err)
}

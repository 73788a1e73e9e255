// Package poller multiplexes readiness of native handles and clocks for
// poll_oneoff. One Poller runs cycles of Prepare, subscriptions, Wait and
// Result over a single native backend: epoll on Linux, kqueue on darwin, or
// poll(2) when built with the pollfallback tag.
package poller

import (
	"errors"
	"weak"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// Trigger selects level or edge triggered readiness.
type Trigger uint8

const (
	TriggerLevel Trigger = iota
	TriggerEdge
)

type interest uint8

const (
	interestRead interest = 1 << iota
	interestWrite
)

// errAlwaysReady is returned by backends for descriptors that cannot be
// registered, such as regular files under epoll.
var errAlwaysReady = errors.New("poller: descriptor is always ready")

type state uint8

const (
	stateCreated state = iota
	statePrepared
	stateWaited
	stateDestroyed
)

type sub struct {
	event abi.Event
	ready bool

	fd   int
	node weak.Pointer[inode.INode]

	// clock subscriptions
	clock    abi.ClockID
	timeout  abi.Timestamp
	abstime  bool
	deadline int64
	timer    *Timer
	token    uint64
}

type fdEntry struct {
	read, write *sub
	edge        bool
}

func (e *fdEntry) interest() interest {
	var i interest
	if e.read != nil {
		i |= interestRead
	}
	if e.write != nil {
		i |= interestWrite
	}
	return i
}

// readiness is what a backend reports for one descriptor.
type readiness struct {
	readable, writable bool
	hangup             bool
	err                abi.Errno
}

type backend interface {
	open() error
	supportsEdge() bool
	// update moves the registration of fd from old to cur. cur == 0 removes
	// it. errAlwaysReady means the descriptor cannot be polled and is
	// always ready.
	update(fd int, old, cur interest, edge bool) error
	// arm registers a clock; it may mark s ready at once.
	arm(p *Poller, s *sub) error
	disarm(p *Poller, s *sub)
	wait(p *Poller, block bool) error
	close() error
}

// Poller is not safe for concurrent use. Environ hands one poller to one
// poll_oneoff call at a time.
type Poller struct {
	be     backend
	timers *TimerPool
	state  state

	events     []abi.Event
	subs       []*sub
	clocks     map[uint64]*sub
	nextToken  uint64
	fds        map[int]*fdEntry
	registered map[int]interest
}

// New returns a poller on the default backend of this platform. timers may
// be shared between pollers.
func New(timers *TimerPool) *Poller {
	return newPoller(defaultBackend(timers), timers)
}

func newPoller(be backend, timers *TimerPool) *Poller {
	return &Poller{
		be:         be,
		timers:     timers,
		clocks:     make(map[uint64]*sub),
		fds:        make(map[int]*fdEntry),
		registered: make(map[int]interest),
	}
}

// Prepare binds the output buffer of the next cycle. Backend resources are
// allocated on first use; failing that is NOMEM.
func (p *Poller) Prepare(events []abi.Event) error {
	switch p.state {
	case stateDestroyed:
		return abi.ErrnoBadf
	case stateCreated:
		if err := p.be.open(); err != nil {
			Logger().Debug("poller backend allocation failed", errField(err))
			return abi.ErrnoNoMem
		}
	default:
		p.Reset()
	}
	p.events = events
	p.state = statePrepared
	return nil
}

func (p *Poller) add(s *sub) error {
	if p.state != statePrepared {
		return abi.ErrnoInval
	}
	if len(p.subs) >= len(p.events) {
		return abi.ErrnoInval
	}
	s.token = p.nextToken
	p.nextToken++
	p.subs = append(p.subs, s)
	return nil
}

// Clock subscribes to a timeout on clock id. The precision is advisory.
func (p *Poller) Clock(id abi.ClockID, timeout, precision abi.Timestamp, flags abi.SubClockFlags, userdata uint64) error {
	s := &sub{
		event:   abi.Event{Userdata: userdata, Type: abi.EventTypeClock},
		fd:      -1,
		clock:   id,
		timeout: timeout,
		abstime: flags&abi.SubscriptionClockAbstime != 0,
	}
	if err := p.add(s); err != nil {
		return err
	}
	p.clocks[s.token] = s
	if err := p.be.arm(p, s); err != nil {
		p.be.disarm(p, s)
		s.fail(err)
		return err
	}
	return nil
}

// Read subscribes to read readiness of node.
func (p *Poller) Read(node *inode.INode, trigger Trigger, userdata uint64) error {
	return p.subscribe(node, interestRead, trigger, userdata)
}

// Write subscribes to write readiness of node.
func (p *Poller) Write(node *inode.INode, trigger Trigger, userdata uint64) error {
	return p.subscribe(node, interestWrite, trigger, userdata)
}

func (p *Poller) subscribe(node *inode.INode, dir interest, trigger Trigger, userdata uint64) error {
	typ := abi.EventTypeFdRead
	if dir == interestWrite {
		typ = abi.EventTypeFdWrite
	}
	fd := node.Fd()
	entry := p.fds[fd]
	s := &sub{
		event: abi.Event{Userdata: userdata, Type: typ},
		fd:    fd,
		node:  weak.Make(node),
	}
	if err := p.add(s); err != nil {
		return err
	}
	// A second subscription in the same direction gets its own error event
	// and never reaches the backend.
	if entry != nil && entry.interest()&dir != 0 {
		s.fail(abi.ErrnoExist)
		return abi.ErrnoExist
	}
	if trigger == TriggerEdge && !p.be.supportsEdge() {
		s.fail(abi.ErrnoNoSys)
		return abi.ErrnoNoSys
	}

	if entry == nil {
		entry = &fdEntry{}
		p.fds[fd] = entry
	}
	if dir == interestRead {
		entry.read = s
	} else {
		entry.write = s
	}
	entry.edge = entry.edge || trigger == TriggerEdge

	old := p.registered[fd]
	cur := entry.interest()
	switch err := p.be.update(fd, old, cur, entry.edge); err {
	case nil:
		p.registered[fd] = cur
	case errAlwaysReady:
		p.fill(s, readiness{readable: dir == interestRead, writable: dir == interestWrite})
	default:
		s.fail(err)
		return err
	}
	return nil
}

// Error records an already failed subscription so it is reported in order.
func (p *Poller) Error(userdata uint64, typ abi.EventType, errno abi.Errno) error {
	s := &sub{event: abi.Event{Userdata: userdata, Type: typ}, fd: -1}
	if err := p.add(s); err != nil {
		return err
	}
	s.fail(errno)
	return nil
}

// Wait blocks until at least one subscription is ready. Descriptors that
// were registered in an earlier cycle and are no longer subscribed are
// removed from the backend first.
func (p *Poller) Wait() error {
	if p.state != statePrepared {
		return abi.ErrnoInval
	}
	for fd, mask := range p.registered {
		if _, ok := p.fds[fd]; ok {
			continue
		}
		if err := p.be.update(fd, mask, 0, false); err != nil {
			Logger().Debug("stale poll registration", fdField(fd), errField(err))
		}
		delete(p.registered, fd)
	}

	block := len(p.subs) > 0
	for _, s := range p.subs {
		if s.ready {
			block = false
			break
		}
	}
	if len(p.subs) > 0 {
		if err := p.be.wait(p, block); err != nil {
			return err
		}
	}
	p.state = stateWaited
	return nil
}

// Result copies the materialized events into the prepared buffer in
// subscription order and returns their count.
func (p *Poller) Result() int {
	n := 0
	for _, s := range p.subs {
		if s.ready {
			p.events[n] = s.event
			n++
		}
	}
	return n
}

// Reset drops every subscription of the current cycle. The backend and its
// registrations stay alive for the next cycle.
func (p *Poller) Reset() {
	for _, s := range p.clocks {
		p.be.disarm(p, s)
	}
	p.subs = nil
	clear(p.clocks)
	clear(p.fds)
	if p.state != stateDestroyed && p.state != stateCreated {
		p.state = statePrepared
	}
}

// Close removes every subscription on node and its backend registration.
// It is called before node is closed.
func (p *Poller) Close(node *inode.INode) {
	fd := node.Fd()
	kept := p.subs[:0]
	for _, s := range p.subs {
		if s.fd == fd && s.fd >= 0 {
			if v := s.node.Value(); v == nil || v == node {
				continue
			}
		}
		kept = append(kept, s)
	}
	clear(p.subs[len(kept):])
	p.subs = kept
	delete(p.fds, fd)
	if mask, ok := p.registered[fd]; ok {
		if err := p.be.update(fd, mask, 0, false); err != nil {
			Logger().Debug("poll deregistration on close", fdField(fd), errField(err))
		}
		delete(p.registered, fd)
	}
}

// Registered returns the number of descriptors registered with the backend.
func (p *Poller) Registered() int {
	return len(p.registered)
}

// Destroy releases the backend. The poller cannot be used afterwards.
func (p *Poller) Destroy() error {
	if p.state == stateDestroyed {
		return nil
	}
	p.Reset()
	p.state = stateDestroyed
	clear(p.registered)
	return p.be.close()
}

func (s *sub) fail(err error) {
	s.ready = true
	s.event.Error = abi.ToErrno(err)
}

// fireClock marks the clock subscription with token as expired.
func (p *Poller) fireClock(token uint64) {
	if s, ok := p.clocks[token]; ok {
		s.ready = true
	}
}

// fireFd reports readiness for a descriptor.
func (p *Poller) fireFd(fd int, r readiness) {
	entry := p.fds[fd]
	if entry == nil {
		return
	}
	failed := r.err != abi.ErrnoSuccess
	if s := entry.read; s != nil && (r.readable || r.hangup || failed) {
		p.fill(s, r)
	}
	if s := entry.write; s != nil && (r.writable || r.hangup || failed) {
		p.fill(s, r)
	}
}

func (p *Poller) fill(s *sub, r readiness) {
	s.ready = true
	if r.err != abi.ErrnoSuccess {
		s.event.Error = r.err
		return
	}
	node := s.node.Value()
	if node == nil {
		s.event.Error = abi.ErrnoBadf
		return
	}
	var (
		n  uint64
		ok bool
	)
	if s.event.Type == abi.EventTypeFdRead {
		n, ok = node.ReadableBytes()
	} else {
		n, ok = node.WritableBytes()
	}
	if !ok {
		n = 1
	}
	if r.hangup {
		s.event.FdReadwrite.Flags |= abi.EventFdReadwriteHangup
	}
	s.event.FdReadwrite.NBytes = abi.FileSize(n)
}

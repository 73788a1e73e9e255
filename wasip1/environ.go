// Package wasip1 implements the WASI preview1 host surface on top of the
// capability layer. Environ owns the guest descriptor table and the poller
// pool; Host exports it to wazero as wasi_snapshot_preview1.
package wasip1

import (
	"crypto/rand"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/internal/poller"
	"github.com/foxxorcat/wazero-wasip1/internal/vfs"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultPollerPoolSize is the number of idle pollers kept for reuse.
const DefaultPollerPoolSize = 16

// Environ is the state of one WASI instance. It is safe for concurrent use.
type Environ struct {
	args []string
	envs []string

	fds *fdTable

	pollMu   sync.RWMutex
	pollers  *lru.Cache[uint64, *vfs.VPoller]
	poolSize int
	pollSeq  uint64
	timers   *poller.TimerPool

	exited   atomic.Bool
	exitCode atomic.Uint32
}

// Option configures an Environ.
type Option func(*Environ)

// WithPollerPoolSize bounds the number of idle pollers.
func WithPollerPoolSize(n int) Option {
	return func(e *Environ) {
		if n > 0 {
			e.poolSize = n
		}
	}
}

func NewEnviron(opts ...Option) *Environ {
	e := &Environ{
		fds:      newFdTable(),
		poolSize: DefaultPollerPoolSize,
		timers:   poller.NewTimerPool(),
	}
	for _, opt := range opts {
		opt(e)
	}
	// Eviction is done by hand so evicted pollers can be destroyed.
	e.pollers, _ = lru.New[uint64, *vfs.VPoller](e.poolSize + 1)
	return e
}

// Init installs stdio at 0, 1 and 2 and the preopened directories at 3, 4,
// ... in guest path order.
func (e *Environ) Init(dirs []string, args, envs []string) error {
	binds := make([]DirBind, 0, len(dirs))
	for _, d := range dirs {
		b, err := ParseDirBind(d)
		if err != nil {
			return err
		}
		binds = append(binds, b)
	}
	slices.SortStableFunc(binds, func(a, b DirBind) int {
		return strings.Compare(a.Guest, b.Guest)
	})

	preopens := make([]*vfs.VINode, 0, len(binds))
	for _, b := range binds {
		policy := bindRights[b.ReadOnly]
		v, err := vfs.Bind(b.Guest, b.Host, policy.base, policy.inheriting)
		if err != nil {
			for _, p := range preopens {
				p.Release()
			}
			Logger().Error("bind failed", zap.Stringer("bind", b), zap.Error(err))
			return &BindError{Bind: b, Err: err}
		}
		Logger().Debug("preopen", zap.String("guest", b.Guest), zap.String("host", b.Host),
			zap.Bool("readonly", b.ReadOnly))
		preopens = append(preopens, v)
	}

	e.args = slices.Clone(args)
	e.envs = slices.Clone(envs)
	e.fds.insertAt(0, vfs.StdIn())
	e.fds.insertAt(1, vfs.StdOut())
	e.fds.insertAt(2, vfs.StdErr())
	for i, v := range preopens {
		e.fds.insertAt(abi.Fd(3+i), v)
	}
	return nil
}

// BindError reports a directory that could not be preopened.
type BindError struct {
	Bind DirBind
	Err  error
}

func (e *BindError) Error() string { return "bind " + e.Bind.String() + ": " + e.Err.Error() }
func (e *BindError) Unwrap() error { return e.Err }

// Close releases every descriptor, pooled poller and cached timer.
func (e *Environ) Close() error {
	for _, v := range e.fds.drain() {
		e.scrub(v)
		v.Release()
	}
	e.pollMu.Lock()
	var errs []error
	for _, k := range e.pollers.Keys() {
		if p, ok := e.pollers.Peek(k); ok {
			errs = append(errs, p.Destroy())
		}
	}
	e.pollers.Purge()
	e.pollMu.Unlock()
	errs = append(errs, e.timers.Close())
	return errors.Join(errs...)
}

// FindPreopen returns the preopen whose guest path is the longest prefix of
// path, and path relative to it.
func (e *Environ) FindPreopen(path string) (abi.Fd, string, error) {
	var (
		best    abi.Fd
		bestLen = -1
		rel     string
	)
	e.fds.each(func(fd abi.Fd, v *vfs.VINode) bool {
		name := v.Name()
		if name == "" {
			return true
		}
		if name != "/" {
			name = strings.TrimRight(name, "/")
		}
		var rest string
		switch {
		case path == name:
		case name == "/" && strings.HasPrefix(path, "/"):
			rest = path[1:]
		case strings.HasPrefix(path, name+"/"):
			rest = path[len(name)+1:]
		default:
			return true
		}
		if len(name) > bestLen {
			best, bestLen, rel = fd, len(name), rest
		}
		return true
	})
	if bestLen < 0 {
		return 0, "", abi.ErrnoNoEnt
	}
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		rel = "."
	}
	return best, rel, nil
}

// ExitCode returns the code passed to proc_exit and whether it was called.
func (e *Environ) ExitCode() (uint32, bool) {
	return e.exitCode.Load(), e.exited.Load()
}

func (e *Environ) ArgsGet() []string    { return e.args }
func (e *Environ) EnvironGet() []string { return e.envs }

// ArgsSizesGet returns the number of arguments and the size of their
// NUL-terminated encoding.
func (e *Environ) ArgsSizesGet() (count, size abi.Size) {
	return stringsSize(e.args)
}

func (e *Environ) EnvironSizesGet() (count, size abi.Size) {
	return stringsSize(e.envs)
}

func stringsSize(strs []string) (count, size abi.Size) {
	for _, s := range strs {
		size += abi.Size(len(s) + 1)
	}
	return abi.Size(len(strs)), size
}

func (e *Environ) ClockResGet(id abi.ClockID) (abi.Timestamp, error) {
	return inode.ClockResGet(id)
}

func (e *Environ) ClockTimeGet(id abi.ClockID, precision abi.Timestamp) (abi.Timestamp, error) {
	return inode.ClockTimeGet(id, precision)
}

// ProcExit records code. The host module stops the guest.
func (e *Environ) ProcExit(code uint32) {
	e.exitCode.Store(code)
	e.exited.Store(true)
	Logger().Debug("proc_exit", zap.Uint32("code", code))
}

func (e *Environ) ProcRaise(sig abi.Signal) error {
	return inode.ProcRaise(sig)
}

func (e *Environ) SchedYield() error {
	return inode.SchedYield()
}

func (e *Environ) RandomGet(buf []byte) error {
	if _, err := rand.Read(buf); err != nil {
		return abi.ErrnoIO
	}
	return nil
}

// acquirePoller takes the most recently used idle poller or makes a new one.
func (e *Environ) acquirePoller() *vfs.VPoller {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	if keys := e.pollers.Keys(); len(keys) > 0 {
		k := keys[len(keys)-1]
		p, _ := e.pollers.Peek(k)
		e.pollers.Remove(k)
		return p
	}
	return vfs.NewVPoller(e.timers)
}

// releasePoller returns p to the pool, destroying the least recently used
// poller when the pool is full.
func (e *Environ) releasePoller(p *vfs.VPoller) {
	p.Reset()
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	if e.pollers.Len() >= e.poolSize {
		if _, old, ok := e.pollers.RemoveOldest(); ok {
			old.Destroy()
		}
	}
	e.pollSeq++
	e.pollers.Add(e.pollSeq, p)
}

// pooledPollers returns the number of idle pollers.
func (e *Environ) pooledPollers() int {
	e.pollMu.RLock()
	defer e.pollMu.RUnlock()
	return e.pollers.Len()
}

// scrub removes v from every pooled poller.
func (e *Environ) scrub(v *vfs.VINode) {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	for _, k := range e.pollers.Keys() {
		if p, ok := e.pollers.Peek(k); ok {
			p.Close(v)
		}
	}
}

// PollOneoff waits for the subscriptions and writes one event per ready
// subscription into events, in subscription order. events must hold at
// least len(subs) records.
func (e *Environ) PollOneoff(subs []abi.Subscription, events []abi.Event) (int, error) {
	if len(subs) == 0 || len(events) < len(subs) {
		return 0, abi.ErrnoInval
	}
	p := e.acquirePoller()
	defer e.releasePoller(p)
	if err := p.Prepare(events[:len(subs)]); err != nil {
		return 0, err
	}

	var held []*vfs.VINode
	defer func() {
		for _, v := range held {
			v.Release()
		}
	}()
	for _, s := range subs {
		// Per subscription failures are reported as events.
		switch s.Type {
		case abi.EventTypeClock:
			p.Clock(s.Clock.ID, s.Clock.Timeout, s.Clock.Precision, s.Clock.Flags, s.Userdata)
		case abi.EventTypeFdRead, abi.EventTypeFdWrite:
			v, err := e.fds.get(s.Fd)
			if err != nil {
				p.Error(s.Userdata, s.Type, abi.ErrnoBadf)
				continue
			}
			held = append(held, v)
			if s.Type == abi.EventTypeFdRead {
				p.Read(v, poller.TriggerLevel, s.Userdata)
			} else {
				p.Write(v, poller.TriggerLevel, s.Userdata)
			}
		default:
			p.Error(s.Userdata, s.Type, abi.ErrnoInval)
		}
	}
	if err := p.Wait(); err != nil {
		return 0, err
	}
	return p.Result(), nil
}

//go:build linux || darwin

package poller

import (
	"testing"
	"time"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (*inode.INode, *inode.INode) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a, b := inode.Adopt(fds[0]), inode.Adopt(fds[1])
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func eachBackend(t *testing.T, fn func(t *testing.T, p *Poller)) {
	timers := NewTimerPool()
	t.Cleanup(func() { timers.Close() })
	for name, mk := range map[string]func() backend{
		"default": func() backend { return defaultBackend(timers) },
		"poll":    func() backend { return newPollBackend(timers) },
	} {
		t.Run(name, func(t *testing.T) {
			p := newPoller(mk(), timers)
			t.Cleanup(func() { p.Destroy() })
			fn(t, p)
		})
	}
}

func TestDuplicateAndBothDirections(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		a, b := socketPair(t)
		_, err := b.FdWrite(inode.IOVecs{[]byte("hi")})
		require.NoError(t, err)

		events := make([]abi.Event, 4)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Read(a, TriggerLevel, 1))
		assert.Equal(t, abi.ErrnoExist, p.Read(a, TriggerLevel, 9))
		require.NoError(t, p.Write(a, TriggerLevel, 2))
		assert.Equal(t, abi.ErrnoExist, p.Write(a, TriggerLevel, 9))

		require.NoError(t, p.Wait())
		n := p.Result()
		require.Equal(t, 4, n)
		assert.Equal(t, uint64(1), events[0].Userdata)
		assert.Equal(t, abi.EventTypeFdRead, events[0].Type)
		assert.Equal(t, abi.ErrnoSuccess, events[0].Error)
		assert.Equal(t, abi.FileSize(2), events[0].FdReadwrite.NBytes)
		assert.Equal(t, abi.Event{Userdata: 9, Type: abi.EventTypeFdRead, Error: abi.ErrnoExist}, events[1])
		assert.Equal(t, uint64(2), events[2].Userdata)
		assert.Equal(t, abi.EventTypeFdWrite, events[2].Type)
		assert.NotZero(t, events[2].FdReadwrite.NBytes)
		assert.Equal(t, abi.Event{Userdata: 9, Type: abi.EventTypeFdWrite, Error: abi.ErrnoExist}, events[3])
	})
}

func TestClockTimeout(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		events := make([]abi.Event, 1)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Clock(abi.ClockMonotonic, abi.Timestamp(100*time.Millisecond), 0, 0, 42))

		start := time.Now()
		require.NoError(t, p.Wait())
		elapsed := time.Since(start)

		require.Equal(t, 1, p.Result())
		assert.Equal(t, uint64(42), events[0].Userdata)
		assert.Equal(t, abi.EventTypeClock, events[0].Type)
		assert.Equal(t, abi.ErrnoSuccess, events[0].Error)
		assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
		assert.Less(t, elapsed, 2*time.Second)
	})
}

func TestAbsoluteClockInThePast(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		events := make([]abi.Event, 1)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Clock(abi.ClockMonotonic, 1, 0, abi.SubscriptionClockAbstime, 7))
		require.NoError(t, p.Wait())
		require.Equal(t, 1, p.Result())
		assert.Equal(t, uint64(7), events[0].Userdata)
	})
}

func TestCloseScrubsSubscriptions(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		a, b := socketPair(t)
		_, err := b.FdWrite(inode.IOVecs{[]byte("x")})
		require.NoError(t, err)

		events := make([]abi.Event, 4)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Read(a, TriggerLevel, 1))
		require.NoError(t, p.Write(a, TriggerLevel, 2))
		p.Close(a)
		assert.Empty(t, p.registered)

		require.NoError(t, p.Clock(abi.ClockMonotonic, abi.Timestamp(10*time.Millisecond), 0, 0, 3))
		require.NoError(t, p.Wait())
		require.Equal(t, 1, p.Result())
		assert.Equal(t, uint64(3), events[0].Userdata)
	})
}

func TestStaleRegistrationsRemoved(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		a, b := socketPair(t)
		_, err := b.FdWrite(inode.IOVecs{[]byte("x")})
		require.NoError(t, err)

		events := make([]abi.Event, 2)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Read(a, TriggerLevel, 1))
		require.NoError(t, p.Wait())
		require.Equal(t, 1, p.Result())
		assert.Contains(t, p.registered, a.Fd())

		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Clock(abi.ClockMonotonic, abi.Timestamp(time.Millisecond), 0, 0, 2))
		require.NoError(t, p.Wait())
		assert.NotContains(t, p.registered, a.Fd())
		require.Equal(t, 1, p.Result())
		assert.Equal(t, uint64(2), events[0].Userdata)
	})
}

func TestEventBufferBound(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		events := make([]abi.Event, 1)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Clock(abi.ClockMonotonic, 0, 0, 0, 1))
		assert.Equal(t, abi.ErrnoInval, p.Clock(abi.ClockMonotonic, 0, 0, 0, 2))
	})
}

func TestErrorEventsKeepOrder(t *testing.T) {
	eachBackend(t, func(t *testing.T, p *Poller) {
		events := make([]abi.Event, 2)
		require.NoError(t, p.Prepare(events))
		require.NoError(t, p.Error(5, abi.EventTypeFdRead, abi.ErrnoNotCapable))
		require.NoError(t, p.Clock(abi.ClockMonotonic, abi.Timestamp(time.Hour), 0, 0, 6))
		require.NoError(t, p.Wait())
		require.Equal(t, 1, p.Result())
		assert.Equal(t, uint64(5), events[0].Userdata)
		assert.Equal(t, abi.ErrnoNotCapable, events[0].Error)
	})
}

func TestPollBackendRejectsEdge(t *testing.T) {
	p := newPoller(newPollBackend(nil), nil)
	defer p.Destroy()
	a, _ := socketPair(t)

	events := make([]abi.Event, 1)
	require.NoError(t, p.Prepare(events))
	assert.Equal(t, abi.ErrnoNoSys, p.Read(a, TriggerEdge, 1))
	require.NoError(t, p.Wait())
	require.Equal(t, 1, p.Result())
	assert.Equal(t, abi.ErrnoNoSys, events[0].Error)
}

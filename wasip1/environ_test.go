//go:build linux || darwin

package wasip1

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/internal/vfs"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnviron(t *testing.T, dirs []string, opts ...Option) *Environ {
	t.Helper()
	e := NewEnviron(opts...)
	require.NoError(t, e.Init(dirs, []string{"prog", "arg"}, []string{"A=1"}))
	t.Cleanup(func() { e.Close() })
	return e
}

func TestInitOrder(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	e := newEnviron(t, []string{"/b:" + b, "/a:" + a + ":readonly"})

	for fd, name := range map[abi.Fd]string{3: "/a", 4: "/b"} {
		st, err := e.FdPrestatGet(fd)
		require.NoError(t, err)
		assert.Equal(t, abi.PreopenTypeDir, st.Tag)
		require.Equal(t, uint32(len(name)), st.NameLen)
		buf := make([]byte, st.NameLen)
		require.NoError(t, e.FdPrestatDirName(fd, buf))
		assert.Equal(t, name, string(buf))
	}
	assert.Equal(t, abi.ErrnoNameTooLong, e.FdPrestatDirName(3, make([]byte, 1)))

	for fd := abi.Fd(0); fd < 3; fd++ {
		_, err := e.FdPrestatGet(fd)
		assert.Equal(t, abi.ErrnoBadf, err)
	}
	_, err := e.FdPrestatGet(5)
	assert.Equal(t, abi.ErrnoBadf, err)

	st, err := e.FdFdstatGet(3)
	require.NoError(t, err)
	assert.Equal(t, abi.FiletypeDirectory, st.Filetype)
	assert.Equal(t, abi.DirectoryReadOnlyRights, st.RightsBase)

	out, err := e.FdFdstatGet(1)
	require.NoError(t, err)
	assert.NotZero(t, out.RightsBase&abi.RightFdWrite)
	assert.Zero(t, out.RightsBase&abi.RightFdRead)

	count, size := e.ArgsSizesGet()
	assert.Equal(t, abi.Size(2), count)
	assert.Equal(t, abi.Size(len("prog")+1+len("arg")+1), size)
	count, size = e.EnvironSizesGet()
	assert.Equal(t, abi.Size(1), count)
	assert.Equal(t, abi.Size(4), size)
}

func TestInitRejectsBadBind(t *testing.T) {
	e := NewEnviron()
	defer e.Close()
	err := e.Init([]string{"/x:" + filepath.Join(t.TempDir(), "missing")}, nil, nil)
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, abi.ErrnoNoEnt, abi.ToErrno(err))
	assert.Zero(t, e.fds.len())

	assert.Error(t, e.Init([]string{"/x:/y:rw"}, nil, nil))
}

func TestFindPreopen(t *testing.T) {
	e := newEnviron(t, []string{"/data:" + t.TempDir(), "/data/sub:" + t.TempDir(), "/:" + t.TempDir()})

	tests := []struct {
		path string
		fd   abi.Fd
		rel  string
	}{
		{"/data/sub/x", 5, "x"},
		{"/data/subway", 4, "subway"},
		{"/data", 4, "."},
		{"/data/", 4, "."},
		{"/etc/passwd", 3, "etc/passwd"},
	}
	for _, tt := range tests {
		fd, rel, err := e.FindPreopen(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.fd, fd, tt.path)
		assert.Equal(t, tt.rel, rel, tt.path)
	}

	e2 := newEnviron(t, []string{"/data:" + t.TempDir()})
	_, _, err := e2.FindPreopen("/other")
	assert.Equal(t, abi.ErrnoNoEnt, err)
}

func TestFdAllocationIsUnique(t *testing.T) {
	table := newFdTable()
	seen := make(map[abi.Fd]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		fd := table.insert(vfs.StdIn())
		require.Less(t, uint64(fd), uint64(maxFd))
		_, dup := seen[fd]
		require.False(t, dup, "fd %d allocated twice", fd)
		seen[fd] = struct{}{}
	}
	assert.Equal(t, 10000, table.len())
	for _, v := range table.drain() {
		v.Release()
	}
	assert.Zero(t, table.len())
}

func TestReadonlyEndToEnd(t *testing.T) {
	host := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(host, "existing"), []byte("hello sandbox"), 0o644))
	e := newEnviron(t, []string{"/sandbox:" + host + ":readonly"})

	dir, rel, err := e.FindPreopen("/sandbox/new")
	require.NoError(t, err)
	_, err = e.PathOpen(dir, 0, rel, abi.OFlagCreat, abi.RightFdRead, 0, 0)
	assert.Equal(t, abi.ErrnoNotCapable, err)
	assert.NoFileExists(t, filepath.Join(host, "new"))

	dir, rel, err = e.FindPreopen("/sandbox/existing")
	require.NoError(t, err)
	fd, err := e.PathOpen(dir, 0, rel, 0, abi.RightFdRead, 0, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fd, abi.Fd(0))

	buf := make([]byte, 64)
	n, err := e.FdRead(fd, inode.IOVecs{buf[:5], buf[5:]})
	require.NoError(t, err)
	assert.Equal(t, "hello sandbox", string(buf[:n]))

	_, err = e.FdWrite(fd, inode.IOVecs{[]byte("x")})
	assert.Equal(t, abi.ErrnoNotCapable, err)
	require.NoError(t, e.FdClose(fd))
	_, err = e.FdRead(fd, inode.IOVecs{buf})
	assert.Equal(t, abi.ErrnoBadf, err)
	assert.Equal(t, abi.ErrnoBadf, e.FdClose(fd))
}

func TestFdRenumber(t *testing.T) {
	host := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(host, "one"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(host, "two"), []byte("2"), 0o644))
	e := newEnviron(t, []string{"/:" + host})

	one, err := e.PathOpen(3, 0, "one", 0, abi.RightFdRead, 0, 0)
	require.NoError(t, err)
	two, err := e.PathOpen(3, 0, "two", 0, abi.RightFdRead, 0, 0)
	require.NoError(t, err)

	require.NoError(t, e.FdRenumber(one, two))
	buf := make([]byte, 1)
	n, err := e.FdRead(two, inode.IOVecs{buf})
	require.NoError(t, err)
	assert.Equal(t, "1", string(buf[:n]))
	_, err = e.FdRead(one, inode.IOVecs{buf})
	assert.Equal(t, abi.ErrnoBadf, err)

	assert.Equal(t, abi.ErrnoBadf, e.FdRenumber(one, two))
	assert.Equal(t, abi.ErrnoBadf, e.FdRenumber(two, one))
	require.NoError(t, e.FdRenumber(two, two))
}

func TestPathOperationsThroughEnviron(t *testing.T) {
	host := t.TempDir()
	e := newEnviron(t, []string{"/work:" + host})

	require.NoError(t, e.PathCreateDirectory(3, "d"))
	fd, err := e.PathOpen(3, 0, "d/f", abi.OFlagCreat|abi.OFlagExcl, abi.RightFdWrite|abi.RightFdSeek, 0, 0)
	require.NoError(t, err)
	n, err := e.FdWrite(fd, inode.IOVecs{[]byte("abc"), []byte("def")})
	require.NoError(t, err)
	assert.Equal(t, abi.Size(6), n)
	pos, err := e.FdTell(fd)
	require.NoError(t, err)
	assert.Equal(t, abi.FileSize(6), pos)
	require.NoError(t, e.FdClose(fd))

	_, err = e.PathOpen(3, 0, "d/f", abi.OFlagCreat|abi.OFlagExcl, abi.RightFdWrite, 0, 0)
	assert.Equal(t, abi.ErrnoExist, err)

	st, err := e.PathFilestatGet(3, 0, "d/f")
	require.NoError(t, err)
	assert.Equal(t, abi.FileSize(6), st.Size)

	require.NoError(t, e.PathSymlink("d/f", 3, "l"))
	buf := make([]byte, 16)
	ln, err := e.PathReadlink(3, "l", buf)
	require.NoError(t, err)
	assert.Equal(t, "d/f", string(buf[:ln]))

	require.NoError(t, e.PathRename(3, "d/f", 3, "g"))
	require.NoError(t, e.PathLink(3, 0, "g", 3, "h"))
	require.NoError(t, e.PathUnlinkFile(3, "g"))
	require.NoError(t, e.PathUnlinkFile(3, "h"))
	require.NoError(t, e.PathUnlinkFile(3, "l"))
	require.NoError(t, e.PathRemoveDirectory(3, "d"))

	entries, err := os.ReadDir(host)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPollOneoffClock(t *testing.T) {
	e := newEnviron(t, nil)
	subs := []abi.Subscription{{
		Userdata: 42,
		Type:     abi.EventTypeClock,
		Clock: abi.SubscriptionClock{
			ID:      abi.ClockMonotonic,
			Timeout: abi.Timestamp(100 * time.Millisecond),
		},
	}}
	events := make([]abi.Event, 1)

	start := time.Now()
	n, err := e.PollOneoff(subs, events)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, uint64(42), events[0].Userdata)
	assert.Equal(t, abi.ErrnoSuccess, events[0].Error)
	assert.Equal(t, abi.EventTypeClock, events[0].Type)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	_, err = e.PollOneoff(nil, nil)
	assert.Equal(t, abi.ErrnoInval, err)
}

func TestPollOneoffBadFd(t *testing.T) {
	e := newEnviron(t, nil)
	subs := []abi.Subscription{
		{Userdata: 1, Type: abi.EventTypeFdRead, Fd: 12345},
		{Userdata: 2, Type: abi.EventTypeClock, Clock: abi.SubscriptionClock{ID: abi.ClockMonotonic}},
	}
	events := make([]abi.Event, 2)
	n, err := e.PollOneoff(subs, events)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, abi.ErrnoBadf, events[0].Error)
	assert.Equal(t, uint64(2), events[1].Userdata)
	assert.Equal(t, abi.ErrnoSuccess, events[1].Error)
}

func TestPollOneoffDuplicateSubscription(t *testing.T) {
	e := newEnviron(t, nil)
	fd := listen(t, e)

	subs := []abi.Subscription{
		{Userdata: 1, Type: abi.EventTypeFdRead, Fd: fd},
		{Userdata: 2, Type: abi.EventTypeFdRead, Fd: fd},
	}
	events := make([]abi.Event, len(subs))
	done := make(chan int, 1)
	go func() {
		n, err := e.PollOneoff(subs, events)
		assert.NoError(t, err)
		done <- n
	}()
	select {
	case n := <-done:
		require.Equal(t, 1, n)
		assert.Equal(t, abi.Event{Userdata: 2, Type: abi.EventTypeFdRead, Error: abi.ErrnoExist}, events[0])
	case <-time.After(5 * time.Second):
		t.Fatal("poll_oneoff blocked on a failed subscription")
	}

	subs = append(subs, abi.Subscription{Userdata: 3, Type: abi.EventTypeClock, Clock: abi.SubscriptionClock{
		ID: abi.ClockMonotonic, Timeout: abi.Timestamp(20 * time.Millisecond),
	}})
	events = make([]abi.Event, len(subs))
	n, err := e.PollOneoff(subs, events)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)
	assert.Equal(t, uint64(2), events[0].Userdata)
	assert.Equal(t, abi.ErrnoExist, events[0].Error)
}

func listen(t *testing.T, e *Environ) abi.Fd {
	t.Helper()
	fd, err := e.SockOpen(abi.AddressFamilyInet4, abi.SockTypeStream)
	require.NoError(t, err)
	require.NoError(t, e.SockBind(fd, abi.SockAddr{Family: abi.AddressFamilyInet4, Addr: []byte{127, 0, 0, 1}}))
	require.NoError(t, e.SockListen(fd, 8))
	return fd
}

func TestFdCloseScrubsPooledPollers(t *testing.T) {
	e := newEnviron(t, nil)
	fd := listen(t, e)

	subs := []abi.Subscription{
		{Userdata: 1, Type: abi.EventTypeFdRead, Fd: fd},
		{Userdata: 2, Type: abi.EventTypeClock, Clock: abi.SubscriptionClock{
			ID: abi.ClockMonotonic, Timeout: abi.Timestamp(10 * time.Millisecond),
		}},
	}
	events := make([]abi.Event, 2)
	n, err := e.PollOneoff(subs, events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, uint64(2), events[0].Userdata)

	require.Equal(t, 1, e.pooledPollers())
	p, ok := e.pollers.Peek(e.pollers.Keys()[0])
	require.True(t, ok)
	assert.Equal(t, 1, p.Registered())

	require.NoError(t, e.FdClose(fd))
	assert.Zero(t, p.Registered())
}

func TestPollerPoolIsBounded(t *testing.T) {
	e := newEnviron(t, nil, WithPollerPoolSize(2))
	var ps []*vfs.VPoller
	for i := 0; i < 3; i++ {
		ps = append(ps, e.acquirePoller())
	}
	for _, p := range ps {
		e.releasePoller(p)
	}
	assert.Equal(t, 2, e.pooledPollers())

	assert.Same(t, ps[2], e.acquirePoller())
	assert.Equal(t, 1, e.pooledPollers())
}

func TestSocketsThroughEnviron(t *testing.T) {
	e := newEnviron(t, nil)
	ln := listen(t, e)
	addr, err := e.SockGetLocalAddr(ln)
	require.NoError(t, err)
	require.NotZero(t, addr.Port)

	c, err := e.SockOpen(abi.AddressFamilyInet4, abi.SockTypeStream)
	require.NoError(t, err)
	require.NoError(t, e.SockConnect(c, addr))

	s, err := e.SockAccept(ln, 0)
	require.NoError(t, err)
	st, err := e.FdFdstatGet(s)
	require.NoError(t, err)
	assert.Equal(t, abi.FiletypeSocketStream, st.Filetype)

	n, err := e.SockSend(c, inode.IOVecs{[]byte("ping")}, 0)
	require.NoError(t, err)
	assert.Equal(t, abi.Size(4), n)

	buf := make([]byte, 8)
	n, ro, err := e.SockRecv(s, inode.IOVecs{buf}, 0)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	assert.Zero(t, ro)

	require.NoError(t, e.SockShutdown(c, abi.ShutWr))
	n, _, err = e.SockRecv(s, inode.IOVecs{buf}, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRandomGet(t *testing.T) {
	e := newEnviron(t, nil)
	a, b := make([]byte, 32), make([]byte, 32)
	require.NoError(t, e.RandomGet(a))
	require.NoError(t, e.RandomGet(b))
	assert.NotEqual(t, a, b)
}

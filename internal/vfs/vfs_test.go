//go:build linux || darwin

package vfs

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/internal/poller"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rwInheriting = abi.DirectoryRights | abi.FileRights
	roInheriting = abi.DirectoryReadOnlyRights | abi.FileReadOnlyRights
)

func bind(t *testing.T, host string, readonly bool) *VINode {
	t.Helper()
	base, inheriting := abi.DirectoryRights, rwInheriting
	if readonly {
		base, inheriting = abi.DirectoryReadOnlyRights, roInheriting
	}
	v, err := Bind("/sandbox", host, base, inheriting)
	require.NoError(t, err)
	t.Cleanup(v.Release)
	return v
}

func TestSetRightsNeverEscalates(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 2000; i++ {
		base := abi.Rights(rng.Uint64()) & abi.AllRights
		inheriting := abi.Rights(rng.Uint64()) & abi.AllRights
		v := New(inode.StdIn(), base, inheriting, "")

		if rng.IntN(2) == 0 {
			nb, ni := base&abi.Rights(rng.Uint64()), inheriting&abi.Rights(rng.Uint64())
			require.NoError(t, v.SetRights(nb, ni))
			gb, gi := v.Rights()
			assert.Equal(t, nb, gb)
			assert.Equal(t, ni, gi)
		} else {
			extra := abi.Rights(1) << rng.IntN(30)
			nb, ni := base|extra, inheriting
			if base&extra != 0 {
				nb, ni = base, inheriting|extra
			}
			if nb == base && ni == inheriting {
				v.Release()
				continue
			}
			assert.Equal(t, abi.ErrnoNotCapable, v.SetRights(nb, ni))
			gb, gi := v.Rights()
			assert.Equal(t, base, gb)
			assert.Equal(t, inheriting, gi)
		}
		v.Release()
	}
}

func TestReleasePanicsWhenOverReleased(t *testing.T) {
	v := New(inode.StdIn(), 0, 0, "")
	v.Acquire()
	v.Release()
	v.Release()
	assert.Panics(t, v.Release)
}

func TestResolveNeverEscapes(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sandbox")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("../secret", filepath.Join(root, "up")))
	require.NoError(t, os.Symlink(filepath.Join(parent, "secret"), filepath.Join(root, "abs")))
	dir := bind(t, root, false)

	for _, path := range []string{
		"../../etc/passwd",
		"../secret",
		"sub/../../secret",
		"/etc/passwd",
		"up",
		"abs",
		"..",
	} {
		_, err := PathOpen(dir, path, abi.LookupSymlinkFollow, 0, abi.RightFdRead, 0, 0)
		assert.Equal(t, abi.ErrnoPerm, err, path)
	}

	f, err := PathOpen(dir, "sub/../sub/./", 0, abi.OFlagDirectory, abi.RightFdReaddir, 0, 0)
	require.NoError(t, err)
	f.Release()
}

func TestResolveSegments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	dir := bind(t, root, false)

	for path, want := range map[string]string{
		"a/b/c":   "c",
		"a//b/c":  "c",
		"a/b/":    ".",
		"a/b/..":  ".",
		"./a":     "a",
		"missing": "missing",
	} {
		parent, name, err := resolve(dir, path, 0, 0, true)
		require.NoError(t, err, path)
		assert.Equal(t, want, name, path)
		parent.Release()
	}

	_, _, err := resolve(dir, "", 0, 0, true)
	assert.Equal(t, abi.ErrnoNoEnt, err)
	parent, name, err := resolve(dir, "", 0, inode.AllowEmpty, true)
	require.NoError(t, err)
	assert.Equal(t, ".", name)
	parent.Release()

	_, _, err = resolve(dir, "missing/x", 0, 0, true)
	assert.Equal(t, abi.ErrnoNoEnt, err)
}

func symlinkChain(t *testing.T, root string, n int) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target"), []byte("end"), 0o644))
	next := "target"
	for i := n; i >= 1; i-- {
		name := fmt.Sprintf("link%d", i)
		require.NoError(t, os.Symlink(next, filepath.Join(root, name)))
		next = name
	}
	return next
}

func TestSymlinkChainBound(t *testing.T) {
	for _, tc := range []struct {
		length int
		err    error
	}{
		{7, nil},
		{8, nil},
		{9, abi.ErrnoLoop},
	} {
		t.Run(fmt.Sprint(tc.length), func(t *testing.T) {
			root := t.TempDir()
			head := symlinkChain(t, root, tc.length)
			dir := bind(t, root, false)

			f, err := PathOpen(dir, head, abi.LookupSymlinkFollow, 0, abi.RightFdRead, 0, 0)
			if tc.err != nil {
				assert.Equal(t, tc.err, err)
				return
			}
			require.NoError(t, err)
			defer f.Release()
			buf := make([]byte, 8)
			n, err := f.FdRead(inode.IOVecs{buf})
			require.NoError(t, err)
			assert.Equal(t, "end", string(buf[:n]))
		})
	}
}

func TestReadonlyPreopen(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing"), []byte("payload"), 0o644))
	dir := bind(t, root, true)

	_, err := PathOpen(dir, "new", 0, abi.OFlagCreat, abi.RightFdRead|abi.RightFdWrite, 0, 0)
	assert.Equal(t, abi.ErrnoNotCapable, err)
	_, err = PathOpen(dir, "new", 0, abi.OFlagCreat, abi.RightFdRead, 0, 0)
	assert.Equal(t, abi.ErrnoNotCapable, err)
	assert.NoFileExists(t, filepath.Join(root, "new"))

	assert.Equal(t, abi.ErrnoNotCapable, PathCreateDirectory(dir, "d"))
	assert.NoDirExists(t, filepath.Join(root, "d"))
	assert.Equal(t, abi.ErrnoNotCapable, PathUnlinkFile(dir, "existing"))
	assert.Equal(t, abi.ErrnoNotCapable, PathRename(dir, "existing", dir, "moved"))
	assert.Equal(t, abi.ErrnoNotCapable, PathSymlink("existing", dir, "l"))
	assert.FileExists(t, filepath.Join(root, "existing"))

	f, err := PathOpen(dir, "existing", 0, 0, abi.RightFdRead|abi.RightFdSeek, 0, 0)
	require.NoError(t, err)
	defer f.Release()

	buf := make([]byte, 16)
	n, err := f.FdRead(inode.IOVecs{buf})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))

	_, err = f.FdWrite(inode.IOVecs{[]byte("x")})
	assert.Equal(t, abi.ErrnoNotCapable, err)

	pos, err := f.FdTell()
	require.NoError(t, err, "FD_SEEK implies FD_TELL")
	assert.Equal(t, abi.FileSize(7), pos)
}

func TestFdRightsChecks(t *testing.T) {
	root := t.TempDir()
	dir := bind(t, root, false)

	f, err := PathOpen(dir, "f", 0, abi.OFlagCreat, abi.RightFdWrite|abi.RightFdTell, 0, 0)
	require.NoError(t, err)
	defer f.Release()

	_, err = f.FdWrite(inode.IOVecs{[]byte("abc")})
	require.NoError(t, err)

	pos, err := f.FdSeek(0, abi.WhenceCur)
	require.NoError(t, err)
	assert.Equal(t, abi.FileSize(3), pos)
	_, err = f.FdSeek(0, abi.WhenceSet)
	assert.Equal(t, abi.ErrnoNotCapable, err)

	_, err = f.FdPwrite(inode.IOVecs{[]byte("z")}, 0)
	assert.Equal(t, abi.ErrnoNotCapable, err)
	_, err = f.FdRead(inode.IOVecs{make([]byte, 1)})
	assert.Equal(t, abi.ErrnoNotCapable, err)
	assert.Equal(t, abi.ErrnoNotCapable, f.FdFilestatSetSize(0))

	st, err := f.FdFdstatGet()
	require.NoError(t, err)
	assert.Equal(t, abi.FiletypeRegularFile, st.Filetype)
	assert.Equal(t, abi.RightFdWrite|abi.RightFdTell, st.RightsBase)

	// Requested rights must come from the parent's inheriting set.
	_, err = PathOpen(dir, "f", 0, 0, abi.RightSockAccept, 0, 0)
	assert.Equal(t, abi.ErrnoNotCapable, err)

	// Truncation needs PATH_FILESTAT_SET_SIZE on the directory.
	require.NoError(t, dir.SetRights(abi.DirectoryRights&^abi.RightPathFilestatSetSize, rwInheriting))
	_, err = PathOpen(dir, "f", 0, abi.OFlagTrunc, abi.RightFdWrite, 0, 0)
	assert.Equal(t, abi.ErrnoNotCapable, err)
	info, err := os.Stat(filepath.Join(root, "f"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())
}

func TestPathOperations(t *testing.T) {
	root := t.TempDir()
	dir := bind(t, root, false)

	require.NoError(t, PathCreateDirectory(dir, "d/"))
	f, err := PathOpen(dir, "d/file", 0, abi.OFlagCreat, abi.RightFdWrite, 0, 0)
	require.NoError(t, err)
	f.Release()

	require.NoError(t, PathSymlink("d/file", dir, "link"))
	buf := make([]byte, 64)
	n, err := PathReadlink(dir, "link", buf)
	require.NoError(t, err)
	assert.Equal(t, "d/file", string(buf[:n]))

	st, err := PathFilestatGet(dir, "link", 0)
	require.NoError(t, err)
	assert.Equal(t, abi.FiletypeSymbolicLink, st.Filetype)
	st, err = PathFilestatGet(dir, "link", abi.LookupSymlinkFollow)
	require.NoError(t, err)
	assert.Equal(t, abi.FiletypeRegularFile, st.Filetype)

	require.NoError(t, PathLink(dir, "d/file", 0, dir, "hard"))
	require.NoError(t, PathRename(dir, "hard", dir, "d/renamed"))
	require.NoError(t, PathUnlinkFile(dir, "d/renamed"))
	require.NoError(t, PathUnlinkFile(dir, "link"))
	assert.Equal(t, abi.ErrnoNotEmpty, PathRemoveDirectory(dir, "d"))
	require.NoError(t, PathUnlinkFile(dir, "d/file"))
	require.NoError(t, PathRemoveDirectory(dir, "d/"))
	assert.NoDirExists(t, filepath.Join(root, "d"))
}

func TestVPollerChecksRights(t *testing.T) {
	root := t.TempDir()
	dir := bind(t, root, false)
	f, err := PathOpen(dir, "f", 0, abi.OFlagCreat, abi.RightFdWrite, 0, 0)
	require.NoError(t, err)
	defer f.Release()

	p := NewVPoller(poller.NewTimerPool())
	defer p.Destroy()

	events := make([]abi.Event, 2)
	require.NoError(t, p.Prepare(events))
	require.NoError(t, p.Read(f, poller.TriggerLevel, 1))
	require.NoError(t, p.Write(f, poller.TriggerLevel, 2))
	require.NoError(t, p.Wait())
	require.Equal(t, 2, p.Result())

	assert.Equal(t, uint64(1), events[0].Userdata)
	assert.Equal(t, abi.ErrnoNotCapable, events[0].Error)
	assert.Equal(t, uint64(2), events[1].Userdata)
	assert.Equal(t, abi.ErrnoSuccess, events[1].Error)
}

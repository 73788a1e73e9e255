//go:build linux || darwin

package wasip1

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
)

const (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

type guestImport struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// guestImports are re-exported by the test guest through thin wrappers that
// forward their parameters.
var guestImports = []guestImport{
	{"proc_exit", []api.ValueType{i32}, nil},
	{"args_sizes_get", []api.ValueType{i32, i32}, []api.ValueType{i32}},
	{"args_get", []api.ValueType{i32, i32}, []api.ValueType{i32}},
	{"fd_write", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}},
	{"fd_read", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}},
	{"fd_prestat_get", []api.ValueType{i32, i32}, []api.ValueType{i32}},
	{"path_open", []api.ValueType{i32, i32, i32, i32, i32, i64, i64, i32, i32}, []api.ValueType{i32}},
	{"poll_oneoff", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}},
	{"random_get", []api.ValueType{i32, i32}, []api.ValueType{i32}},
}

func uleb(v uint32) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
			continue
		}
		return append(b, c)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, entries ...[]byte) []byte {
	body := uleb(uint32(len(entries)))
	for _, e := range entries {
		body = append(body, e...)
	}
	return append(append([]byte{id}, uleb(uint32(len(body)))...), body...)
}

// guestModule encodes a module that imports guestImports, exports one
// memory page as "memory" and one wrapper per import under the import name.
func guestModule() []byte {
	var types, imports, funcs, exports, code [][]byte
	for i, imp := range guestImports {
		typ := []byte{0x60}
		typ = append(typ, uleb(uint32(len(imp.params)))...)
		typ = append(typ, imp.params...)
		typ = append(typ, uleb(uint32(len(imp.results)))...)
		typ = append(typ, imp.results...)
		types = append(types, typ)

		entry := append(name(ModuleName), name(imp.name)...)
		imports = append(imports, append(append(entry, 0x00), uleb(uint32(i))...))
		funcs = append(funcs, uleb(uint32(i)))
		exports = append(exports, append(append(name(imp.name), 0x00), uleb(uint32(len(guestImports)+i))...))

		body := []byte{0x00} // no locals
		for p := range imp.params {
			body = append(body, 0x20)
			body = append(body, uleb(uint32(p))...)
		}
		body = append(body, 0x10)
		body = append(body, uleb(uint32(i))...)
		body = append(body, 0x0b)
		code = append(code, append(uleb(uint32(len(body))), body...))
	}
	exports = append(exports, append(name("memory"), 0x02, 0x00))

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	bin = append(bin, section(1, types...)...)
	bin = append(bin, section(2, imports...)...)
	bin = append(bin, section(3, funcs...)...)
	bin = append(bin, section(5, []byte{0x00, 0x01})...)
	bin = append(bin, section(7, exports...)...)
	bin = append(bin, section(10, code...)...)
	return bin
}

type guest struct {
	t   *testing.T
	ctx context.Context
	mod api.Module
}

func instantiate(t *testing.T, env *Environ) *guest {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	t.Cleanup(func() { r.Close(ctx) })

	_, err := NewHost(env).Instantiate(ctx, r)
	require.NoError(t, err)
	mod, err := r.Instantiate(ctx, guestModule())
	require.NoError(t, err)
	return &guest{t: t, ctx: ctx, mod: mod}
}

func (g *guest) call(fn string, params ...uint64) abi.Errno {
	g.t.Helper()
	res, err := g.mod.ExportedFunction(fn).Call(g.ctx, params...)
	require.NoError(g.t, err)
	require.Len(g.t, res, 1)
	return abi.Errno(res[0])
}

func (g *guest) write(ptr uint32, b []byte) {
	g.t.Helper()
	require.True(g.t, g.mod.Memory().Write(ptr, b))
}

func (g *guest) u32(ptr uint32) uint32 {
	g.t.Helper()
	v, ok := g.mod.Memory().ReadUint32Le(ptr)
	require.True(g.t, ok)
	return v
}

func (g *guest) bytes(ptr, n uint32) []byte {
	g.t.Helper()
	b, ok := g.mod.Memory().Read(ptr, n)
	require.True(g.t, ok)
	return append([]byte(nil), b...)
}

func (g *guest) iovec(ptr, buf, length uint32) {
	g.t.Helper()
	require.True(g.t, g.mod.Memory().WriteUint32Le(ptr, buf))
	require.True(g.t, g.mod.Memory().WriteUint32Le(ptr+4, length))
}

func TestHostArgs(t *testing.T) {
	env := newEnviron(t, nil)
	g := instantiate(t, env)

	require.Equal(t, abi.ErrnoSuccess, g.call("args_sizes_get", 0, 4))
	assert.Equal(t, uint32(2), g.u32(0))
	assert.Equal(t, uint32(len("prog\x00arg\x00")), g.u32(4))

	require.Equal(t, abi.ErrnoSuccess, g.call("args_get", 16, 64))
	assert.Equal(t, uint32(64), g.u32(16))
	assert.Equal(t, uint32(69), g.u32(20))
	assert.Equal(t, "prog\x00arg\x00", string(g.bytes(64, 9)))

	assert.Equal(t, abi.ErrnoFault, g.call("args_sizes_get", 0, 65536))
	assert.Equal(t, abi.ErrnoFault, g.call("args_get", 0xfffffffc, 64))
	assert.Equal(t, abi.ErrnoFault, g.call("args_get", 16, 65530))
}

func TestHostOpenAndRead(t *testing.T) {
	host := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(host, "greeting"), []byte("hello guest"), 0o644))
	env := newEnviron(t, []string{"/sandbox:" + host + ":readonly"})
	g := instantiate(t, env)

	require.Equal(t, abi.ErrnoSuccess, g.call("fd_prestat_get", 3, 0))
	assert.Equal(t, []byte{0, 0, 0, 0, 8, 0, 0, 0}, g.bytes(0, abi.PrestatSize))

	path := []byte("greeting")
	g.write(100, path)
	require.Equal(t, abi.ErrnoSuccess,
		g.call("path_open", 3, 0, 100, uint64(len(path)), 0, uint64(abi.RightFdRead), 0, 0, 200))
	fd := g.u32(200)

	g.iovec(300, 400, 5)
	g.iovec(308, 405, 32)
	require.Equal(t, abi.ErrnoSuccess, g.call("fd_read", uint64(fd), 300, 2, 208))
	assert.Equal(t, uint32(11), g.u32(208))
	assert.Equal(t, "hello guest", string(g.bytes(400, 11)))

	g.write(100, []byte("created"))
	assert.Equal(t, abi.ErrnoNotCapable,
		g.call("path_open", 3, 0, 100, 7, uint64(abi.OFlagCreat), uint64(abi.RightFdRead), 0, 0, 200))

	g.write(100, []byte("bad\x00name"))
	assert.Equal(t, abi.ErrnoInval, g.call("path_open", 3, 0, 100, 8, 0, uint64(abi.RightFdRead), 0, 0, 200))
	assert.Equal(t, abi.ErrnoFault, g.call("path_open", 3, 0, 65530, 100, 0, uint64(abi.RightFdRead), 0, 0, 200))
}

func TestHostIOVecLimits(t *testing.T) {
	env := newEnviron(t, nil)
	g := instantiate(t, env)

	assert.Equal(t, abi.ErrnoInval, g.call("fd_write", 1, 0, MaxIOVecs+1, 8))
	assert.Equal(t, abi.ErrnoFault, g.call("fd_write", 1, 65532, 1, 8))
	g.iovec(0, 65000, 1000)
	assert.Equal(t, abi.ErrnoFault, g.call("fd_write", 1, 0, 1, 8))
	assert.Equal(t, abi.ErrnoBadf, g.call("fd_write", 77, 0, 0, 8))
	assert.Equal(t, abi.ErrnoFault, g.call("fd_write", 1, 0xfffffff8, 2, 8))
}

func TestHostPollOneoffClock(t *testing.T) {
	env := newEnviron(t, nil)
	g := instantiate(t, env)

	sub := abi.Subscription{
		Userdata: 7,
		Type:     abi.EventTypeClock,
		Clock: abi.SubscriptionClock{
			ID:      abi.ClockMonotonic,
			Timeout: abi.Timestamp(100 * time.Millisecond),
		},
	}
	raw := make([]byte, abi.SubscriptionSize)
	sub.Encode(raw)
	g.write(0, raw)

	start := time.Now()
	require.Equal(t, abi.ErrnoSuccess, g.call("poll_oneoff", 0, 64, 1, 128))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	require.Equal(t, uint32(1), g.u32(128))

	ev := abi.DecodeEvent(g.bytes(64, abi.EventSize))
	assert.Equal(t, uint64(7), ev.Userdata)
	assert.Equal(t, abi.ErrnoSuccess, ev.Error)
	assert.Equal(t, abi.EventTypeClock, ev.Type)

	assert.Equal(t, abi.ErrnoInval, g.call("poll_oneoff", 0, 64, 0, 128))
	assert.Equal(t, abi.ErrnoFault, g.call("poll_oneoff", 0, 64, 1<<28, 128))
	assert.Equal(t, abi.ErrnoFault, g.call("poll_oneoff", 0, 65500, 2, 128))
}

func TestHostRandomGet(t *testing.T) {
	env := newEnviron(t, nil)
	g := instantiate(t, env)

	require.Equal(t, abi.ErrnoSuccess, g.call("random_get", 0, 64))
	assert.NotEqual(t, make([]byte, 64), g.bytes(0, 64))
	assert.Equal(t, abi.ErrnoFault, g.call("random_get", 65500, 64))
}

func TestHostProcExit(t *testing.T) {
	env := newEnviron(t, nil)
	g := instantiate(t, env)

	_, err := g.mod.ExportedFunction("proc_exit").Call(g.ctx, 7)
	var exitErr *sys.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, uint32(7), exitErr.ExitCode())

	code, exited := env.ExitCode()
	assert.True(t, exited)
	assert.Equal(t, uint32(7), code)
}

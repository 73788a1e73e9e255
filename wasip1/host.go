package wasip1

import (
	"context"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// ModuleName is the import module of WASI preview1.
const ModuleName = "wasi_snapshot_preview1"

// Host exports an Environ to wazero guests.
type Host struct {
	env *Environ
}

func NewHost(env *Environ) *Host {
	return &Host{env: env}
}

// Instantiate registers every preview1 function on ModuleName.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Closer, error) {
	builder := r.NewHostModuleBuilder(ModuleName)
	h.Export(builder)
	return builder.Instantiate(ctx)
}

// Export adds the preview1 functions to builder.
func (h *Host) Export(builder wazero.HostModuleBuilder) {
	for _, f := range h.functions() {
		builder.NewFunctionBuilder().WithFunc(f.fn).Export(f.name)
	}
}

type function struct {
	name string
	fn   any
}

func (h *Host) functions() []function {
	return []function{
		{"args_get", h.argsGet},
		{"args_sizes_get", h.argsSizesGet},
		{"environ_get", h.environGet},
		{"environ_sizes_get", h.environSizesGet},
		{"clock_res_get", h.clockResGet},
		{"clock_time_get", h.clockTimeGet},
		{"fd_advise", h.fdAdvise},
		{"fd_allocate", h.fdAllocate},
		{"fd_close", h.fdClose},
		{"fd_datasync", h.fdDatasync},
		{"fd_fdstat_get", h.fdFdstatGet},
		{"fd_fdstat_set_flags", h.fdFdstatSetFlags},
		{"fd_fdstat_set_rights", h.fdFdstatSetRights},
		{"fd_filestat_get", h.fdFilestatGet},
		{"fd_filestat_set_size", h.fdFilestatSetSize},
		{"fd_filestat_set_times", h.fdFilestatSetTimes},
		{"fd_pread", h.fdPread},
		{"fd_prestat_get", h.fdPrestatGet},
		{"fd_prestat_dir_name", h.fdPrestatDirName},
		{"fd_pwrite", h.fdPwrite},
		{"fd_read", h.fdRead},
		{"fd_readdir", h.fdReaddir},
		{"fd_renumber", h.fdRenumber},
		{"fd_seek", h.fdSeek},
		{"fd_sync", h.fdSync},
		{"fd_tell", h.fdTell},
		{"fd_write", h.fdWrite},
		{"path_create_directory", h.pathCreateDirectory},
		{"path_filestat_get", h.pathFilestatGet},
		{"path_filestat_set_times", h.pathFilestatSetTimes},
		{"path_link", h.pathLink},
		{"path_open", h.pathOpen},
		{"path_readlink", h.pathReadlink},
		{"path_remove_directory", h.pathRemoveDirectory},
		{"path_rename", h.pathRename},
		{"path_symlink", h.pathSymlink},
		{"path_unlink_file", h.pathUnlinkFile},
		{"poll_oneoff", h.pollOneoff},
		{"proc_exit", h.procExit},
		{"proc_raise", h.procRaise},
		{"sched_yield", h.schedYield},
		{"random_get", h.randomGet},
		{"sock_open", h.sockOpen},
		{"sock_bind", h.sockBind},
		{"sock_listen", h.sockListen},
		{"sock_accept", h.sockAccept},
		{"sock_connect", h.sockConnect},
		{"sock_recv", h.sockRecv},
		{"sock_recv_from", h.sockRecvFrom},
		{"sock_send", h.sockSend},
		{"sock_send_to", h.sockSendTo},
		{"sock_shutdown", h.sockShutdown},
		{"sock_getsockopt", h.sockGetOpt},
		{"sock_setsockopt", h.sockSetOpt},
		{"sock_getlocaladdr", h.sockGetLocalAddr},
		{"sock_getpeeraddr", h.sockGetPeerAddr},
	}
}

// errno converts the outcome of a call into the value returned to the guest.
func errno(fn string, err error) uint32 {
	e := abi.ToErrno(err)
	if e != abi.ErrnoSuccess {
		Logger().Debug("wasi call failed", zap.String("func", fn), zap.String("errno", e.Name()))
	}
	return uint32(e)
}

func (h *Host) argsGet(ctx context.Context, mod api.Module, argv, buf uint32) uint32 {
	return errno("args_get", storeStrings(mod, h.env.ArgsGet(), argv, buf))
}

func (h *Host) argsSizesGet(ctx context.Context, mod api.Module, countPtr, sizePtr uint32) uint32 {
	count, size := h.env.ArgsSizesGet()
	return errno("args_sizes_get", storeSizes(mod, countPtr, sizePtr, count, size))
}

func (h *Host) environGet(ctx context.Context, mod api.Module, environ, buf uint32) uint32 {
	return errno("environ_get", storeStrings(mod, h.env.EnvironGet(), environ, buf))
}

func (h *Host) environSizesGet(ctx context.Context, mod api.Module, countPtr, sizePtr uint32) uint32 {
	count, size := h.env.EnvironSizesGet()
	return errno("environ_sizes_get", storeSizes(mod, countPtr, sizePtr, count, size))
}

func storeSizes(mod api.Module, countPtr, sizePtr uint32, count, size abi.Size) error {
	if err := writeUint32(mod, countPtr, uint32(count)); err != nil {
		return err
	}
	return writeUint32(mod, sizePtr, uint32(size))
}

func (h *Host) clockResGet(ctx context.Context, mod api.Module, id, resPtr uint32) uint32 {
	res, err := h.env.ClockResGet(abi.ClockID(id))
	if err == nil {
		err = writeUint64(mod, resPtr, uint64(res))
	}
	return errno("clock_res_get", err)
}

func (h *Host) clockTimeGet(ctx context.Context, mod api.Module, id uint32, precision uint64, timePtr uint32) uint32 {
	t, err := h.env.ClockTimeGet(abi.ClockID(id), abi.Timestamp(precision))
	if err == nil {
		err = writeUint64(mod, timePtr, uint64(t))
	}
	return errno("clock_time_get", err)
}

func (h *Host) fdAdvise(ctx context.Context, mod api.Module, fd uint32, offset, length uint64, advice uint32) uint32 {
	return errno("fd_advise", h.env.FdAdvise(abi.Fd(fd), abi.FileSize(offset), abi.FileSize(length), abi.Advice(advice)))
}

func (h *Host) fdAllocate(ctx context.Context, mod api.Module, fd uint32, offset, length uint64) uint32 {
	return errno("fd_allocate", h.env.FdAllocate(abi.Fd(fd), abi.FileSize(offset), abi.FileSize(length)))
}

func (h *Host) fdClose(ctx context.Context, mod api.Module, fd uint32) uint32 {
	return errno("fd_close", h.env.FdClose(abi.Fd(fd)))
}

func (h *Host) fdDatasync(ctx context.Context, mod api.Module, fd uint32) uint32 {
	return errno("fd_datasync", h.env.FdDatasync(abi.Fd(fd)))
}

func (h *Host) fdFdstatGet(ctx context.Context, mod api.Module, fd, statPtr uint32) uint32 {
	st, err := h.env.FdFdstatGet(abi.Fd(fd))
	if err == nil {
		var b []byte
		if b, err = view(mod, statPtr, abi.FdstatSize); err == nil {
			st.Encode(b)
		}
	}
	return errno("fd_fdstat_get", err)
}

func (h *Host) fdFdstatSetFlags(ctx context.Context, mod api.Module, fd, flags uint32) uint32 {
	return errno("fd_fdstat_set_flags", h.env.FdFdstatSetFlags(abi.Fd(fd), abi.FdFlags(flags)))
}

func (h *Host) fdFdstatSetRights(ctx context.Context, mod api.Module, fd uint32, base, inheriting uint64) uint32 {
	return errno("fd_fdstat_set_rights", h.env.FdFdstatSetRights(abi.Fd(fd), abi.Rights(base), abi.Rights(inheriting)))
}

func (h *Host) fdFilestatGet(ctx context.Context, mod api.Module, fd, statPtr uint32) uint32 {
	st, err := h.env.FdFilestatGet(abi.Fd(fd))
	if err == nil {
		err = storeFilestat(mod, statPtr, &st)
	}
	return errno("fd_filestat_get", err)
}

func storeFilestat(mod api.Module, ptr uint32, st *abi.Filestat) error {
	b, err := view(mod, ptr, abi.FilestatSize)
	if err != nil {
		return err
	}
	st.Encode(b)
	return nil
}

func (h *Host) fdFilestatSetSize(ctx context.Context, mod api.Module, fd uint32, size uint64) uint32 {
	return errno("fd_filestat_set_size", h.env.FdFilestatSetSize(abi.Fd(fd), abi.FileSize(size)))
}

func (h *Host) fdFilestatSetTimes(ctx context.Context, mod api.Module, fd uint32, atim, mtim uint64, flags uint32) uint32 {
	return errno("fd_filestat_set_times", h.env.FdFilestatSetTimes(abi.Fd(fd),
		abi.Timestamp(atim), abi.Timestamp(mtim), abi.FstFlags(flags)))
}

func (h *Host) fdPread(ctx context.Context, mod api.Module, fd, iovs, iovsLen uint32, offset uint64, nPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err == nil {
		var n abi.Size
		if n, err = h.env.FdPread(abi.Fd(fd), vecs, abi.FileSize(offset)); err == nil {
			err = writeUint32(mod, nPtr, uint32(n))
		}
	}
	return errno("fd_pread", err)
}

func (h *Host) fdPrestatGet(ctx context.Context, mod api.Module, fd, prestatPtr uint32) uint32 {
	st, err := h.env.FdPrestatGet(abi.Fd(fd))
	if err == nil {
		var b []byte
		if b, err = view(mod, prestatPtr, abi.PrestatSize); err == nil {
			st.Encode(b)
		}
	}
	return errno("fd_prestat_get", err)
}

func (h *Host) fdPrestatDirName(ctx context.Context, mod api.Module, fd, path, pathLen uint32) uint32 {
	buf, err := view(mod, path, pathLen)
	if err == nil {
		err = h.env.FdPrestatDirName(abi.Fd(fd), buf)
	}
	return errno("fd_prestat_dir_name", err)
}

func (h *Host) fdPwrite(ctx context.Context, mod api.Module, fd, iovs, iovsLen uint32, offset uint64, nPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err == nil {
		var n abi.Size
		if n, err = h.env.FdPwrite(abi.Fd(fd), vecs, abi.FileSize(offset)); err == nil {
			err = writeUint32(mod, nPtr, uint32(n))
		}
	}
	return errno("fd_pwrite", err)
}

func (h *Host) fdRead(ctx context.Context, mod api.Module, fd, iovs, iovsLen, nPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err == nil {
		var n abi.Size
		if n, err = h.env.FdRead(abi.Fd(fd), vecs); err == nil {
			err = writeUint32(mod, nPtr, uint32(n))
		}
	}
	return errno("fd_read", err)
}

func (h *Host) fdReaddir(ctx context.Context, mod api.Module, fd, buf, bufLen uint32, cookie uint64, usedPtr uint32) uint32 {
	b, err := view(mod, buf, bufLen)
	if err == nil {
		var n abi.Size
		if n, err = h.env.FdReaddir(abi.Fd(fd), b, abi.DirCookie(cookie)); err == nil {
			err = writeUint32(mod, usedPtr, uint32(n))
		}
	}
	return errno("fd_readdir", err)
}

func (h *Host) fdRenumber(ctx context.Context, mod api.Module, from, to uint32) uint32 {
	return errno("fd_renumber", h.env.FdRenumber(abi.Fd(from), abi.Fd(to)))
}

func (h *Host) fdSeek(ctx context.Context, mod api.Module, fd uint32, offset uint64, whence, posPtr uint32) uint32 {
	pos, err := h.env.FdSeek(abi.Fd(fd), abi.FileDelta(offset), abi.Whence(whence))
	if err == nil {
		err = writeUint64(mod, posPtr, uint64(pos))
	}
	return errno("fd_seek", err)
}

func (h *Host) fdSync(ctx context.Context, mod api.Module, fd uint32) uint32 {
	return errno("fd_sync", h.env.FdSync(abi.Fd(fd)))
}

func (h *Host) fdTell(ctx context.Context, mod api.Module, fd, posPtr uint32) uint32 {
	pos, err := h.env.FdTell(abi.Fd(fd))
	if err == nil {
		err = writeUint64(mod, posPtr, uint64(pos))
	}
	return errno("fd_tell", err)
}

func (h *Host) fdWrite(ctx context.Context, mod api.Module, fd, iovs, iovsLen, nPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err == nil {
		var n abi.Size
		if n, err = h.env.FdWrite(abi.Fd(fd), vecs); err == nil {
			err = writeUint32(mod, nPtr, uint32(n))
		}
	}
	return errno("fd_write", err)
}

func (h *Host) pathCreateDirectory(ctx context.Context, mod api.Module, fd, path, pathLen uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		err = h.env.PathCreateDirectory(abi.Fd(fd), p)
	}
	return errno("path_create_directory", err)
}

func (h *Host) pathFilestatGet(ctx context.Context, mod api.Module, fd, flags, path, pathLen, statPtr uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		var st abi.Filestat
		if st, err = h.env.PathFilestatGet(abi.Fd(fd), abi.LookupFlags(flags), p); err == nil {
			err = storeFilestat(mod, statPtr, &st)
		}
	}
	return errno("path_filestat_get", err)
}

func (h *Host) pathFilestatSetTimes(ctx context.Context, mod api.Module, fd, flags, path, pathLen uint32,
	atim, mtim uint64, fstFlags uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		err = h.env.PathFilestatSetTimes(abi.Fd(fd), abi.LookupFlags(flags), p,
			abi.Timestamp(atim), abi.Timestamp(mtim), abi.FstFlags(fstFlags))
	}
	return errno("path_filestat_set_times", err)
}

func (h *Host) pathLink(ctx context.Context, mod api.Module, oldFd, oldFlags, oldPath, oldPathLen,
	newFd, newPath, newPathLen uint32) uint32 {
	op, err := readPath(mod, oldPath, oldPathLen)
	if err == nil {
		var np string
		if np, err = readPath(mod, newPath, newPathLen); err == nil {
			err = h.env.PathLink(abi.Fd(oldFd), abi.LookupFlags(oldFlags), op, abi.Fd(newFd), np)
		}
	}
	return errno("path_link", err)
}

func (h *Host) pathOpen(ctx context.Context, mod api.Module, fd, dirflags, path, pathLen, oflags uint32,
	base, inheriting uint64, fdflags, fdPtr uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		var newFd abi.Fd
		newFd, err = h.env.PathOpen(abi.Fd(fd), abi.LookupFlags(dirflags), p, abi.OFlags(oflags),
			abi.Rights(base), abi.Rights(inheriting), abi.FdFlags(fdflags))
		if err == nil {
			if err = writeUint32(mod, fdPtr, uint32(newFd)); err != nil {
				h.env.FdClose(newFd)
			}
		}
	}
	return errno("path_open", err)
}

func (h *Host) pathReadlink(ctx context.Context, mod api.Module, fd, path, pathLen, buf, bufLen, usedPtr uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		var b []byte
		if b, err = view(mod, buf, bufLen); err == nil {
			var n abi.Size
			if n, err = h.env.PathReadlink(abi.Fd(fd), p, b); err == nil {
				err = writeUint32(mod, usedPtr, uint32(n))
			}
		}
	}
	return errno("path_readlink", err)
}

func (h *Host) pathRemoveDirectory(ctx context.Context, mod api.Module, fd, path, pathLen uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		err = h.env.PathRemoveDirectory(abi.Fd(fd), p)
	}
	return errno("path_remove_directory", err)
}

func (h *Host) pathRename(ctx context.Context, mod api.Module, fd, oldPath, oldPathLen, newFd, newPath, newPathLen uint32) uint32 {
	op, err := readPath(mod, oldPath, oldPathLen)
	if err == nil {
		var np string
		if np, err = readPath(mod, newPath, newPathLen); err == nil {
			err = h.env.PathRename(abi.Fd(fd), op, abi.Fd(newFd), np)
		}
	}
	return errno("path_rename", err)
}

func (h *Host) pathSymlink(ctx context.Context, mod api.Module, oldPath, oldPathLen, fd, newPath, newPathLen uint32) uint32 {
	op, err := readPath(mod, oldPath, oldPathLen)
	if err == nil {
		var np string
		if np, err = readPath(mod, newPath, newPathLen); err == nil {
			err = h.env.PathSymlink(op, abi.Fd(fd), np)
		}
	}
	return errno("path_symlink", err)
}

func (h *Host) pathUnlinkFile(ctx context.Context, mod api.Module, fd, path, pathLen uint32) uint32 {
	p, err := readPath(mod, path, pathLen)
	if err == nil {
		err = h.env.PathUnlinkFile(abi.Fd(fd), p)
	}
	return errno("path_unlink_file", err)
}

func (h *Host) pollOneoff(ctx context.Context, mod api.Module, in, out, nsubscriptions, neventsPtr uint32) uint32 {
	if nsubscriptions == 0 {
		return errno("poll_oneoff", abi.ErrnoInval)
	}
	raw, err := viewArray(mod, in, nsubscriptions, abi.SubscriptionSize)
	if err != nil {
		return errno("poll_oneoff", err)
	}
	dst, err := viewArray(mod, out, nsubscriptions, abi.EventSize)
	if err != nil {
		return errno("poll_oneoff", err)
	}
	subs := make([]abi.Subscription, nsubscriptions)
	for i := range subs {
		subs[i] = abi.DecodeSubscription(raw[i*abi.SubscriptionSize:])
	}
	events := make([]abi.Event, nsubscriptions)
	n, err := h.env.PollOneoff(subs, events)
	if err != nil {
		return errno("poll_oneoff", err)
	}
	for i := range events[:n] {
		events[i].Encode(dst[i*abi.EventSize:])
	}
	return errno("poll_oneoff", writeUint32(mod, neventsPtr, uint32(n)))
}

// procExit stops the guest. Nothing runs after it returns.
func (h *Host) procExit(ctx context.Context, mod api.Module, code uint32) {
	h.env.ProcExit(code)
	_ = mod.CloseWithExitCode(ctx, code)
	panic(sys.NewExitError(code))
}

func (h *Host) procRaise(ctx context.Context, mod api.Module, sig uint32) uint32 {
	return errno("proc_raise", h.env.ProcRaise(abi.Signal(sig)))
}

func (h *Host) schedYield(ctx context.Context, mod api.Module) uint32 {
	return errno("sched_yield", h.env.SchedYield())
}

func (h *Host) randomGet(ctx context.Context, mod api.Module, buf, bufLen uint32) uint32 {
	b, err := view(mod, buf, bufLen)
	if err == nil {
		err = h.env.RandomGet(b)
	}
	return errno("random_get", err)
}

func (h *Host) sockOpen(ctx context.Context, mod api.Module, family, typ, fdPtr uint32) uint32 {
	fd, err := h.env.SockOpen(abi.AddressFamily(family), abi.SockType(typ))
	if err == nil {
		if err = writeUint32(mod, fdPtr, uint32(fd)); err != nil {
			h.env.FdClose(fd)
		}
	}
	return errno("sock_open", err)
}

func (h *Host) sockBind(ctx context.Context, mod api.Module, fd, addrPtr, port uint32) uint32 {
	addr, err := readSockAddr(mod, addrPtr, port)
	if err == nil {
		err = h.env.SockBind(abi.Fd(fd), addr)
	}
	return errno("sock_bind", err)
}

func (h *Host) sockListen(ctx context.Context, mod api.Module, fd, backlog uint32) uint32 {
	return errno("sock_listen", h.env.SockListen(abi.Fd(fd), int32(backlog)))
}

func (h *Host) sockAccept(ctx context.Context, mod api.Module, fd, flags, fdPtr uint32) uint32 {
	conn, err := h.env.SockAccept(abi.Fd(fd), abi.FdFlags(flags))
	if err == nil {
		if err = writeUint32(mod, fdPtr, uint32(conn)); err != nil {
			h.env.FdClose(conn)
		}
	}
	return errno("sock_accept", err)
}

func (h *Host) sockConnect(ctx context.Context, mod api.Module, fd, addrPtr, port uint32) uint32 {
	addr, err := readSockAddr(mod, addrPtr, port)
	if err == nil {
		err = h.env.SockConnect(abi.Fd(fd), addr)
	}
	return errno("sock_connect", err)
}

func (h *Host) sockRecv(ctx context.Context, mod api.Module, fd, iovs, iovsLen, flags, nPtr, roFlagsPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err == nil {
		var (
			n  abi.Size
			ro abi.RoFlags
		)
		if n, ro, err = h.env.SockRecv(abi.Fd(fd), vecs, abi.RiFlags(flags)); err == nil {
			if err = writeUint32(mod, nPtr, uint32(n)); err == nil {
				err = writeUint16(mod, roFlagsPtr, uint16(ro))
			}
		}
	}
	return errno("sock_recv", err)
}

func (h *Host) sockRecvFrom(ctx context.Context, mod api.Module, fd, iovs, iovsLen, addrPtr, flags,
	portPtr, nPtr, roFlagsPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err != nil {
		return errno("sock_recv_from", err)
	}
	n, from, ro, err := h.env.SockRecvFrom(abi.Fd(fd), vecs, abi.RiFlags(flags))
	if err == nil {
		err = writeSockAddr(mod, addrPtr, from)
	}
	if err == nil {
		err = writeUint32(mod, portPtr, uint32(from.Port))
	}
	if err == nil {
		err = writeUint32(mod, nPtr, uint32(n))
	}
	if err == nil {
		err = writeUint16(mod, roFlagsPtr, uint16(ro))
	}
	return errno("sock_recv_from", err)
}

func (h *Host) sockSend(ctx context.Context, mod api.Module, fd, iovs, iovsLen, flags, nPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err == nil {
		var n abi.Size
		if n, err = h.env.SockSend(abi.Fd(fd), vecs, abi.SiFlags(flags)); err == nil {
			err = writeUint32(mod, nPtr, uint32(n))
		}
	}
	return errno("sock_send", err)
}

func (h *Host) sockSendTo(ctx context.Context, mod api.Module, fd, iovs, iovsLen, addrPtr, port, flags, nPtr uint32) uint32 {
	vecs, err := readIOVecs(mod, iovs, iovsLen)
	if err != nil {
		return errno("sock_send_to", err)
	}
	to, err := readSockAddr(mod, addrPtr, port)
	if err == nil {
		var n abi.Size
		if n, err = h.env.SockSendTo(abi.Fd(fd), vecs, to, abi.SiFlags(flags)); err == nil {
			err = writeUint32(mod, nPtr, uint32(n))
		}
	}
	return errno("sock_send_to", err)
}

func (h *Host) sockShutdown(ctx context.Context, mod api.Module, fd, how uint32) uint32 {
	return errno("sock_shutdown", h.env.SockShutdown(abi.Fd(fd), abi.SdFlags(how)))
}

func (h *Host) sockGetOpt(ctx context.Context, mod api.Module, fd, level, name, valuePtr, sizePtr uint32) uint32 {
	size, err := readUint32(mod, sizePtr)
	if err != nil {
		return errno("sock_getsockopt", err)
	}
	if size < 4 {
		return errno("sock_getsockopt", abi.ErrnoInval)
	}
	value, err := h.env.SockGetOpt(abi.Fd(fd), abi.SockOptLevel(level), abi.SockOptSo(name))
	if err == nil {
		if err = writeUint32(mod, valuePtr, uint32(value)); err == nil {
			err = writeUint32(mod, sizePtr, 4)
		}
	}
	return errno("sock_getsockopt", err)
}

func (h *Host) sockSetOpt(ctx context.Context, mod api.Module, fd, level, name, valuePtr, size uint32) uint32 {
	if size < 4 {
		return errno("sock_setsockopt", abi.ErrnoInval)
	}
	value, err := readUint32(mod, valuePtr)
	if err == nil {
		err = h.env.SockSetOpt(abi.Fd(fd), abi.SockOptLevel(level), abi.SockOptSo(name), int32(value))
	}
	return errno("sock_setsockopt", err)
}

func (h *Host) sockGetLocalAddr(ctx context.Context, mod api.Module, fd, addrPtr, portPtr uint32) uint32 {
	addr, err := h.env.SockGetLocalAddr(abi.Fd(fd))
	return errno("sock_getlocaladdr", storeSockAddr(mod, addrPtr, portPtr, addr, err))
}

func (h *Host) sockGetPeerAddr(ctx context.Context, mod api.Module, fd, addrPtr, portPtr uint32) uint32 {
	addr, err := h.env.SockGetPeerAddr(abi.Fd(fd))
	return errno("sock_getpeeraddr", storeSockAddr(mod, addrPtr, portPtr, addr, err))
}

func storeSockAddr(mod api.Module, addrPtr, portPtr uint32, addr abi.SockAddr, err error) error {
	if err != nil {
		return err
	}
	if err := writeSockAddr(mod, addrPtr, addr); err != nil {
		return err
	}
	return writeUint32(mod, portPtr, uint32(addr.Port))
}

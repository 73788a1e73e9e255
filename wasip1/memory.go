package wasip1

import (
	"encoding/binary"
	"strings"

	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"github.com/tetratelabs/wazero/api"
)

// MaxIOVecs is the largest iovec array accepted by a single call.
const MaxIOVecs = 1024

// Guest socket addresses are passed as {buf u32, buf_len u32}; buf holds
// the family as u16 followed by the address bytes.
const sockAddrFamilySize = 2

func memory(mod api.Module) (api.Memory, error) {
	m := mod.Memory()
	if m == nil {
		return nil, abi.ErrnoFault
	}
	return m, nil
}

// view returns guest memory [ptr, ptr+n) without copying.
func view(mod api.Module, ptr, n uint32) ([]byte, error) {
	m, err := memory(mod)
	if err != nil {
		return nil, err
	}
	b, ok := m.Read(ptr, n)
	if !ok {
		return nil, abi.ErrnoFault
	}
	return b, nil
}

// viewArray returns the guest array of count records of size bytes at ptr.
// The length is computed without wrapping and checked before anything is
// allocated for it.
func viewArray(mod api.Module, ptr, count, size uint32) ([]byte, error) {
	m, err := memory(mod)
	if err != nil {
		return nil, err
	}
	n := uint64(count) * uint64(size)
	if uint64(ptr)+n > uint64(m.Size()) {
		return nil, abi.ErrnoFault
	}
	b, ok := m.Read(ptr, uint32(n))
	if !ok {
		return nil, abi.ErrnoFault
	}
	return b, nil
}

func readPath(mod api.Module, ptr, n uint32) (string, error) {
	b, err := view(mod, ptr, n)
	if err != nil {
		return "", err
	}
	path := string(b)
	if strings.IndexByte(path, 0) >= 0 {
		return "", abi.ErrnoInval
	}
	return path, nil
}

func readUint32(mod api.Module, ptr uint32) (uint32, error) {
	m, err := memory(mod)
	if err != nil {
		return 0, err
	}
	v, ok := m.ReadUint32Le(ptr)
	if !ok {
		return 0, abi.ErrnoFault
	}
	return v, nil
}

func writeUint32(mod api.Module, ptr, v uint32) error {
	m, err := memory(mod)
	if err != nil {
		return err
	}
	if !m.WriteUint32Le(ptr, v) {
		return abi.ErrnoFault
	}
	return nil
}

func writeUint64(mod api.Module, ptr uint32, v uint64) error {
	m, err := memory(mod)
	if err != nil {
		return err
	}
	if !m.WriteUint64Le(ptr, v) {
		return abi.ErrnoFault
	}
	return nil
}

func writeUint16(mod api.Module, ptr uint32, v uint16) error {
	m, err := memory(mod)
	if err != nil {
		return err
	}
	if !m.WriteUint16Le(ptr, v) {
		return abi.ErrnoFault
	}
	return nil
}

// readIOVecs maps a guest iovec array onto views of guest memory.
func readIOVecs(mod api.Module, ptr, n uint32) (inode.IOVecs, error) {
	if n > MaxIOVecs {
		return nil, abi.ErrnoInval
	}
	raw, err := viewArray(mod, ptr, n, abi.IOVecSize)
	if err != nil {
		return nil, err
	}
	m := mod.Memory()
	iovs := make(inode.IOVecs, n)
	for i := range iovs {
		rec := raw[i*abi.IOVecSize:]
		buf := binary.LittleEndian.Uint32(rec)
		length := binary.LittleEndian.Uint32(rec[4:])
		var ok bool
		if iovs[i], ok = m.Read(buf, length); !ok {
			return nil, abi.ErrnoFault
		}
	}
	return iovs, nil
}

// storeStrings writes strs NUL-terminated into buf and their addresses into
// ptrs, as args_get and environ_get do.
func storeStrings(mod api.Module, strs []string, ptrs, buf uint32) error {
	addrs, err := viewArray(mod, ptrs, uint32(len(strs)), 4)
	if err != nil {
		return err
	}
	size := uint64(0)
	for _, s := range strs {
		size += uint64(len(s)) + 1
	}
	if size > uint64(^uint32(0)) {
		return abi.ErrnoFault
	}
	data, err := viewArray(mod, buf, uint32(size), 1)
	if err != nil {
		return err
	}
	off := uint32(0)
	for i, s := range strs {
		binary.LittleEndian.PutUint32(addrs[i*4:], buf+off)
		off += uint32(copy(data[off:], s))
		data[off] = 0
		off++
	}
	return nil
}

func sockAddrBuffer(mod api.Module, ptr uint32) ([]byte, error) {
	buf, err := readUint32(mod, ptr)
	if err != nil {
		return nil, err
	}
	length, err := readUint32(mod, ptr+4)
	if err != nil {
		return nil, err
	}
	b, err := view(mod, buf, length)
	if err != nil {
		return nil, err
	}
	if len(b) < sockAddrFamilySize {
		return nil, abi.ErrnoInval
	}
	return b, nil
}

func readSockAddr(mod api.Module, ptr uint32, port uint32) (abi.SockAddr, error) {
	b, err := sockAddrBuffer(mod, ptr)
	if err != nil {
		return abi.SockAddr{}, err
	}
	addr := abi.SockAddr{
		Family: abi.AddressFamily(uint16(b[0]) | uint16(b[1])<<8),
		Port:   uint16(port),
	}
	raw := b[sockAddrFamilySize:]
	switch addr.Family {
	case abi.AddressFamilyInet4:
		if len(raw) < 4 {
			return abi.SockAddr{}, abi.ErrnoInval
		}
		raw = raw[:4]
	case abi.AddressFamilyInet6:
		if len(raw) < 16 {
			return abi.SockAddr{}, abi.ErrnoInval
		}
		raw = raw[:16]
	case abi.AddressFamilyUnix:
		if i := strings.IndexByte(string(raw), 0); i >= 0 {
			raw = raw[:i]
		}
	default:
		return abi.SockAddr{}, abi.ErrnoAfNoSupport
	}
	addr.Addr = append([]byte(nil), raw...)
	return addr, nil
}

func writeSockAddr(mod api.Module, ptr uint32, addr abi.SockAddr) error {
	b, err := sockAddrBuffer(mod, ptr)
	if err != nil {
		return err
	}
	if len(b) < sockAddrFamilySize+len(addr.Addr) {
		return abi.ErrnoNoBufs
	}
	clear(b)
	b[0], b[1] = byte(addr.Family), byte(uint16(addr.Family)>>8)
	copy(b[sockAddrFamilySize:], addr.Addr)
	return nil
}

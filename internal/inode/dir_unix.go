//go:build linux || darwin

package inode

import (
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/foxxorcat/wazero-wasip1/common/bytespool"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

const readdirBatch = 64

// dirStream is the cached cursor of a directory handle. Entry i carries the
// cookie i+1; entries 0 and 1 are the synthesized "." and "..".
type dirStream struct {
	f       *os.File
	pos     uint64
	pending []fs.DirEntry
	eof     bool

	// spill holds the serialized entry that did not fit the previous
	// destination buffer; spillAt is its index.
	spill   []byte
	spillAt uint64
}

func (d *dirStream) close() {
	if d.spill != nil {
		bytespool.Free(d.spill)
		d.spill = nil
	}
	d.f.Close()
}

func (d *dirStream) rewind() error {
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	d.pos = 0
	d.pending = nil
	d.eof = false
	d.dropSpill()
	return nil
}

func (d *dirStream) dropSpill() {
	if d.spill != nil {
		bytespool.Free(d.spill)
		d.spill = nil
	}
}

type direntry struct {
	name string
	ino  uint64
	typ  abi.Filetype
}

// next produces the entry at d.pos and advances the cursor.
func (d *dirStream) next(parent int) (direntry, bool, error) {
	switch d.pos {
	case 0, 1:
		name := "."
		if d.pos == 1 {
			name = ".."
		}
		d.pos++
		var st unix.Stat_t
		if err := unix.Fstatat(parent, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return direntry{name: name, typ: abi.FiletypeDirectory}, true, nil
		}
		return direntry{name: name, ino: uint64(st.Ino), typ: abi.FiletypeDirectory}, true, nil
	}
	for len(d.pending) == 0 {
		if d.eof {
			return direntry{}, false, nil
		}
		entries, err := d.f.ReadDir(readdirBatch)
		if err == io.EOF || (err == nil && len(entries) == 0) {
			d.eof = true
			continue
		}
		if err != nil {
			return direntry{}, false, err
		}
		d.pending = entries
	}
	e := d.pending[0]
	d.pending = d.pending[1:]
	d.pos++

	ent := direntry{name: e.Name(), typ: filetypeFromDirEntry(e.Type())}
	if info, err := e.Info(); err == nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			ent.ino = uint64(st.Ino)
		}
	}
	return ent, true, nil
}

// seek positions the cursor so that the next produced entry is cookie.
func (d *dirStream) seek(parent int, cookie uint64) error {
	if cookie == d.pos || (d.spill != nil && cookie == d.spillAt) {
		return nil
	}
	if cookie < d.pos {
		if err := d.rewind(); err != nil {
			return err
		}
	}
	d.dropSpill()
	for d.pos < cookie {
		if _, ok, err := d.next(parent); err != nil || !ok {
			return err
		}
	}
	return nil
}

// FdReaddir fills buf with dirents starting at cookie. The result is
// len(buf) when the last entry had to be truncated, which tells the caller
// that more entries remain.
func (n *INode) FdReaddir(buf []byte, cookie abi.DirCookie) (abi.Size, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dir == nil {
		nfd, err := unix.Dup(n.fd)
		if err != nil {
			return 0, fromErrno(err)
		}
		unix.CloseOnExec(nfd)
		n.dir = &dirStream{f: os.NewFile(uintptr(nfd), "")}
	}
	d := n.dir
	if err := d.seek(n.fd, uint64(cookie)); err != nil {
		return 0, fromErrno(err)
	}

	written := 0
	if d.spill != nil && uint64(cookie) == d.spillAt {
		c := copy(buf, d.spill)
		written += c
		if c < len(d.spill) {
			return abi.Size(written), nil
		}
	}
	d.dropSpill()

	for written < len(buf) {
		at := d.pos
		ent, ok, err := d.next(n.fd)
		if err != nil {
			return abi.Size(written), fromErrno(err)
		}
		if !ok {
			break
		}
		size := abi.DirentSize + len(ent.name)
		if written+size <= len(buf) {
			encodeDirent(buf[written:], at, ent)
			written += size
			continue
		}
		d.spill = bytespool.Alloc(int32(size))[:size]
		d.spillAt = at
		encodeDirent(d.spill, at, ent)
		written += copy(buf[written:], d.spill)
	}
	return abi.Size(written), nil
}

func encodeDirent(b []byte, at uint64, ent direntry) {
	hdr := abi.Dirent{
		Next:   abi.DirCookie(at + 1),
		Ino:    ent.ino,
		Namlen: uint32(len(ent.name)),
		Type:   ent.typ,
	}
	hdr.Encode(b)
	copy(b[abi.DirentSize:], ent.name)
}

func filetypeFromDirEntry(mode fs.FileMode) abi.Filetype {
	switch {
	case mode.IsRegular():
		return abi.FiletypeRegularFile
	case mode.IsDir():
		return abi.FiletypeDirectory
	case mode&fs.ModeSymlink != 0:
		return abi.FiletypeSymbolicLink
	case mode&fs.ModeDevice != 0:
		if mode&fs.ModeCharDevice != 0 {
			return abi.FiletypeCharacterDevice
		}
		return abi.FiletypeBlockDevice
	case mode&fs.ModeSocket != 0:
		return abi.FiletypeSocketStream
	}
	return abi.FiletypeUnknown
}

// Package inode owns native OS resources: one INode wraps exactly one file
// descriptor and exposes the uniform syscalls the WASI layer needs.
//
// The concrete syscalls live in per-OS files selected at build time. All
// methods return abi.Errno values as errors; native codes never leak out.
package inode

import "sync"

// VFSFlags select the access mode of a native open.
type VFSFlags uint8

const (
	Read VFSFlags = 1 << iota
	Write
	// AllowEmpty lets path resolution accept an empty path.
	AllowEmpty
)

// INode is a move-only owner of a native descriptor. The zero value is not
// usable; obtain one from Open, PathOpen, SockOpen, SockAccept or the stdio
// constructors.
type INode struct {
	fd    int
	stdio bool

	mu  sync.Mutex
	dir *dirStream

	closeOnce sync.Once
	closeErr  error
}

func newINode(fd int) *INode {
	return &INode{fd: fd}
}

// Adopt takes ownership of an open native descriptor.
func Adopt(fd int) *INode {
	return newINode(fd)
}

// StdIn returns the process stdin. Closing it is a no-op.
func StdIn() *INode { return &INode{fd: 0, stdio: true} }

// StdOut returns the process stdout. Closing it is a no-op.
func StdOut() *INode { return &INode{fd: 1, stdio: true} }

// StdErr returns the process stderr. Closing it is a no-op.
func StdErr() *INode { return &INode{fd: 2, stdio: true} }

// Fd returns the native descriptor number.
func (n *INode) Fd() int {
	return n.fd
}

// IsStdio reports whether n is one of the three standard streams.
func (n *INode) IsStdio() bool {
	return n.stdio
}

// Close releases the native descriptor. It is idempotent and never closes
// the standard streams.
func (n *INode) Close() error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		if n.dir != nil {
			n.dir.close()
			n.dir = nil
		}
		n.mu.Unlock()
		if n.stdio {
			return
		}
		n.closeErr = closeFd(n.fd)
		n.fd = -1
	})
	return n.closeErr
}

// IOVecs is a scatter/gather list.
type IOVecs = [][]byte

func iovecsLen(iovs IOVecs) int {
	total := 0
	for _, iov := range iovs {
		total += len(iov)
	}
	return total
}

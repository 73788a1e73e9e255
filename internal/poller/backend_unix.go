//go:build linux || darwin

package poller

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

// socketError reads the pending error of a socket. Other descriptors, such
// as a pipe whose reader went away, report SUCCESS.
func socketError(fd int) abi.Errno {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || v == 0 {
		return abi.ErrnoSuccess
	}
	return abi.ToErrno(inode.MapError(unix.Errno(v)))
}

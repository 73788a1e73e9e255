package inode

import (
	"time"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"golang.org/x/sys/unix"
)

const (
	// Darwin has no O_RSYNC; reads are synchronised by O_SYNC.
	oRsync = unix.O_SYNC
	// FIONREAD, _IOR('f', 127, int).
	ioctlReadable = 0x4004667f
	utimeNow      = -1
	utimeOmit     = -2
)

// futimens resolves omitted and current times against fstat and applies
// them with futimes, which has microsecond precision.
func futimens(fd int, ts *[2]unix.Timespec) error {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return err
	}
	now := time.Now().UnixNano()
	cur := [2]unix.Timespec{st.Atim, st.Mtim}
	tv := make([]unix.Timeval, 2)
	for i, t := range ts {
		switch t.Nsec {
		case utimeNow:
			tv[i] = unix.NsecToTimeval(now)
		case utimeOmit:
			tv[i] = unix.NsecToTimeval(cur[i].Nano())
		default:
			tv[i] = unix.NsecToTimeval(t.Nano())
		}
	}
	return unix.Futimes(fd, tv)
}

func soBindToDevice() (int, error) { return 0, abi.ErrnoNotSup }

func sigPwr() (unix.Signal, error) { return 0, abi.ErrnoNotSup }

func fadvise(fd int, offset, length int64, advice abi.Advice) error {
	switch advice {
	case abi.AdviceNormal, abi.AdviceSequential, abi.AdviceRandom,
		abi.AdviceWillNeed, abi.AdviceDontNeed, abi.AdviceNoReuse:
		return nil
	}
	return abi.ErrnoInval
}

// fallocate grows the file to offset+length when it is shorter.
func fallocate(fd int, offset, length int64) error {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return err
	}
	if end := offset + length; end > st.Size {
		return unix.Ftruncate(fd, end)
	}
	return nil
}

func fdatasync(fd int) error {
	return unix.Fsync(fd)
}

func clockResolution(int32) (int64, error) {
	return 1000, nil
}

func readv(fd int, iovs IOVecs) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := unix.Read(fd, iov)
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}

func writev(fd int, iovs IOVecs) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := unix.Write(fd, iov)
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}

func preadv(fd int, iovs IOVecs, offset int64) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := unix.Pread(fd, iov, offset+int64(total))
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}

func pwritev(fd int, iovs IOVecs, offset int64) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := unix.Pwrite(fd, iov, offset+int64(total))
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}

package abi

import (
	"math/bits"
	"strings"
)

// Rights is the WASI capability bitmask attached to every descriptor.
type Rights uint64

const (
	RightFdDatasync Rights = 1 << iota
	RightFdRead
	RightFdSeek
	RightFdFdstatSetFlags
	RightFdSync
	RightFdTell
	RightFdWrite
	RightFdAdvise
	RightFdAllocate
	RightPathCreateDirectory
	RightPathCreateFile
	RightPathLinkSource
	RightPathLinkTarget
	RightPathOpen
	RightFdReaddir
	RightPathReadlink
	RightPathRenameSource
	RightPathRenameTarget
	RightPathFilestatGet
	RightPathFilestatSetSize
	RightPathFilestatSetTimes
	RightFdFilestatGet
	RightFdFilestatSetSize
	RightFdFilestatSetTimes
	RightPathSymlink
	RightPathRemoveDirectory
	RightPathUnlinkFile
	RightPollFdReadwrite
	RightSockShutdown
	RightSockAccept
)

const (
	// FileRights are meaningful on regular files and character devices.
	FileRights = RightFdDatasync | RightFdRead | RightFdSeek | RightFdFdstatSetFlags |
		RightFdSync | RightFdTell | RightFdWrite | RightFdAdvise | RightFdAllocate |
		RightFdFilestatGet | RightFdFilestatSetSize | RightFdFilestatSetTimes |
		RightPollFdReadwrite

	// DirectoryRights are meaningful on directories.
	DirectoryRights = RightFdFdstatSetFlags | RightFdSync | RightFdAdvise |
		RightPathCreateDirectory | RightPathCreateFile | RightPathLinkSource |
		RightPathLinkTarget | RightPathOpen | RightFdReaddir | RightPathReadlink |
		RightPathRenameSource | RightPathRenameTarget | RightPathFilestatGet |
		RightPathFilestatSetSize | RightPathFilestatSetTimes | RightFdFilestatGet |
		RightFdFilestatSetTimes | RightPathSymlink | RightPathRemoveDirectory |
		RightPathUnlinkFile

	// SocketRights are meaningful on sockets.
	SocketRights = RightFdRead | RightFdWrite | RightFdFdstatSetFlags |
		RightFdFilestatGet | RightPollFdReadwrite | RightSockShutdown | RightSockAccept

	// FileReadOnlyRights is the subset of FileRights that cannot modify data.
	FileReadOnlyRights = RightFdRead | RightFdSeek | RightFdTell | RightFdAdvise |
		RightFdFdstatSetFlags | RightFdFilestatGet | RightPollFdReadwrite

	// DirectoryReadOnlyRights is the subset of DirectoryRights that cannot
	// modify the tree.
	DirectoryReadOnlyRights = RightFdFdstatSetFlags | RightFdAdvise | RightPathOpen |
		RightFdReaddir | RightPathReadlink | RightPathFilestatGet | RightFdFilestatGet

	AllRights = FileRights | DirectoryRights | SocketRights
)

// Imply returns r together with every right it implies. The result is never
// stored on a descriptor; it is derived at check time.
func Imply(r Rights) Rights {
	if r&RightFdSeek != 0 {
		r |= RightFdTell
	}
	if r&RightFdSync != 0 {
		r |= RightFdDatasync
	}
	return r
}

// Contains reports whether every bit of sub is set in r.
func (r Rights) Contains(sub Rights) bool {
	return r&sub == sub
}

var rightNames = [...]string{
	"FD_DATASYNC", "FD_READ", "FD_SEEK", "FD_FDSTAT_SET_FLAGS", "FD_SYNC",
	"FD_TELL", "FD_WRITE", "FD_ADVISE", "FD_ALLOCATE", "PATH_CREATE_DIRECTORY",
	"PATH_CREATE_FILE", "PATH_LINK_SOURCE", "PATH_LINK_TARGET", "PATH_OPEN",
	"FD_READDIR", "PATH_READLINK", "PATH_RENAME_SOURCE", "PATH_RENAME_TARGET",
	"PATH_FILESTAT_GET", "PATH_FILESTAT_SET_SIZE", "PATH_FILESTAT_SET_TIMES",
	"FD_FILESTAT_GET", "FD_FILESTAT_SET_SIZE", "FD_FILESTAT_SET_TIMES",
	"PATH_SYMLINK", "PATH_REMOVE_DIRECTORY", "PATH_UNLINK_FILE",
	"POLL_FD_READWRITE", "SOCK_SHUTDOWN", "SOCK_ACCEPT",
}

func (r Rights) String() string {
	if r == 0 {
		return "0"
	}
	var names []string
	for v := uint64(r); v != 0; v &= v - 1 {
		i := bits.TrailingZeros64(v)
		if i < len(rightNames) {
			names = append(names, rightNames[i])
		} else {
			names = append(names, "?")
		}
	}
	return strings.Join(names, "|")
}

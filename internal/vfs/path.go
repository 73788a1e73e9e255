package vfs

import (
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// Bind opens hostPath as a preopened directory visible to the guest as
// guestName.
func Bind(guestName, hostPath string, base, inheriting abi.Rights) (*VINode, error) {
	node, err := inode.Open(hostPath, abi.OFlagDirectory, 0, inode.Read)
	if err != nil {
		return nil, err
	}
	return New(node, base, inheriting, guestName), nil
}

// SockOpen creates a socket node with the full socket rights.
func SockOpen(family abi.AddressFamily, typ abi.SockType) (*VINode, error) {
	node, err := inode.SockOpen(family, typ)
	if err != nil {
		return nil, err
	}
	return New(node, abi.SocketRights, abi.SocketRights, ""), nil
}

// withParent checks required on dir, resolves path and runs fn on the
// directory holding the final component.
func withParent(dir *VINode, required abi.Rights, path string, lookup abi.LookupFlags, fn func(parent *inode.INode, name string) error) error {
	if !dir.Can(required, 0) {
		return abi.ErrnoNotCapable
	}
	parent, name, err := resolve(dir, path, lookup, 0, false)
	if err != nil {
		return err
	}
	defer parent.Release()
	return fn(parent.node, name)
}

// PathOpen opens path relative to dir with the requested rights. The
// requested rights must be within the inheriting rights of dir.
func PathOpen(dir *VINode, path string, lookup abi.LookupFlags, oflags abi.OFlags,
	base, inheriting abi.Rights, fdflags abi.FdFlags) (*VINode, error) {
	if oflags&abi.OFlagDirectory != 0 {
		base &^= abi.RightFdSeek
	} else {
		base &^= abi.RightPathFilestatSetSize
		inheriting &^= abi.RightPathFilestatSetSize
	}

	required := abi.RightPathOpen
	if oflags&abi.OFlagCreat != 0 {
		required |= abi.RightPathCreateFile
	}
	if oflags&abi.OFlagTrunc != 0 {
		required |= abi.RightPathFilestatSetSize
	}
	requiredInheriting := base | inheriting
	if fdflags&abi.FdFlagRsync != 0 {
		requiredInheriting |= abi.RightFdRead | abi.RightFdSync
	}
	if fdflags&abi.FdFlagDsync != 0 {
		requiredInheriting |= abi.RightFdWrite | abi.RightFdDatasync
	}
	if fdflags&abi.FdFlagSync != 0 {
		requiredInheriting |= abi.RightFdWrite | abi.RightFdSync
	}
	if !dir.Can(required, requiredInheriting) {
		return nil, abi.ErrnoNotCapable
	}

	var vfs inode.VFSFlags
	if base&(abi.RightFdRead|abi.RightFdReaddir) != 0 {
		vfs |= inode.Read
	}
	if base&abi.RightFdWrite != 0 {
		vfs |= inode.Write
	}

	parent, name, err := resolve(dir, path, lookup, vfs, true)
	if err != nil {
		return nil, err
	}
	defer parent.Release()

	node, err := parent.node.PathOpen(name, oflags, fdflags, vfs)
	if err != nil {
		return nil, err
	}
	return New(node, base, inheriting, ""), nil
}

func PathCreateDirectory(dir *VINode, path string) error {
	return withParent(dir, abi.RightPathCreateDirectory, path, 0, func(parent *inode.INode, name string) error {
		return parent.PathCreateDirectory(name)
	})
}

func PathFilestatGet(dir *VINode, path string, lookup abi.LookupFlags) (abi.Filestat, error) {
	var st abi.Filestat
	err := withParent(dir, abi.RightPathFilestatGet, path, lookup, func(parent *inode.INode, name string) (err error) {
		st, err = parent.PathFilestatGet(name)
		return err
	})
	return st, err
}

func PathFilestatSetTimes(dir *VINode, path string, lookup abi.LookupFlags, atim, mtim abi.Timestamp, flags abi.FstFlags) error {
	return withParent(dir, abi.RightPathFilestatSetTimes, path, lookup, func(parent *inode.INode, name string) error {
		return parent.PathFilestatSetTimes(name, atim, mtim, flags)
	})
}

// PathLink creates newPath under newDir as a hard link to oldPath.
func PathLink(oldDir *VINode, oldPath string, lookup abi.LookupFlags, newDir *VINode, newPath string) error {
	if !oldDir.Can(abi.RightPathLinkSource, 0) || !newDir.Can(abi.RightPathLinkTarget, 0) {
		return abi.ErrnoNotCapable
	}
	oldParent, oldName, err := resolve(oldDir, oldPath, lookup, 0, false)
	if err != nil {
		return err
	}
	defer oldParent.Release()
	newParent, newName, err := resolve(newDir, newPath, 0, 0, false)
	if err != nil {
		return err
	}
	defer newParent.Release()
	return oldParent.node.PathLink(oldName, newParent.node, newName)
}

func PathReadlink(dir *VINode, path string, buf []byte) (abi.Size, error) {
	var n abi.Size
	err := withParent(dir, abi.RightPathReadlink, path, 0, func(parent *inode.INode, name string) (err error) {
		n, err = parent.PathReadlink(name, buf)
		return err
	})
	return n, err
}

func PathRemoveDirectory(dir *VINode, path string) error {
	return withParent(dir, abi.RightPathRemoveDirectory, path, 0, func(parent *inode.INode, name string) error {
		return parent.PathRemoveDirectory(name)
	})
}

func PathRename(oldDir *VINode, oldPath string, newDir *VINode, newPath string) error {
	if !oldDir.Can(abi.RightPathRenameSource, 0) || !newDir.Can(abi.RightPathRenameTarget, 0) {
		return abi.ErrnoNotCapable
	}
	oldParent, oldName, err := resolve(oldDir, oldPath, 0, 0, false)
	if err != nil {
		return err
	}
	defer oldParent.Release()
	newParent, newName, err := resolve(newDir, newPath, 0, 0, false)
	if err != nil {
		return err
	}
	defer newParent.Release()
	return oldParent.node.PathRename(oldName, newParent.node, newName)
}

// PathSymlink stores oldPath verbatim; it is only interpreted when the link
// is followed.
func PathSymlink(oldPath string, dir *VINode, newPath string) error {
	if !dir.Can(abi.RightPathSymlink, 0) {
		return abi.ErrnoNotCapable
	}
	parent, name, err := resolve(dir, newPath, 0, 0, false)
	if err != nil {
		return err
	}
	defer parent.Release()
	return parent.node.PathSymlink(oldPath, name)
}

func PathUnlinkFile(dir *VINode, path string) error {
	if !dir.Can(abi.RightPathUnlinkFile, 0) {
		return abi.ErrnoNotCapable
	}
	parent, name, err := resolve(dir, path, 0, 0, false)
	if err != nil {
		return err
	}
	defer parent.Release()
	return parent.node.PathUnlinkFile(name)
}

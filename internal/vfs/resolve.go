package vfs

import (
	"strings"

	"github.com/foxxorcat/wazero-wasip1/common/bytespool"
	"github.com/foxxorcat/wazero-wasip1/internal/inode"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// maxNestedLinks bounds symlink expansion during one resolution.
const maxNestedLinks = 8

// resolve walks path from start and returns the directory holding the final
// component together with that component. The returned node carries a
// reference the caller must release. The walk never rises above start.
func resolve(start *VINode, path string, lookup abi.LookupFlags, vfs inode.VFSFlags, followTrailingSlashes bool) (*VINode, string, error) {
	cur := start.Acquire()
	var ancestors []*VINode
	fail := func(err error) (*VINode, string, error) {
		cur.Release()
		for _, a := range ancestors {
			a.Release()
		}
		return nil, "", err
	}
	links := 0

walk:
	for {
		if path == "" && vfs&inode.AllowEmpty == 0 {
			return fail(abi.ErrnoNoEnt)
		}
		if strings.HasPrefix(path, "/") {
			return fail(abi.ErrnoPerm)
		}
		if !cur.node.IsDirectory() {
			return fail(abi.ErrnoNotDir)
		}
		if !cur.node.CanBrowse() {
			return fail(abi.ErrnoAcces)
		}

		for {
			part, rest, slash := strings.Cut(path, "/")
			rest = strings.TrimLeft(rest, "/")
			last := rest == "" && (!followTrailingSlashes || !slash)

			switch part {
			case "", ".":
			case "..":
				if len(ancestors) == 0 {
					return fail(abi.ErrnoPerm)
				}
				cur.Release()
				cur = ancestors[len(ancestors)-1]
				ancestors = ancestors[:len(ancestors)-1]
				part = "."
			default:
				if last && lookup&abi.LookupSymlinkFollow == 0 {
					break
				}
				st, err := cur.node.PathFilestatGet(part)
				if err != nil {
					// A missing final component is left for the caller.
					if err == abi.ErrnoNoEnt && rest == "" {
						last = true
						break
					}
					return fail(err)
				}
				if st.Filetype == abi.FiletypeSymbolicLink {
					target, err := readlink(cur.node, part)
					if err != nil {
						return fail(err)
					}
					if links++; links > maxNestedLinks {
						return fail(abi.ErrnoLoop)
					}
					if slash {
						target += "/" + rest
					}
					path = target
					continue walk
				}
				if last {
					break
				}
				if st.Filetype != abi.FiletypeDirectory {
					return fail(abi.ErrnoNotDir)
				}
				child, err := cur.node.PathOpen(part, abi.OFlagDirectory, 0, inode.Read)
				if err != nil {
					return fail(err)
				}
				base, inheriting := start.Rights()
				ancestors = append(ancestors, cur)
				cur = New(child, base, inheriting, "")
				part = "."
			}

			if last {
				for _, a := range ancestors {
					a.Release()
				}
				if part == "" {
					part = "."
				}
				return cur, part, nil
			}
			path = rest
		}
	}
}

func readlink(dir *inode.INode, name string) (string, error) {
	buf := bytespool.Alloc(bytespool.LinkBufferSize)
	defer bytespool.Free(buf)
	n, err := dir.PathReadlink(name, buf)
	if err != nil {
		return "", err
	}
	if int(n) == len(buf) {
		return "", abi.ErrnoNameTooLong
	}
	return string(buf[:n]), nil
}

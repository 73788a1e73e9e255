package wasip1

import (
	"fmt"
	"strings"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// DirBind maps a host directory into the guest.
type DirBind struct {
	Guest    string
	Host     string
	ReadOnly bool
}

func (b DirBind) String() string {
	s := b.Guest + ":" + b.Host
	if b.ReadOnly {
		s += ":readonly"
	}
	return s
}

// ParseDirBind parses GUEST_PATH:HOST_PATH[:readonly]. A single path binds
// the host directory under the same name.
func ParseDirBind(s string) (DirBind, error) {
	parts := strings.Split(s, ":")
	var b DirBind
	switch len(parts) {
	case 1:
		b.Guest, b.Host = parts[0], parts[0]
	case 2:
		b.Guest, b.Host = parts[0], parts[1]
	case 3:
		if parts[2] != "readonly" {
			return DirBind{}, fmt.Errorf("dir bind %q: unknown mode %q", s, parts[2])
		}
		b.Guest, b.Host, b.ReadOnly = parts[0], parts[1], true
	default:
		return DirBind{}, fmt.Errorf("dir bind %q: too many fields", s)
	}
	if b.Guest == "" || b.Host == "" {
		return DirBind{}, fmt.Errorf("dir bind %q: empty path", s)
	}
	return b, nil
}

type rightsPolicy struct {
	base, inheriting abi.Rights
}

// bindRights is the preopen rights policy, keyed by read-only.
var bindRights = map[bool]rightsPolicy{
	false: {
		base:       abi.DirectoryRights,
		inheriting: abi.DirectoryRights | abi.FileRights,
	},
	true: {
		base:       abi.DirectoryReadOnlyRights,
		inheriting: abi.DirectoryReadOnlyRights | abi.FileReadOnlyRights,
	},
}

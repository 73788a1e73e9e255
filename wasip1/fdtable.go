package wasip1

import (
	"math/rand/v2"
	"sync"

	"github.com/foxxorcat/wazero-wasip1/internal/vfs"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// maxFd bounds the guest descriptor space; descriptors are drawn from
// [0, maxFd).
const maxFd = 1 << 31

// fdTable maps guest descriptors to nodes. Each entry owns one reference of
// its node.
type fdTable struct {
	mu    sync.RWMutex
	nodes map[abi.Fd]*vfs.VINode
}

func newFdTable() *fdTable {
	return &fdTable{nodes: make(map[abi.Fd]*vfs.VINode)}
}

// insert stores v under a uniformly random free descriptor.
func (t *fdTable) insert(v *vfs.VINode) abi.Fd {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		fd := abi.Fd(rand.Uint32N(maxFd))
		if _, ok := t.nodes[fd]; !ok {
			t.nodes[fd] = v
			return fd
		}
	}
}

// insertAt stores v under fd, releasing any previous occupant.
func (t *fdTable) insertAt(fd abi.Fd, v *vfs.VINode) {
	t.mu.Lock()
	old := t.nodes[fd]
	t.nodes[fd] = v
	t.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

// get returns the node of fd with an extra reference the caller must
// release.
func (t *fdTable) get(fd abi.Fd) (*vfs.VINode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.nodes[fd]
	if !ok {
		return nil, abi.ErrnoBadf
	}
	return v.Acquire(), nil
}

// remove detaches fd and hands its reference to the caller.
func (t *fdTable) remove(fd abi.Fd) (*vfs.VINode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.nodes[fd]
	if !ok {
		return nil, abi.ErrnoBadf
	}
	delete(t.nodes, fd)
	return v, nil
}

// renumber moves from to to and returns the evicted occupant of to, whose
// reference now belongs to the caller.
func (t *fdTable) renumber(from, to abi.Fd) (*vfs.VINode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.nodes[from]
	if !ok {
		return nil, abi.ErrnoBadf
	}
	old, ok := t.nodes[to]
	if !ok {
		return nil, abi.ErrnoBadf
	}
	if from == to {
		return nil, nil
	}
	delete(t.nodes, from)
	t.nodes[to] = v
	return old, nil
}

// each calls f for every entry under the read lock.
func (t *fdTable) each(f func(fd abi.Fd, v *vfs.VINode) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for fd, v := range t.nodes {
		if !f(fd, v) {
			return
		}
	}
}

func (t *fdTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// drain empties the table and returns every node it owned.
func (t *fdTable) drain() []*vfs.VINode {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes := make([]*vfs.VINode, 0, len(t.nodes))
	for fd, v := range t.nodes {
		nodes = append(nodes, v)
		delete(t.nodes, fd)
	}
	return nodes
}

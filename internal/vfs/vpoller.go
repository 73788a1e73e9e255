package vfs

import (
	"github.com/foxxorcat/wazero-wasip1/internal/poller"
	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
)

// VPoller checks POLL_FD_READWRITE, or the right of the subscribed
// direction, before a node reaches the poller. A node without either gets a
// NOTCAPABLE event instead of a registration.
type VPoller struct {
	*poller.Poller
}

func NewVPoller(timers *poller.TimerPool) *VPoller {
	return &VPoller{Poller: poller.New(timers)}
}

func (p *VPoller) Read(v *VINode, trigger poller.Trigger, userdata uint64) error {
	if !v.Can(abi.RightPollFdReadwrite, 0) && !v.Can(abi.RightFdRead, 0) {
		return p.Poller.Error(userdata, abi.EventTypeFdRead, abi.ErrnoNotCapable)
	}
	return p.Poller.Read(v.Node(), trigger, userdata)
}

func (p *VPoller) Write(v *VINode, trigger poller.Trigger, userdata uint64) error {
	if !v.Can(abi.RightPollFdReadwrite, 0) && !v.Can(abi.RightFdWrite, 0) {
		return p.Poller.Error(userdata, abi.EventTypeFdWrite, abi.ErrnoNotCapable)
	}
	return p.Poller.Write(v.Node(), trigger, userdata)
}

// Close scrubs every subscription on v.
func (p *VPoller) Close(v *VINode) {
	p.Poller.Close(v.Node())
}

package abi

import "encoding/binary"

// Sizes of the guest-memory records, in bytes.
const (
	FdstatSize       = 24
	FilestatSize     = 64
	PrestatSize      = 8
	DirentSize       = 24
	SubscriptionSize = 48
	EventSize        = 32
	IOVecSize        = 8
)

var le = binary.LittleEndian

// Encode writes s into b, which must hold FdstatSize bytes.
func (s *Fdstat) Encode(b []byte) {
	_ = b[FdstatSize-1]
	clear(b[:FdstatSize])
	b[0] = byte(s.Filetype)
	le.PutUint16(b[2:], uint16(s.Flags))
	le.PutUint64(b[8:], uint64(s.RightsBase))
	le.PutUint64(b[16:], uint64(s.RightsInheriting))
}

// Encode writes s into b, which must hold FilestatSize bytes.
func (s *Filestat) Encode(b []byte) {
	_ = b[FilestatSize-1]
	clear(b[:FilestatSize])
	le.PutUint64(b[0:], s.Dev)
	le.PutUint64(b[8:], s.Ino)
	b[16] = byte(s.Filetype)
	le.PutUint64(b[24:], s.Nlink)
	le.PutUint64(b[32:], uint64(s.Size))
	le.PutUint64(b[40:], uint64(s.Atim))
	le.PutUint64(b[48:], uint64(s.Mtim))
	le.PutUint64(b[56:], uint64(s.Ctim))
}

// Encode writes s into b, which must hold PrestatSize bytes.
func (s *Prestat) Encode(b []byte) {
	_ = b[PrestatSize-1]
	clear(b[:PrestatSize])
	b[0] = byte(s.Tag)
	le.PutUint32(b[4:], s.NameLen)
}

// Encode writes the dirent header into b, which must hold DirentSize bytes.
// The name follows the header and is written by the caller.
func (d *Dirent) Encode(b []byte) {
	_ = b[DirentSize-1]
	clear(b[:DirentSize])
	le.PutUint64(b[0:], uint64(d.Next))
	le.PutUint64(b[8:], d.Ino)
	le.PutUint32(b[16:], d.Namlen)
	b[20] = byte(d.Type)
}

// DecodeSubscription reads one subscription record.
func DecodeSubscription(b []byte) Subscription {
	_ = b[SubscriptionSize-1]
	s := Subscription{
		Userdata: le.Uint64(b[0:]),
		Type:     EventType(b[8]),
	}
	switch s.Type {
	case EventTypeClock:
		s.Clock = SubscriptionClock{
			ID:        ClockID(le.Uint32(b[16:])),
			Timeout:   Timestamp(le.Uint64(b[24:])),
			Precision: Timestamp(le.Uint64(b[32:])),
			Flags:     SubClockFlags(le.Uint16(b[40:])),
		}
	case EventTypeFdRead, EventTypeFdWrite:
		s.Fd = Fd(le.Uint32(b[16:]))
	}
	return s
}

// Encode writes s into b using the subscription layout.
func (s *Subscription) Encode(b []byte) {
	_ = b[SubscriptionSize-1]
	clear(b[:SubscriptionSize])
	le.PutUint64(b[0:], s.Userdata)
	b[8] = byte(s.Type)
	switch s.Type {
	case EventTypeClock:
		le.PutUint32(b[16:], uint32(s.Clock.ID))
		le.PutUint64(b[24:], uint64(s.Clock.Timeout))
		le.PutUint64(b[32:], uint64(s.Clock.Precision))
		le.PutUint16(b[40:], uint16(s.Clock.Flags))
	case EventTypeFdRead, EventTypeFdWrite:
		le.PutUint32(b[16:], uint32(s.Fd))
	}
}

// Encode writes e into b, which must hold EventSize bytes.
func (e *Event) Encode(b []byte) {
	_ = b[EventSize-1]
	clear(b[:EventSize])
	le.PutUint64(b[0:], e.Userdata)
	le.PutUint16(b[8:], uint16(e.Error))
	b[10] = byte(e.Type)
	if e.Type == EventTypeFdRead || e.Type == EventTypeFdWrite {
		le.PutUint64(b[16:], uint64(e.FdReadwrite.NBytes))
		le.PutUint16(b[24:], uint16(e.FdReadwrite.Flags))
	}
}

// DecodeEvent reads one event record.
func DecodeEvent(b []byte) Event {
	_ = b[EventSize-1]
	return Event{
		Userdata: le.Uint64(b[0:]),
		Error:    Errno(le.Uint16(b[8:])),
		Type:     EventType(b[10]),
		FdReadwrite: EventFdReadwrite{
			NBytes: FileSize(le.Uint64(b[16:])),
			Flags:  EventRWFlags(le.Uint16(b[24:])),
		},
	}
}

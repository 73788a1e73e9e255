package abi

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImply(t *testing.T) {
	require.Equal(t, RightFdSeek|RightFdTell, Imply(RightFdSeek))
	require.Equal(t, RightFdSync|RightFdDatasync, Imply(RightFdSync))
	require.Equal(t, RightFdRead, Imply(RightFdRead))

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10000; i++ {
		r := Rights(rng.Uint64()) & AllRights
		implied := Imply(r)
		assert.Equal(t, implied, Imply(implied), "not idempotent for %s", r)
		assert.True(t, implied.Contains(r), "not monotonic for %s", r)
	}
}

func TestRightsString(t *testing.T) {
	assert.Equal(t, "0", Rights(0).String())
	assert.Equal(t, "FD_READ|FD_WRITE", (RightFdRead | RightFdWrite).String())
	assert.Equal(t, "SOCK_ACCEPT", RightSockAccept.String())
}

func TestReadOnlyRightsAreSubsets(t *testing.T) {
	assert.True(t, FileRights.Contains(FileReadOnlyRights))
	assert.True(t, DirectoryRights.Contains(DirectoryReadOnlyRights))
	assert.Zero(t, DirectoryReadOnlyRights&RightPathCreateFile)
}

func TestErrno(t *testing.T) {
	assert.Equal(t, Errno(76), ErrnoNotCapable)
	assert.Equal(t, Errno(52), ErrnoNoSys)
	assert.Equal(t, Errno(20), ErrnoExist)
	assert.Equal(t, "NOTCAPABLE", ErrnoNotCapable.Name())
	assert.Equal(t, "UNKNOWN", Errno(999).Name())

	assert.Equal(t, ErrnoSuccess, ToErrno(nil))
	assert.Equal(t, ErrnoLoop, ToErrno(fmt.Errorf("walk: %w", ErrnoLoop)))
	assert.Equal(t, ErrnoIO, ToErrno(errors.New("boom")))
}

func TestEventLayout(t *testing.T) {
	e := Event{
		Userdata: 0x0102030405060708,
		Error:    ErrnoBadf,
		Type:     EventTypeFdWrite,
		FdReadwrite: EventFdReadwrite{
			NBytes: 42,
			Flags:  EventFdReadwriteHangup,
		},
	}
	b := make([]byte, EventSize)
	e.Encode(b)

	assert.Equal(t, byte(0x08), b[0])
	assert.Equal(t, byte(ErrnoBadf), b[8])
	assert.Equal(t, byte(EventTypeFdWrite), b[10])
	assert.Equal(t, byte(42), b[16])
	assert.Equal(t, byte(1), b[24])
	assert.Equal(t, e, DecodeEvent(b))
}

func TestSubscriptionLayout(t *testing.T) {
	b := make([]byte, SubscriptionSize)
	b[0] = 7
	b[8] = byte(EventTypeClock)
	b[16] = byte(ClockMonotonic)
	le.PutUint64(b[24:], 100_000_000)
	le.PutUint16(b[40:], uint16(SubscriptionClockAbstime))

	s := DecodeSubscription(b)
	assert.Equal(t, uint64(7), s.Userdata)
	assert.Equal(t, EventTypeClock, s.Type)
	assert.Equal(t, ClockMonotonic, s.Clock.ID)
	assert.Equal(t, Timestamp(100_000_000), s.Clock.Timeout)
	assert.Equal(t, SubscriptionClockAbstime, s.Clock.Flags)

	out := make([]byte, SubscriptionSize)
	s.Encode(out)
	assert.Equal(t, b, out)

	fd := Subscription{Userdata: 9, Type: EventTypeFdRead, Fd: 5}
	fd.Encode(out)
	assert.Equal(t, fd, DecodeSubscription(out))
}

func TestFdstatLayout(t *testing.T) {
	s := Fdstat{
		Filetype:         FiletypeDirectory,
		Flags:            FdFlagNonblock,
		RightsBase:       RightPathOpen,
		RightsInheriting: RightFdRead,
	}
	b := make([]byte, FdstatSize)
	s.Encode(b)
	assert.Equal(t, byte(FiletypeDirectory), b[0])
	assert.Equal(t, uint16(FdFlagNonblock), le.Uint16(b[2:]))
	assert.Equal(t, uint64(RightPathOpen), le.Uint64(b[8:]))
	assert.Equal(t, uint64(RightFdRead), le.Uint64(b[16:]))
}

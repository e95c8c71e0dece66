package guardian

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
)

func addrs(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.BytesToAddress([]byte{0xaa, byte(i + 1)})
	}
	return out
}

func TestQuorum(t *testing.T) {
	tests := []struct {
		members int
		quorum  int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{4, 3},
		{6, 5},
		{7, 5},
		{19, 13},
	}
	for _, tt := range tests {
		s, err := NewGuardianSet(0, addrs(tt.members), time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Equal(t, tt.quorum, s.Quorum(), "members=%d", tt.members)
	}
}

func TestNewGuardianSetRejects(t *testing.T) {
	_, err := NewGuardianSet(0, nil, time.Time{}, time.Time{})
	require.ErrorIs(t, err, errs.ErrMalformed)

	dup := addrs(3)
	dup[2] = dup[0]
	_, err = NewGuardianSet(0, dup, time.Time{}, time.Time{})
	require.ErrorIs(t, err, errs.ErrMalformed)

	_, err = NewGuardianSet(0, []common.Address{{}}, time.Time{}, time.Time{})
	require.ErrorIs(t, err, errs.ErrMalformed)

	_, err = NewGuardianSet(0, addrs(MaxMembers+1), time.Time{}, time.Time{})
	require.ErrorIs(t, err, errs.ErrMalformed)

	now := time.Unix(1000, 0)
	_, err = NewGuardianSet(0, addrs(1), now, now)
	require.ErrorIs(t, err, errs.ErrMalformed)
}

func TestMembersAreCopied(t *testing.T) {
	in := addrs(2)
	s, err := NewGuardianSet(3, in, time.Time{}, time.Time{})
	require.NoError(t, err)

	in[0] = common.Address{0x01}
	got, ok := s.Member(0)
	require.True(t, ok)
	require.NotEqual(t, in[0], got)

	out := s.Members()
	out[1] = common.Address{0x02}
	got, _ = s.Member(1)
	require.NotEqual(t, out[1], got)

	_, ok = s.Member(2)
	require.False(t, ok)
	_, ok = s.Member(-1)
	require.False(t, ok)
}

func TestIsActive(t *testing.T) {
	from := time.Unix(1000, 0)
	until := time.Unix(2000, 0)
	s, err := NewGuardianSet(0, addrs(1), from, until)
	require.NoError(t, err)

	require.False(t, s.IsActive(time.Unix(999, 0)))
	require.True(t, s.IsActive(from))
	require.True(t, s.IsActive(time.Unix(1999, 0)))
	require.False(t, s.IsActive(until))

	open, err := NewGuardianSet(0, addrs(1), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.True(t, open.IsActive(time.Unix(0, 0)))
	require.True(t, open.IsActive(time.Unix(1<<40, 0)))
}

func TestRegistry(t *testing.T) {
	s0, err := NewGuardianSet(0, addrs(1), time.Time{}, time.Time{})
	require.NoError(t, err)
	s4, err := NewGuardianSet(4, addrs(6), time.Time{}, time.Time{})
	require.NoError(t, err)

	r, err := NewRegistry(s4, s0)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 4}, r.Indices())

	got, err := r.Lookup(4)
	require.NoError(t, err)
	require.Same(t, s4, got)

	_, err = r.Lookup(1)
	require.ErrorIs(t, err, errs.ErrUnknownGuardianSet)

	latest, err := r.Latest()
	require.NoError(t, err)
	require.Same(t, s4, latest)

	_, err = NewRegistry(s0, s0)
	require.ErrorIs(t, err, errs.ErrMalformed)

	empty, err := NewRegistry()
	require.NoError(t, err)
	_, err = empty.Latest()
	require.ErrorIs(t, err, errs.ErrUnknownGuardianSet)
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys([]string{
		"0xbeFA429d57cD18b7F8A4d91A2da9AB4AF05d0FBe",
		"befa429d57cd18b7f8a4d91a2da9ab4af05d0fbf",
	})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, common.HexToAddress("0xbefa429d57cd18b7f8a4d91a2da9ab4af05d0fbe"), keys[0])

	_, err = ParseKeys([]string{"0xzz"})
	require.ErrorIs(t, err, errs.ErrMalformed)

	_, err = ParseKeys([]string{"0x0102"})
	require.ErrorIs(t, err, errs.ErrMalformed)
}

package verify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
	"github.com/wormhole-demo/vaa-verifier/internal/vaatest"
	"github.com/wormhole-demo/vaa-verifier/internal/verify"
)

var now = time.Unix(1_700_000_000, 0)

func signed(t *testing.T, g *vaatest.Guardians, setIndex uint32, indices ...int) *vaa.VAA {
	t.Helper()
	v := vaatest.Unsigned(setIndex, vaatest.Body([]byte{1, 2, 3}))
	g.Sign(t, v, indices...)
	return v
}

func TestQuorumBoundary(t *testing.T) {
	g := vaatest.NewGuardians(t, 6)
	set := g.Set(t, 0)
	require.Equal(t, 5, set.Quorum())

	res, err := verify.Verify(signed(t, g, 0, 0, 1, 2, 3, 4), set, now)
	require.NoError(t, err)
	require.Equal(t, []uint8{0, 1, 2, 3, 4}, res.Valid)
	require.Empty(t, res.Rejections)
	require.NoError(t, res.Tolerated())
	require.Equal(t, 5, res.Quorum)

	_, err = verify.Verify(signed(t, g, 0, 0, 1, 2, 3), set, now)
	require.ErrorIs(t, err, errs.ErrQuorumNotMet)
}

func TestAllGuardiansSign(t *testing.T) {
	g := vaatest.NewGuardians(t, 19)
	set := g.Set(t, 4)

	v := signed(t, g, 4, vaatest.Range(19)...)
	res, err := verify.Verify(v, set, now)
	require.NoError(t, err)
	require.Len(t, res.Valid, 19)
	require.Equal(t, v.Digest(), res.Digest)
	require.Equal(t, uint32(4), res.GuardianSetIndex)
}

func TestMismatchedSignatureTolerated(t *testing.T) {
	g := vaatest.NewGuardians(t, 6)
	set := g.Set(t, 0)

	v := signed(t, g, 0, 0, 1, 2, 3, 4, 5)
	// Guardian 5's slot carries guardian 0's signature.
	v.Signatures[5].Data = vaatest.SignDigest(t, g.Keys[0], v.Digest())

	res, err := verify.Verify(v, set, now)
	require.NoError(t, err)
	require.Equal(t, []uint8{0, 1, 2, 3, 4}, res.Valid)
	require.Len(t, res.Rejections, 1)
	require.ErrorIs(t, res.Tolerated(), errs.ErrSignatureInvalid)
}

func TestMismatchedSignatureBreaksQuorum(t *testing.T) {
	g := vaatest.NewGuardians(t, 6)
	set := g.Set(t, 0)

	v := signed(t, g, 0, 0, 1, 2, 3, 4)
	v.Signatures[4].Data = vaatest.SignDigest(t, g.Keys[5], v.Digest())

	_, err := verify.Verify(v, set, now)
	require.ErrorIs(t, err, errs.ErrQuorumNotMet)
	require.ErrorIs(t, err, errs.ErrSignatureInvalid)
	require.Equal(t, errs.KindQuorumNotMet, errs.KindOf(err))
}

func TestSignatureOverOtherBodyDoesNotCount(t *testing.T) {
	g := vaatest.NewGuardians(t, 1)
	set := g.Set(t, 0)

	v := signed(t, g, 0, 0)
	v.Body.Sequence++

	_, err := verify.Verify(v, set, now)
	require.ErrorIs(t, err, errs.ErrQuorumNotMet)
}

func TestStructurallyInvalidSignatureAborts(t *testing.T) {
	g := vaatest.NewGuardians(t, 6)
	set := g.Set(t, 0)

	tests := []struct {
		name   string
		mutate func(v *vaa.VAA)
	}{
		{"recovery id", func(v *vaa.VAA) { v.Signatures[5].Data[64] = 27 }},
		{"zero r", func(v *vaa.VAA) {
			for i := 0; i < 32; i++ {
				v.Signatures[5].Data[i] = 0
			}
		}},
		{"s above curve order", func(v *vaa.VAA) {
			for i := 32; i < 64; i++ {
				v.Signatures[5].Data[i] = 0xff
			}
		}},
		{"index outside set", func(v *vaa.VAA) { v.Signatures[5].GuardianIndex = 6 }},
		{"unordered in memory", func(v *vaa.VAA) {
			v.Signatures[4], v.Signatures[5] = v.Signatures[5], v.Signatures[4]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Quorum would be met without signature 5; the encoding error still aborts.
			v := signed(t, g, 0, 0, 1, 2, 3, 4, 5)
			tt.mutate(v)
			res, err := verify.Verify(v, set, now)
			require.Nil(t, res)
			require.ErrorIs(t, err, errs.ErrMalformed)
		})
	}
}

func TestExpiredSet(t *testing.T) {
	g := vaatest.NewGuardians(t, 6)
	set := g.SetWithWindow(t, 0, time.Unix(0, 0), now.Add(-time.Second))

	_, err := verify.Verify(signed(t, g, 0, vaatest.Range(6)...), set, now)
	require.ErrorIs(t, err, errs.ErrExpired)

	notYet := g.SetWithWindow(t, 0, now.Add(time.Hour), time.Time{})
	_, err = verify.Verify(signed(t, g, 0, vaatest.Range(6)...), notYet, now)
	require.ErrorIs(t, err, errs.ErrExpired)
}

func TestUnknownGuardianSet(t *testing.T) {
	g := vaatest.NewGuardians(t, 3)
	registry := vaatest.Registry(t, g.Set(t, 0))

	_, err := verify.WithRegistry(signed(t, g, 1, 0, 1, 2), registry, now)
	require.ErrorIs(t, err, errs.ErrUnknownGuardianSet)
	require.True(t, errs.Retriable(errs.KindOf(err)))

	_, err = verify.Verify(signed(t, g, 1, 0, 1, 2), g.Set(t, 0), now)
	require.ErrorIs(t, err, errs.ErrUnknownGuardianSet)

	_, err = verify.Verify(signed(t, g, 0, 0, 1, 2), nil, now)
	require.ErrorIs(t, err, errs.ErrUnknownGuardianSet)

	res, err := verify.WithRegistry(signed(t, g, 0, 0, 1, 2), registry, now)
	require.NoError(t, err)
	require.Len(t, res.Valid, 3)
}

func TestVerifyIsDeterministic(t *testing.T) {
	g := vaatest.NewGuardians(t, 4)
	set := g.Set(t, 0)
	v := signed(t, g, 0, 0, 1, 3)
	v.Signatures[2].Data = vaatest.SignDigest(t, g.Keys[0], v.Digest())

	first, err1 := verify.Verify(v, set, now)
	second, err2 := verify.Verify(v, set, now)
	require.Equal(t, first, second)
	require.Equal(t, err1 == nil, err2 == nil)
	require.ErrorIs(t, err1, errs.ErrQuorumNotMet)
}

package hostaddr

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-demo/vaa-verifier/internal/vaatest"
)

func TestParseProgramID(t *testing.T) {
	id, err := ParseProgramID("")
	require.NoError(t, err)
	require.Equal(t, DefaultWormholeProgramID, id)

	_, err = ParseProgramID("not-base58-0OIl")
	require.Error(t, err)
}

func TestPostedVAAAddressIsDeterministic(t *testing.T) {
	v := vaatest.Unsigned(0, vaatest.Body([]byte{1, 2, 3}))

	a, err := PostedVAAAddress(DefaultWormholeProgramID, v)
	require.NoError(t, err)
	b, err := PostedVAAAddress(DefaultWormholeProgramID, v)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.False(t, a.IsZero())

	hash := BodyHash(v)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("PostedVAA"), hash[:]}, DefaultWormholeProgramID)
	require.NoError(t, err)
	require.Equal(t, want, a)

	v.Body.Sequence++
	c, err := PostedVAAAddress(DefaultWormholeProgramID, v)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestReceivedAddressDependsOnSequence(t *testing.T) {
	v := vaatest.Unsigned(0, vaatest.Body(nil))
	a, err := ReceivedAddress(DefaultWormholeProgramID, v)
	require.NoError(t, err)

	v.Body.Sequence = 2
	b, err := ReceivedAddress(DefaultWormholeProgramID, v)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

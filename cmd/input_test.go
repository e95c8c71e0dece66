package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-demo/vaa-verifier/internal/config"
	"github.com/wormhole-demo/vaa-verifier/internal/payload"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
	"github.com/wormhole-demo/vaa-verifier/internal/vaatest"
)

func TestReadBlob(t *testing.T) {
	want := []byte{0x01, 0x02, 0xff}

	b, err := readBlob("0x0102ff")
	require.NoError(t, err)
	require.Equal(t, want, b)

	b, err = readBlob("AQL/")
	require.NoError(t, err)
	require.Equal(t, want, b)

	path := filepath.Join(t.TempDir(), "vaa.hex")
	require.NoError(t, os.WriteFile(path, []byte("0102ff\n"), 0o600))
	b, err = readBlob("@" + path)
	require.NoError(t, err)
	require.Equal(t, want, b)

	_, err = readBlob("not hex!")
	require.Error(t, err)

	_, err = readBlob("@" + filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestVAAViewJSON(t *testing.T) {
	g := vaatest.NewGuardians(t, 3)
	tr := &payload.TransferWithPayload{Amount: uint256.NewInt(100), Payload: []byte{1, 2, 3}}
	v, err := vaa.Parse(g.SignedBytes(t, 0, vaatest.Body(tr.Encode()), 0, 2))
	require.NoError(t, err)

	view, err := newVAAView(v, "")
	require.NoError(t, err)
	require.Equal(t, []uint8{0, 2}, view.Signatures)
	require.NotEmpty(t, view.PostedVAAAddress)
	view.Transfer = newTransferView(tr)

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, view))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, v.MessageID(), decoded["messageId"])
	require.Equal(t, "100", decoded["transfer"].(map[string]any)["amount"])
	require.Equal(t, "010203", decoded["transfer"].(map[string]any)["payload"])
}

func TestSpyFilters(t *testing.T) {
	require.Nil(t, spyFilters(&config.Config{EmitterChains: []uint16{1}}))

	filters := spyFilters(&config.Config{EmitterChains: []uint16{1, 56}, EmitterAddress: "0xab"})
	require.Len(t, filters, 2)
	require.Equal(t, uint16(56), filters[1].ChainID)
	require.Len(t, filters[0].Address, 64)
}

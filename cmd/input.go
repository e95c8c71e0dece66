package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wormhole-demo/vaa-verifier/internal/hostaddr"
	"github.com/wormhole-demo/vaa-verifier/internal/payload"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

// readBlob decodes a command argument. "@path" reads a file and "-" reads
// stdin; the content is hex (optional 0x) or standard base64.
func readBlob(arg string) ([]byte, error) {
	text := arg
	switch {
	case arg == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg[1:], err)
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)

	if b, err := hex.DecodeString(strings.TrimPrefix(text, "0x")); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(text); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("input is neither hex nor base64")
}

type transferView struct {
	Amount       string `json:"amount"`
	TokenAddress string `json:"tokenAddress"`
	TokenChain   uint16 `json:"tokenChain"`
	To           string `json:"to"`
	ToChain      uint16 `json:"toChain"`
	FromAddress  string `json:"fromAddress"`
	Payload      string `json:"payload"`
}

type vaaView struct {
	MessageID        string        `json:"messageId"`
	Digest           string        `json:"digest"`
	GuardianSetIndex uint32        `json:"guardianSetIndex"`
	Signatures       []uint8       `json:"signatures"`
	Timestamp        uint32        `json:"timestamp"`
	Nonce            uint32        `json:"nonce"`
	ConsistencyLevel uint8         `json:"consistencyLevel"`
	PostedVAAAddress string        `json:"postedVaaAddress,omitempty"`
	State            string        `json:"state,omitempty"`
	ValidSignatures  []uint8       `json:"validSignatures,omitempty"`
	Quorum           int           `json:"quorum,omitempty"`
	Transfer         *transferView `json:"transfer,omitempty"`
	PayloadError     string        `json:"payloadError,omitempty"`
}

func newVAAView(v *vaa.VAA, programID string) (*vaaView, error) {
	view := &vaaView{
		MessageID:        v.MessageID(),
		Digest:           v.Digest().Hex(),
		GuardianSetIndex: v.GuardianSetIndex,
		Timestamp:        v.Body.Timestamp,
		Nonce:            v.Body.Nonce,
		ConsistencyLevel: v.Body.ConsistencyLevel,
	}
	for _, s := range v.Signatures {
		view.Signatures = append(view.Signatures, s.GuardianIndex)
	}

	program, err := hostaddr.ParseProgramID(programID)
	if err != nil {
		return nil, err
	}
	addr, err := hostaddr.PostedVAAAddress(program, v)
	if err != nil {
		return nil, err
	}
	view.PostedVAAAddress = addr.String()
	return view, nil
}

func newTransferView(t *payload.TransferWithPayload) *transferView {
	return &transferView{
		Amount:       t.Amount.Dec(),
		TokenAddress: t.TokenAddress.String(),
		TokenChain:   uint16(t.TokenChain),
		To:           t.To.String(),
		ToChain:      uint16(t.ToChain),
		FromAddress:  t.FromAddress.String(),
		Payload:      hex.EncodeToString(t.Payload),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package payload

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/holiman/uint256"
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
)

// PayloadIDTransferWithPayload is the token bridge's one-byte tag for a
// transfer carrying an arbitrary contract payload.
const PayloadIDTransferWithPayload uint8 = 3

// FixedLen is the size of every field before the trailing payload:
// amount(32) + token address(32) + token chain(2) + to(32) + to chain(2) + from(32).
const FixedLen = 32 + 32 + 2 + 32 + 2 + 32

// TransferWithPayload is a token transfer that carries an opaque payload for
// the receiving contract.
type TransferWithPayload struct {
	Amount       *uint256.Int
	TokenAddress vaaLib.Address
	TokenChain   vaaLib.ChainID
	To           vaaLib.Address
	ToChain      vaaLib.ChainID
	FromAddress  vaaLib.Address
	// Payload runs to the end of the message; it has no length prefix.
	Payload []byte
}

// Encode writes the fixed fields big-endian in declaration order, followed by
// the raw payload. A nil Amount encodes as zero.
func (t *TransferWithPayload) Encode() []byte {
	buf := make([]byte, FixedLen+len(t.Payload))
	amount := new(uint256.Int)
	if t.Amount != nil {
		amount = t.Amount
	}
	amountBytes := amount.Bytes32()
	copy(buf[0:32], amountBytes[:])
	copy(buf[32:64], t.TokenAddress[:])
	binary.BigEndian.PutUint16(buf[64:66], uint16(t.TokenChain))
	copy(buf[66:98], t.To[:])
	binary.BigEndian.PutUint16(buf[98:100], uint16(t.ToChain))
	copy(buf[100:132], t.FromAddress[:])
	copy(buf[FixedLen:], t.Payload)
	return buf
}

// EncodeWithID prefixes Encode with the token bridge payload id.
func (t *TransferWithPayload) EncodeWithID() []byte {
	return append([]byte{PayloadIDTransferWithPayload}, t.Encode()...)
}

// Decode reads a TransferWithPayload. Zero trailing bytes is a valid, empty
// payload; fewer than FixedLen bytes is Malformed.
func Decode(data []byte) (*TransferWithPayload, error) {
	if len(data) < FixedLen {
		return nil, errs.Malformed("transfer payload too short: %d bytes, need %d", len(data), FixedLen)
	}

	t := &TransferWithPayload{
		Amount:     new(uint256.Int).SetBytes32(data[0:32]),
		TokenChain: vaaLib.ChainID(binary.BigEndian.Uint16(data[64:66])),
		ToChain:    vaaLib.ChainID(binary.BigEndian.Uint16(data[98:100])),
	}
	copy(t.TokenAddress[:], data[32:64])
	copy(t.To[:], data[66:98])
	copy(t.FromAddress[:], data[100:132])
	t.Payload = make([]byte, len(data)-FixedLen)
	copy(t.Payload, data[FixedLen:])
	return t, nil
}

// DecodeWithID checks the leading payload id before decoding the rest.
func DecodeWithID(data []byte) (*TransferWithPayload, error) {
	if len(data) == 0 {
		return nil, errs.Malformed("transfer payload is empty")
	}
	if data[0] != PayloadIDTransferWithPayload {
		return nil, errs.Malformed("payload id %d, want %d", data[0], PayloadIDTransferWithPayload)
	}
	return Decode(data[1:])
}

// Equal compares every field, treating a nil Amount as zero.
func (t *TransferWithPayload) Equal(o *TransferWithPayload) bool {
	if t == nil || o == nil {
		return t == o
	}
	return amountOf(t).Eq(amountOf(o)) &&
		t.TokenAddress == o.TokenAddress &&
		t.TokenChain == o.TokenChain &&
		t.To == o.To &&
		t.ToChain == o.ToChain &&
		t.FromAddress == o.FromAddress &&
		string(t.Payload) == string(o.Payload)
}

// Fields is a loggable/JSON view of the transfer.
func (t *TransferWithPayload) Fields() map[string]any {
	return map[string]any{
		"amount":       amountOf(t).Dec(),
		"tokenAddress": hex.EncodeToString(t.TokenAddress[:]),
		"tokenChain":   uint16(t.TokenChain),
		"to":           hex.EncodeToString(t.To[:]),
		"toChain":      uint16(t.ToChain),
		"fromAddress":  hex.EncodeToString(t.FromAddress[:]),
		"payload":      hex.EncodeToString(t.Payload),
	}
}

func amountOf(t *TransferWithPayload) *uint256.Int {
	if t.Amount == nil {
		return new(uint256.Int)
	}
	return t.Amount
}

package vaa

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"
)

const (
	// Version is the only envelope version accepted by Parse.
	Version = vaaLib.SupportedVAAVersion

	headerLen    = 6  // version(1) + guardian set index(4) + signature count(1)
	signatureLen = 66 // guardian index(1) + r(32) + s(32) + recovery id(1)
	bodyFixedLen = 51 // timestamp(4) + nonce(4) + chain(2) + emitter(32) + sequence(8) + consistency(1)
)

// Digest is the double keccak256 of a serialized body. Guardians sign it and
// the replay guard keys records by it.
type Digest [32]byte

func (d Digest) Hex() string    { return "0x" + hex.EncodeToString(d[:]) }
func (d Digest) String() string { return d.Hex() }
func (d Digest) Bytes() []byte  { return d[:] }

// Signature is one guardian's recoverable secp256k1 signature over the digest.
type Signature struct {
	GuardianIndex uint8
	Data          [65]byte // r(32) | s(32) | recovery id(1)
}

func (s Signature) R() []byte         { return s.Data[0:32] }
func (s Signature) S() []byte         { return s.Data[32:64] }
func (s Signature) RecoveryID() uint8 { return s.Data[64] }

// Body is the signed portion of a VAA.
type Body struct {
	Timestamp        uint32
	Nonce            uint32
	EmitterChain     vaaLib.ChainID
	EmitterAddress   vaaLib.Address
	Sequence         uint64
	ConsistencyLevel uint8
	Payload          []byte
}

// Serialize returns the canonical body encoding that the digest covers.
func (b *Body) Serialize() []byte {
	buf := make([]byte, bodyFixedLen+len(b.Payload))
	binary.BigEndian.PutUint32(buf[0:4], b.Timestamp)
	binary.BigEndian.PutUint32(buf[4:8], b.Nonce)
	binary.BigEndian.PutUint16(buf[8:10], uint16(b.EmitterChain))
	copy(buf[10:42], b.EmitterAddress[:])
	binary.BigEndian.PutUint64(buf[42:50], b.Sequence)
	buf[50] = b.ConsistencyLevel
	copy(buf[bodyFixedLen:], b.Payload)
	return buf
}

// Digest is keccak256(keccak256(Serialize())).
func (b *Body) Digest() Digest {
	return DigestOf(b.Serialize())
}

// DigestOf hashes an already serialized body.
func DigestOf(body []byte) Digest {
	return Digest(crypto.Keccak256Hash(crypto.Keccak256(body)))
}

// VAA is a parsed envelope. Signatures are ordered by strictly increasing
// guardian index.
type VAA struct {
	Version          uint8
	GuardianSetIndex uint32
	Signatures       []Signature
	Body             Body
}

// Marshal encodes the envelope back to its wire form.
func (v *VAA) Marshal() []byte {
	body := v.Body.Serialize()
	buf := make([]byte, headerLen+len(v.Signatures)*signatureLen+len(body))
	buf[0] = v.Version
	binary.BigEndian.PutUint32(buf[1:5], v.GuardianSetIndex)
	buf[5] = uint8(len(v.Signatures))
	off := headerLen
	for _, sig := range v.Signatures {
		buf[off] = sig.GuardianIndex
		copy(buf[off+1:off+signatureLen], sig.Data[:])
		off += signatureLen
	}
	copy(buf[off:], body)
	return buf
}

// Digest of the body.
func (v *VAA) Digest() Digest {
	return v.Body.Digest()
}

// MessageID follows the wormhole chain/emitter/sequence convention.
func (v *VAA) MessageID() string {
	return fmt.Sprintf("%d/%s/%d", v.Body.EmitterChain, hex.EncodeToString(v.Body.EmitterAddress[:]), v.Body.Sequence)
}

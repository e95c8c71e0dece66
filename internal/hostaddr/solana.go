// Package hostaddr locates posted-message records on the Solana host
// runtime. The replay guard itself is keyed by digest; these addresses are
// only reported so operators can cross-check a posted VAA on chain.
package hostaddr

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

// DefaultWormholeProgramID is the devnet core bridge program.
var DefaultWormholeProgramID = solana.MustPublicKeyFromBase58("3u8hJUVTA4jH1wYAyUur7FFZVQ8H635K3tSHHF4ssjQ5")

var (
	seedPostedVAA = []byte("PostedVAA")
	seedReceived  = []byte("received")
)

// ParseProgramID accepts a base58 program id; empty selects the devnet default.
func ParseProgramID(s string) (solana.PublicKey, error) {
	if s == "" {
		return DefaultWormholeProgramID, nil
	}
	id, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program ID %q: %w", s, err)
	}
	return id, nil
}

// BodyHash is the single keccak256 of the body the core bridge seeds its
// PostedVAA account with.
func BodyHash(v *vaa.VAA) [32]byte {
	return crypto.Keccak256Hash(v.Body.Serialize())
}

// PostedVAAAddress derives the core bridge's PostedVAA account for v.
func PostedVAAAddress(program solana.PublicKey, v *vaa.VAA) (solana.PublicKey, error) {
	hash := BodyHash(v)
	addr, _, err := solana.FindProgramAddress([][]byte{seedPostedVAA, hash[:]}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive PostedVAA address: %w", err)
	}
	return addr, nil
}

// ReceivedAddress derives the per-(chain, sequence) replay account a
// receiving program keeps.
func ReceivedAddress(program solana.PublicKey, v *vaa.VAA) (solana.PublicKey, error) {
	chain := make([]byte, 2)
	binary.LittleEndian.PutUint16(chain, uint16(v.Body.EmitterChain))
	seq := make([]byte, 8)
	binary.LittleEndian.PutUint64(seq, v.Body.Sequence)
	addr, _, err := solana.FindProgramAddress([][]byte{seedReceived, chain, seq}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive received address: %w", err)
	}
	return addr, nil
}

// Package vaatest builds guardian keys and signed VAAs for tests.
package vaatest

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-demo/vaa-verifier/internal/guardian"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

// Guardians is a set of private keys whose addresses form a guardian set.
type Guardians struct {
	Keys []*ecdsa.PrivateKey
}

func NewGuardians(t testing.TB, n int) *Guardians {
	t.Helper()
	g := &Guardians{Keys: make([]*ecdsa.PrivateKey, n)}
	for i := range g.Keys {
		key, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("generate guardian key %d: %v", i, err)
		}
		g.Keys[i] = key
	}
	return g
}

func (g *Guardians) Addresses() []common.Address {
	out := make([]common.Address, len(g.Keys))
	for i, k := range g.Keys {
		out[i] = crypto.PubkeyToAddress(k.PublicKey)
	}
	return out
}

// Set returns an always-active guardian set for these keys.
func (g *Guardians) Set(t testing.TB, index uint32) *guardian.GuardianSet {
	t.Helper()
	return g.SetWithWindow(t, index, time.Time{}, time.Time{})
}

func (g *Guardians) SetWithWindow(t testing.TB, index uint32, from, until time.Time) *guardian.GuardianSet {
	t.Helper()
	s, err := guardian.NewGuardianSet(index, g.Addresses(), from, until)
	if err != nil {
		t.Fatalf("guardian set: %v", err)
	}
	return s
}

// Registry wraps the given sets.
func Registry(t testing.TB, sets ...*guardian.GuardianSet) *guardian.StaticRegistry {
	t.Helper()
	r, err := guardian.NewRegistry(sets...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

// Sign appends signatures from the guardians at indices, in the order given.
func (g *Guardians) Sign(t testing.TB, v *vaa.VAA, indices ...int) {
	t.Helper()
	digest := v.Digest()
	for _, i := range indices {
		v.Signatures = append(v.Signatures, vaa.Signature{
			GuardianIndex: uint8(i),
			Data:          SignDigest(t, g.Keys[i], digest),
		})
	}
}

func SignDigest(t testing.TB, key *ecdsa.PrivateKey, digest vaa.Digest) [65]byte {
	t.Helper()
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign digest: %v", err)
	}
	var out [65]byte
	copy(out[:], sig)
	return out
}

// Body returns the body used across the test suites: timestamp 1000,
// nonce 0, emitter chain 2, zero emitter, sequence 1, consistency 1.
func Body(payload []byte) vaa.Body {
	return vaa.Body{
		Timestamp:        1000,
		Nonce:            0,
		EmitterChain:     vaaLib.ChainIDEthereum,
		EmitterAddress:   vaaLib.Address{},
		Sequence:         1,
		ConsistencyLevel: 1,
		Payload:          payload,
	}
}

// Unsigned returns a version 1 VAA for setIndex with no signatures.
func Unsigned(setIndex uint32, body vaa.Body) *vaa.VAA {
	return &vaa.VAA{
		Version:          vaa.Version,
		GuardianSetIndex: setIndex,
		Body:             body,
	}
}

// SignedBytes builds, signs, and marshals a VAA in one call.
func (g *Guardians) SignedBytes(t testing.TB, setIndex uint32, body vaa.Body, indices ...int) []byte {
	t.Helper()
	v := Unsigned(setIndex, body)
	g.Sign(t, v, indices...)
	return v.Marshal()
}

// Range returns 0..n-1.
func Range(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

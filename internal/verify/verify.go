package verify

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/guardian"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

// Result describes a successful verification.
type Result struct {
	Digest           vaa.Digest
	GuardianSetIndex uint32
	Quorum           int
	// Valid lists guardian indices whose signature recovered to the
	// expected identity.
	Valid []uint8
	// Rejections holds one SignatureInvalid error per signature that did
	// not match. They were tolerated because quorum was still reached.
	Rejections []error
}

// Tolerated joins the individually rejected signatures, or nil if none.
func (r *Result) Tolerated() error {
	return errors.Join(r.Rejections...)
}

// Verify checks v against set at time now. It has no side effects and its
// verdict depends only on its inputs.
//
// A signature whose encoding is structurally invalid (guardian index outside
// the set, recovery id other than 0/1, r or s outside the curve order) aborts
// with Malformed. A well-formed signature that recovers to the wrong
// identity only drops out of the count.
func Verify(v *vaa.VAA, set *guardian.GuardianSet, now time.Time) (*Result, error) {
	if set == nil {
		return nil, errs.New(errs.KindUnknownGuardianSet, "no guardian set for index %d", v.GuardianSetIndex)
	}
	if set.Index != v.GuardianSetIndex {
		return nil, errs.New(errs.KindUnknownGuardianSet, "VAA references guardian set %d, got set %d",
			v.GuardianSetIndex, set.Index)
	}
	if !set.IsActive(now) {
		return nil, errs.New(errs.KindExpired, "guardian set %d is not active at %s",
			set.Index, now.UTC().Format(time.RFC3339))
	}

	digest := v.Digest()
	res := &Result{
		Digest:           digest,
		GuardianSetIndex: set.Index,
		Quorum:           set.Quorum(),
	}

	for i, sig := range v.Signatures {
		if i > 0 && sig.GuardianIndex <= v.Signatures[i-1].GuardianIndex {
			return nil, errs.Malformed("signature %d has guardian index %d, not above previous %d",
				i, sig.GuardianIndex, v.Signatures[i-1].GuardianIndex)
		}
		expected, ok := set.Member(int(sig.GuardianIndex))
		if !ok {
			return nil, errs.Malformed("guardian index %d outside set %d of %d members",
				sig.GuardianIndex, set.Index, set.Len())
		}
		if err := checkEncoding(sig); err != nil {
			return nil, err
		}

		pub, err := crypto.SigToPub(digest[:], sig.Data[:])
		if err != nil {
			res.Rejections = append(res.Rejections,
				errs.Wrap(errs.KindSignatureInvalid, err, "guardian %d: recovery failed", sig.GuardianIndex))
			continue
		}
		if signer := crypto.PubkeyToAddress(*pub); signer != expected {
			res.Rejections = append(res.Rejections,
				errs.New(errs.KindSignatureInvalid, "guardian %d: recovered %s, want %s",
					sig.GuardianIndex, signer.Hex(), expected.Hex()))
			continue
		}
		res.Valid = append(res.Valid, sig.GuardianIndex)
	}

	if len(res.Valid) < res.Quorum {
		return nil, errs.Wrap(errs.KindQuorumNotMet, res.Tolerated(),
			"%d valid signatures, guardian set %d needs %d", len(res.Valid), set.Index, res.Quorum)
	}
	return res, nil
}

// WithRegistry resolves the guardian set named by v and verifies against it.
func WithRegistry(v *vaa.VAA, registry guardian.Registry, now time.Time) (*Result, error) {
	set, err := registry.Lookup(v.GuardianSetIndex)
	if err != nil {
		return nil, err
	}
	return Verify(v, set, now)
}

func checkEncoding(sig vaa.Signature) error {
	recID := sig.RecoveryID()
	if recID > 1 {
		return errs.Malformed("guardian %d: recovery id %d", sig.GuardianIndex, recID)
	}
	r := new(big.Int).SetBytes(sig.R())
	s := new(big.Int).SetBytes(sig.S())
	if !crypto.ValidateSignatureValues(recID, r, s, false) {
		return errs.Malformed("guardian %d: r or s out of range", sig.GuardianIndex)
	}
	return nil
}

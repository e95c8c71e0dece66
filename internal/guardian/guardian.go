package guardian

import (
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	vaaLib "github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
)

// MaxMembers is bounded by the one-byte guardian index on the wire.
const MaxMembers = math.MaxUint8 + 1

// GuardianSet is an immutable, indexed list of guardian identities. The
// position of a key in Members is the guardian index signatures refer to.
type GuardianSet struct {
	Index      uint32
	members    []common.Address
	validFrom  time.Time
	validUntil time.Time
}

// NewGuardianSet copies members so later changes by the caller cannot leak
// into a published set. A zero validFrom or validUntil leaves that side of
// the window open.
func NewGuardianSet(index uint32, members []common.Address, validFrom, validUntil time.Time) (*GuardianSet, error) {
	if len(members) == 0 {
		return nil, errs.Malformed("guardian set %d is empty", index)
	}
	if len(members) > MaxMembers {
		return nil, errs.Malformed("guardian set %d has %d members, max %d", index, len(members), MaxMembers)
	}
	if !validFrom.IsZero() && !validUntil.IsZero() && !validUntil.After(validFrom) {
		return nil, errs.Malformed("guardian set %d window closes before it opens", index)
	}

	seen := make(map[common.Address]int, len(members))
	for i, m := range members {
		if m == (common.Address{}) {
			return nil, errs.Malformed("guardian set %d member %d is the zero address", index, i)
		}
		if j, ok := seen[m]; ok {
			return nil, errs.Malformed("guardian set %d lists %s at %d and %d", index, m.Hex(), j, i)
		}
		seen[m] = i
	}

	cp := make([]common.Address, len(members))
	copy(cp, members)
	return &GuardianSet{
		Index:      index,
		members:    cp,
		validFrom:  validFrom,
		validUntil: validUntil,
	}, nil
}

// Members returns a copy of the ordered identities.
func (s *GuardianSet) Members() []common.Address {
	cp := make([]common.Address, len(s.members))
	copy(cp, s.members)
	return cp
}

// Member returns the identity at a guardian index.
func (s *GuardianSet) Member(i int) (common.Address, bool) {
	if i < 0 || i >= len(s.members) {
		return common.Address{}, false
	}
	return s.members[i], true
}

func (s *GuardianSet) Len() int { return len(s.members) }

// Quorum is floor(2N/3)+1.
func (s *GuardianSet) Quorum() int {
	return vaaLib.CalculateQuorum(len(s.members))
}

func (s *GuardianSet) ValidFrom() time.Time  { return s.validFrom }
func (s *GuardianSet) ValidUntil() time.Time { return s.validUntil }

// IsActive reports whether at falls inside [validFrom, validUntil).
func (s *GuardianSet) IsActive(at time.Time) bool {
	if !s.validFrom.IsZero() && at.Before(s.validFrom) {
		return false
	}
	if !s.validUntil.IsZero() && !at.Before(s.validUntil) {
		return false
	}
	return true
}

// Registry resolves guardian sets by index. Implementations must be safe for
// concurrent readers.
type Registry interface {
	Lookup(index uint32) (*GuardianSet, error)
}

// StaticRegistry is a Registry over a fixed collection of sets. It has no
// mutation API; rotating sets means building a new registry.
type StaticRegistry struct {
	sets    map[uint32]*GuardianSet
	indices []uint32
}

var _ Registry = (*StaticRegistry)(nil)

func NewRegistry(sets ...*GuardianSet) (*StaticRegistry, error) {
	r := &StaticRegistry{sets: make(map[uint32]*GuardianSet, len(sets))}
	for _, s := range sets {
		if s == nil {
			return nil, errs.Malformed("nil guardian set")
		}
		if _, dup := r.sets[s.Index]; dup {
			return nil, errs.Malformed("guardian set %d registered twice", s.Index)
		}
		r.sets[s.Index] = s
		r.indices = append(r.indices, s.Index)
	}
	sort.Slice(r.indices, func(i, j int) bool { return r.indices[i] < r.indices[j] })
	return r, nil
}

func (r *StaticRegistry) Lookup(index uint32) (*GuardianSet, error) {
	s, ok := r.sets[index]
	if !ok {
		return nil, errs.New(errs.KindUnknownGuardianSet, "no guardian set with index %d", index)
	}
	return s, nil
}

// Latest returns the set with the highest index.
func (r *StaticRegistry) Latest() (*GuardianSet, error) {
	if len(r.indices) == 0 {
		return nil, errs.New(errs.KindUnknownGuardianSet, "registry is empty")
	}
	return r.sets[r.indices[len(r.indices)-1]], nil
}

// Indices returns the registered set indices in ascending order.
func (r *StaticRegistry) Indices() []uint32 {
	cp := make([]uint32, len(r.indices))
	copy(cp, r.indices)
	return cp
}

// ParseKeys decodes 20-byte hex guardian identities, with or without 0x.
func ParseKeys(keys []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(keys))
	for i, k := range keys {
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(k), "0x"))
		if err != nil {
			return nil, errs.Wrap(errs.KindMalformed, err, "guardian key %d is not hex", i)
		}
		if len(raw) != common.AddressLength {
			return nil, errs.Malformed("guardian key %d is %d bytes, want %d", i, len(raw), common.AddressLength)
		}
		out = append(out, common.BytesToAddress(raw))
	}
	return out, nil
}

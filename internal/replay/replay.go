package replay

import (
	"sync"
	"time"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

// Record is the posted-message entry for one digest. Records are never
// deleted and Consumed only moves from false to true.
type Record struct {
	Digest   vaa.Digest
	Consumed bool
	PostedAt time.Time
}

// Store is the replay guard.
//
// Contract:
//   - PostOrReject is atomic per digest: of any number of concurrent callers
//     presenting the same digest, exactly one gets a handle and the rest get
//     AlreadyPosted.
//   - MarkConsumed is idempotent and returns NotFound for an unposted digest.
//   - Lookup returns NotFound when the digest was never posted.
type Store interface {
	PostOrReject(digest vaa.Digest) (*Posted, error)
	Lookup(digest vaa.Digest) (Record, error)
	MarkConsumed(digest vaa.Digest) error
}

// Posted is the handle returned to the caller that won the post.
type Posted struct {
	digest vaa.Digest
	store  Store
}

func NewPosted(store Store, digest vaa.Digest) *Posted {
	return &Posted{digest: digest, store: store}
}

func (p *Posted) Digest() vaa.Digest { return p.digest }

// MarkConsumed records that downstream processing finished. Calling it more
// than once is not an error.
func (p *Posted) MarkConsumed() error {
	return p.store.MarkConsumed(p.digest)
}

// Record reads the current state of the posted entry.
func (p *Posted) Record() (Record, error) {
	return p.store.Lookup(p.digest)
}

func alreadyPosted(d vaa.Digest) error {
	return errs.New(errs.KindAlreadyPosted, "digest %s already posted", d.Hex())
}

func notFound(d vaa.Digest) error {
	return errs.New(errs.KindNotFound, "digest %s was never posted", d.Hex())
}

// MemoryStore keeps records in a mutex-guarded map.
type MemoryStore struct {
	mu      sync.Mutex
	records map[vaa.Digest]*Record
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[vaa.Digest]*Record),
		now:     time.Now,
	}
}

func (m *MemoryStore) PostOrReject(digest vaa.Digest) (*Posted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[digest]; ok {
		return nil, alreadyPosted(digest)
	}
	m.records[digest] = &Record{Digest: digest, PostedAt: m.now()}
	return NewPosted(m, digest), nil
}

func (m *MemoryStore) Lookup(digest vaa.Digest) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[digest]
	if !ok {
		return Record{}, notFound(digest)
	}
	return *r, nil
}

func (m *MemoryStore) MarkConsumed(digest vaa.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[digest]
	if !ok {
		return notFound(digest)
	}
	r.Consumed = true
	return nil
}

// Len reports how many digests have been posted.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

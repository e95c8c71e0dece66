package replay

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/errs"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

const consumedSuffix = ".consumed"

// FileStore persists one file per posted digest under root. Creating the
// record with O_EXCL makes the post atomic across goroutines and across
// processes sharing the directory.
//
// Layout:
//
//	root/ab/abcdef...          posted record, body is the RFC3339 post time
//	root/ab/abcdef....consumed consumed marker
type FileStore struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates root if needed.
func NewFileStore(logger *zap.Logger, root string) (*FileStore, error) {
	if root == "" {
		return nil, errs.New(errs.KindInternal, "replay: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "replay: create %s", root)
	}
	return &FileStore{
		root:   root,
		logger: logger.With(zap.String("component", "FileStore")),
		now:    time.Now,
	}, nil
}

func (s *FileStore) pathFor(d vaa.Digest) string {
	name := hex.EncodeToString(d[:])
	return filepath.Join(s.root, name[:2], name)
}

func (s *FileStore) PostOrReject(digest vaa.Digest) (*Posted, error) {
	path := s.pathFor(digest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "replay: create shard directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, alreadyPosted(digest)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "replay: create record")
	}

	// A record that cannot be fully written is removed so the digest can be
	// posted again; nothing partial is left behind.
	postedAt := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := f.WriteString(postedAt); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, errs.Wrap(errs.KindInternal, err, "replay: write record")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, errs.Wrap(errs.KindInternal, err, "replay: sync record")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, errs.Wrap(errs.KindInternal, err, "replay: close record")
	}

	s.logger.Debug("Posted record", zap.String("digest", digest.Hex()), zap.String("path", path))
	return NewPosted(s, digest), nil
}

func (s *FileStore) Lookup(digest vaa.Digest) (Record, error) {
	path := s.pathFor(digest)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, notFound(digest)
		}
		return Record{}, errs.Wrap(errs.KindInternal, err, "replay: read record")
	}

	rec := Record{Digest: digest}
	if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(raw))); err == nil {
		rec.PostedAt = t
	} else {
		s.logger.Warn("Unreadable post time in record", zap.String("path", path), zap.Error(err))
	}

	if _, err := os.Stat(path + consumedSuffix); err == nil {
		rec.Consumed = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return Record{}, errs.Wrap(errs.KindInternal, err, "replay: stat consumed marker")
	}
	return rec, nil
}

func (s *FileStore) MarkConsumed(digest vaa.Digest) error {
	path := s.pathFor(digest)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(digest)
		}
		return errs.Wrap(errs.KindInternal, err, "replay: stat record")
	}

	f, err := os.OpenFile(path+consumedSuffix, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return errs.Wrap(errs.KindInternal, err, "replay: create consumed marker")
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.KindInternal, err, "replay: close consumed marker")
	}

	s.logger.Debug("Marked record consumed", zap.String("digest", digest.Hex()))
	return nil
}

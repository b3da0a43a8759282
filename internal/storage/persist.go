package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/vector"
)

// Artifact names inside a store directory.
const (
	IndexFile    = "index.bin"
	MetadataFile = "metadata.json"
	lockFile     = ".lock"
)

// Save writes the index and metadata to dir, replacing any earlier snapshot.
// Each artifact is written to a temporary file and renamed into place while
// holding an exclusive lock on dir/.lock.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if n, err := removeStaleTemps(dir); err != nil {
		s.logger.Warn("failed to clean store dir", zap.String("dir", dir), zap.Error(err))
	} else if n > 0 {
		s.logger.Debug("removed stale temp files", zap.Int("count", n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index
	if idx == nil {
		var err error
		if idx, err = vector.New(max(s.embedder.Dimensions(), 1)); err != nil {
			return err
		}
	}
	snapshot := uuid.New()

	if err := writeAtomic(dir, IndexFile, func(w io.Writer) error {
		return vector.Encode(w, idx, snapshot)
	}); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	records := s.records
	if records == nil {
		records = []models.Record{}
	}
	if err := writeAtomic(dir, MetadataFile, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	s.snapshot = snapshot
	s.logger.Info("saved store",
		zap.String("dir", dir),
		zap.Int("records", len(s.records)),
		zap.String("snapshot", snapshot.String()))
	return nil
}

func writeAtomic(dir, name string, write func(io.Writer) error) error {
	f, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}

// Load reads a store saved by Save. A missing directory or artifact is ErrStoreNotFound;
// unreadable or mismatched artifacts are ErrStoreCorrupt.
func Load(dir string, e embedding.Embedder, opts ...Option) (*Store, error) {
	if err := requireArtifacts(dir); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Open(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, notFoundOr(err)
	}
	idx, hdr, err := vector.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, IndexFile, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, notFoundOr(err)
	}
	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, MetadataFile, err)
	}
	if len(records) != idx.Len() {
		return nil, fmt.Errorf("%w: %d vectors but %d records", ErrStoreCorrupt, idx.Len(), len(records))
	}

	s := NewStore(e, opts...)
	s.records = records
	if idx.Len() > 0 {
		s.index = idx
	}
	s.snapshot = hdr.SnapshotID
	s.logger.Debug("loaded store", zap.String("dir", dir), zap.Int("records", len(records)))
	return s, nil
}

func requireArtifacts(dir string) error {
	for _, name := range []string{IndexFile, MetadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return notFoundOr(err)
		}
	}
	return nil
}

func notFoundOr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreNotFound, err)
	}
	return err
}

// Info summarizes a persisted store without loading its vectors.
type Info struct {
	Dir        string    `json:"dir"`
	Records    int       `json:"records"`
	Dimensions int       `json:"dimensions"`
	SnapshotID uuid.UUID `json:"snapshot_id"`
	SavedAt    time.Time `json:"saved_at"`
	SizeBytes  int64     `json:"size_bytes"`
}

// Stat reads the index header of the store in dir.
func Stat(dir string) (Info, error) {
	if err := requireArtifacts(dir); err != nil {
		return Info{}, err
	}
	path := filepath.Join(dir, IndexFile)
	f, err := os.Open(path)
	if err != nil {
		return Info{}, notFoundOr(err)
	}
	defer f.Close()
	hdr, err := vector.DecodeHeader(f)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	fi, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	size, err := DiskUsageBytes(path, filepath.Join(dir, MetadataFile))
	if err != nil {
		return Info{}, err
	}
	return Info{
		Dir:        dir,
		Records:    hdr.Count,
		Dimensions: hdr.Dimensions,
		SnapshotID: hdr.SnapshotID,
		SavedAt:    fi.ModTime(),
		SizeBytes:  size,
	}, nil
}

// Package snapshot persists daily aggregation results as immutable,
// date-keyed JSON artifacts. The artifact directory is the source of truth
// for the read path; the cache in front of it is best-effort.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/dump"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
)

const (
	// artifactSuffix is appended to the dump name to form the artifact
	// name, e.g. shorturls-20200523.gz.json. Names stay zero-padded so
	// lexicographic order equals chronological order.
	artifactSuffix = ".json"

	// artifactDateLayout extracts the date embedded in an artifact name.
	artifactDateLayout = "shorturls-20060102.gz" + artifactSuffix

	// artifactMode is the permission set for written artifacts.
	artifactMode = 0o644
)

// Ref identifies one persisted snapshot artifact.
type Ref struct {
	Path string
	Name string
	Date time.Time
}

// CacheKey returns the stable cache key for this snapshot.
func (r Ref) CacheKey() string {
	return "shorturls:" + r.Name
}

// Store owns the snapshot directory.
type Store struct {
	dir string
	log logger.Logger
	m   *metrics.Metrics
}

// NewStore creates a Store over the given snapshot directory.
func NewStore(dir string, log logger.Logger, m *metrics.Metrics) *Store {
	return &Store{dir: dir, log: log, m: m}
}

// List returns all snapshots in ascending date order. A file with an
// unparseable date indicates a broken deployment or data layout, so it
// surfaces as an error instead of being skipped.
func (s *Store) List() ([]Ref, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory %s: %w", s.dir, err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != artifactSuffix {
			continue
		}
		date, err := time.Parse(artifactDateLayout, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("parse snapshot date from %s: %w", entry.Name(), err)
		}
		refs = append(refs, Ref{
			Path: filepath.Join(s.dir, entry.Name()),
			Name: entry.Name(),
			Date: date,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Date.Before(refs[j].Date)
	})

	return refs, nil
}

// Latest returns the most recent snapshot by date.
func (s *Store) Latest() (Ref, error) {
	refs, err := s.List()
	if err != nil {
		return Ref{}, err
	}
	if len(refs) == 0 {
		return Ref{}, domain.ErrNoData
	}
	return refs[len(refs)-1], nil
}

// Exists reports whether a snapshot has already been written for this dump.
// The extract job uses this to make re-runs over processed dumps a no-op.
func (s *Store) Exists(d dump.Ref) bool {
	_, err := os.Stat(s.artifactPath(d))
	return err == nil
}

// Write persists the aggregation for a dump. It is a no-op when the
// artifact already exists; a given dated snapshot is written at most once.
// The write goes through a temp file and rename so readers never observe a
// half-written artifact.
func (s *Store) Write(d dump.Ref, agg *domain.Aggregation) error {
	target := s.artifactPath(d)
	if s.Exists(d) {
		s.log.Info("Snapshot already exists, skipping",
			logger.String("artifact", target),
		)
		return nil
	}

	data, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", d.Name, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory %s: %w", s.dir, err)
	}

	// Temp file in the same directory so the rename is atomic.
	tmp, err := os.CreateTemp(s.dir, d.Name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), artifactMode); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit snapshot %s: %w", target, err)
	}

	s.m.SnapshotsWritten.Inc()
	s.log.Info("Snapshot written",
		logger.String("artifact", target),
		logger.Int("domains", len(agg.Stats)),
		logger.Int("total", agg.Total),
	)

	return nil
}

// Read loads one snapshot artifact from disk.
func (s *Store) Read(ref Ref) (*domain.Aggregation, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, ref.Name)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", ref.Path, err)
	}

	var agg domain.Aggregation
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, &domain.CorruptDataError{Source: "snapshot", Key: ref.Name, Err: err}
	}

	s.m.SnapshotReads.Inc()
	return &agg, nil
}

// artifactPath maps a dump to its snapshot artifact path.
func (s *Store) artifactPath(d dump.Ref) string {
	return filepath.Join(s.dir, d.Name+artifactSuffix)
}

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/priyagupta108/bdx/internal/record"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

const shardDirPrefix = "shard-"

// Store is a directory holding a manifest and a set of immutable shard
// segments, per §4.3. Writers must go through Commit; readers open shards
// on demand and cache them for the lifetime of the Store value.
type Store struct {
	dir string

	mu     sync.Mutex
	shards map[string]*Shard

	metrics *metrics.Metrics
}

// Open prepares dir as a store root, creating it if necessary and checking
// any existing schema.version marker against CurrentSchemaVersion.
func Open(dir string) (*Store, error) {
	return OpenWithMetrics(dir, nil)
}

// OpenWithMetrics is Open with an optional metrics sink. A nil m disables
// metric recording, same as Open.
func OpenWithMetrics(dir string, m *metrics.Metrics) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}
	if v, ok := loadSchemaVersion(dir); ok && v != CurrentSchemaVersion {
		return nil, bdxerrors.Newf(bdxerrors.ErrSchemaVersionMismatch,
			"store %s has schema version %d, bdx expects %d", dir, v, CurrentSchemaVersion)
	}
	return &Store{dir: dir, shards: make(map[string]*Shard), metrics: m}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// LoadManifest returns the store's current manifest.
func (s *Store) LoadManifest() (*Manifest, error) {
	return loadManifest(s.dir)
}

// Shard opens (and caches) the shard with the given id.
func (s *Store) Shard(id string) (*Shard, error) {
	s.mu.Lock()
	if sh, ok := s.shards[id]; ok {
		s.mu.Unlock()
		return sh, nil
	}
	s.mu.Unlock()

	sh, err := openSegment(id, s.shardDir(id))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.shards[id] = sh
	s.mu.Unlock()
	return sh, nil
}

// Shards opens every shard referenced by manifest.
func (s *Store) Shards(m *Manifest) ([]*Shard, error) {
	ids := m.referencedShards()
	out := make([]*Shard, 0, len(ids))
	for id := range ids {
		sh, err := s.Shard(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) shardDir(id string) string {
	return filepath.Join(s.dir, shardDirPrefix+id)
}

// CommitResult reports what a Commit call actually did.
type CommitResult struct {
	ShardID  string
	NumFiles int
	NoOp     bool
}

// Commit runs one indexing generation's write transaction, per §4.3/§4.4:
// acquire the write lock, fold changed/added files' records into a single
// new shard, update the manifest to point those paths at it and drop
// removed paths, then garbage-collect shards no longer referenced. A
// cancelled context discards the new shard and leaves the manifest
// untouched, per §5.
func (s *Store) Commit(ctx context.Context, changed map[string][]record.Symbol, mtimes map[string]time.Time, removed []string) (CommitResult, error) {
	lock, err := AcquireLock(s.dir)
	if err != nil {
		return CommitResult{}, err
	}
	defer lock.Release()

	manifest, err := loadManifest(s.dir)
	if err != nil {
		return CommitResult{}, err
	}

	if err := s.gcUnreferenced(manifest); err != nil {
		return CommitResult{}, fmt.Errorf("cleaning up orphaned shards: %w", err)
	}

	if len(changed) == 0 && len(removed) == 0 {
		return CommitResult{NoOp: true}, nil
	}

	var all []record.Symbol
	for _, syms := range changed {
		all = append(all, syms...)
	}
	sort.Slice(all, func(i, j int) bool { return record.Less(all[i], all[j]) })

	shardID := uuid.NewString()
	shardDir := s.shardDir(shardID)

	if err := ctx.Err(); err != nil {
		return CommitResult{}, bdxerrors.Newf(bdxerrors.ErrCancelled, "commit cancelled before write: %v", err)
	}
	if err := writeSegment(shardDir, all); err != nil {
		os.RemoveAll(shardDir)
		return CommitResult{}, fmt.Errorf("writing shard %s: %w", shardID, err)
	}
	if err := ctx.Err(); err != nil {
		os.RemoveAll(shardDir)
		return CommitResult{}, bdxerrors.Newf(bdxerrors.ErrCancelled, "commit cancelled before manifest update, shard discarded: %v", err)
	}

	for path := range changed {
		manifest.Files[path] = record.FileState{Path: path, MTime: mtimes[path], ShardID: shardID}
	}
	for _, path := range removed {
		delete(manifest.Files, path)
	}
	manifest.SchemaVersion = CurrentSchemaVersion

	if err := manifest.writeAtomic(s.dir); err != nil {
		os.RemoveAll(shardDir)
		return CommitResult{}, fmt.Errorf("committing manifest: %w", err)
	}
	if _, ok := loadSchemaVersion(s.dir); !ok {
		if err := writeSchemaVersion(s.dir, CurrentSchemaVersion); err != nil {
			return CommitResult{}, fmt.Errorf("writing schema version marker: %w", err)
		}
	}

	if err := s.gcUnreferenced(manifest); err != nil {
		return CommitResult{}, fmt.Errorf("cleaning up superseded shards: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ShardsCommittedTotal.Inc()
		s.metrics.ActiveShards.Set(float64(len(manifest.referencedShards())))
	}

	return CommitResult{ShardID: shardID, NumFiles: len(changed)}, nil
}

// gcUnreferenced removes every shard-* directory and leftover write
// artifact on disk that the manifest no longer (or not yet) references.
// Called both before a commit, to clean up a previous interrupted writer's
// orphans, and after, to drop shards fully superseded by the new one.
func (s *Store) gcUnreferenced(m *Manifest) error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	live := m.referencedShards()

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() && strings.HasPrefix(name, shardDirPrefix) {
			id := strings.TrimPrefix(name, shardDirPrefix)
			if _, ok := live[id]; ok {
				continue
			}
			s.mu.Lock()
			delete(s.shards, id)
			s.mu.Unlock()
			if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.ShardsGCedTotal.Inc()
			}
			continue
		}
		if !e.IsDir() && strings.HasSuffix(name, ".tmp") {
			os.Remove(filepath.Join(s.dir, name))
		}
	}
	return nil
}

// Package search implements the searcher: the three query operations of
// §4.6 (search, count, iterate) executed across every shard of a store.
package search

import (
	"fmt"
	"time"

	"github.com/priyagupta108/bdx/internal/query"
	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/store"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

// Searcher executes parsed queries against a store's current shard set.
type Searcher struct {
	store   *store.Store
	metrics *metrics.Metrics
}

func New(st *store.Store) *Searcher {
	return &Searcher{store: st}
}

// NewWithMetrics is New with an optional metrics sink. A nil m disables
// metric recording, same as New.
func NewWithMetrics(st *store.Store, m *metrics.Metrics) *Searcher {
	return &Searcher{store: st, metrics: m}
}

func (s *Searcher) openShards() ([]*store.Shard, error) {
	manifest, err := s.store.LoadManifest()
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	shards, err := s.store.Shards(manifest)
	if err != nil {
		return nil, fmt.Errorf("opening shards: %w", err)
	}
	return shards, nil
}

// Search returns up to limit matching records in stable (path, address)
// order across every shard. limit <= 0 means unlimited.
func (s *Searcher) Search(q *query.Query, limit int) ([]record.Symbol, error) {
	start := time.Now()
	it, err := s.Iterate(q)
	if err != nil {
		return nil, err
	}
	var out []record.Symbol
	for {
		if limit > 0 && len(out) >= limit {
			break
		}
		sym, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, sym)
	}
	if s.metrics != nil {
		s.metrics.SearchLatency.WithLabelValues("search").Observe(time.Since(start).Seconds())
		s.metrics.SearchResultsCount.Observe(float64(len(out)))
	}
	return out, nil
}

// Count returns the total match count without hydrating any record, per
// §4.6: each shard's posting-list cardinality is summed directly.
func (s *Searcher) Count(q *query.Query) (int, error) {
	start := time.Now()
	shards, err := s.openShards()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, sh := range shards {
		total += query.Eval(q.Root, sh).GetCardinality()
	}
	if s.metrics != nil {
		s.metrics.SearchLatency.WithLabelValues("count").Observe(time.Since(start).Seconds())
	}
	return int(total), nil
}

// Iterate returns a lazy, restartable sequence of matches, used by the
// graph engine to resolve relocation targets without materializing full
// result sets.
func (s *Searcher) Iterate(q *query.Query) (*Cursor, error) {
	shards, err := s.openShards()
	if err != nil {
		return nil, err
	}
	return newCursor(q, shards), nil
}

// Package indexer computes a store's work set against a list of discovered
// object files and drives the bounded worker pool that parses them, per
// §4.4 of the specification.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/priyagupta108/bdx/internal/elfread"
	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/store"
	"github.com/priyagupta108/bdx/pkg/config"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

// Indexer drives one run of the indexing pipeline against a store: diff the
// manifest against a discovered file set, parse the work set across a
// bounded pool of goroutines standing in for the specification's worker
// processes (per §9's memory-safe-language allowance), and commit the
// result as a single new shard.
type Indexer struct {
	store   *store.Store
	cfg     config.IndexerConfig
	opts    elfread.Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(st *store.Store, cfg config.IndexerConfig, m *metrics.Metrics, logger *slog.Logger) *Indexer {
	return &Indexer{
		store: st,
		cfg:   cfg,
		opts: elfread.Options{
			IndexRelocations: cfg.IndexRelocations,
			MinSymbolSize:    uint64(cfg.MinSymbolSize),
			UseDwarfdump:     cfg.UseDwarfdump,
			DwarfdumpPath:    cfg.DwarfdumpPath,
		},
		metrics: m,
		logger:  logger.With("component", "indexer"),
	}
}

// Summary reports what a Run call did.
type Summary struct {
	Added, Changed, Removed int
	Failed                  []FailedFile
	ShardID                 string
	NoOp                    bool
}

// FailedFile records one object file the pool could not parse; a failure
// never aborts the run, per §4.4/§5.
type FailedFile struct {
	Path string
	Err  error
}

// workItem is one file whose record set needs (re)computing.
type workItem struct {
	path  string
	mtime time.Time
}

// Run diffs discovered against the store's manifest, parses the resulting
// work set, and commits a fresh shard covering every added or changed file.
// Discovered is the complete current set of candidate object files; any
// manifest entry not present in it is treated as removed.
func Run(ctx context.Context, idx *Indexer, discovered []string) (Summary, error) {
	start := time.Now()
	if idx.metrics != nil {
		defer func() { idx.metrics.IndexRunDuration.Observe(time.Since(start).Seconds()) }()
	}

	manifest, err := idx.store.LoadManifest()
	if err != nil {
		return Summary{}, fmt.Errorf("loading manifest: %w", err)
	}

	present := make(map[string]struct{}, len(discovered))
	var work []workItem
	for _, path := range discovered {
		info, err := os.Stat(path)
		if err != nil {
			idx.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		mtime := info.ModTime()
		present[path] = struct{}{}
		if prev, ok := manifest.Files[path]; ok && prev.MTime.Equal(mtime) {
			continue
		}
		work = append(work, workItem{path: path, mtime: mtime})
	}

	var removed []string
	for path := range manifest.Files {
		if _, ok := present[path]; !ok {
			removed = append(removed, path)
		}
	}

	if len(work) == 0 && len(removed) == 0 {
		return Summary{NoOp: true}, nil
	}

	results, failed, err := idx.parseAll(ctx, work)
	if err != nil {
		return Summary{}, err
	}

	changed := make(map[string][]record.Symbol, len(results))
	mtimes := make(map[string]time.Time, len(results))
	for path, syms := range results {
		changed[path] = syms
	}
	for _, w := range work {
		if _, ok := results[w.path]; ok {
			mtimes[w.path] = w.mtime
		}
	}

	res, err := idx.store.Commit(ctx, changed, mtimes, removed)
	if err != nil {
		if errors.Is(err, bdxerrors.ErrCancelled) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("committing shard: %w", err)
	}

	added := len(changed) - overlapCount(changed, manifest.Files)
	changedCount := overlapCount(changed, manifest.Files)
	if idx.metrics != nil {
		idx.metrics.SymbolsIndexedTotal.Add(float64(countSymbols(changed)))
		idx.metrics.FilesIndexedTotal.WithLabelValues("added").Add(float64(added))
		idx.metrics.FilesIndexedTotal.WithLabelValues("changed").Add(float64(changedCount))
		idx.metrics.FilesIndexedTotal.WithLabelValues("removed").Add(float64(len(removed)))
		idx.metrics.FilesIndexedTotal.WithLabelValues("error").Add(float64(len(failed)))
	}

	return Summary{
		Added:   added,
		Changed: changedCount,
		Removed: len(removed),
		Failed:  failed,
		ShardID: res.ShardID,
		NoOp:    res.NoOp,
	}, nil
}

// parseAll fans work out across a bounded pool of goroutines, gated both by
// worker count and by an approximate byte budget standing in for the
// specification's write-buffer backpressure (§5): a goroutine large file
// reservation blocks new dispatch before a flood of in-flight parses can
// balloon memory use.
func (idx *Indexer) parseAll(ctx context.Context, work []workItem) (map[string][]record.Symbol, []FailedFile, error) {
	concurrency := semaphore.NewWeighted(max64(int64(idx.cfg.NumProcesses), 1))
	budget := semaphore.NewWeighted(max64(idx.cfg.ByteBudget, 1))

	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string][]record.Symbol, len(work))
	var failed []FailedFile

	for _, item := range work {
		item := item
		weight := estimatedWeight(item.path, idx.cfg.ByteBudget)

		if err := concurrency.Acquire(gctx, 1); err != nil {
			break
		}
		if err := budget.Acquire(gctx, weight); err != nil {
			concurrency.Release(1)
			break
		}

		g.Go(func() error {
			defer concurrency.Release(1)
			defer budget.Release(weight)
			syms, err := idx.parseOne(item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, FailedFile{Path: item.path, Err: err})
				return nil
			}
			results[item.path] = syms
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("indexing run cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, bdxerrors.Newf(bdxerrors.ErrCancelled, "indexing run cancelled: %v", err)
	}
	return results, failed, nil
}

// parseOne runs one file's ELF parse behind a panic-recovery boundary: the
// specification isolates a crashing parser in its own worker process, and a
// recovered goroutine panic is this module's substitute (§9).
func (idx *Indexer) parseOne(item workItem) (syms []record.Symbol, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panicked on %s: %v", item.path, r)
		}
	}()
	return elfread.Parse(item.path, item.mtime, idx.opts)
}

func estimatedWeight(path string, budget int64) int64 {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return 1
	}
	if info.Size() > budget {
		return budget
	}
	return info.Size()
}

func max64(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}

func countSymbols(changed map[string][]record.Symbol) int {
	n := 0
	for _, syms := range changed {
		n += len(syms)
	}
	return n
}

func overlapCount(changed map[string][]record.Symbol, prev map[string]record.FileState) int {
	n := 0
	for path := range changed {
		if _, ok := prev[path]; ok {
			n++
		}
	}
	return n
}

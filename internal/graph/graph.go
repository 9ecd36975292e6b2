// Package graph implements the reference graph traversal of §4.7: given a
// source query and a sink query, it enumerates up to N simple paths whose
// edges follow relocation references resolved through the searcher.
package graph

import (
	"fmt"
	"strconv"

	"github.com/sourcegraph/conc/pool"

	"github.com/priyagupta108/bdx/internal/query"
	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/search"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

// Algorithm selects the traversal policy used to enumerate paths.
type Algorithm string

const (
	BFS   Algorithm = "BFS"
	DFS   Algorithm = "DFS"
	AStar Algorithm = "ASTAR"
)

// Path is one discovered chain of symbols: a source-reachable node, zero or
// more relocation-followed intermediaries, and a sink-matching node.
type Path []record.Symbol

// maxConcurrentSources bounds the per-source-node fan-out the engine uses
// when several source symbols match the source query at once.
const maxConcurrentSources = 8

// Engine runs graph traversals against a store through its searcher.
type Engine struct {
	searcher *search.Searcher
	metrics  *metrics.Metrics
}

func New(s *search.Searcher) *Engine {
	return &Engine{searcher: s}
}

// NewWithMetrics is New with an optional metrics sink. A nil m disables
// metric recording, same as New.
func NewWithMetrics(s *search.Searcher, m *metrics.Metrics) *Engine {
	return &Engine{searcher: s, metrics: m}
}

// Options configures one Run call.
type Options struct {
	Algorithm Algorithm
	Limit     int // max paths returned; <= 0 means unbounded (capped by maxDepth and graph size)
	MaxDepth  int // max edges per path; 0 means unbounded
}

// Run resolves every symbol matching srcQuery as a starting node and every
// symbol matching sinkQuery as an accepting node, then enumerates paths
// between them using the configured algorithm. Edges are resolved lazily:
// a node's outgoing edges are the symbols defining any of its relocation
// targets (§4.7), discovered through the searcher rather than a
// precomputed graph.
func (e *Engine) Run(srcQuery, sinkQuery *query.Query, opts Options) ([]Path, error) {
	sources, err := e.searcher.Search(srcQuery, 0)
	if err != nil {
		return nil, fmt.Errorf("resolving source nodes: %w", err)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	sinks, err := e.searcher.Search(sinkQuery, 0)
	if err != nil {
		return nil, fmt.Errorf("resolving sink nodes: %w", err)
	}
	sinkKeys := make(map[string]bool, len(sinks))
	sinkNames := make(map[string]bool, len(sinks))
	for _, s := range sinks {
		sinkKeys[nodeKey(s)] = true
		sinkNames[s.Name] = true
	}

	exp := &expander{searcher: e.searcher, cache: make(map[string][]record.Symbol)}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // unbounded, the per-source walk is still cut off by maxDepth/graph size
	}

	var run func(src record.Symbol) ([]Path, error)
	switch opts.Algorithm {
	case DFS:
		run = func(src record.Symbol) ([]Path, error) { return dfsFrom(src, sinkKeys, limit, opts.MaxDepth, exp) }
	case AStar:
		run = func(src record.Symbol) ([]Path, error) { return astarFrom(src, sinkKeys, sinkNames, limit, opts.MaxDepth, exp) }
	default:
		run = func(src record.Symbol) ([]Path, error) { return bfsFrom(src, sinkKeys, limit, opts.MaxDepth, exp) }
	}

	perSource := make([][]Path, len(sources))
	p := pool.New().WithMaxGoroutines(maxConcurrentSources).WithErrors()
	for i, src := range sources {
		i, src := i, src
		p.Go(func() error {
			paths, err := run(src)
			if err != nil {
				return err
			}
			perSource[i] = paths
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var out []Path
	for _, paths := range perSource {
		out = append(out, paths...)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			out = out[:opts.Limit]
			break
		}
	}
	if e.metrics != nil {
		e.metrics.GraphPathsFound.Observe(float64(len(out)))
	}
	return out, nil
}

// nodeKey identifies a node by the same (path, name, address) triple that
// makes a symbol record unique, so cycle detection and sink membership
// tests don't depend on struct equality (MTime in particular can differ
// across re-reads of the same record).
func nodeKey(s record.Symbol) string {
	return s.Path + "\x00" + s.Name + "\x00" + strconv.FormatUint(s.Address, 16)
}

// expander resolves a node's outgoing edges by looking up the symbols
// defining each of its relocation targets, caching by target name since
// many nodes in a dense call graph share targets.
type expander struct {
	searcher *search.Searcher
	cache    map[string][]record.Symbol
}

func (x *expander) neighbors(u record.Symbol) ([]record.Symbol, error) {
	seen := make(map[string]bool, len(u.Relocations))
	var out []record.Symbol
	for _, target := range u.Relocations {
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		candidates, ok := x.cache[target]
		if !ok {
			hits, err := x.searcher.Search(query.ExactFullname(target), 0)
			if err != nil {
				return nil, fmt.Errorf("resolving relocation target %q: %w", target, err)
			}
			x.cache[target] = hits
			candidates = hits
		}
		out = append(out, candidates...)
	}
	return out, nil
}

// partialPath is a path under construction, paired with the per-path
// visited set that prevents a node from repeating within it (§4.7: cycles
// are broken per path, not globally — the same node may appear in two
// different returned paths).
type partialPath struct {
	nodes   []record.Symbol
	visited map[string]bool
}

func startPath(src record.Symbol) partialPath {
	return partialPath{nodes: []record.Symbol{src}, visited: map[string]bool{nodeKey(src): true}}
}

func (p partialPath) extend(v record.Symbol) partialPath {
	visited := make(map[string]bool, len(p.visited)+1)
	for k := range p.visited {
		visited[k] = true
	}
	k := nodeKey(v)
	visited[k] = true
	nodes := make([]record.Symbol, len(p.nodes)+1)
	copy(nodes, p.nodes)
	nodes[len(p.nodes)] = v
	return partialPath{nodes: nodes, visited: visited}
}

func (p partialPath) last() record.Symbol { return p.nodes[len(p.nodes)-1] }

func (p partialPath) depth() int { return len(p.nodes) - 1 }

func clonePath(nodes []record.Symbol) Path {
	out := make(Path, len(nodes))
	copy(out, nodes)
	return out
}

func bfsFrom(src record.Symbol, sinkKeys map[string]bool, limit, maxDepth int, exp *expander) ([]Path, error) {
	var results []Path
	queue := []partialPath{startPath(src)}
	for len(queue) > 0 {
		if limit >= 0 && len(results) >= limit {
			break
		}
		cur := queue[0]
		queue = queue[1:]

		if sinkKeys[nodeKey(cur.last())] {
			results = append(results, clonePath(cur.nodes))
			continue
		}
		if maxDepth > 0 && cur.depth() >= maxDepth {
			continue
		}
		neighbors, err := exp.neighbors(cur.last())
		if err != nil {
			return nil, err
		}
		for _, v := range neighbors {
			if cur.visited[nodeKey(v)] {
				continue
			}
			queue = append(queue, cur.extend(v))
		}
	}
	return results, nil
}

func dfsFrom(src record.Symbol, sinkKeys map[string]bool, limit, maxDepth int, exp *expander) ([]Path, error) {
	var results []Path
	stack := []partialPath{startPath(src)}
	for len(stack) > 0 {
		if limit >= 0 && len(results) >= limit {
			break
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if sinkKeys[nodeKey(cur.last())] {
			results = append(results, clonePath(cur.nodes))
			continue
		}
		if maxDepth > 0 && cur.depth() >= maxDepth {
			continue
		}
		neighbors, err := exp.neighbors(cur.last())
		if err != nil {
			return nil, err
		}
		// Push in reverse so the first relocation is explored first, a
		// depth-first traversal order matching the source symbol's own
		// relocation list.
		for i := len(neighbors) - 1; i >= 0; i-- {
			v := neighbors[i]
			if cur.visited[nodeKey(v)] {
				continue
			}
			stack = append(stack, cur.extend(v))
		}
	}
	return results, nil
}

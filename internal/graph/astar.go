package graph

import (
	"container/heap"

	"github.com/priyagupta108/bdx/internal/record"
)

// astarItem is one frontier entry: a partial path, its edge count (g), and
// the order it was inserted in, used to break ties deterministically.
type astarItem struct {
	path partialPath
	g    int
	seq  int
}

// heuristic estimates the remaining edge count to any sink: 1 when the
// path's current node has a relocation directly naming a sink symbol (one
// more hop reaches it), 0 otherwise. Both bounds are admissible — neither
// ever overestimates the true remaining distance.
func heuristic(u record.Symbol, sinkNames map[string]bool) int {
	for _, target := range u.Relocations {
		if sinkNames[target] {
			return 1
		}
	}
	return 0
}

// astarQueue orders items by g+h. The sink-name set used for h is stored
// once on the queue rather than per item, since every item in one
// traversal shares the same sink set.
type astarQueue struct {
	items     []*astarItem
	sinkNames map[string]bool
}

func (q *astarQueue) Len() int { return len(q.items) }

func (q *astarQueue) Less(i, j int) bool {
	fi := q.items[i].g + heuristic(q.items[i].path.last(), q.sinkNames)
	fj := q.items[j].g + heuristic(q.items[j].path.last(), q.sinkNames)
	if fi != fj {
		return fi < fj
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *astarQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *astarQueue) Push(x any) { q.items = append(q.items, x.(*astarItem)) }

func (q *astarQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// astarFrom enumerates paths from src to any sink using A* ordering: the
// frontier explores the partial path with the lowest g+h first, ties
// broken by insertion order, per §4.7.
func astarFrom(src record.Symbol, sinkKeys map[string]bool, sinkNames map[string]bool, limit, maxDepth int, exp *expander) ([]Path, error) {
	var results []Path
	q := &astarQueue{sinkNames: sinkNames}
	seq := 0
	heap.Push(q, &astarItem{path: startPath(src), g: 0, seq: seq})
	seq++

	for q.Len() > 0 {
		if limit >= 0 && len(results) >= limit {
			break
		}
		cur := heap.Pop(q).(*astarItem)

		if sinkKeys[nodeKey(cur.path.last())] {
			results = append(results, clonePath(cur.path.nodes))
			continue
		}
		if maxDepth > 0 && cur.path.depth() >= maxDepth {
			continue
		}
		neighbors, err := exp.neighbors(cur.path.last())
		if err != nil {
			return nil, err
		}
		for _, v := range neighbors {
			if cur.path.visited[nodeKey(v)] {
				continue
			}
			heap.Push(q, &astarItem{path: cur.path.extend(v), g: cur.g + 1, seq: seq})
			seq++
		}
	}
	return results, nil
}

package search

import (
	"container/heap"

	"github.com/RoaringBitmap/roaring"

	"github.com/priyagupta108/bdx/internal/query"
	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/store"
)

// heapItem is one shard's next unconsumed match, parked in the merge heap
// until it is popped in (path, address) order.
type heapItem struct {
	sym       record.Symbol
	createdAt int64
	shard     *store.Shard
	it        roaring.IntPeekable
}

type itemHeap []*heapItem

func (h itemHeap) Len() int { return len(h) }

// Less orders by the stable (path, address) key the searcher promises
// (§4.6); a tie — the same (path, address) present in two shards during an
// in-progress reorganization — is broken in favor of the newer shard,
// without suppressing the older shard's record.
func (h itemHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.sym.Path != b.sym.Path {
		return a.sym.Path < b.sym.Path
	}
	if a.sym.Address != b.sym.Address {
		return a.sym.Address < b.sym.Address
	}
	return a.createdAt > b.createdAt
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*heapItem)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Cursor is a lazy, restartable merge of one query's matches across every
// shard of a store, yielded in (path, address) order. "Restartable" means
// calling Reset rebuilds the merge from the query and cached shard set
// without re-planning the query, per §4.6's iterate operation.
type Cursor struct {
	q      *query.Query
	shards []*store.Shard
	heap   itemHeap
}

func newCursor(q *query.Query, shards []*store.Shard) *Cursor {
	c := &Cursor{q: q, shards: shards}
	c.Reset()
	return c
}

// Reset rebuilds the merge heap from scratch, restarting iteration.
func (c *Cursor) Reset() {
	c.heap = c.heap[:0]
	for _, sh := range c.shards {
		bm := query.Eval(c.q.Root, sh)
		it := bm.Iterator()
		if !it.HasNext() {
			continue
		}
		id := it.Next()
		heap.Push(&c.heap, &heapItem{sym: sh.Record(id), createdAt: sh.CreatedAt, shard: sh, it: it})
	}
}

// Next returns the next match, or ok=false when the sequence is exhausted.
func (c *Cursor) Next() (record.Symbol, bool) {
	if c.heap.Len() == 0 {
		return record.Symbol{}, false
	}
	top := heap.Pop(&c.heap).(*heapItem)
	if top.it.HasNext() {
		id := top.it.Next()
		heap.Push(&c.heap, &heapItem{sym: top.shard.Record(id), createdAt: top.shard.CreatedAt, shard: top.shard, it: top.it})
	}
	return top.sym, true
}

package query

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/priyagupta108/bdx/internal/store"
)

// Eval lowers a query's AST onto one shard's postings, per §4.5: leaves
// become posting-list or range lookups, AND/OR/NOT become intersection,
// union, and complement over the resulting bitmaps.
func Eval(n Node, sh *store.Shard) *roaring.Bitmap {
	switch v := n.(type) {
	case *AndNode:
		left := Eval(v.Left, sh)
		left.And(Eval(v.Right, sh))
		return left
	case *OrNode:
		left := Eval(v.Left, sh)
		left.Or(Eval(v.Right, sh))
		return left
	case *NotNode:
		all := sh.All()
		all.AndNot(Eval(v.Child, sh))
		return all
	case *TermNode:
		key := v.Code + ":" + v.Value
		if v.Wildcard {
			return sh.Prefix(key)
		}
		return sh.Term(key)
	case *RangeNode:
		return sh.Range(v.Field, v.Lo, v.Hi)
	default:
		return roaring.New()
	}
}

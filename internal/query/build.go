package query

import (
	"strings"

	"github.com/priyagupta108/bdx/internal/schema"
)

// ExactFullname builds the query `fullname:<name>` directly as an AST,
// without a string round trip through the parser. The graph engine uses
// this to resolve a raw relocation name (which may contain characters the
// query grammar would otherwise need escaping) to its defining symbols,
// per §4.7's edge model.
func ExactFullname(name string) *Query {
	return &Query{Root: &TermNode{
		Code:  schema.TextCode(schema.FieldFullname, true),
		Value: strings.ToLower(name),
	}}
}

package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/priyagupta108/bdx/internal/graph"
	"github.com/priyagupta108/bdx/internal/record"
)

// WriteDOT renders a set of graph paths as a single DOT digraph on w, per
// §6: `bdx graph` emits DOT text; rendering that text to an image is out of
// scope. Each node is labeled "name@address"; nodes and edges are
// deduplicated across paths, so a node or edge shared by several paths is
// declared once.
func WriteDOT(w io.Writer, paths []graph.Path) error {
	var b strings.Builder
	b.WriteString("digraph bdx {\n")

	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)

	for _, path := range paths {
		for i, sym := range path {
			id := nodeID(sym)
			if !seenNodes[id] {
				seenNodes[id] = true
				fmt.Fprintf(&b, "  %q [label=%q];\n", id, nodeLabel(sym))
			}
			if i == 0 {
				continue
			}
			from := nodeID(path[i-1])
			edgeKey := from + "->" + id
			if seenEdges[edgeKey] {
				continue
			}
			seenEdges[edgeKey] = true
			fmt.Fprintf(&b, "  %q -> %q;\n", from, id)
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func nodeID(s record.Symbol) string {
	return s.Path + "\x00" + s.Name + "\x00" + strconv.FormatUint(s.Address, 16)
}

func nodeLabel(s record.Symbol) string {
	return fmt.Sprintf("%s@%#x", s.Name, s.Address)
}

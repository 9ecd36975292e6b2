package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyagupta108/bdx/internal/graph"
	"github.com/priyagupta108/bdx/internal/record"
)

func TestWriteDOTSingleEdge(t *testing.T) {
	path := graph.Path{
		{Path: "a.o", Name: "uses_c_function", Address: 0x10},
		{Path: "a.o", Name: "c_function", Address: 0x20},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, []graph.Path{path}))
	out := buf.String()
	assert.Contains(t, out, "digraph bdx {")
	assert.Contains(t, out, "uses_c_function@0x10")
	assert.Contains(t, out, "c_function@0x20")
	assert.Contains(t, out, "->")
}

func TestWriteDOTDeduplicatesSharedEdges(t *testing.T) {
	shared := record.Symbol{Path: "a.o", Name: "shared", Address: 0x30}
	p1 := graph.Path{{Path: "a.o", Name: "src", Address: 0x10}, shared}
	p2 := graph.Path{{Path: "a.o", Name: "src", Address: 0x10}, shared}

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, []graph.Path{p1, p2}))
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "->"))
}

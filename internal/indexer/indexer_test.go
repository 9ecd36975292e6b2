package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/priyagupta108/bdx/internal/record"
)

func TestMax64(t *testing.T) {
	assert.EqualValues(t, 4, max64(1, 4))
	assert.EqualValues(t, 8, max64(8, 4))
}

func TestEstimatedWeightMissingFileIsOne(t *testing.T) {
	w := estimatedWeight("/no/such/file", 100)
	assert.EqualValues(t, 1, w)
}

func TestCountSymbols(t *testing.T) {
	changed := map[string][]record.Symbol{
		"a.o": {{Name: "f1"}, {Name: "f2"}},
		"b.o": {{Name: "f3"}},
	}
	assert.Equal(t, 3, countSymbols(changed))
}

func TestOverlapCount(t *testing.T) {
	changed := map[string][]record.Symbol{
		"a.o": {{Name: "f1"}},
		"b.o": {{Name: "f2"}},
	}
	prev := map[string]record.FileState{
		"a.o": {Path: "a.o"},
	}
	assert.Equal(t, 1, overlapCount(changed, prev))
}

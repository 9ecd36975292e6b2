package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/store"
)

func buildTestShard(t *testing.T) *store.Shard {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir)
	require.NoError(t, err)

	syms := []record.Symbol{
		{Path: "fixture.o", Name: "cxx_function", Section: ".text", Type: record.TypeFunc, Address: 0x10, Size: 16, MTime: time.Unix(100, 0)},
		{Path: "fixture.o", Name: "CppCamelCaseSymbol", Section: ".text", Type: record.TypeFunc, Address: 0x20, Size: 16, MTime: time.Unix(100, 0)},
		{Path: "fixture.o", Name: "bar", Section: ".data", Type: record.TypeObject, Address: 0x30, Size: 8, MTime: time.Unix(100, 0)},
		{Path: "fixture.o", Name: "uses_c_function", Section: ".text", Type: record.TypeFunc, Address: 0x40, Size: 16, MTime: time.Unix(100, 0), Relocations: []string{"c_function"}},
	}
	res, err := s.Commit(context.Background(), map[string][]record.Symbol{"fixture.o": syms},
		map[string]time.Time{"fixture.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	sh, err := s.Shard(res.ShardID)
	require.NoError(t, err)
	return sh
}

func namesOf(t *testing.T, sh *store.Shard, q *Query) []string {
	bm := Eval(q.Root, sh)
	var names []string
	it := bm.Iterator()
	for it.HasNext() {
		names = append(names, sh.Record(it.Next()).Name)
	}
	return names
}

func TestEvalCaseFoldedBareTerm(t *testing.T) {
	sh := buildTestShard(t)
	upper, err := Parse("Camel")
	require.NoError(t, err)
	lower, err := Parse("camel")
	require.NoError(t, err)
	assert.Equal(t, []string{"CppCamelCaseSymbol"}, namesOf(t, sh, upper))
	assert.Equal(t, []string{"CppCamelCaseSymbol"}, namesOf(t, sh, lower))
}

func TestEvalFullnameIsExact(t *testing.T) {
	sh := buildTestShard(t)
	q, err := Parse("fullname:bar")
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, namesOf(t, sh, q))
}

func TestEvalRelocations(t *testing.T) {
	sh := buildTestShard(t)
	hit, err := Parse("relocations:c_function")
	require.NoError(t, err)
	miss, err := Parse("relocations:memset")
	require.NoError(t, err)
	assert.Equal(t, []string{"uses_c_function"}, namesOf(t, sh, hit))
	assert.Empty(t, namesOf(t, sh, miss))
}

func TestEvalTypeAndSection(t *testing.T) {
	sh := buildTestShard(t)
	q, err := Parse("type:FUNC AND section:.text")
	require.NoError(t, err)
	names := namesOf(t, sh, q)
	assert.ElementsMatch(t, []string{"cxx_function", "CppCamelCaseSymbol", "uses_c_function"}, names)
	assert.NotContains(t, names, "bar")
}

func TestEvalNot(t *testing.T) {
	sh := buildTestShard(t)
	q, err := Parse("NOT type:FUNC")
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, namesOf(t, sh, q))
}

func TestEvalRangeClosure(t *testing.T) {
	sh := buildTestShard(t)
	q, err := Parse("size:8..16")
	require.NoError(t, err)
	names := namesOf(t, sh, q)
	assert.ElementsMatch(t, []string{"cxx_function", "CppCamelCaseSymbol", "bar", "uses_c_function"}, names)
}

func TestEvalWildcardPrefix(t *testing.T) {
	sh := buildTestShard(t)
	q, err := Parse("name:cxx*")
	require.NoError(t, err)
	assert.Equal(t, []string{"cxx_function"}, namesOf(t, sh, q))
}

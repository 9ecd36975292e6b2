package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyagupta108/bdx/internal/query"
	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSearchStableOrderAcrossShards(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {{Path: "a.o", Name: "alpha", Type: record.TypeFunc, Address: 0x20, Size: 4}},
	}, map[string]time.Time{"a.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), map[string][]record.Symbol{
		"b.o": {{Path: "b.o", Name: "alpha", Type: record.TypeFunc, Address: 0x10, Size: 4}},
	}, map[string]time.Time{"b.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	q, err := query.Parse("alpha")
	require.NoError(t, err)

	searcher := New(s)
	results, err := searcher.Search(q, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.o", results[0].Path)
	assert.Equal(t, "b.o", results[1].Path)
}

func TestSearchRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {
			{Path: "a.o", Name: "fnOne", Type: record.TypeFunc, Address: 0x10, Size: 4},
			{Path: "a.o", Name: "fnTwo", Type: record.TypeFunc, Address: 0x20, Size: 4},
		},
	}, map[string]time.Time{"a.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	q, err := query.Parse("type:FUNC")
	require.NoError(t, err)

	searcher := New(s)
	results, err := searcher.Search(q, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCountWithoutLimit(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {
			{Path: "a.o", Name: "fnOne", Type: record.TypeFunc, Address: 0x10, Size: 4},
			{Path: "a.o", Name: "fnTwo", Type: record.TypeFunc, Address: 0x20, Size: 4},
		},
	}, map[string]time.Time{"a.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	q, err := query.Parse("type:FUNC")
	require.NoError(t, err)

	searcher := New(s)
	count, err := searcher.Count(q)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIterateIsRestartable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {{Path: "a.o", Name: "fnOne", Type: record.TypeFunc, Address: 0x10, Size: 4}},
	}, map[string]time.Time{"a.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	q, err := query.Parse("fnOne")
	require.NoError(t, err)

	searcher := New(s)
	cursor, err := searcher.Iterate(q)
	require.NoError(t, err)

	first, ok := cursor.Next()
	require.True(t, ok)
	assert.Equal(t, "fnOne", first.Name)
	_, ok = cursor.Next()
	assert.False(t, ok)

	cursor.Reset()
	second, ok := cursor.Next()
	require.True(t, ok)
	assert.Equal(t, "fnOne", second.Name)
}

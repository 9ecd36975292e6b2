package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyagupta108/bdx/internal/record"
)

func testSymbol(path, name string, address, size uint64) record.Symbol {
	return record.Symbol{
		Path:    path,
		Name:    name,
		Section: ".text",
		Type:    record.TypeFunc,
		Address: address,
		Size:    size,
		MTime:   time.Unix(1700000000, 0).UTC(),
	}
}

func TestCommitAndQuery(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	changed := map[string][]record.Symbol{
		"a.o": {testSymbol("a.o", "doSomethingUseful", 0x1000, 16)},
		"b.o": {testSymbol("b.o", "doSomethingElse", 0x2000, 32)},
	}
	mtimes := map[string]time.Time{
		"a.o": time.Unix(1, 0),
		"b.o": time.Unix(2, 0),
	}

	res, err := s.Commit(context.Background(), changed, mtimes, nil)
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.Equal(t, 2, res.NumFiles)

	manifest, err := s.LoadManifest()
	require.NoError(t, err)
	require.Len(t, manifest.Files, 2)
	assert.Equal(t, res.ShardID, manifest.Files["a.o"].ShardID)

	shards, err := s.Shards(manifest)
	require.NoError(t, err)
	require.Len(t, shards, 1)

	sh := shards[0]
	assert.Equal(t, 2, sh.NumRecords())

	hits := sh.Term("n:something")
	assert.EqualValues(t, 2, hits.GetCardinality())

	exact := sh.Term("fn:dosomethingelse")
	assert.EqualValues(t, 1, exact.GetCardinality())

	prefixHits := sh.Prefix("n:do")
	assert.EqualValues(t, 2, prefixHits.GetCardinality())

	lo := uint64(0x1500)
	rangeHits := sh.Range("address", &lo, nil)
	assert.EqualValues(t, 1, rangeHits.GetCardinality())
}

func TestCommitNoOpWhenNothingChanged(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	res, err := s.Commit(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.NoOp)

	_, err = os.Stat(dir + "/manifest")
	assert.True(t, os.IsNotExist(err))
}

func TestCommitRemovesStaleShards(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {testSymbol("a.o", "fnOne", 0x10, 4)},
	}, map[string]time.Time{"a.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	entriesBefore, err := os.ReadDir(dir)
	require.NoError(t, err)
	shardDirsBefore := countShardDirs(entriesBefore)
	require.Equal(t, 1, shardDirsBefore)

	res2, err := s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {testSymbol("a.o", "fnOneRenamed", 0x10, 4)},
	}, map[string]time.Time{"a.o": time.Unix(2, 0)}, nil)
	require.NoError(t, err)

	entriesAfter, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, countShardDirs(entriesAfter))

	manifest, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, res2.ShardID, manifest.Files["a.o"].ShardID)
}

func TestCommitHandlesRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), map[string][]record.Symbol{
		"a.o": {testSymbol("a.o", "fnOne", 0x10, 4)},
		"b.o": {testSymbol("b.o", "fnTwo", 0x20, 4)},
	}, map[string]time.Time{"a.o": time.Unix(1, 0), "b.o": time.Unix(1, 0)}, nil)
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), nil, nil, []string{"a.o"})
	require.NoError(t, err)

	manifest, err := s.LoadManifest()
	require.NoError(t, err)
	_, stillThere := manifest.Files["a.o"]
	assert.False(t, stillThere)
	_, bStillThere := manifest.Files["b.o"]
	assert.True(t, bStillThere)
}

func TestAcquireLockRejectsConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireLock(dir)
	assert.Error(t, err)
}

func countShardDirs(entries []os.DirEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) > len(shardDirPrefix) && e.Name()[:len(shardDirPrefix)] == shardDirPrefix {
			n++
		}
	}
	return n
}

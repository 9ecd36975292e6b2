// Package store implements the shard store: a directory of immutable shard
// segments plus a manifest tracking which shard owns each indexed file,
// per §4.3.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"

	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
	"github.com/priyagupta108/bdx/internal/record"
	"github.com/priyagupta108/bdx/internal/schema"
)

const (
	segmentMagic   = 0x42445853 // "BDXS"
	segmentVersion = 1
)

// rangeEntry is one entry of a range field's sorted value index.
type rangeEntry struct {
	Value   uint64
	LocalID uint32
}

// segmentFile is the gob-encoded container written to "<shard-dir>/segment".
// A shard is built once and never mutated, so a container format that keeps
// the roaring postings and the range indexes inside Go's own type system is
// preferable to a hand-rolled byte layout with manual offsets: gob already
// gives framing, and the trailing CRC32 still gives the same corruption
// check a manual footer would.
type segmentFile struct {
	Magic      uint32
	Version    uint32
	CreatedAt  int64 // UnixNano; breaks ties when two shards hold the same (path, address)
	Records    []record.Symbol
	Dict       map[string][]byte     // term -> serialized roaring bitmap
	RangeIndex map[string][]rangeEntry
}

// Shard is an opened, read-only shard segment. Local ids are indices into
// records, which are stored sorted by (path, address) — iterating records
// in index order already yields the stable order the searcher promises.
type Shard struct {
	ID        string
	CreatedAt int64
	records   []record.Symbol
	dict      *radix.Tree
	ranges    map[string][]rangeEntry
	allIDs    *roaring.Bitmap
}

// writeSegment builds and atomically commits a new shard segment containing
// records (already expected sorted by (path, address) by the caller).
func writeSegment(dir string, records []record.Symbol) error {
	dict := make(map[string]*roaring.Bitmap)
	ranges := map[string][]rangeEntry{
		schema.FieldAddress: nil,
		schema.FieldSize:    nil,
		schema.FieldMTime:   nil,
	}

	for i, sym := range records {
		localID := uint32(i)
		for _, term := range schema.IndexTerms(sym) {
			bm, ok := dict[term]
			if !ok {
				bm = roaring.New()
				dict[term] = bm
			}
			bm.Add(localID)
		}
		for field, v := range schema.RangeValues(sym) {
			ranges[field] = append(ranges[field], rangeEntry{Value: v, LocalID: localID})
		}
	}
	for field := range ranges {
		sort.Slice(ranges[field], func(i, j int) bool { return ranges[field][i].Value < ranges[field][j].Value })
	}

	encodedDict := make(map[string][]byte, len(dict))
	for term, bm := range dict {
		var buf bytes.Buffer
		if _, err := bm.WriteTo(&buf); err != nil {
			return fmt.Errorf("serializing posting list for %q: %w", term, err)
		}
		encodedDict[term] = buf.Bytes()
	}

	sf := segmentFile{
		Magic:      segmentMagic,
		Version:    segmentVersion,
		CreatedAt:  time.Now().UnixNano(),
		Records:    records,
		Dict:       encodedDict,
		RangeIndex: ranges,
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(&sf); err != nil {
		return fmt.Errorf("encoding segment: %w", err)
	}
	checksum := crc32.ChecksumIEEE(payload.Bytes())

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating shard directory %s: %w", dir, err)
	}
	tmpPath := filepath.Join(dir, "segment.tmp")
	finalPath := filepath.Join(dir, "segment")

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}
	if _, err := f.Write(payload.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	var footer [4]byte
	footer[0] = byte(checksum)
	footer[1] = byte(checksum >> 8)
	footer[2] = byte(checksum >> 16)
	footer[3] = byte(checksum >> 24)
	if _, err := f.Write(footer[:]); err != nil {
		f.Close()
		return fmt.Errorf("writing checksum to %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("committing %s: %w", finalPath, err)
	}
	return nil
}

// openSegment opens and validates the shard segment at "<dir>/segment".
func openSegment(id, dir string) (*Shard, error) {
	path := filepath.Join(dir, "segment")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shard %s: %w", id, err)
	}
	if len(data) < 4 {
		return nil, bdxerrors.Newf(bdxerrors.ErrIndexError, "shard %s: truncated segment", id)
	}
	payload, footer := data[:len(data)-4], data[len(data)-4:]
	want := crc32.ChecksumIEEE(payload)
	got := uint32(footer[0]) | uint32(footer[1])<<8 | uint32(footer[2])<<16 | uint32(footer[3])<<24
	if want != got {
		return nil, bdxerrors.Newf(bdxerrors.ErrIndexError, "shard %s: checksum mismatch", id)
	}

	var sf segmentFile
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&sf); err != nil {
		return nil, bdxerrors.Newf(bdxerrors.ErrIndexError, "shard %s: decoding segment: %v", id, err)
	}
	if sf.Magic != segmentMagic {
		return nil, bdxerrors.Newf(bdxerrors.ErrIndexError, "shard %s: bad magic", id)
	}
	if sf.Version != segmentVersion {
		return nil, bdxerrors.Newf(bdxerrors.ErrSchemaVersionMismatch, "shard %s: segment version %d", id, sf.Version)
	}

	dict := radix.New()
	for term, raw := range sf.Dict {
		bm := roaring.New()
		if _, err := bm.ReadFrom(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("shard %s: decoding posting list for %q: %w", id, term, err)
		}
		dict.Insert(term, bm)
	}

	allIDs := roaring.New()
	if len(sf.Records) > 0 {
		allIDs.AddRange(0, uint64(len(sf.Records)))
	}

	return &Shard{
		ID:        id,
		CreatedAt: sf.CreatedAt,
		records:   sf.Records,
		dict:      dict,
		ranges:    sf.RangeIndex,
		allIDs:    allIDs,
	}, nil
}

// NumRecords reports the shard's record count.
func (s *Shard) NumRecords() int { return len(s.records) }

// Record returns the record at local id.
func (s *Shard) Record(localID uint32) record.Symbol { return s.records[localID] }

// All returns a bitmap covering every local id in the shard.
func (s *Shard) All() *roaring.Bitmap { return s.allIDs.Clone() }

// Term returns the posting list for an exact term, or an empty bitmap.
func (s *Shard) Term(term string) *roaring.Bitmap {
	if v, ok := s.dict.Get(term); ok {
		return v.(*roaring.Bitmap).Clone()
	}
	return roaring.New()
}

// Prefix returns the union of every term's posting list whose key has the
// given prefix, supporting `foo*` wildcard queries (§4.5).
func (s *Shard) Prefix(prefix string) *roaring.Bitmap {
	out := roaring.New()
	s.dict.WalkPrefix(prefix, func(key string, v interface{}) bool {
		out.Or(v.(*roaring.Bitmap))
		return false
	})
	return out
}

// Range returns the bitmap of local ids whose field value falls in
// [lo, hi] inclusive. A nil bound is unbounded on that side.
func (s *Shard) Range(field string, lo, hi *uint64) *roaring.Bitmap {
	entries := s.ranges[field]
	out := roaring.New()
	if len(entries) == 0 {
		return out
	}
	start := 0
	if lo != nil {
		start = sort.Search(len(entries), func(i int) bool { return entries[i].Value >= *lo })
	}
	end := len(entries)
	if hi != nil {
		end = sort.Search(len(entries), func(i int) bool { return entries[i].Value > *hi })
	}
	for i := start; i < end; i++ {
		out.Add(entries[i].LocalID)
	}
	return out
}

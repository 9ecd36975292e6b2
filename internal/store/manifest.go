package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/priyagupta108/bdx/internal/record"
)

// CurrentSchemaVersion identifies the on-disk shard/manifest layout. A store
// opened against a mismatched version is rejected rather than silently
// misread, per §4.3's durability requirements.
const CurrentSchemaVersion = 1

const (
	manifestFileName      = "manifest"
	schemaVersionFileName = "schema.version"
)

// Manifest maps every indexed file to the shard currently holding its
// records, per §4.3. It is the single source of truth for what a store
// contains; shard directories themselves are addressed only through it.
type Manifest struct {
	SchemaVersion int                        `json:"schema_version"`
	Files         map[string]record.FileState `json:"files"`
}

func emptyManifest() *Manifest {
	return &Manifest{SchemaVersion: CurrentSchemaVersion, Files: make(map[string]record.FileState)}
}

func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if os.IsNotExist(err) {
		return emptyManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Files == nil {
		m.Files = make(map[string]record.FileState)
	}
	return &m, nil
}

// writeAtomic commits the manifest via write-temp-then-rename so a reader
// never observes a partially written manifest.
func (m *Manifest) writeAtomic(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	tmp := filepath.Join(dir, manifestFileName+".tmp")
	final := filepath.Join(dir, manifestFileName)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("committing manifest: %w", err)
	}
	return nil
}

// referencedShards returns the set of shard ids the manifest currently
// points at.
func (m *Manifest) referencedShards() map[string]struct{} {
	set := make(map[string]struct{})
	for _, fs := range m.Files {
		set[fs.ShardID] = struct{}{}
	}
	return set
}

func loadSchemaVersion(dir string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(dir, schemaVersionFileName))
	if err != nil {
		return 0, false
	}
	var v int
	if _, err := fmt.Sscanf(string(data), "%d", &v); err != nil {
		return 0, false
	}
	return v, true
}

func writeSchemaVersion(dir string, version int) error {
	tmp := filepath.Join(dir, schemaVersionFileName+".tmp")
	final := filepath.Join(dir, schemaVersionFileName)
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%d", version)), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

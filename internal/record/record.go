// Package record defines the symbol record, the unit of indexing, and the
// per-object file state the store tracks in its manifest.
package record

import "time"

// SymbolType enumerates the ELF symbol kinds bdx records. IFUNC is the GNU
// extension (STT_GNU_IFUNC, value 10); the rest follow the generic ELF ABI.
type SymbolType string

const (
	TypeFunc    SymbolType = "FUNC"
	TypeObject  SymbolType = "OBJECT"
	TypeNotype  SymbolType = "NOTYPE"
	TypeSection SymbolType = "SECTION"
	TypeFile    SymbolType = "FILE"
	TypeTLS     SymbolType = "TLS"
	TypeCommon  SymbolType = "COMMON"
	TypeIFunc   SymbolType = "IFUNC"
)

// Valid reports whether t is one of the eight recognized kinds.
func (t SymbolType) Valid() bool {
	switch t {
	case TypeFunc, TypeObject, TypeNotype, TypeSection, TypeFile, TypeTLS, TypeCommon, TypeIFunc:
		return true
	}
	return false
}

// Symbol is the unit of indexing: one per defined symbol per object file,
// per §3 of the specification.
//
// (Path, Name, Address) is unique; two records can legitimately collide on
// Name alone (static symbols in different translation units, weak symbols).
type Symbol struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	Section     string     `json:"section"`
	Type        SymbolType `json:"type"`
	Address     uint64     `json:"address"`
	Size        uint64     `json:"size"`
	MTime       time.Time  `json:"mtime"`
	Source      string     `json:"source,omitempty"`
	Relocations []string   `json:"relocations,omitempty"`
}

// Less orders symbols by (Path, Address), the stable key the searcher and
// shard store promise in their result ordering.
func Less(a, b Symbol) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	return a.Address < b.Address
}

// FileState is one manifest entry: the path's last observed mtime and the
// shard that currently holds its records.
type FileState struct {
	Path    string    `json:"path"`
	MTime   time.Time `json:"mtime"`
	ShardID string    `json:"shard_id"`
}

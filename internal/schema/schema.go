package schema

import (
	"strings"

	"github.com/priyagupta108/bdx/internal/record"
)

// Field names, the IDENT set of the query grammar (§4.5).
const (
	FieldName        = "name"
	FieldFullname    = "fullname"
	FieldPath        = "path"
	FieldSection     = "section"
	FieldType        = "type"
	FieldAddress     = "address"
	FieldSize        = "size"
	FieldMTime       = "mtime"
	FieldRelocations = "relocations"
	FieldSource      = "source"
)

// Kind is the closed tagged-variant of indexing behaviors a field can have,
// per §9's design note replacing the dynamic field typing of the system this
// was distilled from.
type Kind int

const (
	// KindText fields are matched as a single lowercased token against the
	// tokenized term space (bare "name" queries, the implicit default).
	KindText Kind = iota
	// KindWhole fields are matched as a single lowercased, un-tokenized term
	// (fullname, section, type, relocations).
	KindWhole
	// KindPathLike fields (path, source) carry both a tokenized component
	// space and a whole-term space; a quoted query value resolves to the
	// whole-term space (exact match), a bare value to the tokenized space.
	KindPathLike
	// KindRange fields (address, size, mtime) are matched by numeric range.
	KindRange
)

var fieldKinds = map[string]Kind{
	FieldName:        KindText,
	FieldFullname:    KindWhole,
	FieldPath:        KindPathLike,
	FieldSection:     KindWhole,
	FieldType:        KindWhole,
	FieldAddress:     KindRange,
	FieldSize:        KindRange,
	FieldMTime:       KindRange,
	FieldRelocations: KindWhole,
	FieldSource:      KindPathLike,
}

// Lookup reports the Kind of a field and whether it is a recognized IDENT.
func Lookup(field string) (Kind, bool) {
	k, ok := fieldKinds[field]
	return k, ok
}

// Fields lists every recognized IDENT, for error messages.
func Fields() []string {
	return []string{
		FieldName, FieldFullname, FieldPath, FieldSection, FieldType,
		FieldAddress, FieldSize, FieldMTime, FieldRelocations, FieldSource,
	}
}

// Term-space prefixes. Every term written into a shard's dictionary is
// "<code>:<value>"; the prefix keeps unrelated fields from colliding in one
// flat namespace without needing a separate dictionary per field.
const (
	codeNameTok    = "n"
	codeFullname   = "fn"
	codePathTok    = "pt"
	codePathWhole  = "pw"
	codeSection    = "se"
	codeType       = "ty"
	codeRelocation = "rl"
	codeSourceTok  = "st"
	codeSourceWhole = "sw"
)

// TextCode returns the term-space prefix for a KindText/KindWhole field, or
// for a KindPathLike field given whether the query value was quoted (exact)
// or bare (tokenized component).
func TextCode(field string, exact bool) string {
	switch field {
	case FieldName:
		return codeNameTok
	case FieldFullname:
		return codeFullname
	case FieldSection:
		return codeSection
	case FieldType:
		return codeType
	case FieldRelocations:
		return codeRelocation
	case FieldPath:
		if exact {
			return codePathWhole
		}
		return codePathTok
	case FieldSource:
		if exact {
			return codeSourceWhole
		}
		return codeSourceTok
	}
	return ""
}

// Term builds a fully-qualified dictionary key for a field code and a raw
// (not yet normalized) value.
func Term(code, value string) string {
	return code + ":" + strings.ToLower(value)
}

// IndexTerms returns every text term a symbol record contributes to a
// shard's dictionary. Range fields are handled separately via RangeValues.
func IndexTerms(sym record.Symbol) []string {
	var terms []string

	for _, tok := range SplitIdentifier(sym.Name) {
		terms = append(terms, Term(codeNameTok, tok))
	}
	terms = append(terms, Term(codeFullname, sym.Name))

	for _, tok := range SplitPath(sym.Path) {
		terms = append(terms, Term(codePathTok, tok))
	}
	terms = append(terms, Term(codePathWhole, sym.Path))

	if sym.Section != "" {
		terms = append(terms, Term(codeSection, sym.Section))
	}
	terms = append(terms, Term(codeType, string(sym.Type)))

	for _, target := range sym.Relocations {
		if target == "" {
			continue
		}
		terms = append(terms, Term(codeRelocation, target))
	}

	if sym.Source != "" {
		for _, tok := range SplitPath(sym.Source) {
			terms = append(terms, Term(codeSourceTok, tok))
		}
		terms = append(terms, Term(codeSourceWhole, sym.Source))
	}

	return terms
}

// RangeValues returns the numeric value for each range field of a record,
// keyed by field name.
func RangeValues(sym record.Symbol) map[string]uint64 {
	return map[string]uint64{
		FieldAddress: sym.Address,
		FieldSize:    sym.Size,
		FieldMTime:   uint64(sym.MTime.UnixNano()),
	}
}

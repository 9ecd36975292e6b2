// Package elfread extracts symbol records from a single ELF object file:
// defined symbols and, optionally, the relocation targets that land inside
// each symbol's address range. This is the one part of bdx that leans on a
// standard-library package instead of a third-party one — the ELF parsing
// library is explicitly out of scope per the specification ("only the
// extracted fields the core consumes are specified"), and no third-party
// ELF/DWARF library appears anywhere in the retrieval pack this module was
// grounded on; debug/elf and debug/dwarf are the only implementation
// available, and the specification itself sanctions treating them as the
// external collaborator.
package elfread

import (
	"debug/elf"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/priyagupta108/bdx/internal/record"
)

// Options controls how a single object file is parsed, per §4.1/§4.4.
type Options struct {
	IndexRelocations bool
	MinSymbolSize    uint64
	UseDwarfdump     bool
	DwarfdumpPath    string
}

// Parse reads one ELF object file and returns its defined symbols. The
// returned records are sorted by (Path, Address) — the order every shard
// stores its records in.
//
// A file that parses to zero qualifying symbols still returns exactly one
// placeholder record (empty name, empty section, NOTYPE, address/size 0) so
// that a file with no indexable symbols remains distinguishable from a file
// never indexed at all.
func Parse(path string, mtime time.Time, opts Options) ([]record.Symbol, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	symbols, err := f.Symbols()
	if err != nil && len(symbols) == 0 {
		// A static object with no .symtab at all (stripped) is not
		// malformed, just empty; only report an error if the file
		// could not even be read.
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("reading symbols from %s: %w", path, err)
		}
	}

	defined := collectDefined(f, symbols, opts.MinSymbolSize)

	var out []record.Symbol
	for _, d := range defined {
		out = append(out, record.Symbol{
			Path:    path,
			Name:    d.sym.Name,
			Section: d.section,
			Type:    d.kind,
			Address: d.sym.Value,
			Size:    d.sym.Size,
			MTime:   mtime,
		})
	}

	if opts.IndexRelocations && len(defined) > 0 {
		if err := attachRelocations(f, symbols, defined, out); err != nil {
			return nil, fmt.Errorf("reading relocations in %s: %w", path, err)
		}
	}

	src := sourceFile(path, f, opts)
	if src != "" {
		for i := range out {
			out[i].Source = src
		}
	}

	if len(out) == 0 {
		out = append(out, record.Symbol{
			Path:    path,
			Name:    "",
			Section: "",
			Type:    record.TypeNotype,
			Address: 0,
			Size:    0,
			MTime:   mtime,
			Source:  src,
		})
	}

	sort.Slice(out, func(i, j int) bool { return record.Less(out[i], out[j]) })
	return out, nil
}

type definedSymbol struct {
	sym     elf.Symbol
	section string
	kind    record.SymbolType
	secIdx  elf.SectionIndex
}

// collectDefined enumerates every symbol table entry with a non-undefined
// section index and size >= minSize, per §4.1 step 1-2.
func collectDefined(f *elf.File, symbols []elf.Symbol, minSize uint64) []definedSymbol {
	var defined []definedSymbol
	for _, sym := range symbols {
		if sym.Section == elf.SHN_UNDEF {
			continue
		}
		if sym.Size < minSize {
			continue
		}
		kind := symbolType(sym)
		// Plain section symbols and file symbols carry no useful address
		// range for relocation resolution but are still defined records.
		sectionName := sectionName(f, sym.Section)
		defined = append(defined, definedSymbol{
			sym:     sym,
			section: sectionName,
			kind:    kind,
			secIdx:  sym.Section,
		})
	}
	return defined
}

func sectionName(f *elf.File, idx elf.SectionIndex) string {
	switch idx {
	case elf.SHN_ABS:
		return "*ABS*"
	case elf.SHN_COMMON:
		return "*COM*"
	}
	if int(idx) < len(f.Sections) {
		return f.Sections[idx].Name
	}
	return ""
}

// symbolType maps the low 4 bits of st_info (STT_*) onto the closed record
// enum. STT_GNU_IFUNC (10) is a GNU extension reusing the STT_LOOS slot.
func symbolType(sym elf.Symbol) record.SymbolType {
	switch elf.ST_TYPE(sym.Info) {
	case elf.STT_FUNC:
		return record.TypeFunc
	case elf.STT_OBJECT:
		return record.TypeObject
	case elf.STT_SECTION:
		return record.TypeSection
	case elf.STT_FILE:
		return record.TypeFile
	case elf.STT_COMMON:
		return record.TypeCommon
	case elf.STT_TLS:
		return record.TypeTLS
	case 10: // STT_GNU_IFUNC / STT_LOOS
		return record.TypeIFunc
	default:
		return record.TypeNotype
	}
}

package elfread

import (
	"debug/elf"
	"sort"

	"github.com/priyagupta108/bdx/internal/record"
)

// attachRelocations scans every relocation section whose target section
// hosts at least one defined symbol (§4.1 step 3) and appends the resolved
// target name to the relocation list of whichever defined symbol's address
// range contains the patch offset. out[i] must correspond to defined[i] —
// callers invoke this before the final (path, address) sort.
func attachRelocations(f *elf.File, allSymbols []elf.Symbol, defined []definedSymbol, out []record.Symbol) error {
	groups := groupBySection(defined)

	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_REL && sec.Type != elf.SHT_RELA {
			continue
		}
		target := elf.SectionIndex(sec.Info)
		group, ok := groups[target]
		if !ok || len(group) == 0 {
			continue
		}

		data, err := sec.Data()
		if err != nil {
			return err
		}

		entries, err := decodeRelocations(f, sec, data)
		if err != nil {
			return err
		}

		for _, e := range entries {
			name := resolveSymbolName(allSymbols, e.symIdx)
			idx := findOwner(defined, group, e.offset)
			if idx < 0 {
				continue
			}
			out[idx].Relocations = append(out[idx].Relocations, name)
		}
	}
	return nil
}

type relEntry struct {
	offset uint64
	symIdx uint32
}

// decodeRelocations reads raw REL/RELA section bytes for any ELF class,
// since debug/elf does not expose a generic reader for relocatable object
// files (only for dynamic relocations in linked binaries).
func decodeRelocations(f *elf.File, sec *elf.Section, data []byte) ([]relEntry, error) {
	bo := f.ByteOrder
	var entries []relEntry

	switch f.Class {
	case elf.ELFCLASS64:
		entsize := 16
		hasAddend := sec.Type == elf.SHT_RELA
		if hasAddend {
			entsize = 24
		}
		for off := 0; off+entsize <= len(data); off += entsize {
			offset := bo.Uint64(data[off:])
			info := bo.Uint64(data[off+8:])
			entries = append(entries, relEntry{offset: offset, symIdx: uint32(info >> 32)})
		}
	case elf.ELFCLASS32:
		entsize := 8
		hasAddend := sec.Type == elf.SHT_RELA
		if hasAddend {
			entsize = 12
		}
		for off := 0; off+entsize <= len(data); off += entsize {
			offset := uint64(bo.Uint32(data[off:]))
			info := bo.Uint32(data[off+4:])
			entries = append(entries, relEntry{offset: offset, symIdx: info >> 8})
		}
	}
	return entries, nil
}

// resolveSymbolName maps a raw ELF symbol table index to a name. f.Symbols
// omits the reserved null entry at index 0, so slice index i holds ELF
// symbol index i+1.
func resolveSymbolName(symbols []elf.Symbol, symIdx uint32) string {
	if symIdx == 0 {
		return ""
	}
	i := int(symIdx) - 1
	if i < 0 || i >= len(symbols) {
		return ""
	}
	return symbols[i].Name
}

type ownerGroup struct {
	idx     int
	address uint64
	size    uint64
}

func groupBySection(defined []definedSymbol) map[elf.SectionIndex][]ownerGroup {
	groups := make(map[elf.SectionIndex][]ownerGroup)
	for i, d := range defined {
		groups[d.secIdx] = append(groups[d.secIdx], ownerGroup{idx: i, address: d.sym.Value, size: d.sym.Size})
	}
	for k := range groups {
		g := groups[k]
		sort.Slice(g, func(i, j int) bool { return g[i].address < g[j].address })
		groups[k] = g
	}
	return groups
}

// findOwner returns the index (into defined/out) of the unique symbol whose
// [address, address+size) contains offset, or -1 if none does.
func findOwner(defined []definedSymbol, group []ownerGroup, offset uint64) int {
	i := sort.Search(len(group), func(i int) bool { return group[i].address > offset })
	if i == 0 {
		return -1
	}
	cand := group[i-1]
	end := cand.address + cand.size
	if offset >= cand.address && offset < end {
		return cand.idx
	}
	return -1
}

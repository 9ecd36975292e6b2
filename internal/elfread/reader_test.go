package elfread

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyagupta108/bdx/internal/record"
)

func makeSym(sttType uint8) elf.Symbol {
	return elf.Symbol{Info: sttType}
}

// buildMinimalELF hand-assembles a tiny ELF64 relocatable object with two
// FUNC symbols in .text and a single RELA relocation inside the first
// symbol's address range targeting the second, exercising the same shapes
// a real compiler output would without depending on a toolchain being
// present in the test environment.
func buildMinimalELF(t *testing.T, withRelocation bool) string {
	t.Helper()

	const (
		shNull = iota
		shText
		shSymtab
		shStrtab
		shRelaText
		shShstrtab
		shCount
	)

	text := bytes.Repeat([]byte{0x90}, 16)

	strtab := []byte{0x00}
	strtab = append(strtab, []byte("sym_one\x00")...)
	symOneNameOff := uint32(1)
	strtab = append(strtab, []byte("sym_two\x00")...)
	symTwoNameOff := uint32(len(strtab) - len("sym_two\x00"))

	type elf64Sym struct {
		NameOff uint32
		Info    uint8
		Other   uint8
		Shndx   uint16
		Value   uint64
		Size    uint64
	}
	writeSym := func(buf *bytes.Buffer, s elf64Sym) {
		binary.Write(buf, binary.LittleEndian, s.NameOff)
		binary.Write(buf, binary.LittleEndian, s.Info)
		binary.Write(buf, binary.LittleEndian, s.Other)
		binary.Write(buf, binary.LittleEndian, s.Shndx)
		binary.Write(buf, binary.LittleEndian, s.Value)
		binary.Write(buf, binary.LittleEndian, s.Size)
	}

	var symtab bytes.Buffer
	writeSym(&symtab, elf64Sym{}) // reserved null entry
	writeSym(&symtab, elf64Sym{NameOff: symOneNameOff, Info: 0x12, Shndx: shText, Value: 0, Size: 8})
	writeSym(&symtab, elf64Sym{NameOff: symTwoNameOff, Info: 0x12, Shndx: shText, Value: 8, Size: 8})

	var relaText bytes.Buffer
	if withRelocation {
		binary.Write(&relaText, binary.LittleEndian, uint64(2))                  // r_offset, inside sym_one's range
		binary.Write(&relaText, binary.LittleEndian, uint64(2)<<32|uint64(2))    // r_info: sym index 2, type 2
		binary.Write(&relaText, binary.LittleEndian, int64(0))                   // r_addend
	}

	shstrtab := []byte{0x00}
	nameOff := func(name string) uint32 {
		off := uint32(len(shstrtab))
		shstrtab = append(shstrtab, append([]byte(name), 0x00)...)
		return off
	}
	textName := nameOff(".text")
	symtabName := nameOff(".symtab")
	strtabName := nameOff(".strtab")
	relaTextName := nameOff(".rela.text")
	shstrtabName := nameOff(".shstrtab")

	const ehdrSize = 64
	const shdrSize = 64

	textOff := int64(ehdrSize)
	symtabOff := textOff + int64(len(text))
	strtabOff := symtabOff + int64(symtab.Len())
	relaTextOff := strtabOff + int64(len(strtab))
	shstrtabOff := relaTextOff + int64(relaText.Len())
	shoff := shstrtabOff + int64(len(shstrtab))

	type elf64Shdr struct {
		Name      uint32
		Type      uint32
		Flags     uint64
		Addr      uint64
		Offset    uint64
		Size      uint64
		Link      uint32
		Info      uint32
		Addralign uint64
		Entsize   uint64
	}
	writeShdr := func(buf *bytes.Buffer, s elf64Shdr) {
		binary.Write(buf, binary.LittleEndian, s.Name)
		binary.Write(buf, binary.LittleEndian, s.Type)
		binary.Write(buf, binary.LittleEndian, s.Flags)
		binary.Write(buf, binary.LittleEndian, s.Addr)
		binary.Write(buf, binary.LittleEndian, s.Offset)
		binary.Write(buf, binary.LittleEndian, s.Size)
		binary.Write(buf, binary.LittleEndian, s.Link)
		binary.Write(buf, binary.LittleEndian, s.Info)
		binary.Write(buf, binary.LittleEndian, s.Addralign)
		binary.Write(buf, binary.LittleEndian, s.Entsize)
	}

	var shdrs bytes.Buffer
	writeShdr(&shdrs, elf64Shdr{}) // SHT_NULL
	writeShdr(&shdrs, elf64Shdr{Name: textName, Type: 1, Flags: 0x6, Offset: uint64(textOff), Size: uint64(len(text)), Addralign: 1})
	writeShdr(&shdrs, elf64Shdr{Name: symtabName, Type: 2, Offset: uint64(symtabOff), Size: uint64(symtab.Len()), Link: shStrtab, Info: 1, Addralign: 8, Entsize: 24})
	writeShdr(&shdrs, elf64Shdr{Name: strtabName, Type: 3, Offset: uint64(strtabOff), Size: uint64(len(strtab)), Addralign: 1})
	relaSize := uint64(0)
	if withRelocation {
		relaSize = uint64(relaText.Len())
	}
	writeShdr(&shdrs, elf64Shdr{Name: relaTextName, Type: 4, Offset: uint64(relaTextOff), Size: relaSize, Link: shSymtab, Info: shText, Addralign: 8, Entsize: 24})
	writeShdr(&shdrs, elf64Shdr{Name: shstrtabName, Type: 3, Offset: uint64(shstrtabOff), Size: uint64(len(shstrtab)), Addralign: 1})

	var out bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}
	out.Write(ident[:])
	binary.Write(&out, binary.LittleEndian, uint16(1))        // e_type ET_REL
	binary.Write(&out, binary.LittleEndian, uint16(0x3E))      // e_machine EM_X86_64
	binary.Write(&out, binary.LittleEndian, uint32(1))         // e_version
	binary.Write(&out, binary.LittleEndian, uint64(0))         // e_entry
	binary.Write(&out, binary.LittleEndian, uint64(0))         // e_phoff
	binary.Write(&out, binary.LittleEndian, uint64(shoff))     // e_shoff
	binary.Write(&out, binary.LittleEndian, uint32(0))         // e_flags
	binary.Write(&out, binary.LittleEndian, uint16(ehdrSize))  // e_ehsize
	binary.Write(&out, binary.LittleEndian, uint16(0))         // e_phentsize
	binary.Write(&out, binary.LittleEndian, uint16(0))         // e_phnum
	binary.Write(&out, binary.LittleEndian, uint16(shdrSize))  // e_shentsize
	binary.Write(&out, binary.LittleEndian, uint16(shCount))   // e_shnum
	binary.Write(&out, binary.LittleEndian, uint16(shShstrtab)) // e_shstrndx

	out.Write(text)
	out.Write(symtab.Bytes())
	out.Write(strtab)
	out.Write(relaText.Bytes())
	out.Write(shstrtab)
	out.Write(shdrs.Bytes())

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.o")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

func TestParseDefinedSymbolsAndRelocations(t *testing.T) {
	path := buildMinimalELF(t, true)
	mtime := time.Unix(1700000000, 0).UTC()

	syms, err := Parse(path, mtime, Options{IndexRelocations: true})
	require.NoError(t, err)
	require.Len(t, syms, 2)

	assert.Equal(t, "sym_one", syms[0].Name)
	assert.EqualValues(t, 0, syms[0].Address)
	assert.EqualValues(t, 8, syms[0].Size)
	assert.Equal(t, record.TypeFunc, syms[0].Type)
	assert.Equal(t, ".text", syms[0].Section)
	require.Len(t, syms[0].Relocations, 1)
	assert.Equal(t, "sym_two", syms[0].Relocations[0])

	assert.Equal(t, "sym_two", syms[1].Name)
	assert.EqualValues(t, 8, syms[1].Address)
	assert.Empty(t, syms[1].Relocations)
}

func TestParseWithoutRelocationIndexing(t *testing.T) {
	path := buildMinimalELF(t, true)
	syms, err := Parse(path, time.Now(), Options{IndexRelocations: false})
	require.NoError(t, err)
	for _, s := range syms {
		assert.Empty(t, s.Relocations)
	}
}

func TestParseRespectsMinSymbolSize(t *testing.T) {
	path := buildMinimalELF(t, false)
	syms, err := Parse(path, time.Now(), Options{MinSymbolSize: 100})
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, record.TypeNotype, syms[0].Type)
	assert.Equal(t, "", syms[0].Name)
}

func TestSymbolType(t *testing.T) {
	assert.Equal(t, record.TypeFunc, symbolType(makeSym(2)))
	assert.Equal(t, record.TypeObject, symbolType(makeSym(1)))
	assert.Equal(t, record.TypeIFunc, symbolType(makeSym(10)))
	assert.Equal(t, record.TypeNotype, symbolType(makeSym(0)))
}

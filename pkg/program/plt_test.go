package program

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

func relaEntry(gotAddr uint64, relType uint32, symIdx uint32) []byte {
	entry := make([]byte, elf64RelaSize)
	binary.LittleEndian.PutUint64(entry[0:8], gotAddr)
	binary.LittleEndian.PutUint64(entry[8:16], uint64(symIdx)<<32|uint64(relType))
	// addend (bytes 16:24) is unused by relaEntries.
	return entry
}

func TestRelaEntries_JumpSlotResolvesSymbol(t *testing.T) {
	dynsyms := []elf.Symbol{{Name: "malloc"}, {Name: "puts"}}

	data := append([]byte{}, relaEntry(0x4000, rX86_64JumpSlot, 2)...) // symIdx 2 -> dynsyms[1] "puts"
	data = append(data, relaEntry(0x4008, rX86_64GlobDat, 1)...)      // symIdx 1 -> dynsyms[0] "malloc"

	got := relaEntries(data, dynsyms)

	if got[0x4000] != "puts" {
		t.Fatalf("got[0x4000] = %q, want puts", got[0x4000])
	}
	if got[0x4008] != "malloc" {
		t.Fatalf("got[0x4008] = %q, want malloc", got[0x4008])
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestRelaEntries_IgnoresUnrelatedRelocTypes(t *testing.T) {
	dynsyms := []elf.Symbol{{Name: "malloc"}}

	data := relaEntry(0x4000, 1 /* R_X86_64_64, not JUMP_SLOT/GLOB_DAT */, 1)

	got := relaEntries(data, dynsyms)
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0 for an unrelated relocation type", len(got))
	}
}

func TestRelaEntries_IgnoresOutOfRangeSymbolIndex(t *testing.T) {
	dynsyms := []elf.Symbol{{Name: "malloc"}}

	data := relaEntry(0x4000, rX86_64JumpSlot, 0)                // symIdx 0 is reserved/unresolved
	data = append(data, relaEntry(0x4008, rX86_64JumpSlot, 99)...) // out of range

	got := relaEntries(data, dynsyms)
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0 (both entries have unusable symbol indices)", len(got))
	}
}

func fakeSection(name string, addr, size uint64) *elf.Section {
	return &elf.Section{SectionHeader: elf.SectionHeader{Name: name, Addr: addr, Size: size}}
}

func TestIsPLTSection(t *testing.T) {
	f := &elf.File{Sections: []*elf.Section{fakeSection(".plt", 0x2000, 0x100)}}

	if !isPLTSection(f, 0x2010) {
		t.Fatal("0x2010 is within .plt [0x2000, 0x2100), want true")
	}
	if isPLTSection(f, 0x3000) {
		t.Fatal("0x3000 is outside .plt, want false")
	}
}

func TestPltSymbolAt_DirectHitOnMap(t *testing.T) {
	p := New()
	p.importsByPLT[0x2010] = "malloc"

	name, ok := p.pltSymbolAt(0x2010)
	if !ok || name != "malloc" {
		t.Fatalf("pltSymbolAt(0x2010) = (%q, %v), want (malloc, true)", name, ok)
	}
}

func TestPltSymbolAt_StepsBackToStubStart(t *testing.T) {
	p := New()
	p.file = &elf.File{Sections: []*elf.Section{fakeSection(".plt.sec", 0x2000, 0x100)}}
	p.importsByPLT[0x2000] = "puts" // stub start, 16-byte stub window

	// 0x2005 lands mid-stub; pltSymbolAt should step back to 0x2000.
	name, ok := p.pltSymbolAt(0x2005)
	if !ok || name != "puts" {
		t.Fatalf("pltSymbolAt(0x2005) = (%q, %v), want (puts, true)", name, ok)
	}
}

func TestPltSymbolAt_NoMatch(t *testing.T) {
	p := New()
	p.file = &elf.File{Sections: []*elf.Section{fakeSection(".plt", 0x2000, 0x100)}}

	_, ok := p.pltSymbolAt(0x9999)
	if ok {
		t.Fatal("pltSymbolAt(0x9999) should not resolve, address is outside any known section/stub")
	}
}

func TestResolvePLTStubs_RecordsGOTBackedStub(t *testing.T) {
	p := New()

	// ff 25 00 00 00 00 -> jmp qword ptr [rip+0]; GOT slot = next instruction
	// address (base + 6 + 0) = base + 6.
	data := []byte{0xff, 0x25, 0x00, 0x00, 0x00, 0x00}
	base := uint64(0x1000)

	p.resolvePLTStubs(base, data, map[uint64]string{base + 6: "free"})

	if p.importsByPLT[base] != "free" {
		t.Fatalf("importsByPLT[base] = %q, want free", p.importsByPLT[base])
	}
}

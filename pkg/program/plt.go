package program

import (
	"debug/elf"
	"encoding/binary"

	"golang.org/x/arch/x86/x86asm"
)

const (
	rX86_64JumpSlot = 7  // R_X86_64_JUMP_SLOT
	rX86_64GlobDat  = 6  // R_X86_64_GLOB_DAT
	elf64RelaSize   = 24 // sizeof(Elf64_Rela)
)

// loadPLT resolves the PLT stub addresses and their backing GOT slots to
// imported symbol names, so that CallSites can classify a CALL into a PLT
// stub as Dynamic(symbol) instead of Direct. Failure to resolve any of it
// is non-fatal: a CALL into a .plt/.plt.sec stub with no resolved name is
// classified as Dynamic("unknown").
func (p *Program) loadPLT() {
	gotToSymbol := p.resolveGOTSlots()
	if len(gotToSymbol) == 0 {
		return
	}
	p.importsByGOT = gotToSymbol

	for _, secName := range []string{".plt.sec", ".plt"} {
		sec := p.file.Section(secName)
		if sec == nil {
			continue
		}

		data, err := sec.Data()
		if err != nil {
			continue
		}

		p.resolvePLTStubs(sec.Addr, data, gotToSymbol)
	}
}

// resolveGOTSlots parses .rela.plt (falling back to .rela.dyn) for
// R_X86_64_JUMP_SLOT/GLOB_DAT relocations and maps each GOT slot address to
// the dynamic symbol name that will be resolved into it at load time.
func (p *Program) resolveGOTSlots() map[uint64]string {
	dynsyms, err := p.file.DynamicSymbols()
	if err != nil {
		return nil
	}

	result := make(map[uint64]string)

	for _, secName := range []string{".rela.plt", ".rela.dyn"} {
		sec := p.file.Section(secName)
		if sec == nil {
			continue
		}

		data, err := sec.Data()
		if err != nil {
			continue
		}

		for gotAddr, name := range relaEntries(data, dynsyms) {
			result[gotAddr] = name
		}
	}

	return result
}

// relaEntries decodes a raw Elf64_Rela table (as found in .rela.plt or
// .rela.dyn) into a GOT-slot-address -> symbol-name map, keeping only
// R_X86_64_JUMP_SLOT/GLOB_DAT entries with a resolvable symbol index.
// Pulled out of resolveGOTSlots so the relocation-table parsing can be
// exercised directly against a hand-built byte buffer, without needing a
// real ELF file backing dynsyms.
func relaEntries(data []byte, dynsyms []elf.Symbol) map[uint64]string {
	result := make(map[uint64]string)

	for off := 0; off+elf64RelaSize <= len(data); off += elf64RelaSize {
		entry := data[off : off+elf64RelaSize]
		gotAddr := binary.LittleEndian.Uint64(entry[0:8])
		info := binary.LittleEndian.Uint64(entry[8:16])
		relType := info & 0xffffffff
		symIdx := info >> 32

		if relType != rX86_64JumpSlot && relType != rX86_64GlobDat {
			continue
		}
		if symIdx == 0 || int(symIdx-1) >= len(dynsyms) {
			continue
		}

		result[gotAddr] = dynsyms[symIdx-1].Name
	}

	return result
}

// resolvePLTStubs decodes each instruction in a .plt/.plt.sec section and
// records, for every CALL/JMP through a [rip+disp] memory operand, which
// imported symbol that GOT slot belongs to.
func (p *Program) resolvePLTStubs(base uint64, data []byte, gotToSymbol map[uint64]string) {
	off := 0
	for off < len(data) {
		inst, err := x86asm.Decode(data[off:], 64)
		if err != nil || inst.Len == 0 {
			off++
			continue
		}

		if inst.Op == x86asm.JMP || inst.Op == x86asm.CALL {
			if mem, ok := inst.Args[0].(x86asm.Mem); ok && mem.Base == x86asm.RIP {
				nextAddr := base + uint64(off) + uint64(inst.Len)
				gotAddr := uint64(int64(nextAddr) + mem.Disp)

				if name, ok := gotToSymbol[gotAddr]; ok {
					p.importsByPLT[base+uint64(off)] = name
				}
			}
		}

		off += inst.Len
	}
}

// pltSymbolAt returns the imported symbol name if addr falls within a
// resolved PLT stub, stepping back to the nearest stub start within a
// typical 16-byte stub window when addr doesn't land exactly on one.
func (p *Program) pltSymbolAt(addr uint64) (string, bool) {
	if name, ok := p.importsByPLT[addr]; ok {
		return name, true
	}

	if p.file == nil {
		return "", false
	}

	for _, secName := range []string{".plt.sec", ".plt"} {
		sec := p.file.Section(secName)
		if sec == nil || addr < sec.Addr || addr >= sec.Addr+sec.Size {
			continue
		}

		const stubSize = 16
		stubStart := sec.Addr + ((addr - sec.Addr) / stubSize * stubSize)
		if name, ok := p.importsByPLT[stubStart]; ok {
			return name, true
		}
	}

	return "", false
}

func isPLTSection(f *elf.File, addr uint64) bool {
	if f == nil {
		return false
	}

	for _, name := range []string{".plt.sec", ".plt"} {
		sec := f.Section(name)
		if sec != nil && addr >= sec.Addr && addr < sec.Addr+sec.Size {
			return true
		}
	}

	return false
}

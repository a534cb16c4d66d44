package program

import (
	"debug/elf"
	"testing"

	"golang.org/x/arch/x86/x86asm"
)

func decodeOrFatal(t *testing.T, code []byte) x86asm.Inst {
	t.Helper()

	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		t.Fatalf("failed to decode test instruction: %v", err)
	}

	return inst
}

func TestClassifyCall_Direct(t *testing.T) {
	p := New()
	p.textAddr = 0x1000
	p.textData = make([]byte, 0x1000)

	// e8 00 00 00 00 -> call rel32=0; target = addr + len(5) + 0.
	code := []byte{0xe8, 0x00, 0x00, 0x00, 0x00}
	addr := p.textAddr + 0x10
	inst := decodeOrFatal(t, code)

	site := p.classifyCall(addr, inst, 0x10)

	if site.Kind != Direct {
		t.Fatalf("Kind = %v, want Direct", site.Kind)
	}
	if site.Offset != 0x10 {
		t.Fatalf("Offset = %#x, want the function-relative offset 0x10, not the absolute address", site.Offset)
	}

	wantTarget := addr + 5
	if site.TargetAddress != wantTarget {
		t.Fatalf("TargetAddress = %#x, want %#x", site.TargetAddress, wantTarget)
	}
	if site.TargetAddress < p.textAddr || site.TargetAddress >= p.textAddr+uint64(len(p.textData)) {
		t.Fatalf("Direct call target %#x is not within the binary's text range [%#x, %#x)",
			site.TargetAddress, p.textAddr, p.textAddr+uint64(len(p.textData)))
	}
}

func TestClassifyCall_Indirect_Register(t *testing.T) {
	p := New()

	// ff d0 -> call rax
	code := []byte{0xff, 0xd0}
	inst := decodeOrFatal(t, code)

	site := p.classifyCall(0x2000, inst, 0)

	if site.Kind != Indirect {
		t.Fatalf("Kind = %v, want Indirect", site.Kind)
	}
	if site.TargetSymbolName != "RAX" {
		t.Fatalf("TargetSymbolName = %q, want RAX", site.TargetSymbolName)
	}
}

func TestClassifyCall_Dynamic_ViaGOTRelative(t *testing.T) {
	p := New()

	// ff 15 00 00 00 00 -> call qword ptr [rip+0]; GOT slot = next
	// instruction address (addr + 6 + 0).
	code := []byte{0xff, 0x15, 0x00, 0x00, 0x00, 0x00}
	addr := uint64(0x3000)
	inst := decodeOrFatal(t, code)

	gotAddr := addr + uint64(inst.Len)
	p.importsByGOT[gotAddr] = "puts"

	site := p.classifyCall(addr, inst, 0)

	if site.Kind != Dynamic {
		t.Fatalf("Kind = %v, want Dynamic", site.Kind)
	}
	if site.TargetSymbolName != "puts" {
		t.Fatalf("TargetSymbolName = %q, want puts", site.TargetSymbolName)
	}
}

func TestClassifyCall_Dynamic_ViaPLTStubMap(t *testing.T) {
	p := New()

	// e8 00 00 00 00 -> call rel32=0, target = addr + 5.
	code := []byte{0xe8, 0x00, 0x00, 0x00, 0x00}
	addr := uint64(0x4000)
	inst := decodeOrFatal(t, code)

	target := addr + uint64(inst.Len)
	p.importsByPLT[target] = "malloc"

	site := p.classifyCall(addr, inst, 0)

	if site.Kind != Dynamic {
		t.Fatalf("Kind = %v, want Dynamic (resolved via PLT stub map)", site.Kind)
	}
	if site.TargetSymbolName != "malloc" {
		t.Fatalf("TargetSymbolName = %q, want malloc", site.TargetSymbolName)
	}
}

func TestClassifyCall_Dynamic_ViaPLTSectionFallback(t *testing.T) {
	p := New()
	p.file = &elf.File{Sections: []*elf.Section{fakeSection(".plt", 0x5000, 0x100)}}

	// e8 ... -> call rel32 landing inside the fake .plt section, with no
	// resolved stub name: falls back to Dynamic("unknown") rather than
	// misclassifying a PLT jump as Direct local code.
	code := []byte{0xe8, 0xfb, 0x0f, 0x00, 0x00} // rel32 = 0x0ffb
	addr := uint64(0x4000)
	inst := decodeOrFatal(t, code)

	site := p.classifyCall(addr, inst, 0)

	wantTarget := addr + uint64(inst.Len) + 0x0ffb
	if site.TargetAddress != wantTarget {
		t.Fatalf("TargetAddress = %#x, want %#x", site.TargetAddress, wantTarget)
	}
	if site.Kind != Dynamic {
		t.Fatalf("Kind = %v, want Dynamic (target lands in .plt with no resolved stub)", site.Kind)
	}
	if site.TargetSymbolName != "unknown" {
		t.Fatalf("TargetSymbolName = %q, want unknown", site.TargetSymbolName)
	}
}

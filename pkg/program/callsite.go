package program

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

// CallSiteKind classifies how a CallSite transfers control.
type CallSiteKind int

const (
	// Direct is an immediate-target CALL resolved to a local FunctionSymbol.
	Direct CallSiteKind = iota

	// Dynamic is a CALL resolved (directly or via a PLT stub) to an
	// imported symbol outside the binary; it may lack source info.
	Dynamic

	// Indirect is any other register/memory-indirect CALL whose target
	// the disassembler cannot resolve without runtime information.
	Indirect
)

func (k CallSiteKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Dynamic:
		return "dynamic"
	case Indirect:
		return "indirect"
	default:
		return "unknown"
	}
}

// CallSite is one CALL instruction inside a function's byte range.
type CallSite struct {
	// Offset is relative to the owning function's start address.
	Offset uint64

	Kind CallSiteKind

	// TargetAddress is valid when Kind == Direct.
	TargetAddress uint64

	// TargetSymbolName is valid when Kind == Dynamic (the PLT-imported
	// symbol name) or when Kind == Indirect (the register/mode string,
	// e.g. "RAX" or "[RAX+0x8]").
	TargetSymbolName string

	Location SourceLocation

	// Callee is the resolved FunctionSymbol for Direct and (when locally
	// known) Dynamic call sites. Zero value when unresolved.
	Callee FunctionSymbol
}

// CallSites decodes fn's machine code and returns every CALL instruction
// found, classified and annotated with source location. Results are cached
// per function.
func (p *Program) CallSites(fn FunctionSymbol) ([]CallSite, error) {
	key := callSitesKey{rawName: fn.RawName, addr: fn.Address}

	p.callSitesMu.RLock()
	if cs, ok := p.callSites[key]; ok {
		p.callSitesMu.RUnlock()
		return cs, nil
	}
	p.callSitesMu.RUnlock()

	code, err := p.codeFor(fn)
	if err != nil {
		return nil, err
	}

	sites := p.decodeCallSites(fn, code)

	p.callSitesMu.Lock()
	p.callSites[key] = sites
	p.callSitesMu.Unlock()

	return sites, nil
}

func (p *Program) codeFor(fn FunctionSymbol) ([]byte, error) {
	if fn.Address < p.textAddr || fn.Address+fn.Length > p.textAddr+uint64(len(p.textData)) {
		return nil, errors.Wrapf(ErrFunctionNotFound, "%s not within .text", fn.Name)
	}

	start := fn.Address - p.textAddr
	end := start + fn.Length

	return p.textData[start:end], nil
}

func (p *Program) decodeCallSites(fn FunctionSymbol, code []byte) []CallSite {
	var sites []CallSite

	off := 0
	for off < len(code) {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil || inst.Len == 0 {
			p.logger.Debug().Err(err).Str("function", fn.Name).Int("offset", off).
				Msg("instruction decode failed, skipping byte")
			off++
			continue
		}

		if inst.Op == x86asm.CALL {
			addr := fn.Address + uint64(off)
			site := p.classifyCall(addr, inst, off)
			site.Location, _ = p.lineForCallsite(addr)
			sites = append(sites, site)
		}

		off += inst.Len
	}

	return sites
}

func (p *Program) lineForCallsite(addr uint64) (SourceLocation, error) {
	loc, ok := p.lineFor(addr)
	if !ok {
		return SourceLocation{}, errors.Wrapf(ErrFunctionNotFound, "no source location for call at %#x", addr)
	}

	return loc, nil
}

func (p *Program) classifyCall(addr uint64, inst x86asm.Inst, offInCode int) CallSite {
	site := CallSite{Offset: uint64(offInCode)}

	switch arg := inst.Args[0].(type) {
	case x86asm.Rel:
		nextAddr := addr + uint64(inst.Len)
		target := uint64(int64(nextAddr) + int64(arg))
		site.TargetAddress = target

		if name, ok := p.pltSymbolAt(target); ok {
			site.Kind = Dynamic
			site.TargetSymbolName = name
			if callee, ok := p.symbolForImport(name); ok {
				site.Callee = callee
			}

			return site
		}

		if isPLTSection(p.file, target) {
			site.Kind = Dynamic
			site.TargetSymbolName = "unknown"

			return site
		}

		site.Kind = Direct
		if callee, ok := p.AddressToSymbol(target); ok {
			site.Callee = callee
		}

		return site

	case x86asm.Mem:
		if arg.Base == x86asm.RIP {
			nextAddr := addr + uint64(inst.Len)
			gotAddr := uint64(int64(nextAddr) + arg.Disp)

			if name, ok := p.importsByGOT[gotAddr]; ok {
				site.Kind = Dynamic
				site.TargetSymbolName = name
				if callee, ok := p.symbolForImport(name); ok {
					site.Callee = callee
				}

				return site
			}
		}

		site.Kind = Indirect
		site.TargetSymbolName = memString(arg)

		return site

	case x86asm.Reg:
		site.Kind = Indirect
		site.TargetSymbolName = arg.String()

		return site

	default:
		site.Kind = Indirect
		site.TargetSymbolName = "unknown"

		return site
	}
}

// symbolForImport finds a local FunctionSymbol matching an imported name,
// useful when the binary also statically carries debug info for a symbol
// that happens to be imported (rare, but cheap to check).
func (p *Program) symbolForImport(name string) (FunctionSymbol, bool) {
	syms := p.symbolsByName[p.Demangle(name)]
	if len(syms) == 0 {
		return FunctionSymbol{}, false
	}

	return syms[0], true
}

func memString(m x86asm.Mem) string {
	return fmt.Sprintf("[%s+%#x]", m.Base, m.Disp)
}

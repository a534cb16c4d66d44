// Package program provides the binary-intelligence core of wachy: parsing
// an ELF executable and its DWARF line information to resolve function
// symbols, source locations, and the call sites inside a function's
// machine code.
package program

import (
	"debug/dwarf"
	"debug/elf"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

// lineEntry is one PC-to-source-location mapping pulled from DWARF's
// .debug_line, kept sorted by Address so SourceLocation can binary search.
type lineEntry struct {
	Address uint64
	File    string
	Line    int
}

// Program owns everything known about one traced executable: its ELF
// sections, symbol indices, DWARF line map, and the per-function call-site
// cache. It is stateless between queries once Init has run — all derived
// state is either built once at Init or lazily cached behind a lock.
type Program struct {
	*Options

	file *elf.File

	// symbolsByAddr indexes every STT_FUNC symbol by its start address.
	symbolsByAddr map[uint64]FunctionSymbol

	// symbolsByName indexes symbols by demangled name; a name may map to
	// more than one symbol (overloads, templates, static name collisions).
	symbolsByName map[string][]FunctionSymbol

	lines []lineEntry

	textAddr uint64
	textData []byte

	importsByGOT map[uint64]string
	importsByPLT map[uint64]string

	callSitesMu sync.RWMutex
	callSites   map[callSitesKey][]CallSite
}

type callSitesKey struct {
	rawName string
	addr    uint64
}

// New constructs a Program from functional options. Init must be called
// before any query method.
func New(opts ...Option) *Program {
	p := &Program{
		Options:       NewOptions(opts...),
		symbolsByAddr: make(map[uint64]FunctionSymbol),
		symbolsByName: make(map[string][]FunctionSymbol),
		importsByGOT:  make(map[uint64]string),
		importsByPLT:  make(map[uint64]string),
		callSites:     make(map[callSitesKey][]CallSite),
	}
	if p.logger == nil {
		l := log.New(log.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		p.logger = &l
	}

	return p
}

// Init opens the binary, loads its symbol table, resolves PLT imports, and
// builds the DWARF line-address index, falling back to a GNU debug-link
// companion file when the binary itself carries no .debug_line.
func (p *Program) Init() error {
	if p.binaryPath == "" {
		return ErrBinaryPathEmpty
	}

	f, err := elf.Open(p.binaryPath)
	if err != nil {
		return errors.Wrapf(ErrBinaryOpen, "%s: %v", p.binaryPath, err)
	}
	p.file = f

	if f.Machine != elf.EM_X86_64 {
		return errors.Wrapf(ErrUnsupportedArch, "machine %s", f.Machine)
	}

	if err := p.loadText(); err != nil {
		return errors.Wrap(ErrBinaryOpen, err.Error())
	}

	if err := p.loadSymbols(); err != nil {
		return errors.Wrap(ErrBinaryOpen, err.Error())
	}

	p.loadPLT()

	if err := p.loadLines(); err != nil {
		p.logger.Debug().Err(err).Msg("no usable DWARF line info in binary, trying debug link")

		dbg, derr := p.openDebugLinked()
		if derr != nil {
			return errors.Wrapf(ErrMissingDebugInfo, "%s: %v", p.binaryPath, derr)
		}

		if lerr := p.loadLinesFrom(dbg); lerr != nil {
			return errors.Wrapf(ErrMissingDebugInfo, "%s: %v", p.binaryPath, lerr)
		}
	}

	if len(p.lines) == 0 {
		return errors.Wrapf(ErrMissingDebugInfo, "%s", p.binaryPath)
	}

	p.attachSourceLocations()

	return nil
}

func (p *Program) loadText() error {
	sec := p.file.Section(".text")
	if sec == nil {
		return errors.New("no .text section")
	}

	data, err := sec.Data()
	if err != nil {
		return errors.Wrap(err, "reading .text")
	}

	p.textAddr = sec.Addr
	p.textData = data

	return nil
}

func (p *Program) loadSymbols() error {
	syms, err := p.file.Symbols()
	if err != nil && len(syms) == 0 {
		return errors.Wrap(err, "reading symbol table")
	}

	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Value == 0 {
			continue
		}

		fs := FunctionSymbol{
			Name:    p.Demangle(sym.Name),
			RawName: sym.Name,
			Address: sym.Value,
			Length:  sym.Size,
		}

		p.symbolsByAddr[fs.Address] = fs
		p.symbolsByName[fs.Name] = append(p.symbolsByName[fs.Name], fs)
	}

	if len(p.symbolsByAddr) == 0 {
		return errors.New("no function symbols found")
	}

	return nil
}

func (p *Program) loadLines() error {
	d, err := p.file.DWARF()
	if err != nil {
		return err
	}

	return p.loadLinesFrom(d)
}

func (p *Program) loadLinesFrom(d *dwarf.Data) error {
	r := d.Reader()

	for {
		ent, err := r.Next()
		if err != nil {
			return err
		}
		if ent == nil {
			break
		}

		if ent.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}

		lr, err := d.LineReader(ent)
		if err != nil || lr == nil {
			continue
		}

		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			if le.IsStmt {
				p.lines = append(p.lines, lineEntry{Address: le.Address, File: le.File.Name, Line: le.Line})
			}
		}
	}

	sort.Slice(p.lines, func(i, j int) bool { return p.lines[i].Address < p.lines[j].Address })

	return nil
}

// openDebugLinked follows .gnu_debuglink to a neighbouring file carrying
// the real debug info: it looks first in the binary's own directory, then
// opens the linked name as given (relative to the current working
// directory).
func (p *Program) openDebugLinked() (*dwarf.Data, error) {
	sec := p.file.Section(".gnu_debuglink")
	if sec == nil {
		return nil, errors.New("no .gnu_debuglink section")
	}

	data, err := sec.Data()
	if err != nil {
		return nil, err
	}

	name := cString(data)
	if name == "" {
		return nil, errors.New("empty debug link name")
	}

	candidate := filepath.Join(filepath.Dir(p.binaryPath), name)

	df, err := elf.Open(candidate)
	if err != nil {
		candidate = name
		df, err = elf.Open(candidate)
		if err != nil {
			return nil, errors.Wrapf(err, "opening debug-linked file %s", name)
		}
	}

	d, err := df.DWARF()
	if err != nil {
		return nil, err
	}

	return d, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}

	return string(b)
}

// attachSourceLocations fills in File/Line on every FunctionSymbol from the
// DWARF line index, matching each function's entry address.
func (p *Program) attachSourceLocations() {
	for addr, sym := range p.symbolsByAddr {
		loc, ok := p.lineFor(addr)
		if !ok {
			continue
		}
		sym.File = loc.File
		sym.Line = loc.Line
		p.symbolsByAddr[addr] = sym

		names := p.symbolsByName[sym.Name]
		for i, candidate := range names {
			if candidate.Address == addr {
				names[i] = sym
			}
		}
	}
}

// lineFor returns the SourceLocation for the greatest line entry address
// not exceeding addr, per DWARF's "applies until the next row" convention.
func (p *Program) lineFor(addr uint64) (SourceLocation, bool) {
	if len(p.lines) == 0 {
		return SourceLocation{}, false
	}

	i := sort.Search(len(p.lines), func(i int) bool { return p.lines[i].Address > addr })
	if i == 0 {
		return SourceLocation{}, false
	}

	e := p.lines[i-1]

	return SourceLocation{File: e.File, Line: e.Line}, true
}

// SourceLocation returns the source file and line of fn's entry address.
func (p *Program) SourceLocation(fn FunctionSymbol) (SourceLocation, error) {
	loc, ok := p.lineFor(fn.Address)
	if !ok {
		return SourceLocation{}, errors.Wrapf(ErrFunctionNotFound, "no source location for %s", fn.Name)
	}

	return loc, nil
}

// AddressToSymbol resolves a FunctionSymbol by its exact entry address.
func (p *Program) AddressToSymbol(addr uint64) (FunctionSymbol, bool) {
	sym, ok := p.symbolsByAddr[addr]

	return sym, ok
}

// SymbolsNamed returns every FunctionSymbol with the given demangled name.
func (p *Program) SymbolsNamed(name string) []FunctionSymbol {
	return p.symbolsByName[name]
}

// BinaryPath returns the path Program was initialized with.
func (p *Program) BinaryPath() string {
	return p.binaryPath
}

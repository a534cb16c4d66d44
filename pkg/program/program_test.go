package program_test

import (
	"debug/elf"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/wachy/pkg/program"
)

// selfBinary returns the path to the compiled test binary, used as a real
// ELF/DWARF fixture: `go test` produces an ordinary amd64 executable with
// DWARF line tables, so Program can be pointed at itself.
func selfBinary(t *testing.T) string {
	t.Helper()

	path, err := os.Executable()
	require.NoError(t, err)

	f, err := elf.Open(path)
	if err != nil {
		t.Skipf("test binary not a readable ELF: %v", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_X86_64 {
		t.Skip("test binary is not amd64, skipping ELF-backed Program tests")
	}

	return path
}

func TestProgram_Init_EmptyPath(t *testing.T) {
	p := program.New()
	err := p.Init()
	require.ErrorIs(t, err, program.ErrBinaryPathEmpty)
}

func TestProgram_Init_NonexistentBinary(t *testing.T) {
	p := program.New(program.WithBinaryPath("/nonexistent/path/to/binary"))
	err := p.Init()
	require.ErrorIs(t, err, program.ErrBinaryOpen)
}

func TestProgram_Init_Self(t *testing.T) {
	path := selfBinary(t)

	p := program.New(program.WithBinaryPath(path))
	err := p.Init()
	require.NoError(t, err)

	syms := p.Search("TestProgram_Init_Self")
	require.NotEmpty(t, syms)
}

func TestProgram_SourceLocation_Self(t *testing.T) {
	path := selfBinary(t)

	p := program.New(program.WithBinaryPath(path))
	require.NoError(t, p.Init())

	syms := p.Search("=program_test.TestProgram_SourceLocation_Self")
	if len(syms) == 0 {
		t.Skip("symbol not present under this build's mangling, skipping")
	}

	loc, err := p.SourceLocation(syms[0])
	require.NoError(t, err)
	require.NotEmpty(t, loc.File)
	require.Greater(t, loc.Line, 0)
}

func TestProgram_CallSites_Self(t *testing.T) {
	path := selfBinary(t)

	p := program.New(program.WithBinaryPath(path))
	require.NoError(t, p.Init())

	syms := p.Search("=program_test.TestProgram_CallSites_Self")
	if len(syms) == 0 {
		t.Skip("symbol not present under this build's mangling, skipping")
	}

	sites, err := p.CallSites(syms[0])
	require.NoError(t, err)
	require.NotEmpty(t, sites)

	cached, err := p.CallSites(syms[0])
	require.NoError(t, err)
	require.Equal(t, sites, cached)

	for _, site := range sites {
		switch site.Kind {
		case program.Direct:
			require.NotZero(t, site.TargetAddress, "a Direct call site must resolve to a concrete address")
		case program.Dynamic:
			require.NotEmpty(t, site.TargetSymbolName, "a Dynamic call site must carry an imported symbol name")
		case program.Indirect:
			require.NotEmpty(t, site.TargetSymbolName, "an Indirect call site must describe its register/memory operand")
		default:
			t.Fatalf("unexpected CallSiteKind %v", site.Kind)
		}
	}
}

func TestProgram_AddressToSymbol_RoundTrip(t *testing.T) {
	path := selfBinary(t)

	p := program.New(program.WithBinaryPath(path))
	require.NoError(t, p.Init())

	syms := p.Search("=program_test.TestProgram_AddressToSymbol_RoundTrip")
	if len(syms) == 0 {
		t.Skip("symbol not present under this build's mangling, skipping")
	}
	want := syms[0]

	got, ok := p.AddressToSymbol(want.Address)
	require.True(t, ok, "AddressToSymbol(%#x) should resolve the symbol it was just found at", want.Address)
	require.Equal(t, want, got)
}

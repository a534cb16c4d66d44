package program

import "github.com/ianlancetaylor/demangle"

// Demangle returns the human-readable form of an Itanium C++ mangled
// symbol name. Names it cannot recognize (plain C symbols, already
// demangled names, other ABIs) are returned unchanged, per the teacher's
// fall-through pattern of not erroring out of symbol name formatting.
func (p *Program) Demangle(mangled string) string {
	name, err := demangle.ToString(mangled, demangle.NoRust)
	if err != nil {
		return mangled
	}

	return name
}

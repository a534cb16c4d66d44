package program

import "github.com/pkg/errors"

var (
	// ErrBinaryPathEmpty is returned when Program is initialized without
	// a path to an executable.
	ErrBinaryPathEmpty = errors.New("binary path is empty")

	// ErrBinaryOpen wraps failures to open or parse the ELF container.
	ErrBinaryOpen = errors.New("failed to open binary")

	// ErrUnsupportedArch is returned when the ELF machine is not x86-64.
	ErrUnsupportedArch = errors.New("unsupported architecture, only x86-64 is supported")

	// ErrMissingDebugInfo is returned when neither the binary nor its
	// debug-linked companion carries a .debug_line section.
	ErrMissingDebugInfo = errors.New("missing DWARF line information")

	// ErrNoMatchingSymbol is returned when a search query matches nothing.
	ErrNoMatchingSymbol = errors.New("no matching symbol")

	// ErrFunctionNotFound is returned when an address or name lookup misses.
	ErrFunctionNotFound = errors.New("function not found")
)

package controller

import "github.com/pkg/errors"

var (
	// ErrNoCallSiteOnLine is returned when a line carries no CALL
	// instruction to push into or trace.
	ErrNoCallSiteOnLine = errors.New("controller: no call site on that line")

	// ErrDynamicPushRefused is returned by PushCurrentLine for a line
	// whose call site is Dynamic (an external/imported symbol): pushing
	// into it is not supported.
	ErrDynamicPushRefused = errors.New("controller: cannot push a dynamic (imported) call site")

	// ErrPickerRequired is returned when a choice must be delegated to
	// ui.Picker but none is attached (headless operation).
	ErrPickerRequired = errors.New("controller: ambiguous choice requires an attached picker")

	// ErrNoSymbolChosen is returned when the user's picker returns no
	// selection (cancelled).
	ErrNoSymbolChosen = errors.New("controller: no symbol chosen")
)

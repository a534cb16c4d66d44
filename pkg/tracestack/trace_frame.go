package tracestack

import "github.com/maxgio92/wachy/pkg/program"

// TraceFrame is one entry of a TraceStack: a traced function plus the
// per-line measurements and filters currently active on it.
type TraceFrame struct {
	Function program.FunctionSymbol

	// entryID identifies this frame's own entry/exit probe pair: 0 for the
	// bottom frame, the pushing call site's source line for frames reached
	// via PushCallSite/PushFunction(line), or a negative fresh id for
	// frames pushed without a source line (PushArbitrary).
	entryID int

	EntryFilter string
	ExitFilter  string

	// lineTraces maps a source line to the CallSite on that line currently
	// being measured individually.
	lineTraces map[int]program.CallSite

	// inlineTraces maps a source line to a FunctionSymbol annotated there,
	// used when the callee was inlined and has no visible CALL instruction.
	inlineTraces map[int]program.FunctionSymbol

	// pushedCallSites records, by instruction offset, which call sites on
	// this frame already have a child frame descended from them.
	pushedCallSites map[uint64]bool
}

func newTraceFrame(fn program.FunctionSymbol, entryID int) *TraceFrame {
	return &TraceFrame{
		Function:        fn,
		entryID:         entryID,
		lineTraces:      make(map[int]program.CallSite),
		inlineTraces:    make(map[int]program.FunctionSymbol),
		pushedCallSites: make(map[uint64]bool),
	}
}

// LineTraces returns the call sites currently measured individually on
// this frame, keyed by source line.
func (f *TraceFrame) LineTraces() map[int]program.CallSite {
	return f.lineTraces
}

// InlineTraces returns the functions annotated to a source line on this
// frame because they were inlined and have no visible call instruction.
func (f *TraceFrame) InlineTraces() map[int]program.FunctionSymbol {
	return f.inlineTraces
}

// EntryID reports the id this frame's own probe is materialized under.
func (f *TraceFrame) EntryID() int {
	return f.entryID
}

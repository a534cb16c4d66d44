// Package tracestack models the user's current drilldown into a traced
// binary: an ordered stack of TraceFrames, each carrying its own per-line
// measurements and filters, and knows how to lower that model into a
// traceprogram.TraceProgram.
package tracestack

import "github.com/maxgio92/wachy/pkg/program"

// TraceStack is a non-empty ordered sequence of TraceFrames; index 0 is the
// outermost (bottom) frame. It is the sole source of TraceProgram values
// and is meant to be mutated from a single goroutine (the UI/Controller
// goroutine); it holds no internal lock.
type TraceStack struct {
	binaryPath string
	frames     []*TraceFrame
	generation uint64

	// nextFreshID is decremented for every frame pushed without a known
	// source line, keeping generated ids disjoint from real (positive)
	// line numbers and the reserved bottom id 0.
	nextFreshID int
}

// New creates a TraceStack whose sole frame traces fn, against binaryPath
// (the uprobe attachment target). fn's own entry is assigned id 0, the
// bottom-frame reservation.
func New(binaryPath string, fn program.FunctionSymbol) *TraceStack {
	return &TraceStack{
		binaryPath:  binaryPath,
		frames:      []*TraceFrame{newTraceFrame(fn, 0)},
		nextFreshID: -1,
	}
}

// Top returns the topmost (most recently pushed) frame.
func (s *TraceStack) Top() *TraceFrame {
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of frames currently on the stack.
func (s *TraceStack) Depth() int {
	return len(s.frames)
}

// Frames returns the stack's frames, outermost first. The slice is owned
// by the TraceStack; callers must not retain it across a mutation.
func (s *TraceStack) Frames() []*TraceFrame {
	return s.frames
}

// Generation returns the count of mutations applied so far.
func (s *TraceStack) Generation() uint64 {
	return s.generation
}

func (s *TraceStack) bump() {
	s.generation++
}

// PushCallSite descends into cs's resolved callee, appending a new frame.
// Only Direct call sites (with a known local callee) may be pushed this
// way; Dynamic and Indirect call sites must be resolved by the caller
// first and pushed via PushFunction.
func (s *TraceStack) PushCallSite(cs program.CallSite) error {
	switch cs.Kind {
	case program.Dynamic:
		return ErrDynamicCallSite
	case program.Indirect:
		return ErrIndirectCallSite
	}

	top := s.Top()
	top.pushedCallSites[cs.Offset] = true

	s.frames = append(s.frames, newTraceFrame(cs.Callee, cs.Location.Line))
	s.bump()

	return nil
}

// PushFunction appends a frame for fn directly, used when the user names
// the target of an Indirect call, or pushes an arbitrary symbol unrelated
// to any call site on the current frame. line is the source line of the
// call that motivated the push, or 0 if there is none (PushArbitrary). A
// non-zero line becomes the new frame's id, as with PushCallSite; for 0
// the frame gets a fresh negative id, disjoint from line numbers and from
// the bottom frame's 0.
func (s *TraceStack) PushFunction(fn program.FunctionSymbol, line int) {
	id := line
	if id == 0 {
		id = s.nextFreshID
		s.nextFreshID--
	}

	s.frames = append(s.frames, newTraceFrame(fn, id))
	s.bump()
}

// Pop removes the topmost frame. Fails if only one frame remains.
func (s *TraceStack) Pop() error {
	if len(s.frames) == 1 {
		return ErrEmptyStack
	}

	s.frames = s.frames[:len(s.frames)-1]
	s.bump()

	return nil
}

// ToggleLineTrace adds a per-line measurement of cs on the top frame if
// not already present, or removes it if it is.
func (s *TraceStack) ToggleLineTrace(line int, cs program.CallSite) {
	top := s.Top()

	if _, ok := top.lineTraces[line]; ok {
		delete(top.lineTraces, line)
	} else {
		top.lineTraces[line] = cs
	}

	s.bump()
}

// ToggleInlineTrace adds or removes a measurement of fn annotated to line
// on the top frame, for callees inlined away with no visible call site.
func (s *TraceStack) ToggleInlineTrace(line int, fn program.FunctionSymbol) {
	top := s.Top()

	if _, ok := top.inlineTraces[line]; ok {
		delete(top.inlineTraces, line)
	} else {
		top.inlineTraces[line] = fn
	}

	s.bump()
}

// SetEntryFilter sets (or, given "", clears) the top frame's entry filter.
func (s *TraceStack) SetEntryFilter(expr string) {
	s.Top().EntryFilter = expr
	s.bump()
}

// SetExitFilter sets (or, given "", clears) the top frame's exit filter.
func (s *TraceStack) SetExitFilter(expr string) {
	s.Top().ExitFilter = expr
	s.bump()
}

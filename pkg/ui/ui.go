// Package ui pins the contract of the interactive front end that the
// Controller drives, without implementing one: the terminal widget
// library, its fuzzy-search-backed symbol picker, and the rendering of
// per-line statistics are external collaborators (see the module's
// documented scope). Picker and Sink are the two seams the Controller
// calls through; a headless caller can leave both nil and fall back to
// internal/display.
package ui

import "github.com/maxgio92/wachy/pkg/program"

// Picker lets the Controller delegate an ambiguous choice to the user:
// several matching symbols for a query, several call sites on one line,
// or a function to name for an Indirect call target.
type Picker interface {
	// PickSymbol asks the user to choose one of candidates, or none.
	PickSymbol(candidates []program.FunctionSymbol) (program.FunctionSymbol, bool)

	// PickCallSite asks the user to choose one of several call sites that
	// share a source line.
	PickCallSite(candidates []program.CallSite) (program.CallSite, bool)
}

// Sink receives rendering updates the Controller computes from TraceInfo
// ticks: per-line average latency and rate, and histogram updates for the
// frame currently being inspected in detail.
type Sink interface {
	// UpdateLine reports the latest average latency (nanoseconds) and
	// rate (hits/sec) measured for the given source line's id.
	UpdateLine(id int, avgLatencyNs float64, rateHz float64)

	// UpdateHistogram reports a new sample for the top frame's latency
	// histogram, bucketed by the Controller into powers of two.
	UpdateHistogram(bucketNs int64, count int64)

	// ShowBanner surfaces the tracer child's exit (for example bpftrace
	// rejecting an invalid filter) with its captured stderr, without
	// tearing down the session.
	ShowBanner(err error, detail string)
}

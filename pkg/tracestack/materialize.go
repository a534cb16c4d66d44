package tracestack

import (
	"sort"

	"github.com/maxgio92/wachy/pkg/traceprogram"
)

// Materialize lowers the current stack state into a TraceProgram. Same
// state always produces an identical TraceProgram; traceprogram.New sorts
// the probes by id, so the order probes are appended here does not affect
// the output text.
func (s *TraceStack) Materialize() traceprogram.TraceProgram {
	var probes []traceprogram.Probe

	for i, frame := range s.frames {
		probes = append(probes, traceprogram.Probe{
			ID:            frame.entryID,
			BinaryPath:    s.binaryPath,
			MangledSymbol: frame.Function.RawName,
			Depth:         i,
			EntryFilter:   frame.EntryFilter,
			ExitFilter:    frame.ExitFilter,
		})

		probes = append(probes, lineProbes(frame, s.binaryPath, i+1)...)
	}

	return traceprogram.New(probes)
}

func lineProbes(frame *TraceFrame, binaryPath string, depth int) []traceprogram.Probe {
	lines := make([]int, 0, len(frame.lineTraces)+len(frame.inlineTraces))
	for line := range frame.lineTraces {
		lines = append(lines, line)
	}
	for line := range frame.inlineTraces {
		if _, ok := frame.lineTraces[line]; !ok {
			lines = append(lines, line)
		}
	}
	sort.Ints(lines)

	probes := make([]traceprogram.Probe, 0, len(lines))
	for _, line := range lines {
		var symbol string

		if cs, ok := frame.lineTraces[line]; ok {
			symbol = cs.TargetSymbolName
			if cs.Callee.RawName != "" {
				symbol = cs.Callee.RawName
			}
		} else {
			symbol = frame.inlineTraces[line].RawName
		}

		probes = append(probes, traceprogram.Probe{
			ID:            line,
			BinaryPath:    binaryPath,
			MangledSymbol: symbol,
			Depth:         depth,
		})
	}

	return probes
}

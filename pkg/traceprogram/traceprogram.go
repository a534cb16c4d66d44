// Package traceprogram models the bpftrace program that a TraceStack
// materializes: a BEGIN block, one entry/exit uprobe pair per measured id,
// and a one-second interval block that prints cumulative duration and
// count per id as a single JSON record.
package traceprogram

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Probe is one measured (entry, exit) uprobe/uretprobe pair.
type Probe struct {
	// ID is the stable identifier used as the bpftrace map suffix and the
	// JSON key in the interval output: a source line number for
	// line-attached traces, or 0 for the bottom frame's own entry.
	ID int

	// BinaryPath is the traced executable's path, as given to uprobe:<path>.
	BinaryPath string

	// MangledSymbol is the raw (non-demangled) symbol name attached to.
	MangledSymbol string

	// Depth is this probe's thread-depth gate: entry requires
	// @depth[tid] == Depth and advances it to Depth+1; exit requires
	// @depth[tid] == Depth+1 and restores it to Depth.
	Depth int

	// EntryFilter is an optional raw bpftrace predicate ANDed into the
	// entry probe's filter expression. Empty means no extra filter.
	EntryFilter string

	// ExitFilter is an optional raw bpftrace predicate, with any
	// occurrence of "$duration" substituted for the elapsed-nanoseconds
	// expression before being emitted.
	ExitFilter string
}

// TraceProgram is an immutable, serializable description of a bpftrace
// program. Zero value is a program with no probes (BEGIN/interval only).
type TraceProgram struct {
	Probes []Probe
}

// New builds a TraceProgram from the given probes. Probes are copied and
// sorted by ID so Serialize is deterministic regardless of caller order.
func New(probes []Probe) TraceProgram {
	cp := make([]Probe, len(probes))
	copy(cp, probes)
	sort.Slice(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })

	return TraceProgram{Probes: cp}
}

// Serialize renders the bpftrace source text for p. Output is total and
// deterministic: identical input always produces byte-identical text.
func (p TraceProgram) Serialize() string {
	var b strings.Builder

	b.WriteString("BEGIN { @start_time = nsecs; @depth[-1] = 0; }\n")

	for _, pr := range p.Probes {
		writeEntryProbe(&b, pr)
		writeExitProbe(&b, pr)
	}

	writeInterval(&b, p.Probes)

	return b.String()
}

func writeEntryProbe(b *strings.Builder, pr Probe) {
	id := strconv.Itoa(pr.ID)

	fmt.Fprintf(b, "uprobe:%s:%s /@depth[tid] == %d/", pr.BinaryPath, pr.MangledSymbol, pr.Depth)
	if pr.EntryFilter != "" {
		fmt.Fprintf(b, " /%s/", pr.EntryFilter)
	}
	b.WriteString(" {\n")
	fmt.Fprintf(b, "    @start%s[tid] = nsecs;\n", id)
	fmt.Fprintf(b, "    @depth[tid] = %d;\n", pr.Depth+1)
	b.WriteString("}\n")
}

func writeExitProbe(b *strings.Builder, pr Probe) {
	id := strconv.Itoa(pr.ID)

	fmt.Fprintf(b, "uretprobe:%s:%s /@depth[tid] == %d/", pr.BinaryPath, pr.MangledSymbol, pr.Depth+1)
	if pr.ExitFilter != "" {
		fmt.Fprintf(b, " /(%s)/", substituteDuration(pr.ExitFilter, id))
	}
	b.WriteString(" {\n")

	fmt.Fprintf(b, "    @depth[tid] = %d;\n", pr.Depth)
	fmt.Fprintf(b, "    @duration%s += (nsecs - @start%s[tid]);\n", id, id)
	fmt.Fprintf(b, "    @count%s += 1;\n", id)
	fmt.Fprintf(b, "    delete(@start%s[tid]);\n", id)
	b.WriteString("}\n")
}

// substituteDuration replaces every "$duration" in expr with the bpftrace
// expression for elapsed nanoseconds in the probe identified by id.
func substituteDuration(expr, id string) string {
	return strings.ReplaceAll(expr, "$duration", fmt.Sprintf("(nsecs - @start%s[tid])", id))
}

func writeInterval(b *strings.Builder, probes []Probe) {
	b.WriteString("interval:s:1 {\n")
	fmt.Fprintf(b, "    printf(\"{\\\"time\\\": %%d, \\\"lines\\\": {\", (nsecs - @start_time) / 1000000000);\n")

	for i, pr := range probes {
		id := strconv.Itoa(pr.ID)
		sep := ", "
		if i == 0 {
			sep = ""
		}
		fmt.Fprintf(b, "    printf(\"%s\\\"%s\\\": [%%lld, %%lld]\", @duration%s, @count%s);\n", sep, id, id, id)
	}

	b.WriteString("    printf(\"}}\\n\");\n")
	b.WriteString("}\n")
}

package tracer

// LineStat is the cumulative duration and hit count bpftrace reports for
// one measured id as of a tick.
type LineStat struct {
	DurationNs int64
	Count      int64
}

// TraceInfo is one parsed interval tick: a monotonic time (seconds since
// the tracer started) and the cumulative per-id totals at that time.
type TraceInfo struct {
	Time  float64
	Lines map[string]LineStat
}

// Event is posted onto a Start/Rerun sink channel. Exactly one of Info or
// Err is set: Info for a parsed tick, Err for the child's exit (a spawn
// failure is returned by Start, not posted). Generation ties the event to
// the Running state
// that produced it, so the Controller can discard stale arrivals after a
// Rerun advances past it.
type Event struct {
	Generation uint64
	Info       *TraceInfo
	Err        error
	Stderr     string
}

package tracer

import "encoding/json"

// wireRecord mirrors the JSON object bpftrace prints once per interval
// tick: {"time": <seconds>, "lines": {"<id>": [duration_ns, count], ...}}.
type wireRecord struct {
	Time  float64            `json:"time"`
	Lines map[string][2]int64 `json:"lines"`
}

// parseLine parses one line of bpftrace standard output into a TraceInfo.
// Malformed lines (partial writes, bpftrace's own warnings interleaved on
// stdout) return an error; the caller logs and skips them, per the
// MalformedTraceOutput error kind — this is never fatal.
func parseLine(line []byte) (TraceInfo, error) {
	var rec wireRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return TraceInfo{}, err
	}

	info := TraceInfo{Time: rec.Time, Lines: make(map[string]LineStat, len(rec.Lines))}
	for id, pair := range rec.Lines {
		info.Lines[id] = LineStat{DurationNs: pair[0], Count: pair[1]}
	}

	return info, nil
}

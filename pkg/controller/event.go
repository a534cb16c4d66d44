package controller

import (
	"strconv"
	"sync"

	"github.com/maxgio92/wachy/pkg/tracer"
)

// statState tracks enough history to turn cumulative TraceInfo totals
// into per-tick deltas, and keeps the outermost frame's last-known
// rate/latency for the ambient display ticker to read concurrently.
type statState struct {
	mu sync.Mutex

	generation uint64
	prevTime   float64
	prevLines  map[string]tracer.LineStat

	histogram map[int64]int64

	outerRateHz   float64
	outerAvgNs    float64
	outerChanUtil int
}

func (s *statState) snapshot() (rateHz, avgLatencyNs float64, chanUtilPercent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.outerRateHz, s.outerAvgNs, s.outerChanUtil
}

// histogramBucket returns the power-of-two bucket (in nanoseconds) that ns
// falls into, rounding up: 1 -> 1, 2 -> 2, 3 -> 4, 1000 -> 1024, etc.
func histogramBucket(ns int64) int64 {
	if ns <= 1 {
		return 1
	}

	bucket := int64(1)
	for bucket < ns {
		bucket <<= 1
	}

	return bucket
}

// handleEvent processes one Tracer event: stale events (from a generation
// the Controller has since advanced past) are dropped silently, terminal
// events are surfaced via the Sink (or logged, headless), and ticks are
// turned into per-id rate/latency deltas.
func (c *Controller) handleEvent(evt tracer.Event) {
	if evt.Generation < c.generation {
		return
	}

	if evt.Err != nil {
		if c.sink != nil {
			c.sink.ShowBanner(evt.Err, evt.Stderr)
		} else {
			c.logger.Warn().Err(evt.Err).Str("stderr", evt.Stderr).Msg("tracer terminated")
		}

		return
	}

	c.applyTick(evt.Generation, *evt.Info)
}

func (c *Controller) applyTick(generation uint64, info tracer.TraceInfo) {
	c.stats.mu.Lock()

	if c.stats.generation != generation {
		c.stats.generation = generation
		c.stats.prevTime = 0
		c.stats.prevLines = nil
	}

	dt := info.Time - c.stats.prevTime
	if dt <= 0 {
		dt = 1
	}

	topID := ""
	if c.stack != nil {
		topID = strconv.Itoa(c.stack.Top().EntryID())
	}

	type lineUpdate struct {
		id             int
		avg, rate      float64
		isTop          bool
		histBucket     int64
		histDeltaCount int64
	}
	var updates []lineUpdate

	for id, cur := range info.Lines {
		var prev tracer.LineStat
		if c.stats.prevLines != nil {
			prev = c.stats.prevLines[id]
		}

		deltaDuration := cur.DurationNs - prev.DurationNs
		deltaCount := cur.Count - prev.Count
		if deltaDuration < 0 || deltaCount < 0 {
			// Counters reset underneath us (fresh generation raced in);
			// treat this tick's cumulative values as the deltas.
			deltaDuration, deltaCount = cur.DurationNs, cur.Count
		}

		var avg float64
		if deltaCount > 0 {
			avg = float64(deltaDuration) / float64(deltaCount)
		}
		rate := float64(deltaCount) / dt

		if id == strconv.Itoa(bottomFrameID) {
			c.stats.outerRateHz = rate
			c.stats.outerAvgNs = avg
			c.stats.outerChanUtil = channelUtilPercent(c.events)
		}

		if c.stats.histogram == nil {
			c.stats.histogram = make(map[int64]int64)
		}
		var bucket int64
		if deltaCount > 0 {
			bucket = histogramBucket(deltaDuration / deltaCount)
			c.stats.histogram[bucket] += deltaCount
		}

		idInt, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		updates = append(updates, lineUpdate{
			id: idInt, avg: avg, rate: rate,
			isTop: id == topID, histBucket: bucket, histDeltaCount: deltaCount,
		})
	}

	c.stats.prevTime = info.Time
	c.stats.prevLines = info.Lines

	c.stats.mu.Unlock()

	if c.sink == nil {
		return
	}

	for _, u := range updates {
		c.sink.UpdateLine(u.id, u.avg, u.rate)

		if u.isTop && u.histDeltaCount > 0 {
			c.sink.UpdateHistogram(u.histBucket, u.histDeltaCount)
		}
	}
}

const bottomFrameID = 0

func channelUtilPercent(ch chan tracer.Event) int {
	capacity := cap(ch)
	if capacity == 0 {
		return 0
	}

	return (len(ch) * 100) / capacity
}

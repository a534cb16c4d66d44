// Package controller is the single-threaded authority mediating between a
// UI (or the headless ambient display) and the Tracer: it owns the
// TraceStack, translates user gestures into stack mutations, materializes
// and installs the resulting TraceProgram, and turns Tracer events into
// per-line statistics.
package controller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/wachy/internal/display"
	"github.com/maxgio92/wachy/internal/utils"
	"github.com/maxgio92/wachy/pkg/program"
	"github.com/maxgio92/wachy/pkg/tracer"
	"github.com/maxgio92/wachy/pkg/tracestack"
)

// Controller owns the TraceStack and drives the Tracer. All mutating
// methods are meant to be called from one goroutine (the UI's event
// loop, or the caller of Run in headless mode); it holds no lock of its
// own over that state, matching the single-writer discipline described
// for TraceStack.
type Controller struct {
	*Options

	prog  *program.Program
	stack *tracestack.TraceStack

	events     chan tracer.Event
	generation uint64

	// source caches each traced frame's file as its line slice, keyed by
	// path. A sync.Map suits this better than a mutex-guarded map: reads
	// (one per frame push) vastly outnumber writes (one per distinct
	// source file ever touched).
	source sync.Map

	stats statState
}

// New constructs a Controller. Call Start before any other method.
func New(opts ...Option) *Controller {
	return &Controller{
		Options: NewOptions(opts...),
		events:  make(chan tracer.Event, 64),
	}
}

// Start opens binaryPath, resolves initialQuery to a FunctionSymbol (via
// the attached Picker when more than one candidate matches), seeds the
// TraceStack with it, loads its source and call sites, and starts the
// Tracer against the materialized program.
func (c *Controller) Start(ctx context.Context, binaryPath, initialQuery string) error {
	p := program.New(program.WithBinaryPath(binaryPath), program.WithLogger(c.logger))
	if err := p.Init(); err != nil {
		return err
	}
	c.prog = p

	fn, err := c.resolveQuery(initialQuery)
	if err != nil {
		return err
	}

	c.stack = tracestack.New(binaryPath, fn)

	if err := c.loadFrameContext(fn); err != nil {
		c.logger.Warn().Err(err).Str("function", fn.Name).Msg("failed loading source/call sites for initial frame")
	}

	return c.rerun(ctx)
}

func (c *Controller) resolveQuery(query string) (program.FunctionSymbol, error) {
	matches := c.prog.Search(query)
	switch len(matches) {
	case 0:
		return program.FunctionSymbol{}, program.ErrNoMatchingSymbol
	case 1:
		return matches[0], nil
	default:
		if c.picker == nil {
			return program.FunctionSymbol{}, ErrPickerRequired
		}

		fn, ok := c.picker.PickSymbol(matches)
		if !ok {
			return program.FunctionSymbol{}, ErrNoSymbolChosen
		}

		return fn, nil
	}
}

// loadFrameContext reads fn's source file and computes its call sites
// concurrently, per the Controller's push contract.
func (c *Controller) loadFrameContext(fn program.FunctionSymbol) error {
	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return c.cacheSource(fn.File)
	})

	g.Go(func() error {
		_, err := c.prog.CallSites(fn)

		return err
	})

	return g.Wait()
}

func (c *Controller) cacheSource(path string) error {
	if path == "" {
		return nil
	}

	if _, ok := c.source.Load(path); ok {
		return nil
	}

	lines, err := readLines(path)
	if err != nil {
		return err
	}

	c.source.Store(path, lines)
	c.logger.Debug().Int("cached_files", utils.LenSyncMap(&c.source)).Str("path", path).Msg("cached source file")

	return nil
}

// Events exposes the channel the Tracer posts to, for a caller driving its
// own select loop alongside UI events.
func (c *Controller) Events() <-chan tracer.Event {
	return c.events
}

// Run drives the headless ambient display: it drains Tracer events and,
// once a second, prints a status line via internal/display. It returns
// when ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	go display.Ticker(ctx, time.Second, func() {
		rate, avg, util := c.stats.snapshot()
		display.PrintRight(display.StatusLine(rate, avg, util))
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-c.events:
			c.handleEvent(evt)
		}
	}
}

// rerun materializes the current stack and installs it on the Tracer,
// starting it fresh the first time and rerunning it thereafter.
func (c *Controller) rerun(ctx context.Context) error {
	prog := c.stack.Materialize()

	if c.tracer.State() == tracer.Idle {
		if err := c.tracer.Start(ctx, prog, c.events); err != nil {
			return err
		}
	} else {
		if err := c.tracer.Rerun(ctx, prog); err != nil {
			return err
		}
	}

	c.generation = c.tracer.Generation()

	return nil
}

// RestartTrace reruns the current program unchanged, resetting bpftrace's
// cumulative counters.
func (c *Controller) RestartTrace(ctx context.Context) error {
	return c.rerun(ctx)
}

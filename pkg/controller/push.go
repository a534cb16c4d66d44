package controller

import (
	"bufio"
	"context"
	"os"

	"github.com/maxgio92/wachy/pkg/program"
)

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines, scanner.Err()
}

func (c *Controller) callSitesOnLine(line int) ([]program.CallSite, error) {
	sites, err := c.prog.CallSites(c.stack.Top().Function)
	if err != nil {
		return nil, err
	}

	var onLine []program.CallSite
	for _, cs := range sites {
		if cs.Location.Line == line {
			onLine = append(onLine, cs)
		}
	}

	if len(onLine) == 0 {
		return nil, ErrNoCallSiteOnLine
	}

	return onLine, nil
}

func (c *Controller) pickCallSite(candidates []program.CallSite) (program.CallSite, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if c.picker == nil {
		return program.CallSite{}, ErrPickerRequired
	}

	cs, ok := c.picker.PickCallSite(candidates)
	if !ok {
		return program.CallSite{}, ErrNoSymbolChosen
	}

	return cs, nil
}

// ToggleLine adds or removes a per-line measurement of the call site on
// line, on the top frame, and reruns the tracer.
func (c *Controller) ToggleLine(ctx context.Context, line int) error {
	candidates, err := c.callSitesOnLine(line)
	if err != nil {
		return err
	}

	cs, err := c.pickCallSite(candidates)
	if err != nil {
		return err
	}

	c.stack.ToggleLineTrace(line, cs)

	return c.rerun(ctx)
}

// ToggleInline adds or removes a measurement of a user-chosen function
// annotated to line, for callees inlined away with no visible call
// instruction, and reruns the tracer.
func (c *Controller) ToggleInline(ctx context.Context, line int) error {
	if c.picker == nil {
		return ErrPickerRequired
	}

	fn, ok := c.picker.PickSymbol(c.prog.Search(""))
	if !ok {
		return ErrNoSymbolChosen
	}

	c.stack.ToggleInlineTrace(line, fn)

	return c.rerun(ctx)
}

// PushCurrentLine descends into the call on line: Direct call sites push
// straight through, Indirect ones are resolved via the Picker first, and
// Dynamic (imported) ones are refused outright. Loads the new frame's
// source and call sites concurrently before rerunning the tracer.
func (c *Controller) PushCurrentLine(ctx context.Context, line int) error {
	candidates, err := c.callSitesOnLine(line)
	if err != nil {
		return err
	}

	cs, err := c.pickCallSite(candidates)
	if err != nil {
		return err
	}

	switch cs.Kind {
	case program.Dynamic:
		return ErrDynamicPushRefused

	case program.Indirect:
		if c.picker == nil {
			return ErrPickerRequired
		}

		fn, ok := c.picker.PickSymbol(c.prog.Search(""))
		if !ok {
			return ErrNoSymbolChosen
		}

		c.stack.PushFunction(fn, line)

	default:
		if err := c.stack.PushCallSite(cs); err != nil {
			return err
		}
	}

	if err := c.loadFrameContext(c.stack.Top().Function); err != nil {
		c.logger.Warn().Err(err).Msg("failed loading source/call sites for pushed frame")
	}

	return c.rerun(ctx)
}

// PushArbitrary lets the user fuzzy-search any symbol in the binary and
// push it as a new frame unrelated to any call site on the current one.
func (c *Controller) PushArbitrary(ctx context.Context, query string) error {
	fn, err := c.resolveQuery(query)
	if err != nil {
		return err
	}

	c.stack.PushFunction(fn, 0)

	if err := c.loadFrameContext(fn); err != nil {
		c.logger.Warn().Err(err).Msg("failed loading source/call sites for pushed frame")
	}

	return c.rerun(ctx)
}

// Pop removes the top frame and reruns the tracer against the parent.
func (c *Controller) Pop(ctx context.Context) error {
	if err := c.stack.Pop(); err != nil {
		return err
	}

	return c.rerun(ctx)
}

// SetEntryFilter sets (or, given "", clears) the top frame's entry filter
// and reruns the tracer.
func (c *Controller) SetEntryFilter(ctx context.Context, expr string) error {
	c.stack.SetEntryFilter(expr)

	return c.rerun(ctx)
}

// SetExitFilter sets (or, given "", clears) the top frame's exit filter
// and reruns the tracer.
func (c *Controller) SetExitFilter(ctx context.Context, expr string) error {
	c.stack.SetExitFilter(expr)

	return c.rerun(ctx)
}

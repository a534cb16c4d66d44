// Package tracer supervises a single bpftrace child process: it writes a
// traceprogram.TraceProgram to the child's standard input, reads one JSON
// tick per line from its standard output, and turns each tick into an
// Event posted to the caller's sink channel.
package tracer

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/maxgio92/wachy/pkg/traceprogram"
)

// State is the Tracer's child-process lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Tracer owns at most one live bpftrace child process at a time.
type Tracer struct {
	*Options

	mu         sync.Mutex
	state      State
	generation uint64
	cmd        *exec.Cmd
	sink       chan<- Event
	readerDone chan struct{}

	rerunMu   sync.Mutex
	rerunning bool
	pending   *traceprogram.TraceProgram
}

// New constructs a Tracer, Idle until Start is called.
func New(opts ...Option) *Tracer {
	o := NewOptions(opts...)
	if o.logger == nil {
		o.logger = defaultLogger()
	}

	return &Tracer{Options: o, state: Idle}
}

// State reports the Tracer's current lifecycle state.
func (t *Tracer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Generation reports the generation of the current or most recent Running
// state, incremented on every successful Start.
func (t *Tracer) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.generation
}

// Start spawns bpftrace with prog's serialized text on its standard input
// and begins posting Events to sink. Must be called while Idle.
func (t *Tracer) Start(ctx context.Context, prog traceprogram.TraceProgram, sink chan<- Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle {
		return ErrNotIdle
	}

	cmd := exec.CommandContext(ctx, t.bpftraceBinary, "-")
	cmd.SysProcAttr = procAttrNewGroup()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(ErrSpawnFailed, err.Error())
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(ErrSpawnFailed, err.Error())
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(ErrSpawnFailed, "%s: %v", t.bpftraceBinary, err)
	}

	if _, err := stdin.Write([]byte(prog.Serialize())); err != nil {
		t.logger.Warn().Err(err).Msg("failed writing trace program to bpftrace stdin")
	}
	stdin.Close()

	t.generation++
	gen := t.generation
	t.cmd = cmd
	t.sink = sink
	t.state = Running
	t.readerDone = make(chan struct{})

	go t.read(gen, cmd, stdout, &stderr, sink, t.readerDone)

	return nil
}

func (t *Tracer) read(gen uint64, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, sink chan<- Event, done chan<- struct{}) {
	defer close(done)

	var lastTime float64

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		info, err := parseLine(line)
		if err != nil {
			t.logger.Warn().Err(err).Str("line", string(line)).Msg("malformed bpftrace output line, skipping")
			continue
		}

		if info.Time < lastTime {
			t.logger.Warn().Float64("time", info.Time).Float64("last_time", lastTime).
				Msg("bpftrace tick time went backwards, clamping")
			info.Time = lastTime
		}
		lastTime = info.Time

		sink <- Event{Generation: gen, Info: &info}
	}

	waitErr := cmd.Wait()

	t.mu.Lock()
	if t.state != Idle && t.cmd == cmd {
		t.state = Idle
	}
	t.mu.Unlock()

	terminalErr := ErrChildExited
	if waitErr != nil {
		terminalErr = errors.Wrap(waitErr, ErrChildExited.Error())
	}

	sink <- Event{Generation: gen, Err: terminalErr, Stderr: stderr.String()}
}

// Rerun replaces the currently Running program with prog or, when Idle
// after an earlier Start, starts prog on that Start's sink; it returns
// ErrNotRunning if Start was never called. Concurrent Rerun calls
// coalesce: a call made while another is in flight returns at once, and
// the in-flight call then installs only the latest such prog.
func (t *Tracer) Rerun(ctx context.Context, prog traceprogram.TraceProgram) error {
	t.rerunMu.Lock()
	p := prog
	t.pending = &p

	if t.rerunning {
		t.rerunMu.Unlock()

		return nil
	}
	t.rerunning = true
	t.rerunMu.Unlock()

	for {
		t.rerunMu.Lock()
		next := t.pending
		t.pending = nil
		t.rerunMu.Unlock()

		if next == nil {
			break
		}

		if err := t.swapIn(ctx, *next); err != nil {
			t.rerunMu.Lock()
			t.rerunning = false
			t.rerunMu.Unlock()

			return err
		}
	}

	t.rerunMu.Lock()
	t.rerunning = false
	t.rerunMu.Unlock()

	return nil
}

func (t *Tracer) swapIn(ctx context.Context, prog traceprogram.TraceProgram) error {
	t.mu.Lock()
	running := t.state == Running
	sink := t.sink
	t.mu.Unlock()

	if running {
		if err := t.stop(); err != nil {
			return err
		}
	}

	if sink == nil {
		return ErrNotRunning
	}

	return t.Start(ctx, prog, sink)
}

// Stop terminates the current child process, returning the Tracer to Idle.
func (t *Tracer) Stop(_ context.Context) error {
	t.mu.Lock()
	running := t.state == Running
	t.mu.Unlock()

	if !running {
		return ErrNotRunning
	}

	return t.stop()
}

// stop signals the running child, waits up to shutdownTimeout for its
// reader goroutine to observe exit, and escalates to SIGKILL otherwise.
func (t *Tracer) stop() error {
	t.mu.Lock()
	cmd := t.cmd
	done := t.readerDone
	t.state = Stopping
	t.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	signalGroup(cmd.Process.Pid, syscall.SIGINT)

	select {
	case <-done:
	case <-afterShutdownTimeout(t.shutdownTimeout):
		signalGroup(cmd.Process.Pid, syscall.SIGKILL)
		<-done
	}

	t.mu.Lock()
	t.state = Idle
	t.mu.Unlock()

	return nil
}

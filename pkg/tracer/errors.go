package tracer

import "github.com/pkg/errors"

var (
	// ErrNotIdle is returned by Start when the Tracer already owns a live
	// child process.
	ErrNotIdle = errors.New("tracer: Start called while not Idle")

	// ErrNotRunning is returned by Stop when there is no live child to
	// terminate, and by Rerun when Start has never been called.
	ErrNotRunning = errors.New("tracer: no running child process")

	// ErrSpawnFailed wraps a bpftrace child process spawn failure.
	ErrSpawnFailed = errors.New("tracer: failed to spawn bpftrace")

	// ErrChildExited marks the terminal Event posted when the bpftrace
	// child process exits, whether cleanly or not.
	ErrChildExited = errors.New("tracer: bpftrace child exited")
)

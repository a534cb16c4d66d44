package tracer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/wachy/pkg/traceprogram"
	"github.com/maxgio92/wachy/pkg/tracer"
)

func emptyProgram() traceprogram.TraceProgram {
	return traceprogram.New(nil)
}

func TestTracer_Start_ReadsTicksAndTerminates(t *testing.T) {
	tr := tracer.New(tracer.WithBpftraceBinary("testdata/fake_bpftrace.sh"))
	sink := make(chan tracer.Event, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Start(ctx, emptyProgram(), sink))
	require.Equal(t, tracer.Running, tr.State())

	var ticks []tracer.Event
	var terminal tracer.Event
	deadline := time.After(3 * time.Second)

loop:
	for {
		select {
		case evt := <-sink:
			if evt.Err != nil {
				terminal = evt
				break loop
			}
			ticks = append(ticks, evt)
		case <-deadline:
			t.Fatal("timed out waiting for tracer events")
		}
	}

	require.Len(t, ticks, 2)
	require.Equal(t, int64(1000), ticks[0].Info.Lines["0"].DurationNs)
	require.Equal(t, int64(2500), ticks[1].Info.Lines["0"].DurationNs)
	require.Error(t, terminal.Err)

	for _, evt := range append(ticks, terminal) {
		require.Equal(t, ticks[0].Generation, evt.Generation)
	}
}

func TestTracer_Start_ClampsOutOfOrderTime(t *testing.T) {
	tr := tracer.New(tracer.WithBpftraceBinary("testdata/fake_bpftrace_outoforder.sh"))
	sink := make(chan tracer.Event, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Start(ctx, emptyProgram(), sink))

	var ticks []tracer.Event
	deadline := time.After(3 * time.Second)

loop:
	for {
		select {
		case evt := <-sink:
			if evt.Err != nil {
				break loop
			}
			ticks = append(ticks, evt)
		case <-deadline:
			t.Fatal("timed out waiting for tracer events")
		}
	}

	require.Len(t, ticks, 2)
	require.Equal(t, float64(3), ticks[0].Info.Time)
	// The second tick's time (1) regresses behind the first (3); the
	// reader clamps it to the last-seen value instead of forwarding it.
	require.Equal(t, float64(3), ticks[1].Info.Time)
}

func TestTracer_Start_RejectsWhenNotIdle(t *testing.T) {
	tr := tracer.New(tracer.WithBpftraceBinary("testdata/fake_bpftrace_hang.sh"))
	sink := make(chan tracer.Event, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tr.Start(ctx, emptyProgram(), sink))
	err := tr.Start(ctx, emptyProgram(), sink)
	require.ErrorIs(t, err, tracer.ErrNotIdle)

	require.NoError(t, tr.Stop(ctx))
}

func TestTracer_Stop_SendsSigintAndReturnsIdle(t *testing.T) {
	tr := tracer.New(
		tracer.WithBpftraceBinary("testdata/fake_bpftrace_hang.sh"),
		tracer.WithShutdownTimeout(2*time.Second),
	)
	sink := make(chan tracer.Event, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tr.Start(ctx, emptyProgram(), sink))
	require.NoError(t, tr.Stop(ctx))
	require.Equal(t, tracer.Idle, tr.State())
}

func TestTracer_Stop_WhenIdle(t *testing.T) {
	tr := tracer.New()
	err := tr.Stop(context.Background())
	require.ErrorIs(t, err, tracer.ErrNotRunning)
}

func TestTracer_Rerun_WithoutPriorStart(t *testing.T) {
	tr := tracer.New(tracer.WithBpftraceBinary("testdata/fake_bpftrace_hang.sh"))
	err := tr.Rerun(context.Background(), emptyProgram())
	require.ErrorIs(t, err, tracer.ErrNotRunning)
}

func TestTracer_Rerun_RestartsAfterStop(t *testing.T) {
	tr := tracer.New(tracer.WithBpftraceBinary("testdata/fake_bpftrace_hang.sh"))
	sink := make(chan tracer.Event, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tr.Start(ctx, emptyProgram(), sink))
	require.NoError(t, tr.Stop(ctx))

	require.NoError(t, tr.Rerun(ctx, emptyProgram()))
	require.Equal(t, tracer.Running, tr.State())
	require.NoError(t, tr.Stop(ctx))
}

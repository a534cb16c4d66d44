package controller_test

import (
	"context"
	"debug/elf"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/wachy/pkg/controller"
	"github.com/maxgio92/wachy/pkg/tracer"
)

func selfBinary(t *testing.T) string {
	t.Helper()

	path, err := os.Executable()
	require.NoError(t, err)

	f, err := elf.Open(path)
	if err != nil {
		t.Skipf("test binary not a readable ELF: %v", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_X86_64 {
		t.Skip("test binary is not amd64, skipping Controller integration tests")
	}

	return path
}

func newTestController(t *testing.T) *controller.Controller {
	t.Helper()

	tr := tracer.New(tracer.WithBpftraceBinary("testdata/fake_bpftrace.sh"))

	return controller.New(controller.WithTracer(tr))
}

func TestController_Start_Self(t *testing.T) {
	path := selfBinary(t)
	c := newTestController(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Start(ctx, path, "=controller_test.TestController_Start_Self")
	if err != nil {
		t.Skipf("symbol not resolvable under this build, skipping: %v", err)
	}
}

func TestController_Start_NoMatch(t *testing.T) {
	path := selfBinary(t)
	c := newTestController(t)

	err := c.Start(context.Background(), path, "=definitely_not_a_real_symbol_xyz")
	require.Error(t, err)
}

func TestController_Pop_FailsOnSingleFrame(t *testing.T) {
	path := selfBinary(t)
	c := newTestController(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Start(ctx, path, "=controller_test.TestController_Pop_FailsOnSingleFrame")
	if err != nil {
		t.Skipf("symbol not resolvable under this build, skipping: %v", err)
	}

	err = c.Pop(ctx)
	require.Error(t, err)
}

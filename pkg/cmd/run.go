package cmd

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/wachy/pkg/controller"
)

// runTrace resolves query in binaryPath and drives the trace session. No
// ui.Picker/ui.Sink is attached here: the interactive TUI widget library
// is an external collaborator (out of scope), so the Controller falls
// back to its ambient headless display.
func runTrace(ctx context.Context, logger *log.Logger, binaryPath, query string) error {
	c := controller.New(controller.WithLogger(logger))

	if err := c.Start(ctx, binaryPath, query); err != nil {
		return errors.Wrapf(err, "failed to start trace on %s", binaryPath)
	}

	return c.Run(ctx)
}

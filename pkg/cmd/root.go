// Package cmd implements wachy's single root command: resolve a function
// in an ELF binary by fuzzy query, trace it and everything the user drills
// into, and drive either the (out-of-scope) TUI or the ambient headless
// display with the results.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/wachy/internal/config"
)

// Options holds the root command's own flags plus the shared CommonOptions.
type Options struct {
	logLevel string
	debug    bool

	*CommonOptions
}

// NewRootCmd builds the single wachy command: positional <binary-path>
// <function-query>, exit 0 on normal UI exit and non-zero on init failure.
func NewRootCmd(opts *CommonOptions) *cobra.Command {
	o := &Options{CommonOptions: opts}

	cmd := &cobra.Command{
		Use:   "wachy <binary-path> <function-query>",
		Short: "wachy is an interactive userspace performance tracer",
		Long: `wachy traces a function in a running ELF binary, and any callee you
drill into, reporting live latency and call-rate for the lines you select.

Key bindings (once attached to the interactive TUI, out of scope here):
  toggle a per-line trace, toggle an inline-callee trace, push into the
  call on the current line, push an arbitrary symbol by fuzzy search, pop
  back to the parent frame, restart the trace, and set entry/exit filter
  expressions evaluated by bpftrace itself.`,
		Args:              cobra.ExactArgs(2),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "Shorthand for --log-level=debug")

	return cmd
}

func (o *Options) Run(_ *cobra.Command, args []string) error {
	level := o.logLevel
	if o.debug {
		level = "debug"
	}

	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	o.Logger = o.Logger.Level(logLevel)

	return runTrace(o.Ctx, &o.Logger, args[0], args[1])
}

// Execute builds the logger and signal-aware root context, then runs the
// root command, exiting non-zero on init failure.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := config.NewLogger(log.InfoLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := NewCommonOptions(
		WithContext(ctx),
		WithLogger(logger),
	)

	if err := NewRootCmd(opts).Execute(); err != nil {
		os.Exit(1)
	}
}

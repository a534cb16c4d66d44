package tracer

import (
	"os"
	"time"

	log "github.com/rs/zerolog"
)

// Options configures a Tracer. The zero value plus Options.logger defaulting
// is handled by New; callers normally only set bpftraceBinary in tests.
type Options struct {
	bpftraceBinary  string
	shutdownTimeout time.Duration
	logger          *log.Logger
}

// Option configures a Tracer at construction time.
type Option func(*Options)

// NewOptions builds an Options, applying sane defaults before opts.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		bpftraceBinary:  "bpftrace",
		shutdownTimeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithBpftraceBinary overrides the bpftrace executable name or path looked
// up via exec.LookPath (or run directly, if it contains a path separator).
func WithBpftraceBinary(path string) Option {
	return func(o *Options) { o.bpftraceBinary = path }
}

// WithShutdownTimeout overrides how long Stop/Rerun wait for SIGINT to take
// effect before escalating to SIGKILL.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) { o.shutdownTimeout = d }
}

// WithLogger sets the Tracer's logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func defaultLogger() *log.Logger {
	l := log.New(log.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	return &l
}

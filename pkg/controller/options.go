package controller

import (
	"os"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/wachy/pkg/tracer"
	"github.com/maxgio92/wachy/pkg/ui"
)

// Options configures a Controller.
type Options struct {
	logger *log.Logger
	picker ui.Picker
	sink   ui.Sink
	tracer *tracer.Tracer
}

// Option configures a Controller at construction time.
type Option func(*Options)

// NewOptions builds an Options from opts, then fills in a default logger
// and Tracer for any that opts left unset.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		l := log.New(log.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		o.logger = &l
	}
	if o.tracer == nil {
		o.tracer = tracer.New(tracer.WithLogger(o.logger))
	}

	return o
}

// WithLogger sets the Controller's logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithPicker attaches the interactive symbol/call-site picker. Leaving it
// unset keeps the Controller headless: ambiguous choices fail fast with
// ErrPickerRequired instead of blocking on user input.
func WithPicker(p ui.Picker) Option {
	return func(o *Options) { o.picker = p }
}

// WithSink attaches the interactive rendering sink. Leaving it unset
// routes per-tick updates to the internal/display fallback driver instead.
func WithSink(s ui.Sink) Option {
	return func(o *Options) { o.sink = s }
}

// WithTracer overrides the Tracer the Controller drives, primarily for
// tests.
func WithTracer(t *tracer.Tracer) Option {
	return func(o *Options) { o.tracer = t }
}

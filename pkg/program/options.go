package program

import log "github.com/rs/zerolog"

// Options holds the configuration a Program is constructed with, following
// the teacher's functional-options idiom (Options struct + With* setters +
// New* constructor taking variadic Option values).
type Options struct {
	binaryPath string

	logger *log.Logger
}

type Option func(*Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	for _, f := range opts {
		f(o)
	}

	return o
}

// WithBinaryPath sets the path to the ELF executable to analyze.
func WithBinaryPath(path string) Option {
	return func(o *Options) {
		o.binaryPath = path
	}
}

// WithLogger sets the logger used for non-fatal, per-instruction warnings.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

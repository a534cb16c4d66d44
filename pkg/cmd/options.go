package cmd

import (
	"context"

	log "github.com/rs/zerolog"
)

// CommonOptions carries the process-wide context and logger down into the
// root command, mirroring the teacher's CommonOptions/Option pattern.
type CommonOptions struct {
	Ctx      context.Context
	Logger   log.Logger
	LogLevel string
	Debug    bool
}

// Option configures a CommonOptions.
type Option func(o *CommonOptions)

// NewCommonOptions builds a CommonOptions from opts.
func NewCommonOptions(opts ...Option) *CommonOptions {
	o := new(CommonOptions)
	for _, f := range opts {
		f(o)
	}

	return o
}

// WithContext sets the root context, normally tied to process signals.
func WithContext(ctx context.Context) Option {
	return func(o *CommonOptions) { o.Ctx = ctx }
}

// WithLogger sets the base logger.
func WithLogger(logger log.Logger) Option {
	return func(o *CommonOptions) { o.Logger = logger }
}

// Package config holds the process-wide ambient settings: the log-file
// path and the environment variable that enables it, mirroring the way
// the teacher lineage keeps daemon settings in internal/settings.
package config

import (
	"os"

	log "github.com/rs/zerolog"
)

const (
	// CmdName is the name the binary and its log file are known by.
	CmdName = "wachy"

	// LogEnvVar is the environment variable that turns on file logging.
	// Its value is parsed as a zerolog level (trace, debug, info, warn,
	// error); an empty or unset value disables file logging entirely.
	LogEnvVar = "WACHY_LOG"
)

// LogFile is the path file logging is written to, relative to the
// current working directory, when LogEnvVar is set.
var LogFile = CmdName + ".log"

// NewLogger builds the process logger. When WACHY_LOG is unset it logs to
// stderr at the given default level; when set, its value is parsed as a
// zerolog level and a file sink appending to LogFile is added alongside the
// console writer, matching the teacher's log.ParseLevel + ConsoleWriter
// split between interactive and persisted output.
func NewLogger(defaultLevel log.Level) (log.Logger, error) {
	logger := log.New(log.ConsoleWriter{Out: os.Stderr}).Level(defaultLevel).With().Timestamp().Logger()

	spec, ok := os.LookupEnv(LogEnvVar)
	if !ok || spec == "" {
		return logger, nil
	}

	level, err := log.ParseLevel(spec)
	if err != nil {
		return logger, err
	}

	f, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return logger, err
	}

	multi := log.MultiLevelWriter(log.ConsoleWriter{Out: os.Stderr}, f)
	logger = log.New(multi).Level(level).With().Timestamp().Logger()

	return logger, nil
}

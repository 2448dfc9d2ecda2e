// Package logging builds the structured loggers used across the simulator.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr's V.
const (
	DEFAULT = 0
	VERBOSE = 1
	DEBUG   = 2
	TRACE   = 3
)

// ParseLevel maps a level name onto a logr verbosity. Unknown names fall
// back to DEFAULT.
func ParseLevel(level string) int {
	switch strings.ToLower(level) {
	case "verbose":
		return VERBOSE
	case "debug":
		return DEBUG
	case "trace":
		return TRACE
	default:
		return DEFAULT
	}
}

// NewLogger creates a zap-backed logr.Logger that emits messages up to the
// named verbosity. Development loggers use the console encoder.
func NewLogger(level string, development bool) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-1 * ParseLevel(level)))
	// Sampling would drop repeated per-tick messages.
	cfg.Sampling = nil

	z, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

// NewTestLogger creates a development logger emitting every level.
func NewTestLogger() logr.Logger {
	log, err := NewLogger("trace", true)
	if err != nil {
		return logr.Discard()
	}
	return log
}

// OrDiscard returns log, or a discarding logger when log has no sink.
func OrDiscard(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}

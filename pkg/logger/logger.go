// Package logger holds the process-wide zap logger. Subsystems do not take a
// logger by injection; they derive a named child through WithModule so lines
// can be attributed and filtered per subsystem.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// current always holds a usable logger. Until Init runs it is a no-op logger,
// so early code paths and tests can log without any setup.
var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Init swaps in a production JSON logger at the given level. An unknown level
// string falls back to info instead of failing startup.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	current.Store(built)
	return nil
}

// Logger returns the current global logger.
func Logger() *zap.Logger {
	return current.Load()
}

// WithModule derives a child logger tagged with the subsystem name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Sync flushes buffered entries. Callers typically defer it at shutdown.
func Sync() error {
	return Logger().Sync()
}

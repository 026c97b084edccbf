package pool

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the options a bounded Pool is constructed with, per §6's
// object pool configuration table.
type Config[T any] struct {
	minSize       int
	maxSize       int
	objectFactory func() (T, error)
	onClose       func(T)
	logger        *zap.Logger
	logLevel      *zap.AtomicLevel
}

func (c *Config[T]) GetMinSize() int { return c.minSize }
func (c *Config[T]) GetMaxSize() int { return c.maxSize }

// validate checks the §6 constraints: 0 <= minSize <= maxSize, maxSize >= 1,
// objectFactory required.
func (c *Config[T]) validate() error {
	if c.maxSize < 1 {
		return wrapConfigErr("maxSize must be >= 1")
	}
	if c.minSize < 0 || c.minSize > c.maxSize {
		return wrapConfigErr("minSize must satisfy 0 <= minSize <= maxSize")
	}
	if c.objectFactory == nil {
		return wrapConfigErr("objectFactory is required")
	}
	if c.logger == nil {
		c.logger = c.buildDefaultLogger()
	}
	return nil
}

// buildDefaultLogger is silent unless SetLogLevel opted into verbosity, in
// which case it builds a real logger gated by the AtomicLevel that
// SetLogLevel stored in the Config. No exported method exposes that
// AtomicLevel, so callers cannot change the level after Build.
func (c *Config[T]) buildDefaultLogger() *zap.Logger {
	if c.logLevel == nil {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		*c.logLevel,
	)
	return zap.New(core)
}

func wrapConfigErr(msg string) error {
	return &configError{msg: msg}
}

type configError struct{ msg string }

func (e *configError) Error() string { return "pool: invalid configuration: " + e.msg }

func (e *configError) Unwrap() error { return ErrConfigInvalid }

package pool

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConfigBuilder provides a fluent interface for configuring a bounded Pool:
// chained Set* calls followed by a single Build() that validates and applies
// defaults.
type ConfigBuilder[T any] struct {
	config *Config[T]
}

// NewConfigBuilder starts a new builder with no options set.
func NewConfigBuilder[T any]() *ConfigBuilder[T] {
	return &ConfigBuilder[T]{config: &Config[T]{}}
}

// SetMinSize sets the prewarm count and scale-in floor.
func (b *ConfigBuilder[T]) SetMinSize(minSize int) *ConfigBuilder[T] {
	b.config.minSize = minSize
	return b
}

// SetMaxSize sets the hard cap on resident entries.
func (b *ConfigBuilder[T]) SetMaxSize(maxSize int) *ConfigBuilder[T] {
	b.config.maxSize = maxSize
	return b
}

// SetObjectFactory sets the producer of payloads.
func (b *ConfigBuilder[T]) SetObjectFactory(factory func() (T, error)) *ConfigBuilder[T] {
	b.config.objectFactory = factory
	return b
}

// SetOnClose sets the hook invoked per payload at removal.
func (b *ConfigBuilder[T]) SetOnClose(onClose func(T)) *ConfigBuilder[T] {
	b.config.onClose = onClose
	return b
}

// SetLogger sets the structured logger used for all non-fatal diagnostics.
// A nil logger (the default) leaves the pool on its default logger, which
// is silent unless SetLogLevel was called.
func (b *ConfigBuilder[T]) SetLogger(logger *zap.Logger) *ConfigBuilder[T] {
	b.config.logger = logger
	return b
}

// SetLogLevel opts the pool's default logger into verbosity at level and
// above. Has no effect once SetLogger has supplied an explicit logger: the
// caller then owns that logger's level.
func (b *ConfigBuilder[T]) SetLogLevel(level zapcore.Level) *ConfigBuilder[T] {
	lvl := zap.NewAtomicLevelAt(level)
	b.config.logLevel = &lvl
	return b
}

// Build validates the accumulated options, applies defaults for anything
// left unset, and returns the finished Config.
func (b *ConfigBuilder[T]) Build() (*Config[T], error) {
	if err := b.config.validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

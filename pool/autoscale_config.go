package pool

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AutoScaleConfig layers the §6 auto-scale options on top of the base pool
// Config.
type AutoScaleConfig[T any] struct {
	*Config[T]

	checkInterval time.Duration
	objectTTL     time.Duration
	maxIdleTime   time.Duration
	scaleFactor   int
	staleChecker  func(T) bool
}

func (c *AutoScaleConfig[T]) validate() error {
	if err := c.Config.validate(); err != nil {
		return err
	}
	if c.checkInterval <= 0 {
		c.checkInterval = defaultCheckInterval
	}
	if c.objectTTL <= 0 {
		c.objectTTL = defaultObjectTTL
	}
	if c.maxIdleTime <= 0 {
		c.maxIdleTime = defaultMaxIdleTime
	}
	if c.scaleFactor < 1 {
		c.scaleFactor = defaultScaleFactor
	}
	if c.staleChecker == nil {
		c.staleChecker = func(T) bool { return false }
	}
	return nil
}

// AutoScaleConfigBuilder is the fluent builder for AutoScaleConfig,
// embedding a base ConfigBuilder the same way AutoScaleConfig embeds Config.
type AutoScaleConfigBuilder[T any] struct {
	base   *ConfigBuilder[T]
	config *AutoScaleConfig[T]
}

// NewAutoScaleConfigBuilder starts a new builder with no options set.
func NewAutoScaleConfigBuilder[T any]() *AutoScaleConfigBuilder[T] {
	base := NewConfigBuilder[T]()
	return &AutoScaleConfigBuilder[T]{
		base:   base,
		config: &AutoScaleConfig[T]{Config: base.config},
	}
}

func (b *AutoScaleConfigBuilder[T]) SetMinSize(minSize int) *AutoScaleConfigBuilder[T] {
	b.base.SetMinSize(minSize)
	return b
}

func (b *AutoScaleConfigBuilder[T]) SetMaxSize(maxSize int) *AutoScaleConfigBuilder[T] {
	b.base.SetMaxSize(maxSize)
	return b
}

func (b *AutoScaleConfigBuilder[T]) SetObjectFactory(factory func() (T, error)) *AutoScaleConfigBuilder[T] {
	b.base.SetObjectFactory(factory)
	return b
}

func (b *AutoScaleConfigBuilder[T]) SetOnClose(onClose func(T)) *AutoScaleConfigBuilder[T] {
	b.base.SetOnClose(onClose)
	return b
}

func (b *AutoScaleConfigBuilder[T]) SetLogger(logger *zap.Logger) *AutoScaleConfigBuilder[T] {
	b.base.SetLogger(logger)
	return b
}

// SetLogLevel opts the pool's default logger into verbosity at level and
// above; see ConfigBuilder.SetLogLevel.
func (b *AutoScaleConfigBuilder[T]) SetLogLevel(level zapcore.Level) *AutoScaleConfigBuilder[T] {
	b.base.SetLogLevel(level)
	return b
}

// SetCheckInterval sets the sweep period.
func (b *AutoScaleConfigBuilder[T]) SetCheckInterval(d time.Duration) *AutoScaleConfigBuilder[T] {
	b.config.checkInterval = d
	return b
}

// SetObjectTTL sets the max age before refresh.
func (b *AutoScaleConfigBuilder[T]) SetObjectTTL(d time.Duration) *AutoScaleConfigBuilder[T] {
	b.config.objectTTL = d
	return b
}

// SetMaxIdleTime sets the idle duration that triggers scale-in.
func (b *AutoScaleConfigBuilder[T]) SetMaxIdleTime(d time.Duration) *AutoScaleConfigBuilder[T] {
	b.config.maxIdleTime = d
	return b
}

// SetScaleFactor sets the batch size on miss-path scale-out. scaleFactor=1
// disables batch growth.
func (b *AutoScaleConfigBuilder[T]) SetScaleFactor(factor int) *AutoScaleConfigBuilder[T] {
	b.config.scaleFactor = factor
	return b
}

// SetStaleChecker sets the predicate used to flag a payload for refresh
// independent of TTL.
func (b *AutoScaleConfigBuilder[T]) SetStaleChecker(checker func(T) bool) *AutoScaleConfigBuilder[T] {
	b.config.staleChecker = checker
	return b
}

// Build validates the accumulated options and returns the finished
// AutoScaleConfig.
func (b *AutoScaleConfigBuilder[T]) Build() (*AutoScaleConfig[T], error) {
	if err := b.config.validate(); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return b.config, nil
}

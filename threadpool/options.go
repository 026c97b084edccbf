package threadpool

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option configures a plain ThreadPool at construction time.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	loggerSet   bool
	logLevel    zapcore.Level
	logLevelSet bool
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.loggerSet = true
	}
}

// WithLogLevel opts the underlying pool's default logger into verbosity at
// level and above. Has no effect once WithLogger has supplied an explicit
// logger.
func WithLogLevel(level zapcore.Level) Option {
	return func(o *options) {
		o.logLevel = level
		o.logLevelSet = true
	}
}

func resolveOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// AutoScaleOption configures an AutoScaleThreadPool at construction time.
type AutoScaleOption func(*autoScaleOptions)

type autoScaleOptions struct {
	logger        *zap.Logger
	loggerSet     bool
	logLevel      zapcore.Level
	logLevelSet   bool
	checkInterval time.Duration
	objectTTL     time.Duration
	maxIdleTime   time.Duration
	scaleFactor   int
}

// WithAutoScaleLogger attaches a structured logger.
func WithAutoScaleLogger(logger *zap.Logger) AutoScaleOption {
	return func(o *autoScaleOptions) {
		o.logger = logger
		o.loggerSet = true
	}
}

// WithAutoScaleLogLevel opts the underlying pool's default logger into
// verbosity at level and above. Has no effect once WithAutoScaleLogger has
// supplied an explicit logger.
func WithAutoScaleLogLevel(level zapcore.Level) AutoScaleOption {
	return func(o *autoScaleOptions) {
		o.logLevel = level
		o.logLevelSet = true
	}
}

// WithCheckInterval sets the sweep period for idle/TTL checks.
func WithCheckInterval(d time.Duration) AutoScaleOption {
	return func(o *autoScaleOptions) { o.checkInterval = d }
}

// WithWorkerTTL sets the max worker age before it is recycled.
func WithWorkerTTL(d time.Duration) AutoScaleOption {
	return func(o *autoScaleOptions) { o.objectTTL = d }
}

// WithMaxIdleTime sets how long an idle worker survives before scale-in.
func WithMaxIdleTime(d time.Duration) AutoScaleOption {
	return func(o *autoScaleOptions) { o.maxIdleTime = d }
}

// WithScaleFactor sets the batch size used for background scale-out on a
// miss. A factor of 1 disables batch growth.
func WithScaleFactor(factor int) AutoScaleOption {
	return func(o *autoScaleOptions) { o.scaleFactor = factor }
}

func resolveAutoScaleOptions(opts []AutoScaleOption) *autoScaleOptions {
	o := &autoScaleOptions{logger: zap.NewNop()}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

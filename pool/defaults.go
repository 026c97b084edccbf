package pool

import "time"

// Defaults for auto-scale options left unset by the builder, following the
// teacher's convention of centralizing tunables in one file; they are
// applied by AutoScaleConfig.validate.
const (
	defaultCheckInterval = 30 * time.Second
	defaultObjectTTL     = 10 * time.Minute
	defaultMaxIdleTime   = 5 * time.Minute
	defaultScaleFactor   = 1

	// defaultRefreshInflight bounds the number of concurrent background
	// refreshes the release-path handoff will run before falling back to
	// inline execution.
	defaultRefreshInflight = 8
)

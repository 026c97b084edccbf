// Package pool implements a bounded, lazily-populated object pool with an
// optional auto-scaling extension.
//
// The base [Pool] manufactures up to a configured maximum number of payloads
// on demand and hands them out to callers through Acquire/Release. Layering
// [AutoScalePool] on top adds batched scale-out on cache misses, periodic
// scale-in of idle entries, and TTL/staleness-driven refresh, all specified
// in terms of the same Entry/table/semaphore primitives the base pool uses.
package pool

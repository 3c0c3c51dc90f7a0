// Package resilience provides the retry scheduler and circuit breaker used
// around the host engine.
//
// The Scheduler runs delayed tasks without blocking any shared worker: a
// retry scheduled for one extension never stalls operations for another.
// At most one task is pending per key; scheduling again replaces the
// pending task, and Cancel drops it.
//
// The Breaker fails engine calls fast after repeated consecutive failures,
// then probes again after a cooldown.
package resilience

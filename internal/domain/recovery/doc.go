// Package recovery classifies load failures and decides retry-with-backoff
// versus permanent failure.
//
// Failures reach this package as free-text messages from the host platform,
// so classification and severity are derived by ordered keyword matching
// rather than inferred from types. The manager is the sole authority on
// retry-vs-terminate decisions: callers act on the returned directive and
// never invent their own retry policy.
//
// Every handled failure lands in a bounded FIFO history (capacity 100).
package recovery

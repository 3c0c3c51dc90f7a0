// Package isolation allocates one isolated execution context per extension.
//
// Each session carries the restriction set derived from its isolation level.
// The level-to-restriction mapping is configurable at runtime; the strict
// level always blocks native and inter-extension messaging regardless of
// what a manifest declares.
//
// Invariant: at most one active session per extension id. Create replaces
// any prior session for the id; Destroy is idempotent so callers can tear
// down without checking existence first.
package isolation

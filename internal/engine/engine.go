// Package engine defines the host browser-engine seam.
//
// The real isolated-context primitive belongs to the host platform; this
// package only declares the capability the coordinator needs and ships an
// in-process stand-in for development and tests. Engine failures surface
// as free-text error messages, which is why the recovery manager
// classifies by keyword.
package engine

import "context"

// Engine materializes isolated browsing contexts and binds extension
// scripts into them.
type Engine interface {
	// CreatePartition materializes an isolated execution context for the
	// session identifier.
	CreatePartition(ctx context.Context, sessionID string) error

	// LoadExtension binds the package at path into the partition and
	// returns a host-assigned load id.
	LoadExtension(ctx context.Context, sessionID, path string) (string, error)

	// UnloadExtension unbinds a previously loaded extension.
	UnloadExtension(ctx context.Context, sessionID, loadID string) error

	// DestroyPartition tears down the isolated context. Destroying an
	// unknown partition is a no-op.
	DestroyPartition(ctx context.Context, sessionID string) error
}

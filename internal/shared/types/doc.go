// Package types provides shared data structures for the extension host backend.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Manifest: Parsed extension package descriptor
//   - Extension: Installed extension record
//   - IsolationSession: Isolated execution context bookkeeping
//   - Assessment: Per-validation permission risk report
//   - ExtensionError: Classified load failure record
//
// State Management:
//   - State: Extension lifecycle state enum
//   - IsolationLevel: Restriction profile (none, relaxed, standard, strict)
//   - RiskLevel: Ordered permission risk scale
//
// Example Usage:
//
//	ext := &types.Extension{
//	    ID:      "my-ext--1.0",
//	    Name:    "My Ext",
//	    Version: "1.0",
//	    State:   types.StateActive,
//	}
package types

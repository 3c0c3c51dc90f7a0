// Package main is the entry point for the Helium extension host backend.
//
// This service owns the browser's extension subsystem: installing
// packages, assessing their permissions, running each extension in an
// isolated session and recovering from load failures.
//
// The server provides:
//   - REST API for extension management
//   - WebSocket streaming of lifecycle events
//   - Permission override administration
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8600 -storage /var/lib/helium
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

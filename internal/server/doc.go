// Package server provides HTTP server setup and initialization for the
// extension host backend.
//
// This package orchestrates all components:
//   - HTTP routing with the Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, recovery)
//   - Store, parser, risk engine, isolation and recovery managers
//   - Lifecycle coordinator wiring and restore
//   - Telemetry sampler and event hub
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Open the extension store and apply the policy file
//  4. Wire the coordinator and restore persisted extensions
//  5. Setup HTTP routes and middleware
//  6. Start the HTTP server
//  7. Graceful shutdown on signal
package server

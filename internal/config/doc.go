// Package config provides 12-factor configuration for the extension host
// backend.
//
// Configuration is loaded from environment variables with sensible
// defaults. An optional YAML policy file can pre-seed permission
// overrides and replace the isolation level mapping.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Storage: persistence and staging directories
//   - Extensions: default isolation level, risk tolerance, auto-load
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Environment Variables:
//   - PORT, HOST
//   - STORAGE_PATH, STAGING_PATH, POLICY_FILE
//   - EXT_ISOLATION_LEVEL, EXT_RISK_TOLERANCE, EXT_AUTO_LOAD
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config

// Package ws streams lifecycle events to WebSocket subscribers.
//
// The Hub fans events published by the coordinator out to every
// connected client; the Handler upgrades HTTP requests and pumps the
// per-connection send queue. Slow clients are dropped rather than
// allowed to block the hub.
package ws

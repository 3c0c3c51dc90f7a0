// Package extension coordinates the extension lifecycle.
//
// The Coordinator owns the per-extension state machine and drives the
// other domain components: the package parser on add, the permission
// risk engine and isolation session manager during a load, and the error
// recovery manager whenever binding to the host engine fails. Recovery
// retries are scheduled, never slept, so a failing load never blocks a
// caller.
//
// Every lifecycle operation for a given extension id is serialized by a
// keyed lock; operations on distinct ids proceed concurrently.
package extension

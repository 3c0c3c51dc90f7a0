// Package permissions scores the risk of manifest permission requests and
// enforces user allow/deny policy.
//
// Every known permission string maps to one category and one ordered risk
// level. Validation compares each requested permission against the user's
// risk tolerance, after consulting explicit overrides (per-extension first,
// then global). Blocked permissions subtract fixed penalties from a score
// of 100; the score is deliberately not floor-clamped, so heavily blocked
// manifests can go negative.
//
// A fixed combination table flags dangerous permission pairs; warnings are
// advisory and never change validity or the score on their own.
package permissions

package recovery

import (
	"strings"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// Classify maps a free-text failure message to an error kind.
// Matching is ordered: earlier rules win when a message matches several.
func Classify(message string) types.ErrorKind {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "unsupported") && strings.Contains(m, "version"):
		return types.KindUnsupportedVersion
	case strings.Contains(m, "security"), strings.Contains(m, "violation"):
		return types.KindSecurityViolation
	case strings.Contains(m, "conflict"), strings.Contains(m, "duplicate"),
		strings.Contains(m, "already exists"), strings.Contains(m, "already registered"):
		return types.KindConflictDetected
	case strings.Contains(m, "manifest"):
		return types.KindManifestInvalid
	case strings.Contains(m, "permission"), strings.Contains(m, "denied"):
		return types.KindPermissionDenied
	case strings.Contains(m, "enoent"), strings.Contains(m, "not found"),
		strings.Contains(m, "no such file"):
		return types.KindFileNotFound
	case strings.Contains(m, "invalid package"), strings.Contains(m, "corrupt"),
		strings.Contains(m, "invalid zip"), strings.Contains(m, "invalid crx"),
		strings.Contains(m, "truncated"):
		return types.KindInvalidPackage
	case strings.Contains(m, "network"), strings.Contains(m, "timeout"),
		strings.Contains(m, "connection"), strings.Contains(m, "econnrefused"),
		strings.Contains(m, "dns"):
		return types.KindNetworkError
	case strings.Contains(m, "memory"), strings.Contains(m, "oom"),
		strings.Contains(m, "heap"):
		return types.KindMemoryExceeded
	default:
		return types.KindUnknown
	}
}

// SeverityOf ranks a failure message:
// security/violation are critical; manifest/permission/conflict are high;
// network/memory are medium; everything else is low.
func SeverityOf(message string) types.Severity {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "security"), strings.Contains(m, "violation"):
		return types.SeverityCritical
	case strings.Contains(m, "manifest"), strings.Contains(m, "permission"),
		strings.Contains(m, "conflict"):
		return types.SeverityHigh
	case strings.Contains(m, "network"), strings.Contains(m, "memory"):
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// RecoverableFrom reports whether a failure message looks recoverable.
// Defaults to true; unsupported-version and security-violation shaped
// messages are terminal.
func RecoverableFrom(message string) bool {
	m := strings.ToLower(message)

	if strings.Contains(m, "unsupported") {
		return false
	}
	if strings.Contains(m, "security") || strings.Contains(m, "violation") {
		return false
	}
	return true
}

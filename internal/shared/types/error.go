package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the failure taxonomy for extension loading
type ErrorKind string

const (
	KindManifestInvalid    ErrorKind = "manifest_invalid"
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindFileNotFound       ErrorKind = "file_not_found"
	KindNetworkError       ErrorKind = "network_error"
	KindMemoryExceeded     ErrorKind = "memory_exceeded"
	KindSecurityViolation  ErrorKind = "security_violation"
	KindConflictDetected   ErrorKind = "conflict_detected"
	KindInvalidPackage     ErrorKind = "invalid_package"
	KindUnsupportedVersion ErrorKind = "unsupported_version"
	KindUnknown            ErrorKind = "unknown"
)

// Severity ranks how serious a failure is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error is a kinded domain error. Components return it across boundaries
// instead of throwing; the coordinator matches on Kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// E constructs a kinded error
func E(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, or KindUnknown
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// ExtensionError is a classified failure record kept in the bounded history
type ExtensionError struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	Severity    Severity  `json:"severity"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	ExtensionID string    `json:"extension_id"`
	RetryCount  int       `json:"retry_count"`
}

// RecoveryAction is the recovery manager's directive for a failed load
type RecoveryAction string

const (
	// ActionRetry reschedules the load after LoadResult.Delay
	ActionRetry RecoveryAction = "retry"
	// ActionRepairManifest patches the manifest then retries immediately
	ActionRepairManifest RecoveryAction = "repair_manifest"
	// ActionReleaseResources tears down the session then retries
	ActionReleaseResources RecoveryAction = "release_resources"
	// ActionTerminate stops the load sequence for this extension
	ActionTerminate RecoveryAction = "terminate"
)

// LoadResult is the outcome of routing a failure through error recovery
type LoadResult struct {
	Action      RecoveryAction `json:"action"`
	Delay       time.Duration  `json:"delay"`
	Recoverable bool           `json:"recoverable"`
	Error       ExtensionError `json:"error"`
}

// ErrorStats reports the bounded history
type ErrorStats struct {
	Total      int               `json:"total"`
	ByKind     map[ErrorKind]int `json:"by_kind"`
	BySeverity map[Severity]int  `json:"by_severity"`
	Recent     []ExtensionError  `json:"recent"`
}

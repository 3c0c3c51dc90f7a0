package types

import "time"

// State represents extension lifecycle states. Unregistered, validating
// and removed are transient: a package is parsed and validated before an
// extension record exists and the record is dropped on removal, so those
// phases never appear on a stored extension.
type State string

const (
	StateUnregistered       State = "unregistered"
	StateValidating         State = "validating"
	StateInvalid            State = "invalid"
	StatePermissionChecking State = "permission_checking"
	StateBlocked            State = "blocked"
	StateSessionCreating    State = "session_creating"
	StateActive             State = "active"
	StateInactive           State = "inactive"
	StateRemoved            State = "removed"
)

// BackgroundDescriptor declares an extension's background entry point
type BackgroundDescriptor struct {
	ServiceWorker string   `json:"service_worker,omitempty"`
	Scripts       []string `json:"scripts,omitempty"`
	Persistent    *bool    `json:"persistent,omitempty"`
}

// ContentScript declares scripts injected into matching pages
type ContentScript struct {
	Matches []string `json:"matches,omitempty"`
	JS      []string `json:"js,omitempty"`
	CSS     []string `json:"css,omitempty"`
	RunAt   string   `json:"run_at,omitempty"`
}

// Manifest is an extension's declarative descriptor.
// Immutable once parsed; a zero ManifestVersion means the field was absent.
type Manifest struct {
	Name            string                `json:"name"`
	Version         string                `json:"version"`
	ManifestVersion int                   `json:"manifest_version"`
	Description     string                `json:"description,omitempty"`
	Permissions     []string              `json:"permissions,omitempty"`
	Background      *BackgroundDescriptor `json:"background,omitempty"`
	ContentScripts  []ContentScript       `json:"content_scripts,omitempty"`
}

// Extension is an installed extension record.
// Created on successful add, mutated only by toggle/update, destroyed on remove.
type Extension struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Path        string    `json:"path"`
	Enabled     bool      `json:"enabled"`
	State       State     `json:"state"`
	Manifest    Manifest  `json:"manifest"`
	InstalledAt time.Time `json:"installed_at"`
	LoadID      *string   `json:"load_id,omitempty"` // host-assigned, set while bound
}

// Settings holds user-facing extension subsystem settings.
// Persisted by the external store alongside extension records.
type Settings struct {
	EnableExtensions      bool           `json:"enable_extensions"`
	AutoLoadExtensions    bool           `json:"auto_load_extensions"`
	DefaultIsolationLevel IsolationLevel `json:"default_isolation_level"`
	DefaultRiskTolerance  RiskLevel      `json:"default_risk_tolerance"`
}

// CoordinatorStats contains lifecycle coordinator statistics
type CoordinatorStats struct {
	TotalExtensions   int           `json:"total_extensions"`
	EnabledExtensions int           `json:"enabled_extensions"`
	ActiveExtensions  int           `json:"active_extensions"`
	ByState           map[State]int `json:"by_state"`
}

// Event is a lifecycle event pushed to stream subscribers
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	ExtensionID string                 `json:"extension_id,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Time        time.Time              `json:"time"`
}

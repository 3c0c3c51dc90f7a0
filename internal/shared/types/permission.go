package types

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the ordered permission risk scale.
// The numeric ordering matters: comparisons against the user's tolerance
// and the aggregate-risk thresholds use these values directly.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

// String returns the string representation of the risk level
func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseRiskLevel parses a risk level name
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "none":
		return RiskNone, nil
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "critical":
		return RiskCritical, nil
	default:
		return RiskNone, fmt.Errorf("unknown risk level %q", s)
	}
}

// MarshalJSON encodes the risk level as its name
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a risk level from its name
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// PermissionCategory groups permissions by the capability surface they touch
type PermissionCategory string

const (
	CategorySensitive PermissionCategory = "sensitive"
	CategoryNetwork   PermissionCategory = "network"
	CategorySystem    PermissionCategory = "system"
	CategoryFile      PermissionCategory = "file"
	CategoryUI        PermissionCategory = "ui"
	CategoryStorage   PermissionCategory = "storage"
	CategoryUnknown   PermissionCategory = "unknown"
)

// PermissionInfo describes a known permission string
type PermissionInfo struct {
	Name        string             `json:"name"`
	Category    PermissionCategory `json:"category"`
	Risk        RiskLevel          `json:"risk"`
	Description string             `json:"description"`
}

// AllowedPermission is a permission the engine allowed for this extension
type AllowedPermission struct {
	Name        string             `json:"name"`
	Category    PermissionCategory `json:"category"`
	Risk        RiskLevel          `json:"risk"`
	Description string             `json:"description"`
}

// BlockedPermission is a permission the engine refused, with the reason
type BlockedPermission struct {
	Name     string             `json:"name"`
	Category PermissionCategory `json:"category"`
	Risk     RiskLevel          `json:"risk"`
	Reason   string             `json:"reason"`
}

// CombinationWarning flags a dangerous pair of requested permissions
type CombinationWarning struct {
	Permissions []string  `json:"permissions"`
	Severity    RiskLevel `json:"severity"`
	Message     string    `json:"message"`
}

// Suggestion is advisory output attached to an assessment
type Suggestion struct {
	Kind        string   `json:"kind"`
	Message     string   `json:"message"`
	Permissions []string `json:"permissions,omitempty"`
}

// Assessment is the result of one permission validation pass.
// Ephemeral: recomputed on every validation, never persisted.
type Assessment struct {
	Valid       bool                 `json:"valid"`
	Allowed     []AllowedPermission  `json:"allowed"`
	Blocked     []BlockedPermission  `json:"blocked"`
	Warnings    []CombinationWarning `json:"warnings"`
	Suggestions []Suggestion         `json:"suggestions"`
	RiskLevel   RiskLevel            `json:"risk_level"`
	Score       int                  `json:"score"`
}

// PermissionStats reports taxonomy totals and configured overrides
type PermissionStats struct {
	TotalKnown int                        `json:"total_known"`
	ByCategory map[PermissionCategory]int `json:"by_category"`
	ByRisk     map[string]int             `json:"by_risk"`
	Overrides  int                        `json:"overrides"`
}

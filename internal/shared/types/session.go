package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// IsolationLevel is a named restriction profile applied to a session
type IsolationLevel string

const (
	IsolationNone     IsolationLevel = "none"
	IsolationRelaxed  IsolationLevel = "relaxed"
	IsolationStandard IsolationLevel = "standard"
	IsolationStrict   IsolationLevel = "strict"
)

// ParseIsolationLevel parses an isolation level name
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch IsolationLevel(s) {
	case IsolationNone, IsolationRelaxed, IsolationStandard, IsolationStrict:
		return IsolationLevel(s), nil
	default:
		return "", fmt.Errorf("unknown isolation level %q", s)
	}
}

// UnmarshalJSON validates the level name on decode
func (l *IsolationLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseIsolationLevel(s)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// IsolationSession tracks one isolated execution context.
// At most one active session exists per extension id at any time.
type IsolationSession struct {
	ID           string         `json:"id"`
	ExtensionID  string         `json:"extension_id"`
	Level        IsolationLevel `json:"level"`
	Restrictions []string       `json:"restrictions"`
	CreatedAt    time.Time      `json:"created_at"`
	LastUsed     time.Time      `json:"last_used"`
	MemoryUsage  uint64         `json:"memory_usage"`
	IsActive     bool           `json:"is_active"`
}

// SessionStats aggregates the session pool
type SessionStats struct {
	PoolSize       int                    `json:"pool_size"`
	ActiveSessions int                    `json:"active_sessions"`
	ByLevel        map[IsolationLevel]int `json:"by_level"`
	TotalMemory    uint64                 `json:"total_memory"`
}

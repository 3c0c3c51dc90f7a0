package isolation

import (
	"sync"
	"time"

	"github.com/heliumweb/helium/backend/internal/shared/id"
	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// Manager owns the session pool
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*types.IsolationSession // keyed by extension id
	config   Config
}

// NewManager creates a session manager with the default level mapping
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a session manager with a custom mapping
func NewManagerWithConfig(cfg Config) *Manager {
	if cfg.Restrictions == nil {
		cfg = DefaultConfig()
	}
	return &Manager{
		sessions: make(map[string]*types.IsolationSession),
		config:   cfg.clone(),
	}
}

// Create allocates a fresh session for the extension, replacing any prior
// session for the same extension id. An empty level selects the configured
// default. Callers serialize concurrent Create calls per extension id.
func (m *Manager) Create(ext *types.Extension, level types.IsolationLevel) *types.IsolationSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if level == "" {
		level = m.config.DefaultLevel
	}

	now := time.Now()
	session := &types.IsolationSession{
		ID:           id.NewPartitionID().String(),
		ExtensionID:  ext.ID,
		Level:        level,
		Restrictions: append([]string(nil), m.config.Restrictions[level]...),
		CreatedAt:    now,
		LastUsed:     now,
		MemoryUsage:  0,
		IsActive:     true,
	}

	m.sessions[ext.ID] = session

	copy := *session
	return &copy
}

// Destroy tears down the session for an extension id. Calling it when no
// session exists is a no-op, so cleanup never needs an existence check.
func (m *Manager) Destroy(extensionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[extensionID]; ok {
		session.IsActive = false
		delete(m.sessions, extensionID)
	}
}

// Get returns a copy of the session for an extension id
func (m *Manager) Get(extensionID string) (*types.IsolationSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[extensionID]
	if !ok {
		return nil, false
	}

	copy := *session
	return &copy, true
}

// UpdateUsage refreshes lastUsed and memoryUsage from a host-supplied sample
func (m *Manager) UpdateUsage(extensionID string, memoryUsage uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[extensionID]
	if !ok {
		return false
	}

	session.LastUsed = time.Now()
	session.MemoryUsage = memoryUsage
	return true
}

// Sessions returns copies of every pooled session
func (m *Manager) Sessions() []types.IsolationSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.IsolationSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, *session)
	}
	return out
}

// Stats aggregates the pool
func (m *Manager) Stats() types.SessionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := types.SessionStats{
		PoolSize: len(m.sessions),
		ByLevel:  make(map[types.IsolationLevel]int),
	}

	for _, session := range m.sessions {
		if session.IsActive {
			stats.ActiveSessions++
		}
		stats.ByLevel[session.Level]++
		stats.TotalMemory += session.MemoryUsage
	}
	return stats
}

// UpdateConfig merges a partial config: a nil restriction map keeps the
// current mapping, an empty DefaultLevel keeps the current default.
// Existing sessions keep the restrictions they were created with.
func (m *Manager) UpdateConfig(partial Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if partial.DefaultLevel != "" {
		m.config.DefaultLevel = partial.DefaultLevel
	}
	for level, restrictions := range partial.Restrictions {
		m.config.Restrictions[level] = append([]string(nil), restrictions...)
	}
}

// GetConfig returns a copy of the active config
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.config.clone()
}

package extension

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliumweb/helium/backend/internal/domain/isolation"
	"github.com/heliumweb/helium/backend/internal/domain/permissions"
	"github.com/heliumweb/helium/backend/internal/domain/pkgparser"
	"github.com/heliumweb/helium/backend/internal/domain/recovery"
	"github.com/heliumweb/helium/backend/internal/engine"
	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// memStore is an in-memory Store for tests. Setting saveErr makes
// SaveExtension fail once more than failSavesAfter calls were made.
type memStore struct {
	extensions map[string]types.Extension
	settings   types.Settings
	overrides  map[string][]string

	saves          int
	saveErr        error
	failSavesAfter int
}

func newMemStore() *memStore {
	return &memStore{
		extensions: make(map[string]types.Extension),
		settings: types.Settings{
			EnableExtensions:      true,
			AutoLoadExtensions:    true,
			DefaultIsolationLevel: types.IsolationStandard,
			DefaultRiskTolerance:  types.RiskMedium,
		},
		overrides: make(map[string][]string),
	}
}

func (s *memStore) SaveExtension(ext types.Extension) error {
	s.saves++
	if s.saveErr != nil && s.saves > s.failSavesAfter {
		return s.saveErr
	}
	s.extensions[ext.ID] = ext
	return nil
}

func (s *memStore) DeleteExtension(id string) error {
	delete(s.extensions, id)
	return nil
}

func (s *memStore) Extensions() []types.Extension {
	out := make([]types.Extension, 0, len(s.extensions))
	for _, ext := range s.extensions {
		out = append(out, ext)
	}
	return out
}

func (s *memStore) Settings() types.Settings                  { return s.settings }
func (s *memStore) SetSettings(settings types.Settings) error { s.settings = settings; return nil }
func (s *memStore) Overrides() map[string][]string            { return s.overrides }
func (s *memStore) SetOverrides(o map[string][]string) error  { s.overrides = o; return nil }

// memPublisher records published lifecycle events
type memPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *memPublisher) Publish(event types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *memPublisher) Events() []types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Event(nil), p.events...)
}

type fixture struct {
	coordinator *Coordinator
	engine      *engine.InProc
	sessions    *isolation.Manager
	recovery    *recovery.Manager
	store       *memStore
	publisher   *memPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	host := engine.NewInProc()
	sessions := isolation.NewManager()
	store := newMemStore()
	publisher := &memPublisher{}
	rec := recovery.NewManager(recovery.Options{
		MaxRetries:    3,
		MemoryRetries: 2,
		Backoff:       []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond},
		HistoryCap:    100,
	})

	c := NewCoordinator(Deps{
		Parser:      pkgparser.NewParser(pkgparser.NewZipReader()),
		Permissions: permissions.NewEngine(),
		Sessions:    sessions,
		Recovery:    rec,
		Engine:      host,
		Store:       store,
		Publisher:   publisher,
	})
	t.Cleanup(c.Close)

	return &fixture{coordinator: c, engine: host, sessions: sessions, recovery: rec, store: store, publisher: publisher}
}

// writeExtensionDir creates an unpacked extension directory
func writeExtensionDir(t *testing.T, name, version string, perms ...string) string {
	t.Helper()

	dir := t.TempDir()
	manifest := map[string]interface{}{
		"name":             name,
		"version":          version,
		"manifest_version": 3,
	}
	if len(perms) > 0 {
		manifest["permissions"] = perms
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644))
	return dir
}

func TestAddLoadsExtension(t *testing.T) {
	f := newFixture(t)
	dir := writeExtensionDir(t, "Note Taker", "1.0", "storage")

	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, ext)

	assert.Equal(t, "note-taker-1.0", ext.ID)
	assert.Equal(t, types.StateActive, ext.State)
	assert.True(t, ext.Enabled)
	require.NotNil(t, ext.LoadID)

	session, ok := f.sessions.Get(ext.ID)
	require.True(t, ok)
	assert.True(t, session.IsActive)
	assert.Equal(t, 1, f.engine.Loaded(session.ID))

	// Persisted
	_, ok = f.store.extensions[ext.ID]
	assert.True(t, ok)
}

func TestAddDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	dir := writeExtensionDir(t, "Dup", "2.0")

	_, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	_, err = f.coordinator.Add(context.Background(), dir)
	require.Error(t, err)
	assert.Equal(t, types.KindConflictDetected, types.KindOf(err))

	stats := f.recovery.Stats()
	assert.Equal(t, 1, stats.ByKind[types.KindConflictDetected])
}

func TestAddParseFailureIsRecorded(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Add(context.Background(), filepath.Join(t.TempDir(), "nowhere"))
	require.Error(t, err)
	assert.Equal(t, types.KindFileNotFound, types.KindOf(err))
	assert.Equal(t, 1, f.recovery.Stats().Total)
}

func TestBlockedPermissionsStopLoad(t *testing.T) {
	f := newFixture(t)
	dir := writeExtensionDir(t, "Debugger Tool", "1.0", "debugger")

	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, types.StateBlocked, ext.State)
	assert.Nil(t, ext.LoadID)
	_, ok := f.sessions.Get(ext.ID)
	assert.False(t, ok)

	stats := f.recovery.Stats()
	assert.Equal(t, 1, stats.ByKind[types.KindPermissionDenied])
}

func TestBindRetryEventuallySucceeds(t *testing.T) {
	f := newFixture(t)
	f.engine.FailLoads(2, nil) // default failure classifies as network

	dir := writeExtensionDir(t, "Flaky", "1.0")
	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)
	assert.NotEqual(t, types.StateActive, ext.State)

	require.Eventually(t, func() bool {
		current, ok := f.coordinator.Get(ext.ID)
		return ok && current.State == types.StateActive
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t, 2, f.recovery.RetryCount(ext.ID))
}

func TestBindRetriesExhaust(t *testing.T) {
	f := newFixture(t)
	f.engine.FailLoads(10, nil)

	dir := writeExtensionDir(t, "Broken", "1.0")
	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, ok := f.coordinator.Get(ext.ID)
		return ok && current.State == types.StateInactive
	}, time.Second, 2*time.Millisecond)

	// Initial attempt plus three scheduled retries
	assert.Equal(t, 4, f.recovery.RetryCount(ext.ID))
	_, ok := f.sessions.Get(ext.ID)
	assert.False(t, ok)
}

func TestManifestRepairRetriesOnce(t *testing.T) {
	f := newFixture(t)
	f.engine.FailLoads(1, types.E(types.KindManifestInvalid, "manifest missing schema version"))

	dir := writeExtensionDir(t, "Fixable", "1.0")
	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	// Repair retries synchronously, so the add result is already final
	assert.Equal(t, types.StateActive, ext.State)
}

func TestMemoryPressureReleasesAndRetries(t *testing.T) {
	f := newFixture(t)
	f.engine.FailLoads(1, types.E(types.KindMemoryExceeded, "memory limit exceeded"))

	dir := writeExtensionDir(t, "Hungry", "1.0")
	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, types.StateActive, ext.State)
	session, ok := f.sessions.Get(ext.ID)
	require.True(t, ok)
	assert.Equal(t, 1, f.engine.Loaded(session.ID))
}

func TestToggleUnloadsAndReloads(t *testing.T) {
	f := newFixture(t)
	dir := writeExtensionDir(t, "Switch", "1.0")

	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, types.StateActive, ext.State)
	session, _ := f.sessions.Get(ext.ID)

	disabled, err := f.coordinator.Toggle(context.Background(), ext.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.Equal(t, types.StateInactive, disabled.State)
	assert.Nil(t, disabled.LoadID)
	_, ok := f.sessions.Get(ext.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, f.engine.Loaded(session.ID))

	enabled, err := f.coordinator.Toggle(context.Background(), ext.ID)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
	assert.Equal(t, types.StateActive, enabled.State)
}

func TestToggleUnknownExtension(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Toggle(context.Background(), "ghost-1.0")
	require.Error(t, err)
	assert.Equal(t, types.KindFileNotFound, types.KindOf(err))
}

func TestRemoveCancelsPendingRetry(t *testing.T) {
	f := newFixture(t)
	f.engine.FailLoads(10, nil)

	dir := writeExtensionDir(t, "Doomed", "1.0")
	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, f.coordinator.Remove(context.Background(), ext.ID))

	_, ok := f.coordinator.Get(ext.ID)
	assert.False(t, ok)
	_, ok = f.sessions.Get(ext.ID)
	assert.False(t, ok)
	_, ok = f.store.extensions[ext.ID]
	assert.False(t, ok)

	// A late retry firing after removal must be a no-op
	time.Sleep(10 * time.Millisecond)
	_, ok = f.coordinator.Get(ext.ID)
	assert.False(t, ok)
}

func TestRemoveUnknownExtension(t *testing.T) {
	f := newFixture(t)

	err := f.coordinator.Remove(context.Background(), "ghost-1.0")
	require.Error(t, err)
	assert.Equal(t, types.KindFileNotFound, types.KindOf(err))
}

func TestRestoreReloadsEnabledExtensions(t *testing.T) {
	f := newFixture(t)
	dirA := writeExtensionDir(t, "Alpha", "1.0")
	dirB := writeExtensionDir(t, "Beta", "1.0")

	a, err := f.coordinator.Add(context.Background(), dirA)
	require.NoError(t, err)
	b, err := f.coordinator.Add(context.Background(), dirB)
	require.NoError(t, err)
	_, err = f.coordinator.Toggle(context.Background(), b.ID)
	require.NoError(t, err)

	// Fresh coordinator over the same store simulates a restart
	restarted := NewCoordinator(Deps{
		Parser:      pkgparser.NewParser(pkgparser.NewZipReader()),
		Permissions: permissions.NewEngine(),
		Sessions:    isolation.NewManager(),
		Recovery:    recovery.NewManager(recovery.DefaultOptions()),
		Engine:      engine.NewInProc(),
		Store:       f.store,
	})
	t.Cleanup(restarted.Close)

	count := restarted.Restore(context.Background())
	assert.Equal(t, 2, count)

	restoredA, ok := restarted.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, types.StateActive, restoredA.State)

	restoredB, ok := restarted.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, types.StateInactive, restoredB.State)
	assert.False(t, restoredB.Enabled)
}

func TestStatsByState(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Add(context.Background(), writeExtensionDir(t, "One", "1.0"))
	require.NoError(t, err)
	blocked, err := f.coordinator.Add(context.Background(), writeExtensionDir(t, "Two", "1.0", "debugger"))
	require.NoError(t, err)

	stats := f.coordinator.Stats()
	assert.Equal(t, 2, stats.TotalExtensions)
	assert.Equal(t, 2, stats.EnabledExtensions)
	assert.Equal(t, 1, stats.ActiveExtensions)
	assert.Equal(t, 1, stats.ByState[types.StateActive])
	assert.Equal(t, 1, stats.ByState[types.StateBlocked])
	assert.Equal(t, types.StateBlocked, blocked.State)
}

func TestAssessAndOverrides(t *testing.T) {
	f := newFixture(t)
	dir := writeExtensionDir(t, "Scoped", "1.0", "tabs")

	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	assessment, err := f.coordinator.Assess(ext.ID)
	require.NoError(t, err)
	assert.True(t, assessment.Valid)

	require.NoError(t, f.coordinator.UpdatePermissionSettings(ext.ID, []string{"tabs"}, false))

	assessment, err = f.coordinator.Assess(ext.ID)
	require.NoError(t, err)
	assert.False(t, assessment.Valid)

	// Overrides persisted in marker form
	assert.Contains(t, f.store.overrides[ext.ID], "!tabs")
}

func TestLoadSurvivesPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errors.New("disk full")
	f.store.failSavesAfter = 1

	dir := writeExtensionDir(t, "Note Taker", "1.0", "storage")
	ext, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	// The load completed even though the state transition was not persisted
	assert.Equal(t, types.StateActive, ext.State)
	require.NotNil(t, ext.LoadID)

	stored, ok := f.store.extensions[ext.ID]
	require.True(t, ok)
	assert.Equal(t, types.StateInactive, stored.State)
}

func TestLifecycleEventsCarryIDs(t *testing.T) {
	f := newFixture(t)
	dir := writeExtensionDir(t, "Note Taker", "1.0", "storage")

	_, err := f.coordinator.Add(context.Background(), dir)
	require.NoError(t, err)

	events := f.publisher.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "extension.installed", events[0].Type)

	seen := make(map[string]bool)
	for _, event := range events {
		assert.NotEmpty(t, event.ID)
		assert.False(t, seen[event.ID], "duplicate event id %s", event.ID)
		seen[event.ID] = true
	}
}

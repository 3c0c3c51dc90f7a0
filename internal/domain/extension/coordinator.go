package extension

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heliumweb/helium/backend/internal/domain/isolation"
	"github.com/heliumweb/helium/backend/internal/domain/permissions"
	"github.com/heliumweb/helium/backend/internal/domain/pkgparser"
	"github.com/heliumweb/helium/backend/internal/domain/recovery"
	"github.com/heliumweb/helium/backend/internal/engine"
	"github.com/heliumweb/helium/backend/internal/infrastructure/resilience"
	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// Store is the external persistence collaborator
type Store interface {
	SaveExtension(ext types.Extension) error
	DeleteExtension(id string) error
	Extensions() []types.Extension
	Settings() types.Settings
	SetSettings(settings types.Settings) error
	Overrides() map[string][]string
	SetOverrides(overrides map[string][]string) error
}

// Fetcher downloads a remote package and returns its local path
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Publisher pushes lifecycle events to stream subscribers
type Publisher interface {
	Publish(event types.Event)
}

// Observer receives lifecycle signals for metrics
type Observer interface {
	RecordInstall()
	RecordRemove()
	RecordLoad()
	RecordLoadError(kind types.ErrorKind)
	RecordRetry()
	SetActive(n int)
}

// Deps wires the coordinator's collaborators. Publisher, Observer and
// Fetcher are optional.
type Deps struct {
	Logger      *zap.Logger
	Parser      *pkgparser.Parser
	Permissions *permissions.Engine
	Sessions    *isolation.Manager
	Recovery    *recovery.Manager
	Engine      engine.Engine
	Store       Store
	Fetcher     Fetcher
	Publisher   Publisher
	Observer    Observer
}

// Coordinator drives the per-extension lifecycle state machine
type Coordinator struct {
	deps      Deps
	scheduler *resilience.Scheduler
	breaker   *resilience.Breaker

	mu         sync.RWMutex
	extensions map[string]*types.Extension
	locks      map[string]*sync.Mutex
}

// NewCoordinator creates a coordinator
func NewCoordinator(deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Coordinator{
		deps:       deps,
		scheduler:  resilience.NewScheduler(),
		breaker:    resilience.NewBreaker("engine-bind", 5, 30*time.Second),
		extensions: make(map[string]*types.Extension),
		locks:      make(map[string]*sync.Mutex),
	}
}

// Close cancels pending retries
func (c *Coordinator) Close() {
	c.scheduler.Close()
}

// Restore registers persisted extensions and, when auto-load is on,
// drives the load sequence for the enabled ones. Returns how many
// extensions were registered.
func (c *Coordinator) Restore(ctx context.Context) int {
	settings := c.deps.Store.Settings()
	c.deps.Permissions.RestoreOverrides(c.deps.Store.Overrides())

	persisted := c.deps.Store.Extensions()
	for i := range persisted {
		ext := persisted[i]
		ext.State = types.StateInactive
		ext.LoadID = nil

		c.mu.Lock()
		c.extensions[ext.ID] = &ext
		c.mu.Unlock()
	}

	if settings.EnableExtensions && settings.AutoLoadExtensions {
		for i := range persisted {
			if !persisted[i].Enabled {
				continue
			}
			id := persisted[i].ID
			lock := c.lockFor(id)
			lock.Lock()
			c.load(ctx, id, 0)
			lock.Unlock()
		}
	}

	c.deps.Logger.Info("extensions restored", zap.Int("count", len(persisted)))
	return len(persisted)
}

// Add installs the package at path: parse, validate the manifest, derive
// the id, persist the record and, when extensions are enabled, run the
// load sequence. Duplicate derived ids are rejected as conflicts.
func (c *Coordinator) Add(ctx context.Context, path string) (*types.Extension, error) {
	manifest, err := c.deps.Parser.Parse(path)
	if err != nil {
		c.deps.Recovery.Record("", err)
		c.deps.Logger.Warn("package rejected", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	id := pkgparser.DeriveID(manifest.Name, manifest.Version)
	lock := c.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	_, exists := c.extensions[id]
	c.mu.RUnlock()
	if exists {
		conflict := types.E(types.KindConflictDetected, "extension %s already registered", id)
		c.deps.Recovery.Record(id, conflict)
		return nil, conflict
	}

	ext := &types.Extension{
		ID:          id,
		Name:        manifest.Name,
		Version:     manifest.Version,
		Path:        path,
		Enabled:     true,
		State:       types.StateInactive,
		Manifest:    *manifest,
		InstalledAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.extensions[id] = ext
	c.mu.Unlock()

	if err := c.deps.Store.SaveExtension(*ext); err != nil {
		c.mu.Lock()
		delete(c.extensions, id)
		c.mu.Unlock()
		return nil, err
	}

	if c.deps.Observer != nil {
		c.deps.Observer.RecordInstall()
	}
	c.publish("extension.installed", id, map[string]interface{}{
		"name":    ext.Name,
		"version": ext.Version,
	})
	c.deps.Logger.Info("extension installed",
		zap.String("extension_id", id),
		zap.String("name", ext.Name))

	if c.deps.Store.Settings().EnableExtensions {
		c.load(ctx, id, 0)
	}

	return c.snapshot(id), nil
}

// AddURL downloads the package at url and installs it
func (c *Coordinator) AddURL(ctx context.Context, url string) (*types.Extension, error) {
	if c.deps.Fetcher == nil {
		return nil, types.E(types.KindInvalidPackage, "url installs not configured")
	}
	path, err := c.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		c.deps.Recovery.Record("", err)
		return nil, err
	}
	return c.Add(ctx, path)
}

// Toggle flips enabled and drives the matching load or unload sequence
func (c *Coordinator) Toggle(ctx context.Context, id string) (*types.Extension, error) {
	lock := c.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	ext, ok := c.extensions[id]
	if !ok {
		c.mu.Unlock()
		return nil, types.E(types.KindFileNotFound, "extension %s not found", id)
	}
	ext.Enabled = !ext.Enabled
	enabled := ext.Enabled
	c.mu.Unlock()

	if enabled {
		c.load(ctx, id, 0)
	} else {
		c.scheduler.Cancel(retryKey(id))
		c.unbind(ctx, id)
		c.setState(id, types.StateInactive)
	}

	if err := c.deps.Store.SaveExtension(*c.snapshot(id)); err != nil {
		return nil, err
	}
	c.publish("extension.toggled", id, map[string]interface{}{"enabled": enabled})
	return c.snapshot(id), nil
}

// Remove destroys the extension's session and deletes its record.
// Pending retries are canceled. Removing an unknown id is an error.
func (c *Coordinator) Remove(ctx context.Context, id string) error {
	lock := c.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	_, ok := c.extensions[id]
	c.mu.RUnlock()
	if !ok {
		return types.E(types.KindFileNotFound, "extension %s not found", id)
	}

	c.scheduler.Cancel(retryKey(id))
	c.unbind(ctx, id)

	c.mu.Lock()
	delete(c.extensions, id)
	delete(c.locks, id)
	c.mu.Unlock()

	if err := c.deps.Store.DeleteExtension(id); err != nil {
		return err
	}

	if c.deps.Observer != nil {
		c.deps.Observer.RecordRemove()
		c.deps.Observer.SetActive(c.activeCount())
	}
	c.publish("extension.removed", id, nil)
	c.deps.Logger.Info("extension removed", zap.String("extension_id", id))
	return nil
}

// Get returns a copy of an extension record
func (c *Coordinator) Get(id string) (*types.Extension, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ext, ok := c.extensions[id]
	if !ok {
		return nil, false
	}
	copy := *ext
	return &copy, true
}

// List returns copies of every registered extension
func (c *Coordinator) List() []types.Extension {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Extension, 0, len(c.extensions))
	for _, ext := range c.extensions {
		out = append(out, *ext)
	}
	return out
}

// Assess runs a permission validation pass for a registered extension
// without changing its state.
func (c *Coordinator) Assess(id string) (*types.Assessment, error) {
	ext, ok := c.Get(id)
	if !ok {
		return nil, types.E(types.KindFileNotFound, "extension %s not found", id)
	}
	assessment := c.deps.Permissions.Validate(ext, c.deps.Store.Settings().DefaultRiskTolerance)
	return &assessment, nil
}

// UpdatePermissionSettings applies user overrides to the risk engine and
// persists them.
func (c *Coordinator) UpdatePermissionSettings(scope string, perms []string, allowed bool) error {
	c.deps.Permissions.UpdateUserSettings(scope, perms, allowed)
	return c.deps.Store.SetOverrides(c.deps.Permissions.SnapshotOverrides())
}

// Stats aggregates the registry
func (c *Coordinator) Stats() types.CoordinatorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := types.CoordinatorStats{
		TotalExtensions: len(c.extensions),
		ByState:         make(map[types.State]int),
	}
	for _, ext := range c.extensions {
		if ext.Enabled {
			stats.EnabledExtensions++
		}
		if ext.State == types.StateActive {
			stats.ActiveExtensions++
		}
		stats.ByState[ext.State]++
	}
	return stats
}

// EngineBreakerState reports the bind circuit state
func (c *Coordinator) EngineBreakerState() resilience.BreakerState {
	return c.breaker.State()
}

// load runs the permission check, session creation and engine bind for
// one attempt. Callers hold the extension's keyed lock. Failures are
// routed through recovery, which may schedule another attempt.
func (c *Coordinator) load(ctx context.Context, id string, retryCount int) {
	ext, ok := c.Get(id)
	if !ok || !ext.Enabled {
		return
	}

	settings := c.deps.Store.Settings()

	c.setState(id, types.StatePermissionChecking)
	assessment := c.deps.Permissions.Validate(ext, settings.DefaultRiskTolerance)
	if !assessment.Valid {
		c.setState(id, types.StateBlocked)
		denied := types.E(types.KindPermissionDenied,
			"permission denied: %d permission(s) blocked at %s risk", len(assessment.Blocked), assessment.RiskLevel)
		result := c.deps.Recovery.HandleLoadError(ext, denied, retryCount)
		c.reportFailure(id, result)
		return
	}

	c.setState(id, types.StateSessionCreating)
	session := c.deps.Sessions.Create(ext, settings.DefaultIsolationLevel)

	var loadID string
	err := c.breaker.Do(func() error {
		if err := c.deps.Engine.CreatePartition(ctx, session.ID); err != nil {
			return err
		}
		var bindErr error
		loadID, bindErr = c.deps.Engine.LoadExtension(ctx, session.ID, ext.Path)
		return bindErr
	})
	if err != nil {
		c.deps.Sessions.Destroy(id)
		c.handleBindFailure(ctx, id, err, retryCount)
		return
	}

	c.mu.Lock()
	if current, ok := c.extensions[id]; ok {
		current.LoadID = &loadID
		current.State = types.StateActive
	}
	c.mu.Unlock()
	if err := c.deps.Store.SaveExtension(*c.snapshot(id)); err != nil {
		c.deps.Logger.Warn("failed to persist extension state",
			zap.String("extension_id", id),
			zap.Error(err))
	}

	if c.deps.Observer != nil {
		c.deps.Observer.RecordLoad()
		c.deps.Observer.SetActive(c.activeCount())
	}
	c.publish("extension.loaded", id, map[string]interface{}{
		"session_id": session.ID,
		"load_id":    loadID,
	})
	c.deps.Logger.Info("extension loaded",
		zap.String("extension_id", id),
		zap.String("session_id", session.ID),
		zap.Int("retry_count", retryCount))
}

// handleBindFailure routes a bind error through recovery and executes the
// directive. Callers hold the keyed lock.
func (c *Coordinator) handleBindFailure(ctx context.Context, id string, err error, retryCount int) {
	ext, ok := c.Get(id)
	if !ok {
		return
	}

	result := c.deps.Recovery.HandleLoadError(ext, err, retryCount)
	c.deps.Logger.Warn("extension bind failed",
		zap.String("extension_id", id),
		zap.String("kind", string(result.Error.Kind)),
		zap.String("action", string(result.Action)),
		zap.Int("retry_count", retryCount),
		zap.Error(err))

	switch result.Action {
	case types.ActionRetry:
		if c.deps.Observer != nil {
			c.deps.Observer.RecordRetry()
		}
		c.publish("extension.retry_scheduled", id, map[string]interface{}{
			"delay_ms":    result.Delay.Milliseconds(),
			"retry_count": retryCount + 1,
		})
		next := retryCount + 1
		c.scheduler.Schedule(retryKey(id), result.Delay, func() {
			c.retry(id, next)
		})

	case types.ActionRepairManifest:
		c.repairManifest(id)
		c.publish("extension.manifest_repaired", id, nil)
		c.load(ctx, id, retryCount+1)

	case types.ActionReleaseResources:
		// Session already destroyed; retry with freed resources
		c.load(ctx, id, retryCount+1)

	default:
		c.terminalState(id, result.Error.Kind)
		c.reportFailure(id, result)
	}
}

// retry is the scheduler callback for a deferred load attempt
func (c *Coordinator) retry(id string, retryCount int) {
	lock := c.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	ext, ok := c.Get(id)
	if !ok || !ext.Enabled {
		return
	}
	c.load(context.Background(), id, retryCount)
}

// repairManifest injects the default schema version so the next attempt
// passes manifest validation.
func (c *Coordinator) repairManifest(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ext, ok := c.extensions[id]; ok && ext.Manifest.ManifestVersion == 0 {
		ext.Manifest.ManifestVersion = 3
	}
}

// unbind releases the host binding and the session. Idempotent.
func (c *Coordinator) unbind(ctx context.Context, id string) {
	c.mu.Lock()
	ext, ok := c.extensions[id]
	var loadID string
	var sessionBound bool
	if ok && ext.LoadID != nil {
		loadID = *ext.LoadID
		ext.LoadID = nil
		sessionBound = true
	}
	c.mu.Unlock()

	session, hasSession := c.deps.Sessions.Get(id)
	if hasSession {
		if sessionBound {
			_ = c.deps.Engine.UnloadExtension(ctx, session.ID, loadID)
		}
		_ = c.deps.Engine.DestroyPartition(ctx, session.ID)
	}
	c.deps.Sessions.Destroy(id)

	if c.deps.Observer != nil {
		c.deps.Observer.SetActive(c.activeCount())
	}
}

// terminalState maps a terminal failure kind to the resting state
func (c *Coordinator) terminalState(id string, kind types.ErrorKind) {
	switch kind {
	case types.KindPermissionDenied:
		c.setState(id, types.StateBlocked)
	case types.KindManifestInvalid, types.KindInvalidPackage, types.KindUnsupportedVersion:
		c.setState(id, types.StateInvalid)
	default:
		c.setState(id, types.StateInactive)
	}
}

func (c *Coordinator) reportFailure(id string, result types.LoadResult) {
	if c.deps.Observer != nil {
		c.deps.Observer.RecordLoadError(result.Error.Kind)
	}
	c.publish("extension.load_failed", id, map[string]interface{}{
		"kind":        string(result.Error.Kind),
		"message":     result.Error.Message,
		"recoverable": result.Recoverable,
	})
}

func (c *Coordinator) setState(id string, state types.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ext, ok := c.extensions[id]; ok {
		ext.State = state
	}
}

func (c *Coordinator) snapshot(id string) *types.Extension {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ext, ok := c.extensions[id]; ok {
		copy := *ext
		return &copy
	}
	return nil
}

func (c *Coordinator) activeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, ext := range c.extensions {
		if ext.State == types.StateActive {
			n++
		}
	}
	return n
}

// lockFor returns the keyed lock for an extension id, creating it on
// first use.
func (c *Coordinator) lockFor(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[id] = lock
	}
	return lock
}

func (c *Coordinator) publish(eventType, id string, data map[string]interface{}) {
	if c.deps.Publisher == nil {
		return
	}
	c.deps.Publisher.Publish(types.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ExtensionID: id,
		Data:        data,
		Time:        time.Now(),
	})
}

func retryKey(id string) string {
	return "load:" + id
}

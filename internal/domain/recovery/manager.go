package recovery

import (
	"sync"
	"time"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// Options tunes the recovery policy. The defaults implement the documented
// contract; tests shrink the backoff schedule.
type Options struct {
	MaxRetries    int
	MemoryRetries int
	Backoff       []time.Duration
	HistoryCap    int
}

// DefaultOptions returns the production policy
func DefaultOptions() Options {
	return Options{
		MaxRetries:    3,
		MemoryRetries: 2,
		Backoff:       []time.Duration{1 * time.Second, 3 * time.Second, 10 * time.Second},
		HistoryCap:    100,
	}
}

// Manager decides how failed loads proceed and keeps the error history
type Manager struct {
	mu      sync.Mutex
	opts    Options
	history []types.ExtensionError
	retries map[string]int
}

// NewManager creates a recovery manager
func NewManager(opts Options) *Manager {
	if opts.MaxRetries == 0 {
		opts = DefaultOptions()
	}
	return &Manager{
		opts:    opts,
		retries: make(map[string]int),
	}
}

// HandleLoadError classifies a failure and returns the directive for the
// caller: retry (after Delay), repair the manifest, release resources, or
// terminate. Kinded errors keep their kind; free-text errors are classified
// by keyword.
func (m *Manager) HandleLoadError(ext *types.Extension, err error, retryCount int) types.LoadResult {
	message := err.Error()

	kind := types.KindOf(err)
	if kind == types.KindUnknown {
		kind = Classify(message)
	}

	record := types.ExtensionError{
		Kind:        kind,
		Message:     message,
		Severity:    SeverityOf(message),
		Recoverable: RecoverableFrom(message),
		Timestamp:   time.Now(),
		ExtensionID: ext.ID,
		RetryCount:  retryCount,
	}
	m.append(record)

	m.mu.Lock()
	m.retries[ext.ID]++
	m.mu.Unlock()

	result := types.LoadResult{Error: record}

	switch kind {
	case types.KindManifestInvalid:
		// One auto-repair attempt: inject a default schema version and retry
		if retryCount < 1 {
			result.Action = types.ActionRepairManifest
			result.Recoverable = true
		} else {
			result.Action = types.ActionTerminate
		}

	case types.KindPermissionDenied:
		// Terminal for this attempt; the user must change overrides and
		// retry explicitly
		result.Action = types.ActionTerminate
		result.Recoverable = true

	case types.KindConflictDetected:
		// Terminal until the user resolves the clash
		result.Action = types.ActionTerminate
		result.Recoverable = true

	case types.KindFileNotFound, types.KindSecurityViolation,
		types.KindInvalidPackage, types.KindUnsupportedVersion:
		result.Action = types.ActionTerminate

	case types.KindMemoryExceeded:
		if retryCount < m.opts.MemoryRetries {
			result.Action = types.ActionReleaseResources
			result.Recoverable = true
		} else {
			result.Action = types.ActionTerminate
		}

	default: // KindNetworkError, KindUnknown
		if retryCount < m.opts.MaxRetries {
			result.Action = types.ActionRetry
			result.Delay = m.backoffFor(retryCount)
			result.Recoverable = true
		} else {
			result.Action = types.ActionTerminate
		}
	}

	return result
}

// Record classifies and appends a failure without a retry directive.
// Used for failures outside the load sequence (parse errors, duplicates).
func (m *Manager) Record(extensionID string, err error) types.ExtensionError {
	message := err.Error()

	kind := types.KindOf(err)
	if kind == types.KindUnknown {
		kind = Classify(message)
	}

	record := types.ExtensionError{
		Kind:        kind,
		Message:     message,
		Severity:    SeverityOf(message),
		Recoverable: RecoverableFrom(message),
		Timestamp:   time.Now(),
		ExtensionID: extensionID,
	}
	m.append(record)
	return record
}

// backoffFor indexes the schedule, clamped to the last entry
func (m *Manager) backoffFor(retryCount int) time.Duration {
	if len(m.opts.Backoff) == 0 {
		return 0
	}
	if retryCount >= len(m.opts.Backoff) {
		retryCount = len(m.opts.Backoff) - 1
	}
	return m.opts.Backoff[retryCount]
}

// append adds to the bounded FIFO history
func (m *Manager) append(record types.ExtensionError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, record)
	if len(m.history) > m.opts.HistoryCap {
		m.history = m.history[len(m.history)-m.opts.HistoryCap:]
	}
}

// RetryCount reports how many failures have been handled for an extension
func (m *Manager) RetryCount(extensionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.retries[extensionID]
}

// Stats reports totals, per-kind and per-severity breakdowns and the most
// recent ten entries
func (m *Manager) Stats() types.ErrorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := types.ErrorStats{
		Total:      len(m.history),
		ByKind:     make(map[types.ErrorKind]int),
		BySeverity: make(map[types.Severity]int),
	}
	for _, record := range m.history {
		stats.ByKind[record.Kind]++
		stats.BySeverity[record.Severity]++
	}

	recent := 10
	if len(m.history) < recent {
		recent = len(m.history)
	}
	stats.Recent = append([]types.ExtensionError(nil), m.history[len(m.history)-recent:]...)

	return stats
}

// ClearHistory resets the history and the per-key retry counters
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = nil
	m.retries = make(map[string]int)
}

// Package telemetry periodically samples memory usage and feeds it into
// the isolation session manager so per-extension usage is visible in
// session stats.
package telemetry

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/heliumweb/helium/backend/internal/domain/isolation"
	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// UsageReporter is an optional capability of the host engine. Engines
// that track partition memory implement it; otherwise the sampler falls
// back to attributing process memory evenly across active sessions.
type UsageReporter interface {
	PartitionUsage(ctx context.Context, sessionID string) (uint64, error)
}

// SessionObserver receives the session pool stats after each sample
// pass. The monitoring package implements it to keep the session gauges
// in step with the isolation manager.
type SessionObserver interface {
	SetSessions(stats types.SessionStats)
}

// HostSnapshot summarizes process and system memory at sample time
type HostSnapshot struct {
	ProcessRSS  uint64  `json:"process_rss"`
	SystemTotal uint64  `json:"system_total"`
	SystemUsed  float64 `json:"system_used_percent"`
}

// Sampler drives the periodic memory sampling loop
type Sampler struct {
	sessions *isolation.Manager
	reporter UsageReporter
	observer SessionObserver
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu   sync.Mutex
	last HostSnapshot
	stop chan struct{}
	done chan struct{}
}

// New creates a sampler. reporter and observer may be nil.
func New(sessions *isolation.Manager, reporter UsageReporter, observer SessionObserver, interval time.Duration, logger *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Sampler{
		sessions: sessions,
		reporter: reporter,
		observer: observer,
		interval: interval,
		logger:   logger,
		proc:     proc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sampling loop until Close or context cancellation
func (s *Sampler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Sample(ctx)
			}
		}
	}()
}

// Close stops the sampling loop and waits for it to exit
func (s *Sampler) Close() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

// Sample takes one measurement pass
func (s *Sampler) Sample(ctx context.Context) {
	snapshot := s.measureHost()

	s.mu.Lock()
	s.last = snapshot
	s.mu.Unlock()

	active := []string{}
	for _, session := range s.sessions.Sessions() {
		if session.IsActive {
			active = append(active, session.ExtensionID)
		}
	}

	switch {
	case len(active) == 0:
	case s.reporter != nil:
		for _, id := range active {
			session, ok := s.sessions.Get(id)
			if !ok {
				continue
			}
			usage, err := s.reporter.PartitionUsage(ctx, session.ID)
			if err != nil {
				if s.logger != nil {
					s.logger.Debug("partition usage unavailable",
						zap.String("extension_id", id),
						zap.Error(err))
				}
				continue
			}
			s.sessions.UpdateUsage(id, usage)
		}
	default:
		// No per-partition accounting: split process RSS evenly
		share := snapshot.ProcessRSS / uint64(len(active))
		for _, id := range active {
			s.sessions.UpdateUsage(id, share)
		}
	}

	if s.observer != nil {
		s.observer.SetSessions(s.sessions.Stats())
	}
}

// Snapshot returns the most recent host measurement
func (s *Sampler) Snapshot() HostSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sampler) measureHost() HostSnapshot {
	var snapshot HostSnapshot

	if s.proc != nil {
		if info, err := s.proc.MemoryInfo(); err == nil && info != nil {
			snapshot.ProcessRSS = info.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		snapshot.SystemTotal = vm.Total
		snapshot.SystemUsed = vm.UsedPercent
	}
	return snapshot
}

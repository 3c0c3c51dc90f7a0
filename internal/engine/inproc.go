package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/heliumweb/helium/backend/internal/shared/id"
)

// InProc is an in-process Engine used in development mode and tests.
// Tests inject failures through FailLoads / SetLoadError.
type InProc struct {
	mu         sync.Mutex
	partitions map[string]map[string]string // sessionID -> loadID -> path

	failLoads int
	loadErr   error
}

// NewInProc creates an empty in-process engine
func NewInProc() *InProc {
	return &InProc{
		partitions: make(map[string]map[string]string),
	}
}

// FailLoads makes the next n LoadExtension calls fail
func (e *InProc) FailLoads(n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failLoads = n
	e.loadErr = err
}

// CreatePartition materializes a partition for the session id
func (e *InProc) CreatePartition(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.partitions[sessionID]; !ok {
		e.partitions[sessionID] = make(map[string]string)
	}
	return nil
}

// LoadExtension binds a package into the partition
func (e *InProc) LoadExtension(ctx context.Context, sessionID, path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failLoads > 0 {
		e.failLoads--
		if e.loadErr != nil {
			return "", e.loadErr
		}
		return "", fmt.Errorf("network error: engine unavailable")
	}

	partition, ok := e.partitions[sessionID]
	if !ok {
		return "", fmt.Errorf("partition %s not found", sessionID)
	}

	loadID := id.NewLoadID().String()
	partition[loadID] = path
	return loadID, nil
}

// UnloadExtension unbinds a loaded extension
func (e *InProc) UnloadExtension(ctx context.Context, sessionID, loadID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if partition, ok := e.partitions[sessionID]; ok {
		delete(partition, loadID)
	}
	return nil
}

// DestroyPartition drops the partition and everything bound into it
func (e *InProc) DestroyPartition(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.partitions, sessionID)
	return nil
}

// Loaded reports how many extensions are bound into a partition
func (e *InProc) Loaded(sessionID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.partitions[sessionID])
}

// PartitionUsage approximates partition memory as a fixed cost per bound
// extension. Exists so the telemetry sampler has per-partition numbers in
// development mode.
func (e *InProc) PartitionUsage(ctx context.Context, sessionID string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	partition, ok := e.partitions[sessionID]
	if !ok {
		return 0, fmt.Errorf("partition %s not found", sessionID)
	}
	return uint64(len(partition)) * 4 << 20, nil
}

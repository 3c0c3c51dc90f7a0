package id

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateWithPrefix(PartitionPrefix)

	if !strings.HasPrefix(id, "part_") {
		t.Errorf("Expected part_ prefix, got %s", id)
	}
}

func TestTypedGenerators(t *testing.T) {
	part := NewPartitionID()
	req := NewRequestID()
	load := NewLoadID()

	if !strings.HasPrefix(part.String(), "part_") {
		t.Errorf("Bad partition id %s", part)
	}
	if !strings.HasPrefix(req.String(), "req_") {
		t.Errorf("Bad request id %s", req)
	}
	if !strings.HasPrefix(load.String(), "load_") {
		t.Errorf("Bad load id %s", load)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const n = 100

	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.GenerateString()
			if _, dup := seen.LoadOrStore(id, true); dup {
				t.Errorf("Duplicate ID generated: %s", id)
			}
		}()
	}
	wg.Wait()
}

func TestIsValid(t *testing.T) {
	gen := NewGenerator()

	if !IsValid(gen.GenerateString()) {
		t.Error("Generated ULID should be valid")
	}
	if IsValid("not-a-ulid") {
		t.Error("Garbage should not validate")
	}
}

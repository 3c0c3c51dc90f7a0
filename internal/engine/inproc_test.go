package engine

import (
	"context"
	"strings"
	"testing"
)

func TestLoadExtensionIssuesTypedLoadIDs(t *testing.T) {
	e := NewInProc()
	ctx := context.Background()

	if err := e.CreatePartition(ctx, "part_a"); err != nil {
		t.Fatalf("CreatePartition failed: %v", err)
	}

	first, err := e.LoadExtension(ctx, "part_a", "/tmp/a.crx")
	if err != nil {
		t.Fatalf("LoadExtension failed: %v", err)
	}
	second, err := e.LoadExtension(ctx, "part_a", "/tmp/b.crx")
	if err != nil {
		t.Fatalf("LoadExtension failed: %v", err)
	}

	if !strings.HasPrefix(first, "load_") {
		t.Errorf("Expected load_ prefix, got %q", first)
	}
	if first == second {
		t.Error("Expected distinct load ids per bind")
	}
}

func TestLoadExtensionFailureInjection(t *testing.T) {
	e := NewInProc()
	ctx := context.Background()

	if err := e.CreatePartition(ctx, "part_a"); err != nil {
		t.Fatalf("CreatePartition failed: %v", err)
	}

	e.FailLoads(1, nil)
	if _, err := e.LoadExtension(ctx, "part_a", "/tmp/a.crx"); err == nil {
		t.Fatal("Expected injected failure")
	}
	if _, err := e.LoadExtension(ctx, "part_a", "/tmp/a.crx"); err != nil {
		t.Fatalf("Expected recovery after injected failures, got %v", err)
	}
	if e.Loaded("part_a") != 1 {
		t.Errorf("Expected 1 bound extension, got %d", e.Loaded("part_a"))
	}
}

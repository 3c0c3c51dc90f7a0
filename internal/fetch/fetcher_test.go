package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

func TestFetchDownloadsPackage(t *testing.T) {
	payload := []byte("PK\x03\x04fake zip bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	f := New(t.TempDir())
	dest, err := f.Fetch(context.Background(), srv.URL+"/demo.crx")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("Downloaded bytes do not match")
	}
	if !strings.HasSuffix(dest, ".crx") {
		t.Errorf("Expected .crx staging name, got %s", dest)
	}
}

func TestFetchDefaultsExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	f := New(t.TempDir())
	dest, err := f.Fetch(context.Background(), srv.URL+"/latest")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasSuffix(dest, ".crx") {
		t.Errorf("Expected default .crx suffix, got %s", dest)
	}
}

func TestFetchRejectsBadURL(t *testing.T) {
	f := New(t.TempDir())

	_, err := f.Fetch(context.Background(), "ftp://example.com/ext.crx")
	if types.KindOf(err) != types.KindInvalidPackage {
		t.Errorf("Expected invalid_package, got %v", err)
	}
}

func TestFetchReportsHTTPErrorAsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(t.TempDir())
	f.client.RetryMax = 0

	_, err := f.Fetch(context.Background(), srv.URL+"/missing.crx")
	if types.KindOf(err) != types.KindNetworkError {
		t.Errorf("Expected network_error, got %v", err)
	}
}

func TestFetchEnforcesSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := New(t.TempDir())
	f.SetMaxSize(1024)

	_, err := f.Fetch(context.Background(), srv.URL+"/big.crx")
	if types.KindOf(err) != types.KindInvalidPackage {
		t.Errorf("Expected invalid_package for oversized body, got %v", err)
	}
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackzampolin/pantry/internal/server/endpoints"
	"github.com/jackzampolin/pantry/internal/testutil"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.Logger()
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

// TestServer_FullLifecycle starts the server on a real port and shuts it
// down through context cancellation.
func TestServer_FullLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	port, err := testutil.FindFreePort()
	if err != nil {
		t.Fatalf("FindFreePort() error = %v", err)
	}
	srv, err := New(Config{Host: "127.0.0.1", Port: port, Logger: testutil.Logger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)
	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%s", port)
	if err := testutil.WaitForServer(ctx, baseURL); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	t.Run("health_endpoint", func(t *testing.T) {
		var health endpoints.HealthResponse
		if code := getJSON(t, baseURL+"/health", &health); code != http.StatusOK {
			t.Errorf("health status = %d, want %d", code, http.StatusOK)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("ready_endpoint", func(t *testing.T) {
		var ready endpoints.HealthResponse
		if code := getJSON(t, baseURL+"/ready", &ready); code != http.StatusOK {
			t.Errorf("ready status = %d, want %d", code, http.StatusOK)
		}
		if ready.Library != "ok" {
			t.Errorf("ready.Library = %q, want %q", ready.Library, "ok")
		}
	})

	t.Run("double_start", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("second Start() should return error")
		}
	})

	serverCancel()
	if err := testutil.WaitForShutdown(serverErr, 10*time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if srv.IsRunning() {
		t.Error("server still reports running after shutdown")
	}
}

func TestServer_ClosedServerIsNotReady(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	srv.Close()
	srv.Close()

	var ready endpoints.HealthResponse
	if code := getJSON(t, ts.URL+"/ready", &ready); code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", code)
	}

	var errResp endpoints.ErrorResponse
	if code := getJSON(t, ts.URL+"/api/cookbooks", &errResp); code != http.StatusServiceUnavailable {
		t.Errorf("list status = %d, want 503", code)
	}
	if errResp.Error != "server not fully initialized" {
		t.Errorf("error = %q", errResp.Error)
	}

	// Health does not need the library
	if code := getJSON(t, ts.URL+"/health", &ready); code != http.StatusOK {
		t.Errorf("health status = %d, want 200", code)
	}
}

func TestServer_BadFixtures(t *testing.T) {
	if _, err := New(Config{Fixtures: "/does/not/exist.yaml", Logger: testutil.Logger()}); err == nil {
		t.Error("expected error for missing fixtures file")
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("failed to decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

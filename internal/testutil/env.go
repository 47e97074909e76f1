// Package testutil holds helpers shared by tests that run the development
// Resource API.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/pantry/internal/ingest"
)

// PNGHeader is the smallest content sniffed as image/png.
var PNGHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WritePages writes n PNG index pages (index-1.png ...) to a temp dir and
// returns their paths.
func WritePages(t testing.TB, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("index-%d.png", i+1))
		if err := os.WriteFile(paths[i], PNGHeader, 0o644); err != nil {
			t.Fatalf("failed to write page: %v", err)
		}
	}
	return paths
}

// PNGFiles returns n in-memory PNG index pages.
func PNGFiles(t testing.TB, n int) []ingest.File {
	t.Helper()
	files := make([]ingest.File, n)
	for i := range files {
		f, err := ingest.NewFile(fmt.Sprintf("index-%d.png", i+1), PNGHeader)
		if err != nil {
			t.Fatalf("NewFile() error = %v", err)
		}
		files[i] = f
	}
	return files
}

// FindFreePort finds an available TCP port and returns it as a string.
func FindFreePort() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()
	return fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port), nil
}

// WaitForServer polls the /health endpoint until it responds with 200.
func WaitForServer(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health returned %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(60),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// WaitForShutdown waits for a channel to receive a value or timeout.
func WaitForShutdown(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for shutdown")
	}
}

// StartServer is a helper type for managing server lifecycle in tests.
// Usage:
//
//	ctx, cancel := context.WithCancel(ctx)
//	done := make(chan error, 1)
//	go func() { done <- srv.Start(ctx) }()
//	starter := testutil.StartServer{Cancel: cancel, Done: done}
//	t.Cleanup(starter.Stop)
type StartServer struct {
	Cancel context.CancelFunc
	Done   <-chan error
}

// Stop cancels the server context and waits for shutdown.
func (s *StartServer) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Done != nil {
		<-s.Done
	}
}

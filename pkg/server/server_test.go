package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saint0x/ggrowth/pkg/log"
	"github.com/saint0x/ggrowth/pkg/scheduler"
)

// mockController implements Controller
type mockController struct {
	status scheduler.Status
	runs   atomic.Int32
}

func (m *mockController) Status() scheduler.Status {
	return m.status
}

func (m *mockController) RunInBackground() error {
	if m.status.InFlight {
		return scheduler.ErrRunInFlight
	}
	m.runs.Add(1)
	return nil
}

func setupTestServer(t *testing.T, st scheduler.Status) (*Server, *mockController) {
	logger := log.New(false)
	logger.SetOutput(io.Discard)
	ctl := &mockController{status: st}

	s, err := New(logger, ctl)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	s.configDir = t.TempDir()
	return s, ctl
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		inFlight       bool
		expectedStatus int
		expectRun      bool
	}{
		{"health", http.MethodGet, "/health", false, http.StatusOK, false},
		{"health wrong method", http.MethodPost, "/health", false, http.StatusMethodNotAllowed, false},
		{"status", http.MethodGet, "/status", false, http.StatusOK, false},
		{"run", http.MethodPost, "/run", false, http.StatusAccepted, true},
		{"run in flight", http.MethodPost, "/run", true, http.StatusConflict, false},
		{"run wrong method", http.MethodGet, "/run", false, http.StatusMethodNotAllowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ctl := setupTestServer(t, scheduler.Status{InFlight: tt.inFlight})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatus, w.Code)
			}

			if got := ctl.runs.Load() > 0; got != tt.expectRun {
				t.Errorf("Expected run triggered = %v, got %v", tt.expectRun, got)
			}
		})
	}
}

func TestStatusJSON(t *testing.T) {
	next := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s, _ := setupTestServer(t, scheduler.Status{
		IsRunning:      true,
		CronExpression: "0 9 * * *",
		NextRun:        &next,
	})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	st, err := FetchStatus(context.Background(), ts.Client(), ts.URL)
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if !st.IsRunning || st.CronExpression != "0 9 * * *" {
		t.Errorf("FetchStatus() = %+v", st)
	}
	if st.NextRun == nil || !st.NextRun.Equal(next) {
		t.Errorf("NextRun = %v, want %v", st.NextRun, next)
	}
}

func TestTriggerRun(t *testing.T) {
	s, _ := setupTestServer(t, scheduler.Status{InFlight: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	if err := TriggerRun(context.Background(), ts.Client(), ts.URL); err != scheduler.ErrRunInFlight {
		t.Errorf("TriggerRun() error = %v, want ErrRunInFlight", err)
	}
}

func TestRunConcurrentRequests(t *testing.T) {
	logger := log.New(false)
	logger.SetOutput(io.Discard)

	var calls atomic.Int32
	release := make(chan struct{})
	finished := make(chan struct{})
	sched := scheduler.New(logger, func(context.Context) error {
		calls.Add(1)
		<-release
		close(finished)
		return nil
	})

	s, err := New(logger, sched)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	accepted, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusAccepted:
			accepted++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status code %d", code)
		}
	}
	if accepted != 1 || conflicts != n-1 {
		t.Errorf("accepted = %d, conflicts = %d, want 1 and %d", accepted, conflicts, n-1)
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("pipeline ran %d times, want 1", got)
	}
}

func TestStartWritesPortFile(t *testing.T) {
	s, _ := setupTestServer(t, scheduler.Status{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "0") }()

	var baseURL string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if u, err := LocalURL(s.configDir); err == nil {
			baseURL = u
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if baseURL == "" {
		cancel()
		t.Fatal("port file was not written")
	}

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		cancel()
		t.Fatalf("health request failed: %v", err)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if body["status"] != "ok" {
		t.Errorf("health body = %v", body)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.configDir, "port")); !os.IsNotExist(err) {
		t.Errorf("port file should be removed on stop, stat err = %v", err)
	}
}

func TestLocalURLInvalid(t *testing.T) {
	dir := t.TempDir()
	if _, err := LocalURL(dir); err == nil {
		t.Error("expected error without port file")
	}
	os.WriteFile(filepath.Join(dir, "port"), []byte("abc"), 0644)
	if _, err := LocalURL(dir); err == nil {
		t.Error("expected error for invalid port")
	}
}

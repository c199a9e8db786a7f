package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/saint0x/ggrowth/pkg/log"
	"github.com/saint0x/ggrowth/pkg/scheduler"
)

// Controller is the scheduler surface exposed over HTTP
type Controller interface {
	Status() scheduler.Status
	RunInBackground() error
}

// Server exposes health, status and manual triggers on a loopback port
type Server struct {
	logger    *log.Logger
	ctl       Controller
	configDir string
	srv       *http.Server
	mu        sync.RWMutex
}

// New creates a new server instance
func New(logger *log.Logger, ctl Controller) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if ctl == nil {
		return nil, fmt.Errorf("controller is required")
	}

	return &Server{
		logger:    logger.Named("server"),
		ctl:       ctl,
		configDir: ConfigDir(),
	}, nil
}

// ConfigDir is where the port file lives.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".ggrowth")
}

// Handler returns the routes served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/run", s.handleRun)
	return mux
}

// Start serves on 127.0.0.1:port, falling back to a random port, and blocks
// until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port string) error {
	s.mu.Lock()

	listener, err := s.findAvailablePort(port)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to find available port: %w", err)
	}
	actualPort := listener.Addr().(*net.TCPAddr).Port

	if err := os.MkdirAll(s.configDir, 0755); err != nil {
		listener.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	portFile := filepath.Join(s.configDir, "port")
	if err := os.WriteFile(portFile, []byte(strconv.Itoa(actualPort)), 0644); err != nil {
		listener.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to save port: %w", err)
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.srv

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error: %v", err)
		}
	}()
	s.mu.Unlock()

	s.logger.Success("Control endpoint on http://127.0.0.1:%d", actualPort)
	s.logger.Debug("Port written to %s", portFile)

	<-ctx.Done()
	return s.Stop()
}

// findAvailablePort tries the requested port first, then any free one
func (s *Server) findAvailablePort(port string) (net.Listener, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err == nil {
		return listener, nil
	}

	s.logger.Debug("Port %s is in use, searching for available port...", port)
	return net.Listen("tcp", "127.0.0.1:0")
}

// Stop stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to stop server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}
	s.srv = nil
	os.Remove(filepath.Join(s.configDir, "port"))
	s.logger.Info("Control endpoint stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// handleRun triggers one pipeline run in the background
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Warning("Invalid method %s from %s", r.Method, r.RemoteAddr)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.ctl.RunInBackground(); err != nil {
		s.logger.Warning("Manual run from %s skipped: %v", r.RemoteAddr, err)
		writeJSON(w, http.StatusConflict, map[string]string{"status": "in_flight"})
		return
	}
	s.logger.Step("Manual run requested from %s", r.RemoteAddr)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// LocalURL returns the base URL of a running control endpoint, read from
// the port file in dir.
func LocalURL(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "port"))
	if err != nil {
		return "", fmt.Errorf("no running ggrowth found: %w", err)
	}
	port := strings.TrimSpace(string(data))
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid port file: %q", port)
	}
	return "http://127.0.0.1:" + port, nil
}

// FetchStatus asks a running control endpoint for its scheduler status.
func FetchStatus(ctx context.Context, client *http.Client, baseURL string) (*scheduler.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server is not running: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned non-OK status: %d", resp.StatusCode)
	}

	var st scheduler.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &st, nil
}

// TriggerRun asks a running control endpoint to start a run.
func TriggerRun(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/run", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("server is not running: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusConflict:
		return scheduler.ErrRunInFlight
	default:
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
}

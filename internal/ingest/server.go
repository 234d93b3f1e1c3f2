// ABOUTME: WebSocket ingest server for remote chunk producers
// ABOUTME: One chunk player session per connection, plus metrics and mDNS
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/internal/discovery"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/metrics"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is where producers connect
const Path = "/ingest"

// Config holds server configuration
type Config struct {
	Addr       string // listen address, default ":8927"
	Name       string // mDNS instance name
	EnableMDNS bool

	// NewSink creates the sink for each session (default: oto)
	NewSink func() (output.Sink, error)

	// Analyzer scores chunks for every session (default: FrequencyScanner)
	Analyzer analyze.Analyzer

	// Registry receives the server metrics and backs /metrics (default: a new registry)
	Registry *prometheus.Registry

	Logger *log.Logger
}

// Server accepts producer connections
type Server struct {
	config   Config
	metrics  *metrics.Metrics
	analyzer analyze.Analyzer
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu       sync.Mutex
	conns    map[string]*conn
	shutdown bool
	wg       sync.WaitGroup
}

// New creates a server. Call Run to serve or use Handler directly.
func New(config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8927"
	}
	if config.Name == "" {
		config.Name = "pcmchunk"
	}
	if config.NewSink == nil {
		config.NewSink = func() (output.Sink, error) {
			return output.NewOto(), nil
		}
	}
	if config.Analyzer == nil {
		config.Analyzer = analyze.NewFrequencyScanner()
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	m := metrics.New(config.Registry)

	s := &Server{
		config:   config,
		metrics:  m,
		analyzer: m.Analyzer(config.Analyzer),
		upgrader: websocket.Upgrader{
			// Producers are trusted clients on the local network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:   http.NewServeMux(),
		conns: make(map[string]*conn),
	}

	s.mux.HandleFunc(Path, s.handleWebSocket)
	s.mux.Handle("/metrics", promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return s
}

// Handler returns the HTTP handler serving /ingest, /metrics and /healthz
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Metrics returns the server metrics
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Connections returns the number of connected producers
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Run listens on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes every session
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.config.Logger
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var mdnsManager *discovery.Manager
	if s.config.EnableMDNS {
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
			mdnsManager = discovery.NewManager(discovery.Config{
				ServiceName: s.config.Name,
				Port:        tcp.Port,
				Path:        Path,
			})
			if err := mdnsManager.Advertise(); err != nil {
				logger.Warn("Failed to start mDNS advertisement", "err", err)
			}
			defer mdnsManager.Stop()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	logger.Info("Ingest server listening", "addr", ln.Addr().String(), "path", Path)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Ingest server shutting down")
	case err := <-errChan:
		serveErr = err
	}

	s.mu.Lock()
	s.shutdown = true
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "err", err)
	}

	// Hijacked websocket connections are not closed by Shutdown
	for _, c := range conns {
		c.close()
	}
	s.wg.Wait()

	if serveErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serveErr)
	}
	return nil
}

// handleWebSocket upgrades a producer connection and serves it until it closes
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Logger.Warn("WebSocket upgrade error", "err", err)
		return
	}

	c := newConn(s, ws)

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[c.id] = c
	s.mu.Unlock()

	s.config.Logger.Info("Producer connected", "conn", c.id, "remote", r.RemoteAddr)

	c.serve()

	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()

	s.config.Logger.Info("Producer disconnected", "conn", c.id)
}

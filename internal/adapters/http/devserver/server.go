// Package devserver serves the built web UI during development.
//
// It binds to a fixed port on all interfaces and, in strict mode, refuses to
// start rather than move to another port, so the UI's origin stays stable.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/insightpipe/internal/adapters/http/swagger"
	"github.com/okian/insightpipe/pkg/logger"
	"github.com/okian/insightpipe/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// DefaultAddr listens on all interfaces on the UI's fixed port.
const DefaultAddr = "0.0.0.0:5817"

const indexFile = "index.html"

// GenerationPath reports how many times the UI root has changed, so a page
// can poll it and reload after a rebuild.
const GenerationPath = "/__devserver/generation"

const compressLevel = 5

// Server is the development HTTP server.
type Server struct {
	addr            string
	strictPort      bool
	root            string
	optimizeDeps    []string
	shutdownTimeout time.Duration
	logger          logger.Logger
	metrics         *metrics.Manager
	gatherer        prometheus.Gatherer
	watch           bool
	debounce        time.Duration

	generation atomic.Uint64

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
	done     chan error
	watcher  *watcher
}

// New constructs a Server with default configuration.
func New(opts ...Option) *Server {
	s := &Server{
		addr:            DefaultAddr,
		strictPort:      true,
		root:            ".",
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Nop(),
		metrics:         metrics.Default(),
		gatherer:        metrics.GetRegistry(),
		watch:           true,
		debounce:        defaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routing table:
//
//	/                        -> static UI from root, unknown routes fall back to index.html
//	/metrics                 -> Prometheus metrics
//	/api-docs                -> ReDoc page for the backend contract
//	/openapi.yaml            -> backend OpenAPI document
//	/__devserver/generation  -> UI change counter as JSON
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(compressLevel))

	docs := http.NewServeMux()
	swagger.Register(ctx, docs)
	r.Method(http.MethodGet, "/api-docs", metricsMiddleware(s.metrics, "/api-docs", docs))
	r.Method(http.MethodGet, "/openapi.yaml", metricsMiddleware(s.metrics, "/openapi.yaml", docs))

	r.Method(http.MethodGet, "/metrics", metricsMiddleware(s.metrics, "/metrics",
		promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	r.Method(http.MethodGet, GenerationPath, metricsMiddleware(s.metrics, GenerationPath,
		http.HandlerFunc(s.handleGeneration)))

	static := metricsMiddleware(s.metrics, "/", s.staticHandler())
	r.Method(http.MethodGet, "/*", static)
	r.Method(http.MethodHead, "/*", static)
	return r
}

func (s *Server) handleGeneration(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]uint64{"generation": s.generation.Load()})
}

// Generation returns the number of debounced changes seen under the UI root.
func (s *Server) Generation() uint64 {
	return s.generation.Load()
}

func (s *Server) uiChanged(ctx context.Context) {
	gen := s.generation.Add(1)
	s.metrics.RecordUIChange()
	s.logger.Info(ctx, "web UI files changed", logger.Any("generation", gen))
}

// startWatch watches the UI root when enabled. A missing root only warns
// so the server still answers /metrics and the docs.
func (s *Server) startWatch(ctx context.Context) *watcher {
	if !s.watch {
		return nil
	}
	w := newWatcher(s.root, s.debounce, s.logger, func() { s.uiChanged(ctx) })
	if err := w.start(ctx); err != nil {
		s.logger.Warn(ctx, "not watching web UI root", logger.String("root", s.root), logger.Error(err))
		return nil
	}
	return w
}

// staticHandler serves files from root. Extension-less paths that do not
// exist get index.html so client-side routes survive a reload.
func (s *Server) staticHandler() http.Handler {
	fsys := os.DirFS(s.root)
	files := http.FileServerFS(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" && path.Ext(name) == "" {
			if _, err := fs.Stat(fsys, name); errors.Is(err, fs.ErrNotExist) {
				http.ServeFileFS(w, r, fsys, indexFile)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

// Listen binds the configured address. A taken port is an error in strict
// mode; otherwise an ephemeral port on the same host is used.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err == nil {
		return ln, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("%w: %s: %w", ErrListen, s.addr, err)
	}
	if s.strictPort {
		return nil, fmt.Errorf("%w: %s", ErrPortInUse, s.addr)
	}

	host, _, splitErr := net.SplitHostPort(s.addr)
	if splitErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListen, s.addr, splitErr)
	}
	ln, err = net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListen, s.addr, err)
	}
	s.logger.Warn(ctx, "port in use, using another one",
		logger.String("requested", s.addr),
		logger.String("actual", ln.Addr().String()))
	return ln, nil
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrAlreadyStarted
	}

	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	s.listener, s.srv, s.done = ln, srv, done
	s.watcher = s.startWatch(context.WithoutCancel(ctx))
	s.logger.Info(ctx, "development server listening",
		logger.String("addr", ln.Addr().String()),
		logger.String("root", s.root),
		logger.Bool("strict_port", s.strictPort),
		logger.Bool("watch", s.watcher != nil),
		logger.Any("optimize_deps", s.optimizeDeps))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	srv, done := s.release(ctx)
	if srv == nil {
		return ErrNotStarted
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-done
}

// release clears the running state and stops the watcher. It returns the
// http.Server and its serve result channel, or nil when not started.
func (s *Server) release(ctx context.Context) (*http.Server, chan error) {
	s.mu.Lock()
	srv, done, w := s.srv, s.done, s.watcher
	s.srv, s.listener, s.done, s.watcher = nil, nil, nil, nil
	s.mu.Unlock()

	if w != nil {
		if err := w.stop(); err != nil {
			s.logger.Warn(ctx, "stop watching web UI root", logger.Error(err))
		}
	}
	return srv, done
}

// Run starts the server and blocks until ctx is cancelled or serving fails.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case err := <-done:
		s.release(ctx)
		s.logger.Error(ctx, "development server stopped serving", logger.Error(err))
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down development server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "development server shutdown failed", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "development server stopped")
	return nil
}

package devserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/okian/insightpipe/pkg/logger"
	"github.com/okian/insightpipe/pkg/metrics"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAddr sets the listen address, e.g. "0.0.0.0:5817".
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithStrictPort makes Start fail when the address is taken instead of
// falling back to an ephemeral port.
func WithStrictPort(strict bool) Option {
	return func(s *Server) {
		s.strictPort = strict
	}
}

// WithRoot sets the directory holding the built web UI.
func WithRoot(root string) Option {
	return func(s *Server) {
		if root != "" {
			s.root = root
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the manager request metrics are recorded on.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithGatherer sets the registry exposed on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithOptimizeDeps records the UI dependencies the frontend build
// pre-bundles. They are logged at startup.
func WithOptimizeDeps(deps []string) Option {
	return func(s *Server) {
		s.optimizeDeps = append([]string(nil), deps...)
	}
}

// WithWatch toggles watching the UI root for rebuilds.
func WithWatch(enabled bool) Option {
	return func(s *Server) {
		s.watch = enabled
	}
}

// WithWatchDebounce sets how long file events must be quiet before a
// change is reported.
func WithWatchDebounce(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.debounce = d
		}
	}
}

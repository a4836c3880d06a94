// Package config defines the toolkit configuration and its loading hooks.
//
// Conventions:
// - New(ctx) builds a Config holding the defaults.
// - Load(ctx) layers an optional YAML file and INSIGHTPIPE_* env vars on top.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"time"
)

// Config contains process configuration. It is read once at startup and
// treated as immutable afterwards.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// APIBaseURL is the prefix every backend endpoint is appended to.
	APIBaseURL string `koanf:"api_base_url"`

	// HealthURL overrides the health endpoint. Empty derives {base}/../health.
	HealthURL string `koanf:"health_url"`

	// Timeout bounds each backend round trip. Zero leaves requests unbounded.
	Timeout time.Duration `koanf:"timeout"`

	// RequestIDs attaches an X-Request-ID header to every backend request.
	RequestIDs bool `koanf:"request_ids"`

	// DevAddr is the development server listen address.
	DevAddr string `koanf:"dev_addr"`

	// DevStrictPort makes the development server fail instead of moving to
	// another port when DevAddr is taken.
	DevStrictPort bool `koanf:"dev_strict_port"`

	// DevRoot is the directory holding the built web UI.
	DevRoot string `koanf:"dev_root"`

	// DevOptimizeDeps lists the UI dependencies pre-bundled by the frontend
	// build. Reported at startup only.
	DevOptimizeDeps []string `koanf:"dev_optimize_deps"`

	// DevWatch reports rebuilds of DevRoot on the generation endpoint.
	DevWatch bool `koanf:"dev_watch"`

	// DevWatchDebounce is how long file events must settle before a rebuild
	// counts.
	DevWatchDebounce time.Duration `koanf:"dev_watch_debounce"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		APIBaseURL:       "http://localhost:8000/api",
		RequestIDs:       true,
		DevAddr:          "0.0.0.0:5817",
		DevStrictPort:    true,
		DevRoot:          "web/dist",
		DevOptimizeDeps:  []string{"vue", "markdown-it"},
		DevWatch:         true,
		DevWatchDebounce: 200 * time.Millisecond,
	}
}

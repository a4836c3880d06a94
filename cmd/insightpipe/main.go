// Command insightpipe talks to the InsightPipe backend and serves the web UI
// during development.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/insightpipe/internal/adapters/http/client"
	"github.com/okian/insightpipe/internal/adapters/http/devserver"
	"github.com/okian/insightpipe/internal/app"
	"github.com/okian/insightpipe/internal/config"
	"github.com/okian/insightpipe/pkg/logger"
	"github.com/okian/insightpipe/pkg/metrics"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	runner, err := build(cfg, loggerInstance, in, out)
	if err != nil {
		os.Stderr.WriteString("failed to build client: " + err.Error() + "\n")
		return 1
	}

	if err := runner.Run(ctx, args); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	return 0
}

// build wires the backend client and development server from cfg.
func build(cfg *config.Config, log logger.Logger, in io.Reader, out io.Writer) (*app.Runner, error) {
	api, err := client.New(cfg.APIBaseURL,
		client.WithTimeout(cfg.Timeout),
		client.WithHealthURL(cfg.HealthURL),
		client.WithRequestIDs(cfg.RequestIDs),
		client.WithLogger(log.Named("client")),
		client.WithMetrics(metrics.Default()),
	)
	if err != nil {
		return nil, err
	}

	registerRuntimeCollectors(metrics.GetRegistry())

	dev := devserver.New(
		devserver.WithAddr(cfg.DevAddr),
		devserver.WithStrictPort(cfg.DevStrictPort),
		devserver.WithRoot(cfg.DevRoot),
		devserver.WithOptimizeDeps(cfg.DevOptimizeDeps),
		devserver.WithWatch(cfg.DevWatch),
		devserver.WithWatchDebounce(cfg.DevWatchDebounce),
		devserver.WithLogger(log.Named("devserver")),
	)

	return app.New(api,
		app.WithInput(in),
		app.WithOutput(out),
		app.WithLogger(log.Named("app")),
		app.WithDevServer(dev),
	), nil
}

// registerRuntimeCollectors adds Go runtime and process metrics to the
// registry served on /metrics. Repeated calls are no-ops.
func registerRuntimeCollectors(reg *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				logger.Get().Warn(context.Background(), "runtime collector not registered", logger.Error(err))
			}
		}
	}
}

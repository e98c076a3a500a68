// Package cli implements the docseek command line interface with cobra.
package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docseek/internal/logger"
)

// version is overridden at build time through SetVersion.
var version = "dev"

var (
	configPath  string
	verbose     bool
	metricsAddr string
)

var (
	// registry holds every docseek metric served on --metrics-addr.
	registry        = prometheus.NewRegistry()
	runtimeMetrics  sync.Once
	metricsServer   *http.Server
	metricsShutdown = 5 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "docseek",
	Short: "Search local documentation with hybrid retrieval",
	Long: `docseek indexes a directory of documentation (HTML, Markdown and JSON)
and answers questions with semantic, keyword or hybrid search.

Settings are read from --config, or from docseek.toml, docseek.yaml or
config/settings.yaml in the working directory. Without a file the
built-in defaults apply.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: docseek.toml, docseek.yaml or config/settings.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline logs to stderr")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address, e.g. :9090")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases everything it opened.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if metricsAddr != "" && metricsServer == nil {
		startMetrics(metricsAddr)
	}
	return nil
}

func startMetrics(addr string) {
	runtimeMetrics.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics server on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server error: %v", err)
		}
	}()

	metricsServer = srv
}

// shutdown closes the wired services and the metrics server.
func shutdown() {
	closeApp()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdown)
		defer cancel()
		metricsServer.Shutdown(ctx) //nolint:errcheck
		metricsServer = nil
	}
}

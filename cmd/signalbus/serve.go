package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbhiLegend/SignalR/pkg/config"
	"github.com/AbhiLegend/SignalR/pkg/cursor"
	"github.com/AbhiLegend/SignalR/pkg/log"
	"github.com/AbhiLegend/SignalR/pkg/messagebus"
	"github.com/AbhiLegend/SignalR/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the message bus daemon",
	Long: `Run the message bus with its observability endpoints.

The daemon embeds the bus engine and exposes /metrics, /health, /ready
and /live on the configured listen address. A transport layer mapping
network clients to subscribers is expected to run in the same process.

Examples:
  # Run with defaults
  signalbus serve

  # Run with a config file
  signalbus serve --config /etc/signalbus/config.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "YAML configuration file")
	serveCmd.Flags().String("listen", "", "Metrics listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	listen, _ := cmd.Flags().GetString("listen")

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if listen != "" {
		cfg.Metrics.ListenAddr = listen
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	metrics.SetVersion(Version)
	logger := log.WithComponent("serve")

	bus := messagebus.NewBus(messagebus.Config{
		Workers:             cfg.Bus.Workers,
		QueueDepth:          cfg.Bus.QueueDepth,
		StoreCapacity:       cfg.Bus.StoreCapacity,
		MaxMessagesPerBatch: cfg.Bus.MaxMessagesPerBatch,
	})
	bus.Start()
	defer bus.Stop()
	metrics.RegisterComponent("broker", true, "running")

	collector := metrics.NewCollector(time.Duration(cfg.Metrics.CollectInterval))
	collector.Start()
	defer collector.Stop()

	cursors, err := cursor.NewBoltStore(cfg.Cursors.DataDir)
	if err != nil {
		metrics.RegisterComponent("cursors", false, err.Error())
		logger.Warn().Err(err).Msg("cursor store unavailable; resumption disabled")
	} else {
		metrics.RegisterComponent("cursors", true, "open")
		defer cursors.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())

	srv := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("metrics endpoint failed")
		}
	}()
	logger.Info().
		Str("listen", cfg.Metrics.ListenAddr).
		Int("workers", bus.Broker().AllocatedWorkers()).
		Msg("signalbus running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

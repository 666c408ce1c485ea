// Command vortracd is a thin wiring harness for the analysis core: it
// loads configuration, stands up storage, metrics, and the log channel,
// constructs the coordinator, and serves /metrics and /log over HTTP. It
// is not a full radar ingestion pipeline or batch driver: it has no
// volume source, and no HTTP endpoint drives the coordinator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vortrac/analysis/internal/config"
	"github.com/vortrac/analysis/internal/coordinator"
	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/logchannel"
	"github.com/vortrac/analysis/internal/storage/sqlite"
	"github.com/vortrac/analysis/internal/telemetry"
	"github.com/vortrac/analysis/pkg/logger"
)

var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting vortracd", logger.String("version", Version))

	db, err := sqlite.Open(cfg.Storage.DBPath, log)
	if err != nil {
		log.Error("failed to open storage", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	seriesStorage, err := sqlite.NewSeriesStorage(db, log)
	if err != nil {
		log.Error("failed to initialize series storage", logger.Error(err))
		os.Exit(1)
	}
	perturbationStorage, err := sqlite.NewPerturbationStorage(db, log)
	if err != nil {
		log.Error("failed to initialize perturbation storage", logger.Error(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	logCh := logchannel.NewBroadcaster(log)

	radar := geo.Origin{Lat: cfg.Radar.Lat, Lon: cfg.Radar.Lon, AltKM: cfg.Radar.AltKM}
	co := coordinator.New(cfg, radar, log, metrics, logCh, seriesStorage, perturbationStorage)
	_ = co // constructed only; nothing in this harness calls AnalyzeVolume

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go logCh.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/log", func(w http.ResponseWriter, r *http.Request) {
		if err := logCh.ServeWS(w, r); err != nil {
			log.Warn("log channel upgrade failed", logger.Error(err))
		}
	})

	server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

	go func() {
		if !cfg.Metrics.Enabled {
			return
		}
		log.Info("serving metrics and log channel", logger.String("addr", cfg.Metrics.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", logger.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
	_ = server.Shutdown(context.Background())
}

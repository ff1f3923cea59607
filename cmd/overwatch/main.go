package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridwatch/overwatch/internal/adapter/feed"
	"github.com/gridwatch/overwatch/internal/adapter/httpapi"
	"github.com/gridwatch/overwatch/internal/adapter/sheet"
	"github.com/gridwatch/overwatch/internal/config"
	"github.com/gridwatch/overwatch/internal/engine"
	"github.com/gridwatch/overwatch/internal/observability"
	"github.com/gridwatch/overwatch/internal/topology"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	topo, err := loadTopology(cfg, logger)
	if err != nil {
		logger.Error("failed to load topology", "error", err)
		os.Exit(1)
	}

	eng, err := engine.New(topo, logger, metrics, engine.WithJitterPct(cfg.NoiseJitterPct))
	if err != nil {
		logger.Error("failed to build locator engine", "error", err)
		os.Exit(1)
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	criticalAmps := topo.Detection.CriticalAmps

	if cfg.FeedEnabled {
		consumer := feed.NewConsumer(cfg, criticalAmps, eng, logger, metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("feed consumer error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka fault-record feed disabled")
	}

	if cfg.SheetFeedURL != "" {
		poller := sheet.NewPoller(cfg, criticalAmps, eng, logger, metrics)
		go func() {
			if err := poller.Run(ctx); err != nil {
				logger.Error("sheet poller error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadTopology selects the configured feeder description, falling back to the
// embedded IEEE 13 node default when no path is given.
func loadTopology(cfg *config.Config, logger *slog.Logger) (*topology.Topology, error) {
	if cfg.TopologyPath == "" {
		logger.Info("using embedded default topology")
		return topology.Default()
	}
	logger.Info("loading topology", "path", cfg.TopologyPath)
	return topology.Load(cfg.TopologyPath)
}

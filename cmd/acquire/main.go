// Command acquire runs the polygon acquisition: it queries Overpass
// for every configured region, assembles and validates tank polygons,
// writes one GeoJSON asset per region, and publishes the merged,
// deduplicated collection. Exit status is zero when at least one
// region yielded usable data.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/geojson"
	httpadapter "github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/http"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/overpass"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/config"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/observability"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	fetcher := overpass.NewClient(cfg.Mirrors, cfg.MaxFetchAttempts, cfg.QueryTimeoutSecs, cfg.FetchTimeout, clock, logger)
	regionStore := geojson.NewStore(cfg.RegionAssetDir())
	combinedStore := geojson.NewStore(cfg.DataDir)

	acquirer := pipeline.NewAcquirer(fetcher, cfg.Regions, regionStore, combinedStore, cfg.MergedName(), logger, metrics, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpadapter.NewServer(cfg.HTTPAddr, acquirer, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	summary, err := acquirer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("http server shutdown error", "error", shutdownErr)
	}

	if err != nil {
		if errors.Is(err, pipeline.ErrNoData) {
			logger.Error("acquisition produced no polygons")
		} else {
			logger.Error("acquisition failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("acquisition complete",
		"regions_ok", summary.RegionsOK,
		"regions_failed", summary.RegionsFailed,
		"unique_tanks", summary.MergeReport.Unique,
	)
}

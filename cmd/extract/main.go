// Command extract runs the weekly statistics extraction: it loads the
// per-region tank polygon assets, pulls scenes from the imagery
// catalog for each seven-day window, builds cloud-masked median
// composites with the derived spectral bands, and exports per-tank
// zonal statistics to the configured sinks. Exit status is zero when
// at least one sink received the records.
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

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/catalog"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/geojson"
	httpadapter "github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/http"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/influx"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/kafka"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/adapter/sink"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/config"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	names := make([]string, len(cfg.Regions))
	for i, r := range cfg.Regions {
		names[i] = r.Slug()
	}
	store := geojson.NewStore(cfg.RegionAssetDir())
	assets := pipeline.NewAssetLoader(store, names, logger, metrics)

	source := catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, logger)

	sinks := []pipeline.RecordSink{sink.NewCSVWriter(cfg.CSVPath, logger)}
	if cfg.KafkaEnabled {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer writer.Close()
		sinks = append(sinks, writer)
	}
	if cfg.InfluxEnabled {
		writer, err := influx.NewWriter(ctx, cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, logger)
		if err != nil {
			logger.Error("influx connection failed", "error", err)
			os.Exit(1)
		}
		defer writer.Close()
		sinks = append(sinks, writer)
	}

	zonal := domain.ZonalConfig{ScaleMeters: cfg.ScaleMeters, TileRows: cfg.TileRows}
	extractor := pipeline.NewExtractor(assets, source, sinks, cfg.StartDate, cfg.EndDate, cfg.IntervalDays, cfg.MaxCloudPct, zonal, logger, metrics, clock)

	srv := httpadapter.NewServer(cfg.HTTPAddr, extractor, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	summary, err := extractor.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("http server shutdown error", "error", shutdownErr)
	}

	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	logger.Info("extraction complete",
		"tanks", summary.Tanks,
		"windows", summary.Windows,
		"empty_windows", summary.EmptyWindows,
		"records", summary.Records,
	)
}

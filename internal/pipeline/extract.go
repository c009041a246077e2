package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/observability"
)

// ErrExportFailed means no sink accepted the statistics output.
var ErrExportFailed = errors.New("all export sinks failed")

// SceneSource streams qualifying scenes for one window: filtered by
// date range, spatial bounds, and scene-level cloud cover.
type SceneSource interface {
	Scenes(ctx context.Context, window domain.TimeWindow, bounds orb.Bound, maxCloudPct float64) ([]domain.Scene, error)
}

// RecordSink receives the full ordered record sequence.
type RecordSink interface {
	WriteRecords(ctx context.Context, records []domain.StatisticsRecord) error
}

// ExtractSummary is the final tally of an extraction run.
type ExtractSummary struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Tanks        int
	Windows      int
	EmptyWindows int
	Records      int
	AssetReport  AssetReport
}

// Extractor runs the statistics pipeline: load assets, build one
// median composite per window, aggregate zonal statistics per polygon,
// and deliver the record sequence to the sinks. Windows are processed
// one at a time; records append composite-major, polygon-minor, so the
// output order is deterministic.
type Extractor struct {
	assets       *AssetLoader
	source       SceneSource
	sinks        []RecordSink
	start, end   time.Time
	intervalDays int
	maxCloudPct  float64
	zonal        domain.ZonalConfig
	logger       *slog.Logger
	metrics      *observability.Metrics
	clock        clockwork.Clock
	ready        atomic.Bool
}

// NewExtractor wires an extraction run over [start, end) with the
// given compositing interval.
func NewExtractor(assets *AssetLoader, source SceneSource, sinks []RecordSink, start, end time.Time, intervalDays int, maxCloudPct float64, zonal domain.ZonalConfig, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Extractor {
	return &Extractor{
		assets:       assets,
		source:       source,
		sinks:        sinks,
		start:        start,
		end:          end,
		intervalDays: intervalDays,
		maxCloudPct:  maxCloudPct,
		zonal:        zonal,
		logger:       logger,
		metrics:      metrics,
		clock:        clock,
	}
}

// CheckReadiness returns nil once at least one window has been
// processed, or an error describing why the run is not yet ready.
func (e *Extractor) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no window processed yet")
	}
	return nil
}

// Run executes the extraction. A window whose scene listing fails or
// returns nothing still produces records (with zero valid pixels);
// only asset loading or delivery failure is fatal.
func (e *Extractor) Run(ctx context.Context) (ExtractSummary, error) {
	summary := ExtractSummary{StartedAt: e.clock.Now()}
	e.metrics.ExtractRunning.Set(1)
	defer e.metrics.ExtractRunning.Set(0)

	polygons, assetReport, err := e.assets.Load(ctx)
	if err != nil {
		return summary, err
	}
	summary.AssetReport = assetReport
	summary.Tanks = len(polygons)

	windows := domain.Windows(e.start, e.end, e.intervalDays)
	summary.Windows = len(windows)
	bounds := polygons.Bound()

	e.logger.Info("extraction started",
		"tanks", len(polygons),
		"windows", len(windows),
		"from", e.start.Format("2006-01-02"),
		"to", e.end.Format("2006-01-02"),
	)

	var records []domain.StatisticsRecord
	for _, window := range windows {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		scenes, err := e.source.Scenes(ctx, window, bounds, e.maxCloudPct)
		if err != nil {
			// Contained per-window failure: the window degrades to an
			// all-masked composite.
			e.logger.Warn("scene listing failed", "week", window.Label(), "error", err)
			scenes = nil
		}

		comp := domain.BuildComposite(window, scenes)
		e.metrics.CompositesBuilt.Inc()
		e.metrics.ScenesPerWindow.Observe(float64(comp.SceneCount))
		if comp.SceneCount == 0 {
			summary.EmptyWindows++
		}

		windowRecords := domain.ExtractStatistics(comp, polygons, e.zonal)
		e.ready.Store(true)
		records = append(records, windowRecords...)
		e.metrics.RecordsProduced.Add(float64(len(windowRecords)))

		e.logger.Info("window processed",
			"week", window.Label(),
			"scenes", comp.SceneCount,
			"records", len(windowRecords),
		)
	}

	summary.Records = len(records)

	delivered := 0
	for _, sink := range e.sinks {
		if err := sink.WriteRecords(ctx, records); err != nil {
			e.logger.Error("sink delivery failed", "error", err)
			continue
		}
		delivered++
	}
	if delivered == 0 && len(e.sinks) > 0 {
		return summary, ErrExportFailed
	}

	summary.FinishedAt = e.clock.Now()
	e.logger.Info("extraction summary",
		"tanks", summary.Tanks,
		"windows", summary.Windows,
		"empty_windows", summary.EmptyWindows,
		"records", summary.Records,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/observability"
)

// ErrNoAssets means every published polygon asset was missing or
// empty, which is fatal to the statistics stage.
var ErrNoAssets = errors.New("no usable polygon assets")

// AssetResolver resolves published polygon assets by name.
type AssetResolver interface {
	// Count forces evaluation of the asset's feature count.
	Count(ctx context.Context, name string) (int, error)
	// Load reads the asset's polygon set.
	Load(ctx context.Context, name string) (domain.PolygonSet, error)
}

// AssetReport partitions asset names by resolution outcome.
type AssetReport struct {
	Accepted []string
	Empty    []string
	Missing  []string
}

// AssetLoader resolves each configured asset reference and folds the
// survivors into one working polygon set.
type AssetLoader struct {
	resolver AssetResolver
	names    []string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAssetLoader wires an asset-loading pass over the named assets.
func NewAssetLoader(resolver AssetResolver, names []string, logger *slog.Logger, metrics *observability.Metrics) *AssetLoader {
	return &AssetLoader{resolver: resolver, names: names, logger: logger, metrics: metrics}
}

// Load attempts every asset reference, classifying each as accepted
// (count > 0), present-but-empty, or missing (any resolution error).
// Missing and empty assets are excluded with a log line, not an error;
// only zero accepted assets fails. Accepted sets merge by pairwise
// union in order; cross-asset id collisions are out of scope because
// assets originate from disjoint acquisitions.
func (l *AssetLoader) Load(ctx context.Context) (domain.PolygonSet, AssetReport, error) {
	var report AssetReport
	var merged domain.PolygonSet

	for _, name := range l.names {
		if ctx.Err() != nil {
			return nil, report, ctx.Err()
		}

		count, err := l.resolver.Count(ctx, name)
		if err != nil {
			l.logger.Warn("asset missing", "asset", name, "error", err)
			l.metrics.AssetsLoaded.WithLabelValues("missing").Inc()
			report.Missing = append(report.Missing, name)
			continue
		}
		if count == 0 {
			l.logger.Warn("asset exists but contains 0 features", "asset", name)
			l.metrics.AssetsLoaded.WithLabelValues("empty").Inc()
			report.Empty = append(report.Empty, name)
			continue
		}

		set, err := l.resolver.Load(ctx, name)
		if err != nil {
			l.logger.Warn("asset missing", "asset", name, "error", err)
			l.metrics.AssetsLoaded.WithLabelValues("missing").Inc()
			report.Missing = append(report.Missing, name)
			continue
		}

		l.logger.Info("asset loaded", "asset", name, "tanks", len(set))
		l.metrics.AssetsLoaded.WithLabelValues("accepted").Inc()
		report.Accepted = append(report.Accepted, name)
		merged = append(merged, set...)
	}

	l.logger.Info("asset loading summary",
		"loaded", len(report.Accepted),
		"empty", len(report.Empty),
		"missing", len(report.Missing),
		"total_assets", len(l.names),
		"total_tanks", len(merged),
	)

	if len(report.Accepted) == 0 {
		return nil, report, ErrNoAssets
	}
	return merged, report, nil
}

// Package pipeline orchestrates the two runs: polygon acquisition and
// weekly statistics extraction.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/observability"
)

// ErrNoData means no region produced any tank polygons: total failure
// of the acquisition stage.
var ErrNoData = errors.New("no region produced any tank polygons")

// RegionFetcher fetches the raw element graph for one region.
type RegionFetcher interface {
	FetchRegion(ctx context.Context, region domain.Region) domain.FetchResult
}

// AssetWriter persists a polygon set under an asset name.
type AssetWriter interface {
	Write(name string, set domain.PolygonSet) (string, error)
}

// RegionOutcome is one region's acquisition result. A region that
// exhausted all fetch attempts has Fetched false and an empty set.
type RegionOutcome struct {
	Region    domain.Region
	Set       domain.PolygonSet
	Report    domain.AssemblyReport
	Fetched   bool
	AssetPath string
}

// AcquireSummary is the final tally of an acquisition run.
type AcquireSummary struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	Outcomes      []RegionOutcome
	Merged        domain.PolygonSet
	MergeReport   domain.MergeReport
	RegionsOK     int
	RegionsFailed int
}

// Acquirer runs the polygon acquisition: fetch, assemble, persist per
// region, then merge and deduplicate into the combined asset. Regions
// are processed strictly sequentially, a politeness constraint toward
// the shared public Overpass service.
type Acquirer struct {
	fetcher    RegionFetcher
	regions    []domain.Region
	store      AssetWriter
	combined   AssetWriter
	mergedName string
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	ready      atomic.Bool
}

// NewAcquirer wires an acquisition run. store receives per-region
// assets keyed by region slug; combined receives the merged set under
// mergedName.
func NewAcquirer(fetcher RegionFetcher, regions []domain.Region, store, combined AssetWriter, mergedName string, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Acquirer {
	return &Acquirer{
		fetcher:    fetcher,
		regions:    regions,
		store:      store,
		combined:   combined,
		mergedName: mergedName,
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
	}
}

// CheckReadiness returns nil once at least one region has been
// processed, or an error describing why the run is not yet ready.
func (a *Acquirer) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errors.New("no region processed yet")
	}
	return nil
}

// Run processes every region and merges the survivors. A single
// region's total failure never aborts the run; only zero usable
// regions is an error.
func (a *Acquirer) Run(ctx context.Context) (AcquireSummary, error) {
	summary := AcquireSummary{StartedAt: a.clock.Now()}

	var sets []domain.PolygonSet
	for _, region := range a.regions {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		outcome := a.acquireRegion(ctx, region)
		a.ready.Store(true)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if len(outcome.Set) > 0 {
			summary.RegionsOK++
			sets = append(sets, outcome.Set)
		} else {
			summary.RegionsFailed++
		}
	}

	merged, report := domain.Merge(sets...)
	summary.Merged = merged
	summary.MergeReport = report
	summary.FinishedAt = a.clock.Now()
	a.metrics.DuplicatesRemoved.Add(float64(report.Duplicates))

	a.logger.Info("acquisition summary",
		"regions_ok", summary.RegionsOK,
		"regions_failed", summary.RegionsFailed,
		"total_polygons", report.Total,
		"unique_polygons", report.Unique,
		"duplicates_removed", report.Duplicates,
	)

	if len(merged) == 0 {
		return summary, ErrNoData
	}

	if _, err := a.combined.Write(a.mergedName, merged); err != nil {
		return summary, err
	}
	return summary, nil
}

func (a *Acquirer) acquireRegion(ctx context.Context, region domain.Region) RegionOutcome {
	a.logger.Info("fetching region", "region", region.Name)

	res := a.fetcher.FetchRegion(ctx, region)
	if res.Exhausted {
		a.logger.Warn("all attempts failed for region", "region", region.Name, "attempts", res.Attempts)
		a.metrics.FetchAttempts.WithLabelValues("failed").Add(float64(res.Attempts))
		a.metrics.RegionsAcquired.WithLabelValues("failed").Inc()
		return RegionOutcome{Region: region}
	}
	if res.Attempts > 1 {
		a.metrics.FetchAttempts.WithLabelValues("failed").Add(float64(res.Attempts - 1))
	}
	a.metrics.FetchAttempts.WithLabelValues("ok").Inc()

	set, report := domain.AssemblePolygons(region.Name, res.Elements)
	a.metrics.TanksAccepted.Add(float64(report.Accepted))
	a.metrics.TanksRejected.Add(float64(report.RejectedShort + report.RejectedGeometry))

	a.logger.Info("region assembled",
		"region", region.Name,
		"valid_tanks", report.Accepted,
		"rejected_short", report.RejectedShort,
		"rejected_geometry", report.RejectedGeometry,
		"relations_skipped", report.RelationsSkipped,
	)

	outcome := RegionOutcome{Region: region, Set: set, Report: report, Fetched: true}
	if len(set) == 0 {
		a.metrics.RegionsAcquired.WithLabelValues("empty").Inc()
		return outcome
	}

	path, err := a.store.Write(region.Slug(), set)
	if err != nil {
		// The set still participates in the merged output.
		a.logger.Error("failed to persist region asset", "region", region.Name, "error", err)
	} else {
		outcome.AssetPath = path
		a.logger.Info("region asset saved", "region", region.Name, "path", path, "tanks", len(set))
	}

	a.metrics.RegionsAcquired.WithLabelValues("ok").Inc()
	return outcome
}

package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/pipeline"
)

// --- mocks ---

type mockSceneSource struct {
	scenes map[string][]domain.Scene // keyed by window label
	err    error
}

func (m *mockSceneSource) Scenes(_ context.Context, window domain.TimeWindow, _ orb.Bound, _ float64) ([]domain.Scene, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.scenes[window.Label()], nil
}

type mockSink struct {
	calls   int
	records []domain.StatisticsRecord
	err     error
}

func (m *mockSink) WriteRecords(_ context.Context, records []domain.StatisticsRecord) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.records = records
	return nil
}

// clearScene covers [0,2]×[0,2] with a 2×2 grid of uniform raw
// reflectance and a clear QA mask.
func clearScene(id string, raw float64) domain.Scene {
	uniform := func(v float64) *domain.Raster {
		r := domain.NewRaster(2, 2)
		for i := range r.Values {
			r.Values[i] = v
		}
		return r
	}
	return domain.Scene{
		ID:             id,
		AcquiredAt:     time.Date(2024, 1, 4, 10, 30, 0, 0, time.UTC),
		SolarZenithDeg: 40,
		Bounds:         orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}},
		Bands: map[string]*domain.Raster{
			domain.BandBlue:  uniform(raw),
			domain.BandGreen: uniform(raw),
			domain.BandRed:   uniform(raw),
			domain.BandNIR:   uniform(raw),
			domain.BandQA:    domain.NewRaster(2, 2),
		},
	}
}

func extractStart() time.Time {
	return time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
}

func newExtractor(resolver pipeline.AssetResolver, source pipeline.SceneSource, sinks []pipeline.RecordSink, end time.Time) *pipeline.Extractor {
	loader := pipeline.NewAssetLoader(resolver, []string{"alpha_port"}, slog.Default(), newTestMetrics())
	zonal := domain.ZonalConfig{ScaleMeters: 10, TileRows: 256}
	return pipeline.NewExtractor(loader, source, sinks, extractStart(), end, 7, 20, zonal, slog.Default(), newTestMetrics(), clockwork.NewFakeClock())
}

// --- tests ---

func TestExtractor_Run(t *testing.T) {
	resolver := &mockResolver{sets: map[string]domain.PolygonSet{
		"alpha_port": {{
			TankID: 42,
			Region: "Alpha Port",
			Ring:   orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}},
		}},
	}}

	t.Run("one record per tank per window", func(t *testing.T) {
		source := &mockSceneSource{scenes: map[string][]domain.Scene{
			"2024-01-03": {clearScene("a", 1000)},
			"2024-01-10": {clearScene("b", 2000)},
		}}
		sink := &mockSink{}

		// Two windows: Jan 3 and Jan 10.
		e := newExtractor(resolver, source, []pipeline.RecordSink{sink}, extractStart().AddDate(0, 0, 14))
		summary, err := e.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Tanks)
		assert.Equal(t, 2, summary.Windows)
		assert.Equal(t, 0, summary.EmptyWindows)
		assert.Equal(t, 2, summary.Records)

		require.Len(t, sink.records, 2)
		assert.Equal(t, "2024-01-03", sink.records[0].Week)
		assert.Equal(t, "2024-01-10", sink.records[1].Week)
		assert.Equal(t, int64(42), sink.records[0].TankID)
		assert.Equal(t, 4, sink.records[0].Stats[domain.BandNIR].Count)
		assert.InDelta(t, 0.1, sink.records[0].Stats[domain.BandNIR].Mean, 1e-9)
		assert.Equal(t, 50.0, sink.records[0].SunElevationDeg)
	})

	t.Run("sceneless window degrades to zero-count records", func(t *testing.T) {
		source := &mockSceneSource{scenes: map[string][]domain.Scene{
			"2024-01-03": {clearScene("a", 1000)},
		}}
		sink := &mockSink{}

		e := newExtractor(resolver, source, []pipeline.RecordSink{sink}, extractStart().AddDate(0, 0, 14))
		summary, err := e.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.EmptyWindows)
		require.Len(t, sink.records, 2)
		assert.Equal(t, 4, sink.records[0].Stats[domain.BandNIR].Count)
		assert.Equal(t, 0, sink.records[1].Stats[domain.BandNIR].Count)
	})

	t.Run("scene listing failure is contained per window", func(t *testing.T) {
		source := &mockSceneSource{err: errors.New("catalog down")}
		sink := &mockSink{}

		e := newExtractor(resolver, source, []pipeline.RecordSink{sink}, extractStart().AddDate(0, 0, 7))
		summary, err := e.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.EmptyWindows)
		assert.Equal(t, 1, summary.Records)
	})

	t.Run("missing assets are fatal", func(t *testing.T) {
		empty := &mockResolver{}
		e := newExtractor(empty, &mockSceneSource{}, []pipeline.RecordSink{&mockSink{}}, extractStart().AddDate(0, 0, 7))

		_, err := e.Run(context.Background())
		assert.ErrorIs(t, err, pipeline.ErrNoAssets)
	})

	t.Run("one failing sink does not fail the run", func(t *testing.T) {
		source := &mockSceneSource{scenes: map[string][]domain.Scene{
			"2024-01-03": {clearScene("a", 1000)},
		}}
		bad := &mockSink{err: errors.New("broker down")}
		good := &mockSink{}

		e := newExtractor(resolver, source, []pipeline.RecordSink{bad, good}, extractStart().AddDate(0, 0, 7))
		_, err := e.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, bad.calls)
		assert.Len(t, good.records, 1)
	})

	t.Run("all sinks failing is fatal", func(t *testing.T) {
		source := &mockSceneSource{scenes: map[string][]domain.Scene{
			"2024-01-03": {clearScene("a", 1000)},
		}}
		bad := &mockSink{err: errors.New("broker down")}

		e := newExtractor(resolver, source, []pipeline.RecordSink{bad}, extractStart().AddDate(0, 0, 7))
		_, err := e.Run(context.Background())

		assert.ErrorIs(t, err, pipeline.ErrExportFailed)
	})

	t.Run("cancelled context aborts between windows", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e := newExtractor(resolver, &mockSceneSource{}, []pipeline.RecordSink{&mockSink{}}, extractStart().AddDate(0, 0, 7))
		_, err := e.Run(ctx)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

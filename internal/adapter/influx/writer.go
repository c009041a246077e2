// Package influx writes statistics records to InfluxDB so analysts can
// chart per-tank index series directly.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

const measurement = "tank_metrics"

// Writer writes one point per statistics record.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *slog.Logger
}

// NewWriter creates an InfluxDB v2 sink and verifies connectivity.
func NewWriter(ctx context.Context, url, token, org, bucket string, logger *slog.Logger) (*Writer, error) {
	client := influxdb2.NewClient(url, token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to influxdb: %w", err)
	}
	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		logger:   logger,
	}, nil
}

// WriteRecords converts each record into a point tagged by tank and
// region, timestamped at the window start.
func (w *Writer) WriteRecords(ctx context.Context, records []domain.StatisticsRecord) error {
	points := make([]*write.Point, 0, len(records))
	for _, r := range records {
		ts, err := time.Parse("2006-01-02", r.Week)
		if err != nil {
			return fmt.Errorf("record tank=%d has invalid week %q: %w", r.TankID, r.Week, err)
		}

		fields := map[string]interface{}{
			"solar_zenith_angle": r.SolarZenithDeg,
			"sun_elevation":      r.SunElevationDeg,
			"valid_pixels":       r.Stats[domain.BandNIR].Count,
		}
		for name, s := range r.Stats {
			if s.Count == 0 {
				continue
			}
			fields[name+"_mean"] = s.Mean
			fields[name+"_stddev"] = s.StdDev
		}

		points = append(points, write.NewPoint(
			measurement,
			map[string]string{
				"tank_id":  strconv.FormatInt(r.TankID, 10),
				"location": r.Region,
			},
			fields,
			ts,
		))
	}

	if err := w.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	w.logger.Info("influx export complete", "records", len(records))
	return nil
}

// Close releases the underlying client.
func (w *Writer) Close() {
	w.client.Close()
}

// Package kafka streams statistics records to a topic for downstream
// consumers that want the weekly metrics as events rather than files.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

// Writer produces statistics records to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for the metrics topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// WriteRecords serializes and publishes all records in a single
// WriteMessages call. The message key is the tank id so one tank's
// weekly series lands on one partition in order.
func (w *Writer) WriteRecords(ctx context.Context, records []domain.StatisticsRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write metrics batch: %w", err)
	}
	w.logger.Info("kafka export complete", "topic", w.writer.Topic, "records", len(records))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// recordDoc is the wire form of a statistics record.
type recordDoc struct {
	TankID          int64                   `json:"tank_id"`
	Location        string                  `json:"location"`
	Content         string                  `json:"content,omitempty"`
	Substance       string                  `json:"substance,omitempty"`
	Week            string                  `json:"week"`
	SolarZenithDeg  float64                 `json:"solar_zenith_angle"`
	SunElevationDeg float64                 `json:"sun_elevation"`
	Bands           map[string]bandStatsDoc `json:"bands"`
}

type bandStatsDoc struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

func serializeToMessage(r domain.StatisticsRecord) (kafkago.Message, error) {
	doc := recordDoc{
		TankID:          r.TankID,
		Location:        r.Region,
		Content:         r.Content,
		Substance:       r.Substance,
		Week:            r.Week,
		SolarZenithDeg:  r.SolarZenithDeg,
		SunElevationDeg: r.SunElevationDeg,
		Bands:           make(map[string]bandStatsDoc, len(r.Stats)),
	}
	for name, s := range r.Stats {
		doc.Bands[name] = bandStatsDoc{Mean: s.Mean, StdDev: s.StdDev, Min: s.Min, Max: s.Max, Count: s.Count}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record tank=%d: %w", r.TankID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(r.TankID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "week", Value: []byte(r.Week)},
			{Key: "location", Value: []byte(r.Region)},
		},
	}, nil
}

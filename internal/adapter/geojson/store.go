// Package geojson persists polygon sets as GeoJSON FeatureCollection
// files, the published-asset format the extraction pipeline reads
// back.
package geojson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

// Store reads and writes region assets under a single directory, one
// file per asset name ("<name>.geojson").
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the on-disk location for an asset name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".geojson")
}

// Write marshals the set as an indented FeatureCollection, checks the
// envelope, and writes it to the asset file, returning the path.
// Output is human-readable and reads back byte-for-byte compatible.
func (s *Store) Write(name string, set domain.PolygonSet) (string, error) {
	data, err := Marshal(set)
	if err != nil {
		return "", err
	}
	if err := Validate(data); err != nil {
		return "", fmt.Errorf("asset %s failed validation: %w", name, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	path := s.Path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset %s: %w", name, err)
	}
	return path, nil
}

// Load reads an asset back into a polygon set. A missing file is the
// backend's "not found" condition and surfaces as an error for the
// caller to classify.
func (s *Store) Load(_ context.Context, name string) (domain.PolygonSet, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", name, err)
	}
	set, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", name, err)
	}
	return set, nil
}

// Count forces evaluation of an asset's feature count.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	set, err := s.Load(ctx, name)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

// Validate checks the envelope of an asset file before publication:
// it must be a FeatureCollection with at least one feature.
func Validate(data []byte) error {
	var envelope struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if envelope.Type != "FeatureCollection" {
		return fmt.Errorf("type is %q, expected FeatureCollection", envelope.Type)
	}
	if len(envelope.Features) == 0 {
		return errors.New("no features found")
	}
	return nil
}

// Marshal renders the set as an indented GeoJSON FeatureCollection.
func Marshal(set domain.PolygonSet) ([]byte, error) {
	fc := orbjson.NewFeatureCollection()
	for _, tank := range set {
		f := orbjson.NewFeature(tank.Polygon())
		f.Properties = orbjson.Properties{
			"tank_id":  tank.TankID,
			"location": tank.Region,
		}
		if tank.Content != "" {
			f.Properties["content"] = tank.Content
		}
		if tank.Substance != "" {
			f.Properties["substance"] = tank.Substance
		}
		fc.Append(f)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	return data, nil
}

// Unmarshal parses a FeatureCollection back into a polygon set.
// Features without a polygon geometry or a tank_id are skipped.
func Unmarshal(data []byte) (domain.PolygonSet, error) {
	fc, err := orbjson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal feature collection: %w", err)
	}

	var set domain.PolygonSet
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok || len(poly) == 0 {
			continue
		}
		id, ok := numericID(f.Properties["tank_id"])
		if !ok {
			continue
		}
		set = append(set, domain.TankPolygon{
			TankID:    id,
			Ring:      poly[0],
			Region:    stringProp(f.Properties, "location"),
			Content:   stringProp(f.Properties, "content"),
			Substance: stringProp(f.Properties, "substance"),
		})
	}
	return set, nil
}

// numericID tolerates the numeric types JSON decoding may produce.
func numericID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func stringProp(props orbjson.Properties, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// BBox is a geographic bounding box in WGS-84 degrees.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Bound converts the box to an orb bound (min = SW corner, max = NE).
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// OverpassString renders the box in Overpass order: south,west,north,east.
func (b BBox) OverpassString() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.South, b.West, b.North, b.East)
}

// Region is a named storage area to acquire tank polygons for.
// Defined once per run and never mutated.
type Region struct {
	Name string
	Box  BBox
}

// Slug derives the asset name for a region: lowercased, spaces become
// underscores, commas and periods are dropped. "Houston Ship Channel,
// USA" → "houston_ship_channel_usa".
func (r Region) Slug() string {
	s := strings.ToLower(r.Name)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ".", "")
	return s
}

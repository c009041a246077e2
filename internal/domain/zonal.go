package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ZonalConfig controls the zonal aggregation pass.
type ZonalConfig struct {
	// ScaleMeters is the nominal ground sample distance of the
	// composite grid, 10 m for Sentinel-2 visible/NIR.
	ScaleMeters float64
	// TileRows bounds how many raster rows are scanned per batch for
	// one polygon, keeping peak accumulation memory flat for large
	// footprints.
	TileRows int
}

// ExtractStatistics aggregates every band of the composite within each
// polygon, applying the five reducers jointly (mean, stdDev, min, max,
// valid-pixel count). Output order follows the polygon set. A
// composite with no valid pixels yields records whose bands all report
// Count 0.
func ExtractStatistics(comp Composite, polygons PolygonSet, cfg ZonalConfig) []StatisticsRecord {
	records := make([]StatisticsRecord, 0, len(polygons))
	for _, tank := range polygons {
		records = append(records, extractOne(comp, tank, cfg))
	}
	return records
}

type accumulator struct {
	sum   float64
	sumSq float64
	min   float64
	max   float64
	count int
}

func (a *accumulator) add(v float64) {
	if a.count == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.sum += v
	a.sumSq += v * v
	a.count++
}

func (a *accumulator) stats() BandStats {
	if a.count == 0 {
		return BandStats{}
	}
	n := float64(a.count)
	mean := a.sum / n
	variance := a.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return BandStats{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Min:    a.min,
		Max:    a.max,
		Count:  a.count,
	}
}

func extractOne(comp Composite, tank TankPolygon, cfg ZonalConfig) StatisticsRecord {
	record := StatisticsRecord{
		TankID:          tank.TankID,
		Region:          tank.Region,
		Content:         tank.Content,
		Substance:       tank.Substance,
		Week:            comp.Week,
		SolarZenithDeg:  comp.SolarZenithDeg,
		SunElevationDeg: comp.SunElevationDeg,
		Stats:           make(map[string]BandStats, len(StatBands)),
	}

	accs := make(map[string]*accumulator, len(StatBands))
	for _, name := range StatBands {
		accs[name] = &accumulator{}
	}

	if comp.SceneCount > 0 && len(comp.Bands) > 0 {
		aggregatePolygon(comp, tank, cfg, accs)
	}

	for _, name := range StatBands {
		record.Stats[name] = accs[name].stats()
	}
	return record
}

// aggregatePolygon scans the composite grid cells whose centers fall
// inside the polygon, restricted to the polygon's bounding box and
// processed in row batches of cfg.TileRows.
func aggregatePolygon(comp Composite, tank TankPolygon, cfg ZonalConfig, accs map[string]*accumulator) {
	grid := firstBand(comp)
	if grid == nil || grid.Width == 0 || grid.Height == 0 {
		return
	}

	cellW := (comp.Bounds.Max[0] - comp.Bounds.Min[0]) / float64(grid.Width)
	cellH := (comp.Bounds.Max[1] - comp.Bounds.Min[1]) / float64(grid.Height)
	if cellW <= 0 || cellH <= 0 {
		return
	}

	bound := tank.Ring.Bound()
	colMin := clamp(int(math.Floor((bound.Min[0]-comp.Bounds.Min[0])/cellW)), 0, grid.Width-1)
	colMax := clamp(int(math.Ceil((bound.Max[0]-comp.Bounds.Min[0])/cellW)), 0, grid.Width-1)
	rowMin := clamp(int(math.Floor((comp.Bounds.Max[1]-bound.Max[1])/cellH)), 0, grid.Height-1)
	rowMax := clamp(int(math.Ceil((comp.Bounds.Max[1]-bound.Min[1])/cellH)), 0, grid.Height-1)

	poly := tank.Polygon()
	tile := cfg.TileRows
	if tile <= 0 {
		tile = rowMax - rowMin + 1
	}

	for batchStart := rowMin; batchStart <= rowMax; batchStart += tile {
		batchEnd := batchStart + tile - 1
		if batchEnd > rowMax {
			batchEnd = rowMax
		}
		for row := batchStart; row <= batchEnd; row++ {
			lat := comp.Bounds.Max[1] - (float64(row)+0.5)*cellH
			for col := colMin; col <= colMax; col++ {
				lon := comp.Bounds.Min[0] + (float64(col)+0.5)*cellW
				if !planar.PolygonContains(poly, orb.Point{lon, lat}) {
					continue
				}
				for name, acc := range accs {
					band := comp.Bands[name]
					if band == nil {
						continue
					}
					if v, ok := band.At(col, row); ok {
						acc.add(v)
					}
				}
			}
		}
	}
}

func firstBand(comp Composite) *Raster {
	for _, band := range comp.Bands {
		return band
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

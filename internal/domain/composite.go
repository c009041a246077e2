package domain

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
)

// Composite is one window's reduced image: the per-pixel median of all
// qualifying scenes after masking and feature derivation, tagged with
// the window start and the mean solar geometry of the contributors.
// A composite with SceneCount 0 carries no bands and therefore no
// valid pixels — downstream statistics report zero counts, never an
// error.
type Composite struct {
	Week            string // ISO window start date
	Start           time.Time
	SolarZenithDeg  float64
	SunElevationDeg float64
	Bounds          orb.Bound
	Bands           map[string]*Raster
	SceneCount      int
}

// BuildComposite masks and feature-augments each scene, then reduces
// the window's scenes to a single median composite. Median is used
// instead of mean for robustness against undetected cloud and haze.
// Scenes whose grid does not match the first scene's are skipped.
func BuildComposite(window TimeWindow, scenes []Scene) Composite {
	comp := Composite{
		Week:  window.Label(),
		Start: window.Start,
	}

	var processed []Scene
	var zenithSum float64
	for _, s := range scenes {
		p := AddFeatures(MaskClouds(s))
		if len(p.Bands) == 0 {
			continue
		}
		if len(processed) > 0 && !sameGrid(processed[0], p) {
			continue
		}
		processed = append(processed, p)
		zenithSum += p.SolarZenithDeg
	}

	comp.SceneCount = len(processed)
	if len(processed) == 0 {
		return comp
	}

	comp.SolarZenithDeg = zenithSum / float64(len(processed))
	comp.SunElevationDeg = 90 - comp.SolarZenithDeg
	comp.Bounds = processed[0].Bounds

	first := processed[0]
	w, h := gridSize(first)
	comp.Bands = make(map[string]*Raster, len(first.Bands))

	for name := range first.Bands {
		median := NewRaster(w, h)
		values := make([]float64, 0, len(processed))
		for row := 0; row < h; row++ {
			for col := 0; col < w; col++ {
				values = values[:0]
				for _, s := range processed {
					band := s.Band(name)
					if band == nil {
						continue
					}
					if v, ok := band.At(col, row); ok {
						values = append(values, v)
					}
				}
				if len(values) == 0 {
					median.Mask(col, row)
					continue
				}
				median.Set(col, row, medianOf(values))
			}
		}
		comp.Bands[name] = median
	}

	return comp
}

func sameGrid(a, b Scene) bool {
	aw, ah := gridSize(a)
	bw, bh := gridSize(b)
	return aw == bw && ah == bh
}

func gridSize(s Scene) (int, int) {
	for _, band := range s.Bands {
		return band.Width, band.Height
	}
	return 0, 0
}

func medianOf(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

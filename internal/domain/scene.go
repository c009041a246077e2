package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Sentinel-2 band names and the derived index bands added by the
// feature engine.
const (
	BandBlue  = "B2"
	BandGreen = "B3"
	BandRed   = "B4"
	BandNIR   = "B8"
	BandSWIR1 = "B11"
	BandQA    = "QA60"
	BandSCL   = "SCL"

	BandShadowIndex     = "shadow_index"
	BandNDVI            = "ndvi"
	BandNDWI            = "ndwi"
	BandBrightness      = "brightness"
	BandTextureContrast = "texture_contrast"
	BandTextureEntropy  = "texture_entropy"
)

// ReflectanceScale converts Sentinel-2 integer reflectance to [0, 1].
const ReflectanceScale = 10000.0

// StatBands lists the bands aggregated by zonal statistics, in output
// order: raw reflectance first, then derived indices.
var StatBands = []string{
	BandBlue, BandGreen, BandRed, BandNIR,
	BandShadowIndex, BandNDVI, BandNDWI, BandBrightness,
	BandTextureContrast, BandTextureEntropy,
}

// Raster is one band's pixel grid, row-major. A pixel participates in
// downstream math only while its Valid flag holds; masking clears the
// flag rather than zeroing the value.
type Raster struct {
	Width  int
	Height int
	Values []float64
	Valid  []bool
}

// NewRaster allocates a fully valid raster of the given dimensions.
func NewRaster(width, height int) *Raster {
	r := &Raster{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
		Valid:  make([]bool, width*height),
	}
	for i := range r.Valid {
		r.Valid[i] = true
	}
	return r
}

// At returns the value at (col, row) and whether it is valid.
func (r *Raster) At(col, row int) (float64, bool) {
	i := row*r.Width + col
	return r.Values[i], r.Valid[i]
}

// Set stores a valid value at (col, row).
func (r *Raster) Set(col, row int, v float64) {
	i := row*r.Width + col
	r.Values[i] = v
	r.Valid[i] = true
}

// Mask invalidates the pixel at (col, row).
func (r *Raster) Mask(col, row int) {
	r.Valid[row*r.Width+col] = false
}

// Clone returns an independent copy of the raster.
func (r *Raster) Clone() *Raster {
	c := &Raster{Width: r.Width, Height: r.Height}
	c.Values = append([]float64(nil), r.Values...)
	c.Valid = append([]bool(nil), r.Valid...)
	return c
}

// Scene is one multispectral source image: a set of co-registered band
// rasters over a shared geographic footprint, plus acquisition
// metadata from the catalog.
type Scene struct {
	ID             string
	AcquiredAt     time.Time
	CloudCoverPct  float64 // scene-level CLOUDY_PIXEL_PERCENTAGE metadata
	SolarZenithDeg float64 // MEAN_SOLAR_ZENITH_ANGLE
	Bounds         orb.Bound
	Bands          map[string]*Raster
}

// Band returns the named band raster, or nil if absent.
func (s Scene) Band(name string) *Raster {
	return s.Bands[name]
}

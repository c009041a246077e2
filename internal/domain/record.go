package domain

import "strconv"

// BandStats holds the five joint reducers for one band within one
// polygon.
type BandStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Count  int // valid pixels contributing
}

// StatisticsRecord is one output row: the zonal statistics of every
// band and derived index for one (tank, window) pair, stamped with the
// composite's temporal and solar metadata and the polygon's own
// identity, carried through untouched. Records are append-only.
type StatisticsRecord struct {
	TankID          int64
	Region          string
	Content         string
	Substance       string
	Week            string
	SolarZenithDeg  float64
	SunElevationDeg float64
	Stats           map[string]BandStats
}

// ExportColumns is the fixed CSV selector list, in output order.
var ExportColumns = []string{
	"tank_id", "location", "week",
	"solar_zenith_angle", "sun_elevation",
	"B2_mean", "B3_mean", "B4_mean", "B8_mean",
	"shadow_index_mean", "ndvi_mean", "ndwi_mean",
	"brightness_mean", "texture_contrast_mean",
	"B8_stdDev", "shadow_index_stdDev",
	"B8_count",
}

// Row renders the record as CSV fields matching [ExportColumns].
// Bands with zero valid pixels render as empty fields, except the
// count column which stays numeric.
func (r StatisticsRecord) Row() []string {
	b8 := r.Stats[BandNIR]
	shadow := r.Stats[BandShadowIndex]

	return []string{
		strconv.FormatInt(r.TankID, 10),
		r.Region,
		r.Week,
		formatFloat(r.SolarZenithDeg),
		formatFloat(r.SunElevationDeg),
		r.meanField(BandBlue),
		r.meanField(BandGreen),
		r.meanField(BandRed),
		r.meanField(BandNIR),
		r.meanField(BandShadowIndex),
		r.meanField(BandNDVI),
		r.meanField(BandNDWI),
		r.meanField(BandBrightness),
		r.meanField(BandTextureContrast),
		stdDevField(b8),
		stdDevField(shadow),
		strconv.Itoa(b8.Count),
	}
}

func (r StatisticsRecord) meanField(band string) string {
	s := r.Stats[band]
	if s.Count == 0 {
		return ""
	}
	return formatFloat(s.Mean)
}

func stdDevField(s BandStats) string {
	if s.Count == 0 {
		return ""
	}
	return formatFloat(s.StdDev)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package domain

import "math"

// QA60 bit flags: bit 10 marks opaque cloud, bit 11 marks cirrus.
const (
	qaCloudBit  = 1 << 10
	qaCirrusBit = 1 << 11
)

// SCL classes masked out when the band is present.
const (
	sclCloud       = 3
	sclCloudShadow = 8
	sclCirrus      = 9
	sclSnow        = 11
)

// indexEpsilon keeps normalized-difference denominators away from zero.
const indexEpsilon = 1e-4

// glcmWindow is the neighborhood size of the co-occurrence texture
// transform.
const glcmWindow = 3

// reflectanceBands are the bands scaled and carried through masking.
var reflectanceBands = []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1}

// MaskClouds drops cloud, cirrus, shadow, and snow pixels from a scene
// and normalizes reflectance to [0, 1]. The QA60 bitmask always
// applies; when the SCL band is present its class mask is combined by
// logical AND, and when it is absent the QA-only mask is used without
// error. Acquisition and solar metadata carry through unchanged.
func MaskClouds(s Scene) Scene {
	qa := s.Band(BandQA)
	scl := s.Band(BandSCL)

	out := Scene{
		ID:             s.ID,
		AcquiredAt:     s.AcquiredAt,
		CloudCoverPct:  s.CloudCoverPct,
		SolarZenithDeg: s.SolarZenithDeg,
		Bounds:         s.Bounds,
		Bands:          make(map[string]*Raster, len(reflectanceBands)),
	}

	for _, name := range reflectanceBands {
		band := s.Band(name)
		if band == nil {
			continue
		}
		masked := band.Clone()
		for row := 0; row < masked.Height; row++ {
			for col := 0; col < masked.Width; col++ {
				i := row*masked.Width + col
				if !masked.Valid[i] {
					continue
				}
				if !pixelClear(qa, scl, col, row) {
					masked.Valid[i] = false
					continue
				}
				masked.Values[i] /= ReflectanceScale
			}
		}
		out.Bands[name] = masked
	}

	return out
}

func pixelClear(qa, scl *Raster, col, row int) bool {
	if qa != nil {
		v, ok := qa.At(col, row)
		if !ok {
			return false
		}
		bits := int(v)
		if bits&qaCloudBit != 0 || bits&qaCirrusBit != 0 {
			return false
		}
	}
	if scl != nil {
		v, ok := scl.At(col, row)
		if !ok {
			return false
		}
		switch int(v) {
		case sclCloud, sclCloudShadow, sclCirrus, sclSnow:
			return false
		}
	}
	return true
}

// AddFeatures derives the spectral index bands from a masked, scaled
// scene: shadow index (NIR−Red), NDVI, NDWI, brightness, and GLCM
// texture contrast/entropy. A derived pixel is valid only where all of
// its inputs are.
func AddFeatures(s Scene) Scene {
	nir := s.Band(BandNIR)
	red := s.Band(BandRed)
	green := s.Band(BandGreen)
	blue := s.Band(BandBlue)
	if nir == nil || red == nil || green == nil || blue == nil {
		return s
	}

	w, h := nir.Width, nir.Height
	shadow := NewRaster(w, h)
	ndvi := NewRaster(w, h)
	ndwi := NewRaster(w, h)
	brightness := NewRaster(w, h)

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			n, okN := nir.At(col, row)
			r, okR := red.At(col, row)
			g, okG := green.At(col, row)
			b, okB := blue.At(col, row)
			if !okN || !okR || !okG || !okB {
				shadow.Mask(col, row)
				ndvi.Mask(col, row)
				ndwi.Mask(col, row)
				brightness.Mask(col, row)
				continue
			}
			shadow.Set(col, row, n-r)
			ndvi.Set(col, row, (n-r)/(n+r+indexEpsilon))
			ndwi.Set(col, row, (g-n)/(g+n+indexEpsilon))
			brightness.Set(col, row, (b+g+r+n)/4)
		}
	}

	contrast, entropy := glcmTexture(nir)

	out := s
	out.Bands = make(map[string]*Raster, len(s.Bands)+6)
	for name, band := range s.Bands {
		out.Bands[name] = band
	}
	out.Bands[BandShadowIndex] = shadow
	out.Bands[BandNDVI] = ndvi
	out.Bands[BandNDWI] = ndwi
	out.Bands[BandBrightness] = brightness
	out.Bands[BandTextureContrast] = contrast
	out.Bands[BandTextureEntropy] = entropy
	return out
}

// glcmTexture computes gray-level co-occurrence contrast and entropy
// over a fixed neighborhood of the NIR band. The transform requires
// integer input, so reflectance is rescaled to integer amplitude
// (×10000, truncated) first — dropping that step flattens the
// co-occurrence matrix to near-continuous values and zeroes the
// statistics.
func glcmTexture(nir *Raster) (contrast, entropy *Raster) {
	w, h := nir.Width, nir.Height
	contrast = NewRaster(w, h)
	entropy = NewRaster(w, h)

	half := glcmWindow / 2

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if _, ok := nir.At(col, row); !ok {
				contrast.Mask(col, row)
				entropy.Mask(col, row)
				continue
			}

			pairs := make(map[[2]int]int)
			total := 0
			for dy := -half; dy <= half; dy++ {
				y := row + dy
				if y < 0 || y >= h {
					continue
				}
				for dx := -half; dx < half; dx++ {
					x := col + dx
					if x < 0 || x+1 >= w {
						continue
					}
					a, okA := nir.At(x, y)
					b, okB := nir.At(x+1, y)
					if !okA || !okB {
						continue
					}
					i := int(a * ReflectanceScale)
					j := int(b * ReflectanceScale)
					// Symmetric matrix: count both directions.
					pairs[[2]int{i, j}]++
					pairs[[2]int{j, i}]++
					total += 2
				}
			}

			if total == 0 {
				contrast.Mask(col, row)
				entropy.Mask(col, row)
				continue
			}

			var con, ent float64
			for pair, count := range pairs {
				p := float64(count) / float64(total)
				d := float64(pair[0] - pair[1])
				con += p * d * d
				ent -= p * math.Log(p)
			}
			contrast.Set(col, row, con)
			entropy.Set(col, row, ent)
		}
	}

	return contrast, entropy
}

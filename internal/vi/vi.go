// Package vi holds the vegetation-index domain: spectral images, the six
// supported index formulas, their classification tables and color ramps.
package vi

import (
	"fmt"
	"math"
	"time"

	"github.com/field-guardian/field-guardian-api/internal/faults"
)

// Sentinel-2 band names used throughout the pipeline.
const (
	BandBlue  = "B02"
	BandGreen = "B03"
	BandRed   = "B04"
	BandNIR   = "B08"
	BandSWIR1 = "B11"
	BandSWIR2 = "B12"
	BandQA    = "QA60"
)

// CollectionBands is the band selection requested from the archive for
// every scene.
var CollectionBands = []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1, BandSWIR2, BandQA}

// Type identifies a vegetation index.
type Type string

const (
	NDVI  Type = "NDVI"
	EVI   Type = "EVI"
	GNDVI Type = "GNDVI"
	NDWI  Type = "NDWI"
	SAVI  Type = "SAVI"
	VCI   Type = "VCI"
)

// AllTypes lists every supported index.
var AllTypes = []Type{NDVI, EVI, GNDVI, NDWI, SAVI, VCI}

// ParseType validates a VI code. Unknown codes are a caller error, never
// silently defaulted.
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", faults.ErrUnsupportedVIType, s)
}

// Raster is a single-band float64 grid. Masked pixels are NaN.
type Raster [][]float64

// NewRaster allocates a height x width raster.
func NewRaster(width, height int) Raster {
	r := make(Raster, height)
	for y := range r {
		r[y] = make([]float64, width)
	}
	return r
}

// Image is one satellite scene: masked, scaled reflectance bands plus the
// raw quality-assurance band. Request-scoped, never persisted.
type Image struct {
	ID       string
	Time     time.Time
	CloudPct float64

	Width, Height int
	Bands         map[string]Raster

	// Transform is the GDAL-style geotransform mapping pixel to lon/lat:
	// lon = t[0] + (x+0.5)*t[1], lat = t[3] + (y+0.5)*t[5].
	Transform [6]float64
}

// PixelLonLat returns the geographic coordinates of a pixel center.
func (img *Image) PixelLonLat(x, y int) (float64, float64) {
	lon := img.Transform[0] + (float64(x)+0.5)*img.Transform[1]
	lat := img.Transform[3] + (float64(y)+0.5)*img.Transform[5]
	return lon, lat
}

// definition ties an index to the bands it needs and its pure formula.
// Adding an index is a single new entry here.
type definition struct {
	bands   []string
	formula func(blue, green, red, nir float64) float64
}

var definitions = map[Type]definition{
	NDVI: {
		bands: []string{BandNIR, BandRed},
		formula: func(_, _, red, nir float64) float64 {
			return safeDivide(nir-red, nir+red)
		},
	},
	EVI: {
		bands: []string{BandNIR, BandRed, BandBlue},
		formula: func(blue, _, red, nir float64) float64 {
			return 2.5 * safeDivide(nir-red, nir+6*red-7.5*blue+1)
		},
	},
	GNDVI: {
		bands: []string{BandNIR, BandGreen},
		formula: func(_, green, _, nir float64) float64 {
			return safeDivide(nir-green, nir+green)
		},
	},
	NDWI: {
		bands: []string{BandNIR, BandGreen},
		formula: func(_, green, _, nir float64) float64 {
			return safeDivide(green-nir, green+nir)
		},
	},
	SAVI: {
		bands: []string{BandNIR, BandRed},
		formula: func(_, _, red, nir float64) float64 {
			return safeDivide(nir-red, nir+red+0.5) * 1.5
		},
	},
	VCI: {
		bands: []string{BandNIR, BandRed},
		formula: func(_, _, red, nir float64) float64 {
			return safeDivide(nir-red, nir+red) * 100
		},
	},
}

// RequiredBands returns the spectral bands an index needs.
func (t Type) RequiredBands() []string {
	return definitions[t].bands
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

// Compute derives the index raster for one scene. It is a pure function
// of the masked, scaled input bands: masked (NaN) inputs yield masked
// output pixels.
func Compute(img *Image, t Type) (Raster, error) {
	def, ok := definitions[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", faults.ErrUnsupportedVIType, t)
	}
	for _, band := range def.bands {
		if _, ok := img.Bands[band]; !ok {
			return nil, fmt.Errorf("%w: scene %s missing band %s", faults.ErrInvalidImage, img.ID, band)
		}
	}

	band := func(name string, x, y int) float64 {
		r, ok := img.Bands[name]
		if !ok {
			return math.NaN()
		}
		return r[y][x]
	}

	out := NewRaster(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			masked := false
			for _, name := range def.bands {
				if math.IsNaN(band(name, x, y)) {
					masked = true
					break
				}
			}
			if masked {
				out[y][x] = math.NaN()
				continue
			}
			out[y][x] = def.formula(
				band(BandBlue, x, y),
				band(BandGreen, x, y),
				band(BandRed, x, y),
				band(BandNIR, x, y),
			)
		}
	}
	return out, nil
}

// MeanRaster averages index rasters pixelwise, ignoring masked pixels.
// A pixel masked in every input stays masked.
func MeanRaster(rasters []Raster, width, height int) Raster {
	out := NewRaster(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			var n int
			for _, r := range rasters {
				v := r[y][x]
				if math.IsNaN(v) {
					continue
				}
				sum += v
				n++
			}
			if n == 0 {
				out[y][x] = math.NaN()
				continue
			}
			out[y][x] = sum / float64(n)
		}
	}
	return out
}

package vi

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/field-guardian/field-guardian-api/internal/faults"
)

func uniformImage(width, height int, values map[string]float64) *Image {
	bands := make(map[string]Raster, len(values))
	for name, v := range values {
		r := NewRaster(width, height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r[y][x] = v
			}
		}
		bands[name] = r
	}
	return &Image{
		ID:        "test-scene",
		Time:      time.Date(2024, 6, 14, 10, 30, 0, 0, time.UTC),
		Width:     width,
		Height:    height,
		Bands:     bands,
		Transform: [6]float64{0, 1.0 / float64(width), 0, 1, 0, -1.0 / float64(height)},
	}
}

func TestComputeNDVI(t *testing.T) {
	img := uniformImage(4, 4, map[string]float64{BandNIR: 0.5, BandRed: 0.2})

	raster, err := Compute(img, NDVI)
	require.NoError(t, err)

	want := (0.5 - 0.2) / (0.5 + 0.2)
	assert.InDelta(t, 0.42857, want, 1e-5)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			assert.InDelta(t, want, raster[y][x], 1e-12)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	img := uniformImage(3, 3, map[string]float64{BandNIR: 0.41, BandRed: 0.137})

	first, err := Compute(img, NDVI)
	require.NoError(t, err)
	second, err := Compute(img, NDVI)
	require.NoError(t, err)

	for y := range first {
		for x := range first[y] {
			assert.Equal(t, first[y][x], second[y][x], "pixel (%d,%d)", x, y)
		}
	}
}

func TestComputeVCIIsScaledNDVI(t *testing.T) {
	img := uniformImage(2, 2, map[string]float64{BandNIR: 0.6, BandRed: 0.1})

	ndvi, err := Compute(img, NDVI)
	require.NoError(t, err)
	vci, err := Compute(img, VCI)
	require.NoError(t, err)

	assert.InDelta(t, ndvi[0][0]*100, vci[0][0], 1e-9)
}

func TestComputeMissingBand(t *testing.T) {
	img := uniformImage(2, 2, map[string]float64{BandRed: 0.2})

	_, err := Compute(img, NDVI)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrInvalidImage)
}

func TestComputeMaskedPixelStaysMasked(t *testing.T) {
	img := uniformImage(2, 2, map[string]float64{BandNIR: 0.5, BandRed: 0.2})
	img.Bands[BandNIR][1][0] = math.NaN()

	raster, err := Compute(img, NDVI)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(raster[1][0]))
	assert.False(t, math.IsNaN(raster[0][0]))
}

func TestComputeZeroDenominator(t *testing.T) {
	img := uniformImage(1, 1, map[string]float64{BandNIR: 0, BandRed: 0})

	raster, err := Compute(img, NDVI)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(raster[0][0]))
}

func TestParseType(t *testing.T) {
	for _, want := range AllTypes {
		got, err := ParseType(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("ndvi")
	assert.ErrorIs(t, err, faults.ErrUnsupportedVIType)
	_, err = ParseType("ARVI")
	assert.ErrorIs(t, err, faults.ErrUnsupportedVIType)
}

func TestMeanRasterIgnoresMasked(t *testing.T) {
	a := NewRaster(2, 1)
	b := NewRaster(2, 1)
	a[0][0], a[0][1] = 0.2, math.NaN()
	b[0][0], b[0][1] = 0.4, math.NaN()

	mean := MeanRaster([]Raster{a, b}, 2, 1)

	assert.InDelta(t, 0.3, mean[0][0], 1e-9)
	assert.True(t, math.IsNaN(mean[0][1]))
}

func TestPixelLonLat(t *testing.T) {
	img := uniformImage(4, 4, map[string]float64{BandNIR: 0.5})

	lon, lat := img.PixelLonLat(0, 0)
	assert.InDelta(t, 0.125, lon, 1e-9)
	assert.InDelta(t, 0.875, lat, 1e-9)

	lon, lat = img.PixelLonLat(3, 3)
	assert.InDelta(t, 0.875, lon, 1e-9)
	assert.InDelta(t, 0.125, lat, 1e-9)
}

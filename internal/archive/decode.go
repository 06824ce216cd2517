package archive

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/field-guardian/field-guardian-api/internal/faults"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// decodeScene reads a downloaded GeoTIFF into raw digital-number band
// rasters. Scaling and cloud masking are the collection filter's job.
func decodeScene(path string, ref SceneRef) (*vi.Image, error) {
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("%s", msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open scene %s: %v", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) < len(vi.CollectionBands) {
		return nil, fmt.Errorf("%w: scene %s has %d bands, expected %d", faults.ErrInvalidImage, ref.ID, len(bands), len(vi.CollectionBands))
	}

	width := ds.Structure().SizeX
	height := ds.Structure().SizeY

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to read geotransform for scene %s: %v", ref.ID, err)
	}

	img := &vi.Image{
		ID:        ref.ID,
		Time:      ref.Time,
		CloudPct:  ref.CloudPct,
		Width:     width,
		Height:    height,
		Bands:     make(map[string]vi.Raster, len(vi.CollectionBands)),
		Transform: gt,
	}

	for i, name := range vi.CollectionBands {
		band := bands[i]
		raster := vi.NewRaster(width, height)
		for y := 0; y < height; y++ {
			if err := band.Read(0, y, raster[y], width, 1); err != nil {
				return nil, fmt.Errorf("%w: failed to read band %s of scene %s: %v", faults.ErrInvalidImage, name, ref.ID, err)
			}
		}
		img.Bands[name] = raster
	}

	return img, nil
}

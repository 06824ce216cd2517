package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/collection"
	"github.com/field-guardian/field-guardian-api/internal/faults"
	"github.com/field-guardian/field-guardian-api/internal/geometry"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// thumbnailSize is the longest edge of a rendered overlay.
const thumbnailSize = 512

// Overlay renders the index raster of the most recent scene around date
// through the per-index color ramp, clipped to the field polygon, as a
// base64 PNG data URL. When local encoding fails it falls back to a
// remote thumbnail URL from the archive.
func (s *Service) Overlay(ctx context.Context, geom orb.Geometry, t vi.Type, date time.Time) (string, error) {
	start := date.AddDate(0, 0, -statisticsWindowDays)
	end := date.AddDate(0, 0, statisticsWindowDays)

	col, err := collection.Get(ctx, s.arc, geom, start, end)
	if err != nil {
		return "", fmt.Errorf("%w: %v", faults.ErrOverlayGeneration, err)
	}
	if col.Size() == 0 {
		return "", fmt.Errorf("%w: no scene available around %s", faults.ErrOverlayGeneration, date.Format("2006-01-02"))
	}

	idx := col.Size() - 1
	img, err := col.Image(ctx, idx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", faults.ErrOverlayGeneration, err)
	}

	raster, err := vi.Compute(img, t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", faults.ErrOverlayGeneration, err)
	}

	dataURL, renderErr := renderOverlay(raster, img, geom, t)
	if renderErr == nil {
		return dataURL, nil
	}
	fmt.Printf("Local overlay rendering failed, falling back to remote thumbnail: %v\n", renderErr)

	url, err := s.arc.ThumbnailURL(ctx, col.Scenes[idx], col.Bounds, t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", faults.ErrOverlayGeneration, err)
	}
	return url, nil
}

// renderOverlay rasterizes the index through the color ramp into a PNG
// data URL. Pixels outside the polygon or under the cloud mask stay
// transparent.
func renderOverlay(raster vi.Raster, img *vi.Image, geom orb.Geometry, t vi.Type) (string, error) {
	if img.Width == 0 || img.Height == 0 {
		return "", fmt.Errorf("empty raster")
	}

	outW, outH := thumbnailSize, thumbnailSize
	if img.Width >= img.Height {
		outH = int(float64(thumbnailSize) * float64(img.Height) / float64(img.Width))
	} else {
		outW = int(float64(thumbnailSize) * float64(img.Width) / float64(img.Height))
	}
	if outW < 1 || outH < 1 {
		return "", fmt.Errorf("degenerate raster %dx%d", img.Width, img.Height)
	}

	vis := vi.Visualization(t)
	dc := gg.NewContext(outW, outH)

	for y := 0; y < outH; y++ {
		sy := y * img.Height / outH
		for x := 0; x < outW; x++ {
			sx := x * img.Width / outW
			v := raster[sy][sx]
			if math.IsNaN(v) {
				continue
			}
			lon, lat := img.PixelLonLat(sx, sy)
			if !geometry.Contains(geom, orb.Point{lon, lat}) {
				continue
			}
			dc.SetColor(vis.Color(v))
			dc.SetPixel(x, y)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("failed to encode overlay PNG: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

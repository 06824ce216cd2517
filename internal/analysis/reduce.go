package analysis

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/geometry"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

type regionStats struct {
	mean  float64
	min   float64
	max   float64
	count int
}

// reduceRegion collapses an index raster to mean/min/max over the field
// polygon at the raster's native (10 m nominal) scale. Masked pixels and
// pixels outside the polygon are excluded.
func reduceRegion(raster vi.Raster, img *vi.Image, geom orb.Geometry) regionStats {
	stats := regionStats{min: math.Inf(1), max: math.Inf(-1)}
	var sum float64

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := raster[y][x]
			if math.IsNaN(v) {
				continue
			}
			lon, lat := img.PixelLonLat(x, y)
			if !geometry.Contains(geom, orb.Point{lon, lat}) {
				continue
			}
			sum += v
			if v < stats.min {
				stats.min = v
			}
			if v > stats.max {
				stats.max = v
			}
			stats.count++
		}
	}

	if stats.count == 0 {
		return regionStats{}
	}
	stats.mean = sum / float64(stats.count)
	return stats
}

// Package collection filters the satellite archive into the scene set a
// single analysis request works on.
package collection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/archive"
	"github.com/field-guardian/field-guardian-api/internal/geometry"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

const (
	// MaxCloudPct is the scene-level cloud cover threshold.
	MaxCloudPct = 30

	// fallbackWindowDays widens an empty window to the trailing year.
	fallbackWindowDays = 365

	cloudBitMask  = 1 << 10
	cirrusBitMask = 1 << 11

	// ReflectanceScale converts raw digital numbers to surface
	// reflectance.
	ReflectanceScale = 0.0001
)

// Collection is an ordered (by acquisition time, ascending) set of scene
// references over a field. Images are fetched, cloud-masked and scaled on
// demand; the collection is request-scoped and recomputed per request.
type Collection struct {
	Scenes   []archive.SceneRef
	Bounds   orb.Bound
	Geometry orb.Geometry

	arc archive.Archive
}

// Get filters the archive by field bounds, date range and cloud cover.
// When the window yields nothing, it retries once over the trailing 365
// days ending at the original end date. An empty result after the retry
// is returned as an empty collection, not an error: callers decide
// whether that means "no data".
func Get(ctx context.Context, arc archive.Archive, geom orb.Geometry, start, end time.Time) (*Collection, error) {
	bounds, err := geometry.Bounds(geom)
	if err != nil {
		return nil, err
	}

	scenes, err := arc.Search(ctx, bounds, start, end, MaxCloudPct)
	if err != nil {
		return nil, err
	}

	if len(scenes) == 0 {
		fmt.Printf("No cloud-free scenes between %s and %s, trying extended 1-year range\n",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
		widenedStart := end.AddDate(0, 0, -fallbackWindowDays)
		scenes, err = arc.Search(ctx, bounds, widenedStart, end, MaxCloudPct)
		if err != nil {
			return nil, err
		}
	}

	return &Collection{
		Scenes:   scenes,
		Bounds:   bounds,
		Geometry: geom,
		arc:      arc,
	}, nil
}

// Size returns the number of scenes in the collection.
func (c *Collection) Size() int {
	return len(c.Scenes)
}

// Image fetches scene i with the per-pixel cloud/cirrus mask applied and
// reflectance bands scaled to physical units.
func (c *Collection) Image(ctx context.Context, i int) (*vi.Image, error) {
	img, err := c.arc.FetchImage(ctx, c.Scenes[i], c.Bounds)
	if err != nil {
		return nil, err
	}
	maskAndScale(img)
	return img, nil
}

// Between returns the indexes of scenes acquired in [start, end].
func (c *Collection) Between(start, end time.Time) []int {
	var idx []int
	for i, scene := range c.Scenes {
		if scene.Time.Before(start) || scene.Time.After(end) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// maskAndScale excludes cloud and cirrus pixels flagged in the QA band
// and converts raw digital numbers to reflectance. Masked pixels stay in
// the raster as NaN so downstream statistics skip them.
func maskAndScale(img *vi.Image) {
	qa := img.Bands[vi.BandQA]
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			masked := false
			if qa != nil {
				q := int(qa[y][x])
				masked = q&cloudBitMask != 0 || q&cirrusBitMask != 0
			}
			for name, raster := range img.Bands {
				if name == vi.BandQA {
					continue
				}
				if masked {
					raster[y][x] = math.NaN()
					continue
				}
				raster[y][x] *= ReflectanceScale
			}
		}
	}
}

// Package archive talks to the remote scene archive. Every call is a
// blocking, failable network operation; deferred-evaluation mechanics of
// the backend stay hidden behind the Archive port.
package archive

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// SceneRef is archive metadata for one acquisition, enough to fetch or
// render the scene later.
type SceneRef struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"acquiredAt"`
	CloudPct float64   `json:"cloudCoverPercent"`
}

// Archive is the capability surface the pipeline needs from the remote
// geospatial service.
type Archive interface {
	// Search lists scenes intersecting bounds within [start, end] whose
	// scene-level cloud cover is below maxCloudPct, ordered by
	// acquisition time ascending.
	Search(ctx context.Context, bounds orb.Bound, start, end time.Time, maxCloudPct float64) ([]SceneRef, error)

	// FetchImage downloads the scene clipped to bounds and decodes it
	// into raw digital-number band rasters.
	FetchImage(ctx context.Context, ref SceneRef, bounds orb.Bound) (*vi.Image, error)

	// ThumbnailURL asks the archive to render a server-side thumbnail of
	// the index over the scene, returning a remote URL.
	ThumbnailURL(ctx context.Context, ref SceneRef, bounds orb.Bound, viType vi.Type) (string, error)
}

package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/field-guardian/field-guardian-api/internal/faults"
)

// Decode parses a GeoJSON geometry (WGS84) and validates that it is a
// polygon or multipolygon. Field geometries are owned by the caller and
// never mutated here.
func Decode(raw []byte) (orb.Geometry, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: geometry is required", faults.ErrDataUnavailable)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid geometry: %v", faults.ErrDataUnavailable, err)
	}
	geom := g.Geometry()
	switch geom.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return geom, nil
	default:
		return nil, fmt.Errorf("%w: geometry must be a polygon or multipolygon, got %s", faults.ErrDataUnavailable, geom.GeoJSONType())
	}
}

// Bounds returns the bounding box of a geometry, failing when it cannot
// be computed.
func Bounds(g orb.Geometry) (orb.Bound, error) {
	if g == nil {
		return orb.Bound{}, fmt.Errorf("%w: geometry is required", faults.ErrDataUnavailable)
	}
	b := g.Bound()
	if b.IsEmpty() {
		return orb.Bound{}, fmt.Errorf("%w: geometry has no bounds", faults.ErrDataUnavailable)
	}
	return b, nil
}

// Contains reports whether a point falls inside the field polygon.
func Contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}

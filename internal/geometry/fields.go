package geometry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/field-guardian/field-guardian-api/internal/faults"
)

// FieldSource resolves a field identifier to its boundary geometry.
// Field storage is owned by an external collaborator; the pipeline only
// ever reads boundaries through this interface.
type FieldSource interface {
	FieldGeometry(fieldID uuid.UUID) (orb.Geometry, error)
}

// DirectorySource reads field boundaries from <dir>/<field-id>.geojson.
// The file may hold either a bare geometry or a feature collection, in
// which case the first polygonal feature wins.
type DirectorySource struct {
	dir string
}

func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

func (s *DirectorySource) FieldGeometry(fieldID uuid.UUID) (orb.Geometry, error) {
	path := filepath.Join(s.dir, fieldID.String()+".geojson")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: no boundary stored for field %s: %v", faults.ErrDataUnavailable, fieldID, err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: invalid boundary file %s: %v", faults.ErrDataUnavailable, path, err)
	}

	if probe.Type == "FeatureCollection" {
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid boundary file %s: %v", faults.ErrDataUnavailable, path, err)
		}
		for _, feature := range fc.Features {
			switch geom := feature.Geometry.(type) {
			case orb.Polygon, orb.MultiPolygon:
				return geom, nil
			}
		}
		return nil, fmt.Errorf("%w: no polygon feature found in %s", faults.ErrDataUnavailable, path)
	}

	return Decode(raw)
}

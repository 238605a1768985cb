package terrain

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidZone is returned when a friction zone outline cannot form a
// valid polygon.
var ErrInvalidZone = errors.New("invalid friction zone")

// Zone overrides the surface friction inside a polygonal region of the
// ground plane. Coordinates are world X/Z meters.
type Zone struct {
	Name     string
	Friction float64
	polygon  geom.Polygon
}

// NewZone builds a zone from an outline of [x, z] vertices. The ring is
// closed automatically when the last vertex differs from the first.
func NewZone(name string, outline [][2]float64, friction float64) (Zone, error) {
	if len(outline) < 3 {
		return Zone{}, fmt.Errorf("%w %q: need at least 3 vertices, got %d", ErrInvalidZone, name, len(outline))
	}
	if friction < 0 {
		return Zone{}, fmt.Errorf("%w %q: friction must be non-negative, got %f", ErrInvalidZone, name, friction)
	}

	flat := make([]float64, 0, (len(outline)+1)*2)
	for _, v := range outline {
		flat = append(flat, v[0], v[1])
	}
	if outline[0] != outline[len(outline)-1] {
		flat = append(flat, outline[0][0], outline[0][1])
	}

	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	polygon := geom.NewPolygon([]geom.LineString{ring})
	if err := polygon.Validate(); err != nil {
		return Zone{}, fmt.Errorf("%w %q: %v", ErrInvalidZone, name, err)
	}

	return Zone{Name: name, Friction: friction, polygon: polygon}, nil
}

// Contains reports whether the world X/Z point lies inside the zone.
func (z *Zone) Contains(x, zz float64) bool {
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: zz}, Type: geom.DimXY})
	return geom.Intersects(z.polygon.AsGeometry(), pt.AsGeometry())
}

package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// The simulation world is a local meter grid with +Y up. Terrains that model a
// real location carry an Anchor placing the grid origin in EPSG:3857, so
// exported tracks can be georeferenced to lon/lat for mapping tools.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Vec3FromString parses a "x,z" or "x,y,z" string into a core.Vec3.
// The two-value form is a ground-plane position with height 0.
func Vec3FromString(coords string) (core.Vec3, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	if len(coordsSplit) == 2 {
		z, err := strconv.ParseFloat(coordsSplit[1], 64)
		if err != nil {
			return core.Vec3{}, ErrInvalidCoordinates
		}
		return core.Vec3{X: x, Z: z}, nil
	}
	y, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	z, err := strconv.ParseFloat(coordsSplit[2], 64)
	if err != nil {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	return core.Vec3{X: x, Y: y, Z: z}, nil
}

// Anchor places the world origin in EPSG:3857 web mercator meters.
// World +X maps to easting, world +Z to northing.
type Anchor struct {
	Easting  float64 `json:"easting" mapstructure:"easting"`
	Northing float64 `json:"northing" mapstructure:"northing"`
}

// LonLat converts a world position to EPSG:4326 longitude and latitude.
func (a Anchor) LonLat(p core.Vec3) (lon float64, lat float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ = f(a.Easting+p.X, a.Northing+p.Z, 0)
	return lon, lat
}

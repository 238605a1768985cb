package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// RouteFromJSON parses a JSON array of ground-plane waypoints into world
// positions. Input format: "[[x1,z1],[x2,z2],...]"
func RouteFromJSON(input string) ([]core.Vec3, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse route JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("route must have at least 2 waypoints, got %d", len(coords))
	}

	route := make([]core.Vec3, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("waypoint %d has insufficient values", i)
		}
		route[i] = core.Vec3{X: coord[0], Z: coord[1]}
	}

	return route, nil
}

// TrackLine builds a ground-plane LineString from a vehicle's samples,
// in world meters.
func TrackLine(samples []core.VehicleSample) (geom.LineString, error) {
	if len(samples) < 2 {
		return geom.LineString{}, fmt.Errorf("track needs at least 2 samples, got %d", len(samples))
	}

	flatCoords := make([]float64, 0, len(samples)*2)
	for _, s := range samples {
		flatCoords = append(flatCoords, s.Position.X, s.Position.Z)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// TrackLonLat builds a lon/lat LineString from a vehicle's samples using the
// anchor to georeference the world grid.
func (a Anchor) TrackLonLat(samples []core.VehicleSample) (geom.LineString, error) {
	if len(samples) < 2 {
		return geom.LineString{}, fmt.Errorf("track needs at least 2 samples, got %d", len(samples))
	}

	flatCoords := make([]float64, 0, len(samples)*2)
	for _, s := range samples {
		lon, lat := a.LonLat(s.Position)
		flatCoords = append(flatCoords, lon, lat)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// TrackGeoJSON renders a vehicle track as a GeoJSON LineString in lon/lat.
func (a Anchor) TrackGeoJSON(samples []core.VehicleSample) ([]byte, error) {
	ls, err := a.TrackLonLat(samples)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ls.AsGeometry())
}

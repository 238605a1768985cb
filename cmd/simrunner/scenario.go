package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/sandk/offroad-dynamics/internal/geo"
	"github.com/sandk/offroad-dynamics/internal/terrain"
	"github.com/sandk/offroad-dynamics/internal/vehicle"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

// Scenario is the headless run description loaded from a JSON file.
type Scenario struct {
	Name     string        `json:"name"`
	Duration float64       `json:"durationSeconds"`
	Terrain  TerrainSpec   `json:"terrain"`
	Vehicles []VehicleSpec `json:"vehicles"`
}

// TerrainSpec describes the heightfield and surface zones. With no Heights
// array the terrain is flat at Elevation.
type TerrainSpec struct {
	Name            string      `json:"name"`
	CellSize        float64     `json:"cellSize"`
	Cols            int         `json:"cols"`
	Rows            int         `json:"rows"`
	Elevation       float64     `json:"elevation"`
	Heights         []float64   `json:"heights"`
	DefaultFriction float64     `json:"defaultFriction"`
	Zones           []ZoneSpec  `json:"zones"`
	Anchor          *geo.Anchor `json:"anchor"`
}

// ZoneSpec is a friction override polygon on the ground plane.
type ZoneSpec struct {
	Name     string       `json:"name"`
	Friction float64      `json:"friction"`
	Outline  [][2]float64 `json:"outline"`
}

// VehicleSpec places one vehicle in the world. Position uses the "x,z" or
// "x,y,z" coordinate string form; with no height the vehicle is dropped
// just above the terrain. Route waypoints, when present, override scripted
// steering with a waypoint chaser.
type VehicleSpec struct {
	ID         uint16          `json:"id"`
	Name       string          `json:"name"`
	Tuning     string          `json:"tuning"`
	Position   string          `json:"position"`
	HeadingDeg float64         `json:"headingDeg"`
	Route      json.RawMessage `json:"route"`
	Script     []ScriptStep    `json:"script"`
}

// ScriptStep sets the driver input from AtSeconds onward.
type ScriptStep struct {
	At        float64 `json:"atSeconds"`
	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steer     float64 `json:"steer"`
	Handbrake bool    `json:"handbrake"`
}

func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}

	if s.Name == "" {
		s.Name = "unnamed scenario"
	}
	if s.Duration <= 0 {
		s.Duration = 30
	}
	if len(s.Vehicles) == 0 {
		return nil, fmt.Errorf("scenario %s has no vehicles", path)
	}
	seen := map[uint16]bool{}
	for _, v := range s.Vehicles {
		if seen[v.ID] {
			return nil, fmt.Errorf("scenario %s: duplicate vehicle id %d", path, v.ID)
		}
		seen[v.ID] = true
	}

	if s.Terrain.CellSize <= 0 {
		s.Terrain.CellSize = 10
	}
	if s.Terrain.Cols <= 0 {
		s.Terrain.Cols = 64
	}
	if s.Terrain.Rows <= 0 {
		s.Terrain.Rows = 64
	}
	if s.Terrain.DefaultFriction <= 0 {
		s.Terrain.DefaultFriction = 0.9
	}
	if s.Terrain.Name == "" {
		s.Terrain.Name = "flat"
	}

	return &s, nil
}

func buildTerrain(spec TerrainSpec) (*terrain.Terrain, error) {
	var field *terrain.Heightfield
	var err error
	if len(spec.Heights) > 0 {
		field, err = terrain.NewHeightfield(core.Vec3{}, spec.CellSize, spec.Cols, spec.Rows, spec.Heights)
	} else {
		field, err = terrain.NewFlat(core.Vec3{}, spec.CellSize, spec.Cols, spec.Rows, spec.Elevation)
	}
	if err != nil {
		return nil, fmt.Errorf("building heightfield: %w", err)
	}

	zones := make([]terrain.Zone, 0, len(spec.Zones))
	for _, zs := range spec.Zones {
		zone, err := terrain.NewZone(zs.Name, zs.Outline, zs.Friction)
		if err != nil {
			return nil, fmt.Errorf("building zone %q: %w", zs.Name, err)
		}
		zones = append(zones, zone)
	}

	return terrain.New(field, spec.DefaultFriction, zones...), nil
}

// waypointArriveRadius is how close a vehicle must get before the driver
// advances to the next waypoint.
const waypointArriveRadius = 5.0

// driver replays a vehicle's script and, when a route is set, chases its
// waypoints instead of using scripted steering.
type driver struct {
	id        uint16
	script    []ScriptStep
	scriptIdx int
	route     []core.Vec3
	routeIdx  int
	heading   core.Vec3
	input     vehicle.Input
}

func newDriver(spec VehicleSpec) (*driver, error) {
	d := &driver{
		id:     spec.ID,
		script: spec.Script,
		// matches the spawn orientation: heading 0 faces +Z, positive
		// rotates about +Y
		heading: core.Vec3{
			X: math.Sin(spec.HeadingDeg * math.Pi / 180),
			Z: math.Cos(spec.HeadingDeg * math.Pi / 180),
		},
	}

	if len(spec.Route) > 0 {
		route, err := geo.RouteFromJSON(string(spec.Route))
		if err != nil {
			return nil, fmt.Errorf("vehicle %d route: %w", spec.ID, err)
		}
		d.route = route
		// routes drive themselves unless the script says otherwise
		d.input.Throttle = 0.6
	}

	return d, nil
}

// update advances the script to simulation time t and, with a route set,
// recomputes steering toward the current waypoint from the vehicle snapshot.
func (d *driver) update(t float64, snap core.VehicleSnapshot) vehicle.Input {
	for d.scriptIdx < len(d.script) && d.script[d.scriptIdx].At <= t {
		step := d.script[d.scriptIdx]
		d.input.Throttle = step.Throttle
		d.input.Brake = step.Brake
		d.input.Steer = step.Steer
		d.input.Handbrake = step.Handbrake
		d.scriptIdx++
	}

	if len(d.route) == 0 {
		return d.input
	}

	// route finished: stop
	if d.routeIdx >= len(d.route) {
		d.input.Throttle = 0
		d.input.Brake = 1
		d.input.Steer = 0
		return d.input
	}

	target := d.route[d.routeIdx]
	toTarget := core.Vec3{X: target.X - snap.Position.X, Z: target.Z - snap.Position.Z}
	if toTarget.Length() < waypointArriveRadius {
		d.routeIdx++
		return d.update(t, snap)
	}

	// track heading from ground velocity once the vehicle is moving
	groundVel := core.Vec3{X: snap.Velocity.X, Z: snap.Velocity.Z}
	if groundVel.Length() > 0.5 {
		d.heading = groundVel.Normalized()
	}

	desired := toTarget.Normalized()
	// positive steer is left; heading×desired points up when the target
	// is to the left of the heading
	turn := d.heading.Cross(desired).Y
	if d.heading.Dot(desired) < 0 {
		// target behind us, commit to a full turn
		turn = core.Sign(turn)
		if turn == 0 {
			turn = 1
		}
	}
	d.input.Steer = core.Clamp(2*turn, -1, 1)

	return d.input
}

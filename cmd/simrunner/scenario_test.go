package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario_Defaults(t *testing.T) {
	path := writeScenario(t, `{"vehicles":[{"id":1,"position":"100,100"}]}`)

	s, err := loadScenario(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "unnamed scenario" {
		t.Errorf("expected default name, got %q", s.Name)
	}
	if s.Duration != 30 {
		t.Errorf("expected default 30s duration, got %f", s.Duration)
	}
	if s.Terrain.Cols != 64 || s.Terrain.Rows != 64 {
		t.Errorf("expected default 64x64 grid, got %dx%d", s.Terrain.Cols, s.Terrain.Rows)
	}
	if s.Terrain.DefaultFriction != 0.9 {
		t.Errorf("expected default friction 0.9, got %f", s.Terrain.DefaultFriction)
	}
}

func TestLoadScenario_NoVehicles(t *testing.T) {
	path := writeScenario(t, `{"name":"empty"}`)

	if _, err := loadScenario(path); err == nil {
		t.Error("expected error for scenario with no vehicles")
	}
}

func TestLoadScenario_DuplicateVehicleIDs(t *testing.T) {
	path := writeScenario(t, `{"vehicles":[{"id":1,"position":"0,0"},{"id":1,"position":"10,10"}]}`)

	if _, err := loadScenario(path); err == nil {
		t.Error("expected error for duplicate vehicle ids")
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	if _, err := loadScenario("/nonexistent/scenario.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildTerrain_Flat(t *testing.T) {
	ground, err := buildTerrain(TerrainSpec{
		CellSize:        10,
		Cols:            8,
		Rows:            8,
		Elevation:       5,
		DefaultFriction: 0.9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h := ground.Field().HeightAt(20, 20); h != 5 {
		t.Errorf("expected flat terrain at 5m, got %f", h)
	}
}

func TestBuildTerrain_Zones(t *testing.T) {
	ground, err := buildTerrain(TerrainSpec{
		CellSize:        10,
		Cols:            8,
		Rows:            8,
		DefaultFriction: 0.9,
		Zones: []ZoneSpec{
			{Name: "mud", Friction: 0.4, Outline: [][2]float64{{0, 0}, {30, 0}, {30, 30}, {0, 30}}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f := ground.FrictionAt(15, 15); f != 0.4 {
		t.Errorf("expected zone friction 0.4, got %f", f)
	}
	if f := ground.FrictionAt(50, 50); f != 0.9 {
		t.Errorf("expected default friction 0.9 outside zone, got %f", f)
	}
}

func TestBuildTerrain_BadZone(t *testing.T) {
	_, err := buildTerrain(TerrainSpec{
		CellSize: 10, Cols: 8, Rows: 8, DefaultFriction: 0.9,
		Zones: []ZoneSpec{{Name: "broken", Friction: 0.4, Outline: [][2]float64{{0, 0}}}},
	})
	if err == nil {
		t.Error("expected error for degenerate zone outline")
	}
}

func TestDriver_ScriptProgression(t *testing.T) {
	d, err := newDriver(VehicleSpec{
		ID: 1,
		Script: []ScriptStep{
			{At: 0, Throttle: 0.5},
			{At: 2, Throttle: 1, Steer: 0.3},
			{At: 4, Brake: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := d.update(0.1, core.VehicleSnapshot{})
	if in.Throttle != 0.5 || in.Steer != 0 {
		t.Errorf("expected first step at t=0.1, got %+v", in)
	}

	in = d.update(2.5, core.VehicleSnapshot{})
	if in.Throttle != 1 || in.Steer != 0.3 {
		t.Errorf("expected second step at t=2.5, got %+v", in)
	}

	in = d.update(10, core.VehicleSnapshot{})
	if in.Brake != 1 {
		t.Errorf("expected final step to hold, got %+v", in)
	}
}

func TestDriver_BadRoute(t *testing.T) {
	if _, err := newDriver(VehicleSpec{ID: 1, Route: []byte(`[[0,0]]`)}); err == nil {
		t.Error("expected error for single-waypoint route")
	}
}

func TestDriver_RouteSteering(t *testing.T) {
	d, err := newDriver(VehicleSpec{ID: 1, Route: []byte(`[[0,100],[100,100]]`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// heading +Z (heading 0), first waypoint dead ahead: no steering
	snap := core.VehicleSnapshot{Position: core.Vec3{X: 0, Z: 0}}
	in := d.update(0, snap)
	if in.Steer != 0 {
		t.Errorf("expected no steer toward waypoint dead ahead, got %f", in.Steer)
	}
	if in.Throttle <= 0 {
		t.Error("expected route driver to throttle up")
	}

	// moving +Z near the first waypoint: next waypoint is off toward +X,
	// which positive steer turns into
	snap = core.VehicleSnapshot{
		Position: core.Vec3{X: 0, Z: 98},
		Velocity: core.Vec3{Z: 5},
	}
	in = d.update(1, snap)
	if in.Steer <= 0 {
		t.Errorf("expected positive steer toward next waypoint, got %f", in.Steer)
	}

	// past the last waypoint: full stop
	snap = core.VehicleSnapshot{Position: core.Vec3{X: 99, Z: 100}}
	in = d.update(2, snap)
	if in.Brake != 1 || in.Throttle != 0 {
		t.Errorf("expected stop at route end, got %+v", in)
	}
}

package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sandk/offroad-dynamics/internal/terrain"
	"github.com/sandk/offroad-dynamics/internal/vehicle"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

func flatWorld(t *testing.T, friction float64) *World {
	t.Helper()
	field, err := terrain.NewFlat(core.Vec3{X: -128, Z: -128}, 4, 64, 64, 0)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWorld(terrain.New(field, friction), Options{Timestep: 1.0 / 60})
	if err != nil {
		t.Fatal(err)
	}
	return w
}

// spawnY puts the chassis close to its static ride height so settle time
// stays short.
const spawnY = 1.0

func TestNewWorld_RejectsBadTimestep(t *testing.T) {
	field, err := terrain.NewFlat(core.Zero3, 1, 4, 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewWorld(terrain.New(field, 1), Options{Timestep: 0}); err == nil {
		t.Error("expected error for zero timestep")
	}
}

func TestSpawn_DuplicateID(t *testing.T) {
	w := flatWorld(t, 1)

	if err := w.Spawn(1, vehicle.DefaultTuning(), core.Vec3{Y: spawnY}, core.IdentityQuat); err != nil {
		t.Fatal(err)
	}
	if err := w.Spawn(1, vehicle.DefaultTuning(), core.Vec3{Y: spawnY}, core.IdentityQuat); err == nil {
		t.Error("expected duplicate spawn to fail")
	}
}

func TestSpawn_InvalidTuningRejected(t *testing.T) {
	w := flatWorld(t, 1)
	bad := vehicle.DefaultTuning()
	bad.Mass = 0

	if err := w.Spawn(1, bad, core.Vec3{Y: spawnY}, core.IdentityQuat); err == nil {
		t.Error("expected spawn with invalid tuning to fail")
	}
}

func TestSetInput_UnknownVehicle(t *testing.T) {
	w := flatWorld(t, 1)
	if err := w.SetInput(9, vehicle.Input{}); err == nil {
		t.Error("expected error for unknown vehicle")
	}
}

func TestStep_SettlesOnSuspension(t *testing.T) {
	w := flatWorld(t, 1)
	tun := vehicle.DefaultTuning()
	if err := w.Spawn(1, tun, core.Vec3{Y: spawnY}, core.IdentityQuat); err != nil {
		t.Fatal(err)
	}

	w.Advance(context.Background(), 600) // ten seconds

	snaps := w.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	s := snaps[0]

	if s.Velocity.Length() > 0.05 {
		t.Errorf("vehicle still moving after settle: %+v", s.Velocity)
	}
	// ride height: mount drop + equilibrium strut length + wheel radius
	weightPerWheel := tun.Mass * 9.81 / 4
	restLen := tun.Suspension.RestLength - weightPerWheel/tun.Suspension.SpringStrength
	wantY := -tun.Mounts[0].Offset.Y + restLen + tun.Wheel.Radius
	if math.Abs(s.Position.Y-wantY) > 0.05 {
		t.Errorf("ride height %f, want ~%f", s.Position.Y, wantY)
	}

	var totalSuspension float64
	for _, ws := range s.Wheels {
		if !ws.GroundContact {
			t.Errorf("wheel %d lost contact at rest", ws.Index)
		}
		totalSuspension += ws.SuspensionForce
	}
	totalWeight := tun.Mass * 9.81
	if math.Abs(totalSuspension-totalWeight)/totalWeight > 0.05 {
		t.Errorf("suspension carries %f, want ~%f", totalSuspension, totalWeight)
	}
}

func TestStep_ThrottleDrivesForward(t *testing.T) {
	w := flatWorld(t, 1)
	if err := w.Spawn(1, vehicle.DefaultTuning(), core.Vec3{Y: spawnY}, core.IdentityQuat); err != nil {
		t.Fatal(err)
	}

	// settle first, then drive
	w.Advance(context.Background(), 300)
	if err := w.SetInput(1, vehicle.Input{Throttle: 1}); err != nil {
		t.Fatal(err)
	}
	w.Advance(context.Background(), 300)

	s := w.Snapshot()[0]
	if s.Position.Z <= 1 {
		t.Errorf("vehicle should have driven forward, z=%f", s.Position.Z)
	}
	if s.Velocity.Z <= 0.5 {
		t.Errorf("vehicle should be moving forward, vz=%f", s.Velocity.Z)
	}
	if s.EngineRPM <= 0 {
		t.Errorf("engine should be turning, rpm=%f", s.EngineRPM)
	}
}

func TestStep_Deterministic(t *testing.T) {
	run := func() []core.VehicleSnapshot {
		w := flatWorld(t, 0.9)
		for id := uint16(1); id <= 3; id++ {
			if err := w.Spawn(id, vehicle.DefaultTuning(),
				core.Vec3{X: float64(id) * 10, Y: spawnY}, core.IdentityQuat); err != nil {
				t.Fatal(err)
			}
		}
		w.SetInput(1, vehicle.Input{Throttle: 1})
		w.SetInput(2, vehicle.Input{Throttle: 0.6, Steer: 0.4})
		w.Advance(context.Background(), 300)
		return w.Snapshot()
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("snapshot count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("vehicle %d diverged between identical runs", a[i].VehicleID)
		}
	}
}

func TestStep_Stats(t *testing.T) {
	w := flatWorld(t, 1)
	if err := w.Spawn(1, vehicle.DefaultTuning(), core.Vec3{Y: spawnY}, core.IdentityQuat); err != nil {
		t.Fatal(err)
	}
	if err := w.Spawn(2, vehicle.DefaultTuning(), core.Vec3{X: 20, Y: spawnY}, core.IdentityQuat); err != nil {
		t.Fatal(err)
	}

	stats := w.Step(context.Background())
	if stats.Tick != 1 {
		t.Errorf("expected tick 1, got %d", stats.Tick)
	}
	if stats.Vehicles != 2 {
		t.Errorf("expected 2 vehicles, got %d", stats.Vehicles)
	}
	if w.Tick() != 1 {
		t.Errorf("expected world tick 1, got %d", w.Tick())
	}
}

func TestDespawn(t *testing.T) {
	w := flatWorld(t, 1)
	if err := w.Spawn(1, vehicle.DefaultTuning(), core.Vec3{Y: spawnY}, core.IdentityQuat); err != nil {
		t.Fatal(err)
	}

	if err := w.Despawn(1); err != nil {
		t.Fatal(err)
	}
	if err := w.Despawn(1); err == nil {
		t.Error("expected error despawning twice")
	}
	if len(w.Snapshot()) != 0 {
		t.Error("expected empty world after despawn")
	}
}

func TestSamples_OrderedByID(t *testing.T) {
	w := flatWorld(t, 1)
	for _, id := range []uint16{7, 2, 5} {
		if err := w.Spawn(id, vehicle.DefaultTuning(), core.Vec3{X: float64(id), Y: spawnY}, core.IdentityQuat); err != nil {
			t.Fatal(err)
		}
	}

	samples := w.Samples(time.Now())
	want := []uint16{2, 5, 7}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s.VehicleID != want[i] {
			t.Errorf("sample %d: id %d, want %d", i, s.VehicleID, want[i])
		}
	}
}

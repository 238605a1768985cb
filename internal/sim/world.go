// Package sim owns the fixed-timestep world loop: it reads chassis state
// from the rigid bodies, runs each vehicle's physics tick, and feeds the
// resulting forces back into the integrator. Vehicles never interact with
// each other, so ticks fan out over a bounded worker pool.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/sandk/offroad-dynamics/internal/rigidbody"
	"github.com/sandk/offroad-dynamics/internal/terrain"
	"github.com/sandk/offroad-dynamics/internal/vehicle"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

var (
	// ErrDuplicateVehicle is returned when spawning an ID that already exists.
	ErrDuplicateVehicle = errors.New("vehicle id already spawned")
	// ErrUnknownVehicle is returned for operations on an unspawned ID.
	ErrUnknownVehicle = errors.New("unknown vehicle id")
)

// Options configures the world loop.
type Options struct {
	// Timestep is the fixed physics dt in seconds.
	Timestep float64
	// Workers bounds the per-tick goroutine pool; 0 means GOMAXPROCS.
	Workers int
}

type entity struct {
	vehicle *vehicle.Vehicle
	body    *rigidbody.Body
	input   vehicle.Input
}

// World steps all spawned vehicles over shared terrain.
type World struct {
	ground   *terrain.Terrain
	timestep float64
	workers  int

	mu       sync.RWMutex
	entities map[uint16]*entity
	order    []uint16
	tick     uint64

	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	vehicleCount metric.Int64ObservableGauge
}

// NewWorld creates an empty world over the given terrain.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewWorld(ground *terrain.Terrain, opts Options) (*World, error) {
	if opts.Timestep <= 0 {
		return nil, fmt.Errorf("timestep must be positive, got %f", opts.Timestep)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	w := &World{
		ground:   ground,
		timestep: opts.Timestep,
		workers:  workers,
		entities: make(map[uint16]*entity),
	}

	m := meter()
	var err error

	w.ticks, err = m.Int64Counter(
		"sim.ticks",
		metric.WithDescription("Total physics ticks stepped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	w.tickDuration, err = m.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time per physics tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	w.vehicleCount, err = m.Int64ObservableGauge(
		"sim.vehicles",
		metric.WithDescription("Vehicles currently spawned"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vehicle gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			w.mu.RLock()
			defer w.mu.RUnlock()
			o.ObserveInt64(w.vehicleCount, int64(len(w.entities)))
			return nil
		},
		w.vehicleCount,
	)
	if err != nil {
		return nil, fmt.Errorf("registering vehicle gauge callback: %w", err)
	}

	return w, nil
}

// Timestep returns the fixed physics dt.
func (w *World) Timestep() float64 { return w.timestep }

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// Spawn adds a vehicle at the given pose. The chassis inertia is derived
// from the tuning's mass and mount footprint.
func (w *World) Spawn(id uint16, tuning vehicle.Tuning, position core.Vec3, orientation core.Quat) error {
	v, err := vehicle.New(id, tuning, w.ground)
	if err != nil {
		return err
	}

	size := chassisExtents(tuning)
	body, err := rigidbody.New(tuning.Mass, rigidbody.BoxInertia(tuning.Mass, size))
	if err != nil {
		return err
	}
	body.Position = position
	body.Orientation = orientation.Normalized()
	body.AngularDamping = 0.5

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.entities[id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateVehicle, id)
	}
	w.entities[id] = &entity{vehicle: v, body: body}
	w.order = append(w.order, id)
	sort.Slice(w.order, func(i, j int) bool { return w.order[i] < w.order[j] })
	return nil
}

// Despawn removes a vehicle from the world.
func (w *World) Despawn(id uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVehicle, id)
	}
	delete(w.entities, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetInput updates the driver command for a vehicle. The input takes effect
// on the next step.
func (w *World) SetInput(id uint16, in vehicle.Input) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVehicle, id)
	}
	e.input = in
	return nil
}

// Step advances the world by one fixed timestep and returns per-tick stats.
func (w *World) Step(ctx context.Context) core.TickStats {
	start := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++

	work := make(chan *entity)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range work {
				w.stepEntity(e)
			}
		}()
	}
	for _, id := range w.order {
		work <- w.entities[id]
	}
	close(work)
	wg.Wait()

	elapsed := time.Since(start)
	w.ticks.Add(ctx, 1)
	w.tickDuration.Record(ctx, float64(elapsed.Microseconds())/1000)

	return core.TickStats{
		Tick:     w.tick,
		Duration: elapsed,
		Vehicles: len(w.entities),
	}
}

func (w *World) stepEntity(e *entity) {
	chassis := vehicle.ChassisState{
		Position:        e.body.Position,
		Orientation:     e.body.Orientation,
		LinearVelocity:  e.body.LinearVelocity,
		AngularVelocity: e.body.AngularVelocity,
	}
	out := e.vehicle.Step(chassis, e.input, w.timestep)
	e.body.ApplyForce(out.Force)
	e.body.ApplyTorque(out.Torque)
	e.body.Integrate(w.timestep)
}

// Advance runs n steps back to back.
func (w *World) Advance(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		w.Step(ctx)
	}
}

// Snapshot returns the replicated state of every vehicle, ordered by ID.
func (w *World) Snapshot() []core.VehicleSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]core.VehicleSnapshot, 0, len(w.order))
	for _, id := range w.order {
		e := w.entities[id]
		out = append(out, e.vehicle.Snapshot(chassisOf(e.body)))
	}
	return out
}

// Samples returns one telemetry record per vehicle, ordered by ID.
func (w *World) Samples(now time.Time) []core.VehicleSample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]core.VehicleSample, 0, len(w.order))
	for _, id := range w.order {
		e := w.entities[id]
		out = append(out, e.vehicle.Sample(chassisOf(e.body), now))
	}
	return out
}

func chassisOf(b *rigidbody.Body) vehicle.ChassisState {
	return vehicle.ChassisState{
		Position:        b.Position,
		Orientation:     b.Orientation,
		LinearVelocity:  b.LinearVelocity,
		AngularVelocity: b.AngularVelocity,
	}
}

// chassisExtents estimates the chassis bounding box from the wheel mounts.
func chassisExtents(t vehicle.Tuning) core.Vec3 {
	var maxX, maxZ float64
	for _, m := range t.Mounts {
		if x := abs(m.Offset.X); x > maxX {
			maxX = x
		}
		if z := abs(m.Offset.Z); z > maxZ {
			maxZ = z
		}
	}
	return core.Vec3{X: 2 * maxX, Y: 1.6, Z: 2 * maxZ}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

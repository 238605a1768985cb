// internal/vehicle/vehicle.go
//
// The per-tick pipeline for one vehicle: ground probe, suspension,
// tire, wheel integration, chassis aggregation. The vehicle owns its four
// wheels exclusively; the chassis pose and velocity are authoritative
// inputs read from the rigid-body engine each tick.
package vehicle

import (
	"fmt"
	"math"
	"time"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// localForward is the chassis rolling direction, +Z.
var localForward = core.Vec3{Z: 1}

// Input is the driver command applied before a tick.
type Input struct {
	Throttle  float64 // 0..1
	Brake     float64 // 0..1
	Steer     float64 // -1..1, positive steers left
	Handbrake bool
}

// ChassisState is the authoritative body state read from the rigid-body
// engine at the start of each tick.
type ChassisState struct {
	Position        core.Vec3
	Orientation     core.Quat
	LinearVelocity  core.Vec3
	AngularVelocity core.Vec3
}

// Output is the net force/torque pair handed to the rigid-body integrator.
type Output struct {
	Force  core.Vec3
	Torque core.Vec3
}

// Vehicle aggregates four wheels, their struts and the drivetrain.
type Vehicle struct {
	ID     uint16
	tuning Tuning
	probe  GroundProbe

	Wheels     [4]Wheel
	Suspension [4]SuspensionState
	Drivetrain Drivetrain

	tick uint64
}

// New validates the tuning and builds a vehicle. The raycaster may be nil;
// all wheels then read as airborne.
func New(id uint16, tuning Tuning, caster Raycaster) (*Vehicle, error) {
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", id, err)
	}
	v := &Vehicle{
		ID:         id,
		tuning:     tuning,
		probe:      GroundProbe{Caster: caster},
		Drivetrain: NewDrivetrain(tuning.Engine, tuning.Transmission),
	}
	for i := range v.Wheels {
		v.Wheels[i] = Wheel{
			Index:    i,
			CanDrive: tuning.Mounts[i].CanDrive,
			CanSteer: tuning.Mounts[i].CanSteer,
		}
		v.Suspension[i] = NewSuspensionState(tuning.Suspension)
	}
	return v, nil
}

// Tuning returns the read-only vehicle definition.
func (v *Vehicle) Tuning() Tuning { return v.tuning }

// Step runs one physics tick and returns the force/torque pair for the
// rigid-body engine. It is a pure function of its inputs and the vehicle's
// own per-wheel state; identical inputs produce identical outputs.
func (v *Vehicle) Step(chassis ChassisState, in Input, dt float64) Output {
	v.tick++
	t := &v.tuning

	up := chassis.Orientation.Rotate(core.Up)
	forward := chassis.Orientation.Rotate(localForward)
	down := up.Neg()
	comWorld := chassis.Position.Add(chassis.Orientation.Rotate(t.CenterOfMass))
	maxProbe := t.Suspension.MaxLength + t.Wheel.Radius

	// steering before anything else so the tire frame is current
	steer := core.Clamp(in.Steer, -1, 1) * t.Wheel.MaxSteeringAngle
	for i := range v.Wheels {
		if v.Wheels[i].CanSteer {
			v.Wheels[i].SteeringAngle = steer
		} else {
			v.Wheels[i].SteeringAngle = 0
		}
	}

	// drive torque from mean driven-wheel speed
	var drivenSpeed float64
	driven := 0
	for i := range v.Wheels {
		if v.Wheels[i].CanDrive {
			drivenSpeed += v.Wheels[i].AngularVelocity
			driven++
		}
	}
	if driven > 0 {
		drivenSpeed /= float64(driven)
	}
	driveTorque := v.Drivetrain.Update(in.Throttle, drivenSpeed, driven)

	var forces [4]WheelForce
	for i := range v.Wheels {
		w := &v.Wheels[i]
		sus := &v.Suspension[i]

		mountWorld := chassis.Position.Add(chassis.Orientation.Rotate(t.Mounts[i].Offset))
		hit, contact := v.probe.Probe(mountWorld, down, maxProbe)
		w.GroundContact = contact

		force, newLength := computeSuspension(t.Suspension, t.Wheel.Radius, hit, contact, sus.PreviousLength, dt)

		var compressionVelocity float64
		if dt > 0 {
			compressionVelocity = (sus.PreviousLength - newLength) / dt
		}
		travel := t.Suspension.MaxLength - t.Suspension.MinLength
		var travelFraction float64
		if travel > 0 {
			travelFraction = (newLength - t.Suspension.MinLength) / travel
		}
		sus.Wear.accumulate(force, t.Suspension.MaxForce, travelFraction, compressionVelocity, dt)
		// damage lowers the strut's force ceiling, not its static output
		if sus.Wear.Broken {
			force = 0
		} else if t.Suspension.MaxForce > 0 {
			if limit := t.Suspension.MaxForce * sus.Wear.factor(); force > limit {
				force = limit
			}
		}

		sus.Force = force
		sus.PreviousLength = newLength
		w.NormalForce = force

		contactPoint := hit.Point
		if !contact {
			contactPoint = mountWorld.Add(down.Scale(maxProbe))
		}

		// steered wheel frame in world space
		steerRot := core.QuatFromAxisAngle(up, w.SteeringAngle)
		wheelForward := steerRot.Rotate(forward)
		wheelRight := up.Cross(wheelForward)

		velAtContact := chassis.LinearVelocity.
			Add(chassis.AngularVelocity.Cross(contactPoint.Sub(comWorld)))
		forwardVel := velAtContact.Dot(wheelForward)
		lateralVel := velAtContact.Dot(wheelRight)

		// an airborne wheel has no contact patch: no slip, no tire force,
		// no torque reaction
		var tire TireForces
		if contact {
			tire = computeTire(t.Wheel, w.AngularVelocity, forwardVel, lateralVel, w.NormalForce, hit.Friction)
		}
		w.SlipRatio = tire.SlipRatio
		w.SlipAngle = tire.SlipAngle

		// drive minus the contact patch pushing back on the wheel
		wheelDrive := 0.0
		if w.CanDrive {
			wheelDrive = driveTorque
		}
		reaction := tire.Longitudinal * t.Wheel.Radius
		brake := core.Clamp(in.Brake, 0, 1) * t.BrakeTorque
		if in.Handbrake && i >= 2 {
			brake = math.Max(brake, t.BrakeTorque)
		}
		integrateWheel(w, t.Wheel.Inertia, t.Wheel.Radius,
			wheelDrive-reaction, brake, t.Wheel.RollingResistance, dt)

		forces[i] = WheelForce{
			Suspension:     sus.Force,
			Longitudinal:   tire.Longitudinal,
			Lateral:        tire.Lateral,
			SuspensionAxis: up,
			Forward:        wheelForward,
			Right:          wheelRight,
			ContactPoint:   contactPoint,
			Contact:        contact,
		}
	}

	aeroCenterWorld := chassis.Position.Add(chassis.Orientation.Rotate(t.Aero.Center))
	force, torque := aggregateChassis(forces, t.Aero, comWorld, aeroCenterWorld, up, chassis.LinearVelocity)
	return Output{Force: force, Torque: torque}
}

// Snapshot copies the externally visible state for replication, audio and
// particle consumers. Safe to call between ticks.
func (v *Vehicle) Snapshot(chassis ChassisState) core.VehicleSnapshot {
	snap := core.VehicleSnapshot{
		VehicleID: v.ID,
		Tick:      v.tick,
		Position:  chassis.Position,
		Velocity:  chassis.LinearVelocity,
		Omega:     chassis.AngularVelocity,
		EngineRPM: v.Drivetrain.RPM,
		Gear:      v.Drivetrain.Gear,
	}
	for i := range v.Wheels {
		w := &v.Wheels[i]
		snap.Wheels[i] = core.WheelSnapshot{
			Index:           i,
			AngularVelocity: w.AngularVelocity,
			SteeringAngle:   w.SteeringAngle,
			SlipRatio:       w.SlipRatio,
			SlipAngle:       w.SlipAngle,
			GroundContact:   w.GroundContact,
			SuspensionForce: v.Suspension[i].Force,
			SuspensionLen:   v.Suspension[i].PreviousLength,
		}
	}
	return snap
}

// Sample builds one telemetry record from the current state.
func (v *Vehicle) Sample(chassis ChassisState, now time.Time) core.VehicleSample {
	snap := v.Snapshot(chassis)
	return core.VehicleSample{
		VehicleID: v.ID,
		Tick:      snap.Tick,
		Time:      now,
		Position:  snap.Position,
		Speed:     chassis.LinearVelocity.Length(),
		EngineRPM: snap.EngineRPM,
		Gear:      snap.Gear,
		Wheels:    snap.Wheels,
	}
}

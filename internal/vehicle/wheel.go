// internal/vehicle/wheel.go
package vehicle

import "math"

// Wheel is the mutable per-wheel state. Four of these live inside a
// Vehicle; nothing outside the owning vehicle writes to them.
type Wheel struct {
	Index    int
	CanDrive bool
	CanSteer bool

	// AngularVelocity is signed spin about the axle, rad/s, positive
	// rolling forward.
	AngularVelocity float64
	// SteeringAngle is set from input before the tick, radians.
	SteeringAngle float64
	// RollAngle is the visual rotation accumulator for rendering.
	RollAngle float64

	// Recomputed each tick.
	GroundContact bool
	NormalForce   float64
	SlipRatio     float64
	SlipAngle     float64
}

// integrateWheel advances one wheel's spin under drive, brake and rolling
// resistance torque.
//
// Drive torque applies first; brake and rolling resistance act as a
// resistive budget that can bring the wheel to exactly zero but never past
// it, so a hard stop does not ring into reverse spin. Airborne wheels see
// no rolling resistance (normalForce is zero then).
func integrateWheel(w *Wheel, inertia, radius, driveTorque, brakeTorque, rollingResistance, dt float64) {
	if inertia <= 0 || dt <= 0 {
		return
	}

	omega := w.AngularVelocity + (driveTorque/inertia)*dt

	resistTorque := brakeTorque + rollingResistance*w.NormalForce*radius
	if resistTorque < 0 {
		resistTorque = 0
	}
	resistDelta := (resistTorque / inertia) * dt
	if math.Abs(omega) <= resistDelta {
		omega = 0
	} else if omega > 0 {
		omega -= resistDelta
	} else {
		omega += resistDelta
	}

	w.AngularVelocity = omega
	w.RollAngle += omega * dt
	if w.RollAngle > 2*math.Pi {
		w.RollAngle -= 2 * math.Pi
	} else if w.RollAngle < -2*math.Pi {
		w.RollAngle += 2 * math.Pi
	}
}

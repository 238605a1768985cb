// internal/vehicle/chassis.go
package vehicle

import "github.com/sandk/offroad-dynamics/pkg/core"

// airDensity at sea level, kg/m³.
const airDensity = 1.29

// WheelForce is one wheel's contribution to the chassis, all vectors in
// world space.
type WheelForce struct {
	Suspension     float64
	Longitudinal   float64
	Lateral        float64
	SuspensionAxis core.Vec3
	Forward        core.Vec3
	Right          core.Vec3
	ContactPoint   core.Vec3
	Contact        bool
}

// aggregateChassis sums the four wheels plus aerodynamics into the net
// force and torque about the world-space center of mass. The result is
// handed verbatim to the rigid-body integrator; no pose or velocity is
// mutated here.
func aggregateChassis(wheels [4]WheelForce, aero AeroTuning, comWorld, aeroCenterWorld, upWorld, linearVelocity core.Vec3) (force, torque core.Vec3) {
	for _, w := range wheels {
		if !w.Contact {
			continue
		}
		f := w.SuspensionAxis.Scale(w.Suspension).
			Add(w.Forward.Scale(w.Longitudinal)).
			Add(w.Right.Scale(w.Lateral))
		force = force.Add(f)
		lever := w.ContactPoint.Sub(comWorld)
		torque = torque.Add(lever.Cross(f))
	}

	speed := linearVelocity.Length()
	if speed > slipEpsilon {
		dynPressure := 0.5 * airDensity * aero.FrontalArea * speed * speed
		drag := linearVelocity.Scale(-dynPressure * aero.DragCoefficient / speed)
		// negative lift coefficient pushes the chassis down
		lift := upWorld.Scale(dynPressure * aero.LiftCoefficient)

		aeroForce := drag.Add(lift)
		force = force.Add(aeroForce)
		lever := aeroCenterWorld.Sub(comWorld)
		torque = torque.Add(lever.Cross(aeroForce))
	}

	return force, torque
}

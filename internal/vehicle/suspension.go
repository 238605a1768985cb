// internal/vehicle/suspension.go
package vehicle

import "github.com/sandk/offroad-dynamics/pkg/core"

// SuspensionState is the mutable per-strut state carried across ticks.
type SuspensionState struct {
	// PreviousLength is last tick's compressed length; the damper term
	// needs it. Updated every tick even when airborne.
	PreviousLength float64
	// Force is the magnitude along the suspension axis computed this
	// tick. Never negative: a strut pushes, it does not pull.
	Force float64
	// Wear tracks accumulated damage; a broken strut produces no force.
	Wear WearState
}

// NewSuspensionState starts a strut at rest length.
func NewSuspensionState(t SuspensionTuning) SuspensionState {
	return SuspensionState{
		PreviousLength: t.RestLength,
		Wear:           NewWearState(),
	}
}

// computeSuspension applies the spring/damper law for one wheel.
//
// With ground contact the compressed length is the probe distance minus the
// wheel radius, clamped to the configured travel. Airborne struts extend
// fully and carry no load. dt == 0 is legal and yields zero damper force.
// Returns the force magnitude and the new length to carry into next tick.
func computeSuspension(t SuspensionTuning, wheelRadius float64, hit core.RayHit, contact bool, previousLength, dt float64) (force, newLength float64) {
	if !contact {
		return 0, t.MaxLength
	}

	compressed := core.Clamp(hit.Distance-wheelRadius, t.MinLength, t.MaxLength)

	springForce := t.SpringStrength * (t.RestLength - compressed)

	var compressionVelocity float64
	if dt > 0 {
		compressionVelocity = (previousLength - compressed) / dt
	}
	dampingForce := t.Damping * compressionVelocity

	force = springForce + dampingForce
	if force < 0 {
		force = 0
	}
	if t.MaxForce > 0 && force > t.MaxForce {
		force = t.MaxForce
	}
	return force, compressed
}

// internal/vehicle/tire.go
package vehicle

import (
	"math"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// slipEpsilon guards the slip divisions at crawl speeds, m/s.
const slipEpsilon = 0.1

const (
	// peak of the simplified Pacejka response
	peakSlipRatio = 0.12
	peakSlipAngle = 0.105 // ~6 deg
	// beyond this multiple of the peak the tire is fully sliding
	slideOnset = 3.0
	// fraction of peak grip left once sliding
	slidePlateau = 0.75
)

// TireForces is the contact-patch output for one wheel, in the wheel's
// local frame (longitudinal = rolling direction, lateral = to the right).
type TireForces struct {
	Longitudinal float64
	Lateral      float64
	SlipRatio    float64
	SlipAngle    float64
}

// computeTire converts wheel spin and contact-patch velocity into tire
// forces.
//
// forwardVel/lateralVel are the chassis velocity at the contact point
// projected onto the steered wheel's forward/right axes. normalForce is
// this tick's suspension load. Zero normal force or zero surface friction
// yields exactly zero force; slip is still reported so a grounded wheel on
// ice reads as sliding. Callers skip this entirely for airborne wheels.
func computeTire(w WheelTuning, angularVelocity, forwardVel, lateralVel, normalForce, surfaceFriction float64) TireForces {
	var out TireForces

	wheelSpeed := angularVelocity * w.Radius
	absForward := math.Abs(forwardVel)

	if absForward >= slipEpsilon {
		out.SlipRatio = (wheelSpeed - forwardVel) / absForward
	} else {
		// near standstill the ratio denominator blows up; derive slip
		// from spin alone so a burnout saturates at ±1
		out.SlipRatio = (wheelSpeed - forwardVel) / slipEpsilon
	}
	out.SlipRatio = core.Clamp(out.SlipRatio, -1, 1)

	out.SlipAngle = math.Atan2(lateralVel, math.Max(absForward, slipEpsilon))

	if normalForce <= 0 || surfaceFriction <= 0 {
		return out
	}

	grip := normalForce * surfaceFriction * w.GripCoefficient

	longDemand := gripCurve(out.SlipRatio, peakSlipRatio) * grip
	// lateral force opposes the slip direction
	latDemand := -gripCurve(out.SlipAngle, peakSlipAngle) * grip

	// friction circle: combined demand cannot exceed μN
	limit := normalForce * surfaceFriction
	combined := math.Hypot(longDemand, latDemand)
	if combined > limit && combined > 0 {
		scale := limit / combined
		longDemand *= scale
		latDemand *= scale
	}

	out.Longitudinal = longDemand
	out.Lateral = latDemand
	return out
}

// gripCurve is the normalized slip response: linear rise to 1.0 at the
// peak, falling off to the sliding plateau by slideOnset times the peak.
// Output keeps the sign of slip and stays within [-1, 1].
func gripCurve(slip, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	x := math.Abs(slip) / peak
	var g float64
	switch {
	case x <= 1:
		g = x
	case x >= slideOnset:
		g = slidePlateau
	default:
		// linear falloff between peak and full slide
		g = 1 - (1-slidePlateau)*(x-1)/(slideOnset-1)
	}
	return g * core.Sign(slip)
}

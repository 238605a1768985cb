// internal/vehicle/wear.go
package vehicle

import "math"

// WearState tracks progressive suspension damage. Stress accumulates from
// load, near-limit travel and compression speed; once the accumulator
// overflows, health drains. A strut at zero health is broken and produces
// no force until the vehicle is respawned.
type WearState struct {
	Health            float64 // 0..100
	AccumulatedStress float64
	Broken            bool
}

// NewWearState returns a healthy strut.
func NewWearState() WearState {
	return WearState{Health: 100}
}

const (
	// stress below this recovers instead of accumulating
	wearRecoveryThreshold = 0.1
	wearRecoveryRate      = 0.5
	wearDamageRate        = 5.0
	wearVelocityRef       = 10.0 // m/s compression speed for full velocity stress
)

// accumulate advances the damage model by one tick. force and threshold are
// magnitudes in N; travelFraction is compressed travel position in [0,1]
// where 0/1 are the hard limits; compressionVelocity is m/s.
func (w *WearState) accumulate(force, threshold, travelFraction, compressionVelocity, dt float64) {
	if w.Broken || threshold <= 0 || dt <= 0 {
		return
	}

	loadStress := force / threshold
	loadStress *= loadStress

	var limitStress float64
	if travelFraction <= 0.1 || travelFraction >= 0.9 {
		limitStress = 0.5
	}

	velocityStress := math.Min(math.Abs(compressionVelocity)/wearVelocityRef, 1) * 0.3

	total := loadStress + limitStress + velocityStress
	w.AccumulatedStress += total * dt

	if total < wearRecoveryThreshold {
		w.AccumulatedStress = math.Max(0, w.AccumulatedStress-wearRecoveryRate*dt)
	}

	if w.AccumulatedStress > 1 {
		w.Health = math.Max(0, w.Health-w.AccumulatedStress*wearDamageRate*dt)
		w.AccumulatedStress = 0
	}

	if w.Health <= 0 {
		w.Health = 0
		w.Broken = true
	}
}

// factor scales the strut's force ceiling by remaining health.
func (w *WearState) factor() float64 {
	if w.Broken {
		return 0
	}
	return w.Health / 100
}

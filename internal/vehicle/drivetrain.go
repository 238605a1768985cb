// internal/vehicle/drivetrain.go
package vehicle

import "math"

const rpmPerRadSec = 60 / (2 * math.Pi)

// Drivetrain converts throttle input into per-wheel drive torque through
// the engine torque curve, the gearbox and the final drive. Engine speed
// is derived from the driven wheels rather than integrated separately,
// which keeps the model deterministic and free of clutch state.
type Drivetrain struct {
	engine       EngineTuning
	transmission TransmissionTuning

	// Gear is the current gear index into GearRatios.
	Gear int
	// RPM is the engine speed computed last tick, for telemetry/audio.
	RPM float64
}

// NewDrivetrain starts in first gear at idle.
func NewDrivetrain(e EngineTuning, t TransmissionTuning) Drivetrain {
	return Drivetrain{engine: e, transmission: t, RPM: e.IdleRPM}
}

// ratio is the total crank-to-wheel multiplication for the current gear.
func (d *Drivetrain) ratio() float64 {
	return d.transmission.GearRatios[d.Gear] * d.transmission.FinalDrive
}

// Update recomputes engine speed from mean driven-wheel spin, applies the
// automatic shift thresholds and returns the drive torque delivered to each
// of drivenWheels wheels for the given throttle in [0, 1].
func (d *Drivetrain) Update(throttle, meanDrivenWheelSpeed float64, drivenWheels int) float64 {
	if drivenWheels <= 0 {
		return 0
	}
	throttle = math.Max(0, math.Min(1, throttle))

	rpm := math.Abs(meanDrivenWheelSpeed) * d.ratio() * rpmPerRadSec
	if rpm < d.engine.IdleRPM {
		rpm = d.engine.IdleRPM
	}
	if rpm > d.engine.Redline {
		rpm = d.engine.Redline
	}

	// automatic shifting with hysteresis from the tuning thresholds
	if rpm >= d.transmission.ShiftUpRPM && d.Gear < len(d.transmission.GearRatios)-1 {
		d.Gear++
		rpm = math.Abs(meanDrivenWheelSpeed) * d.ratio() * rpmPerRadSec
		rpm = math.Max(d.engine.IdleRPM, math.Min(rpm, d.engine.Redline))
	} else if rpm <= d.transmission.ShiftDownRPM && d.Gear > 0 {
		d.Gear--
		rpm = math.Abs(meanDrivenWheelSpeed) * d.ratio() * rpmPerRadSec
		rpm = math.Max(d.engine.IdleRPM, math.Min(rpm, d.engine.Redline))
	}
	d.RPM = rpm

	crankTorque := d.engine.torqueAt(rpm) * throttle
	wheelTorque := crankTorque * d.ratio() * d.transmission.Efficiency
	return wheelTorque / float64(drivenWheels)
}

// torqueAt interpolates the piecewise-linear torque curve. RPM outside the
// curve clamps to the endpoints.
func (e EngineTuning) torqueAt(rpm float64) float64 {
	c := e.TorqueCurve
	if len(c) == 0 {
		return 0
	}
	if rpm <= c[0][0] {
		return c[0][1]
	}
	last := c[len(c)-1]
	if rpm >= last[0] {
		return last[1]
	}
	for i := 1; i < len(c); i++ {
		if rpm <= c[i][0] {
			span := c[i][0] - c[i-1][0]
			f := (rpm - c[i-1][0]) / span
			return c[i-1][1] + f*(c[i][1]-c[i-1][1])
		}
	}
	return last[1]
}

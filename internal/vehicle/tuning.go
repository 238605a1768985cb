// internal/vehicle/tuning.go
package vehicle

import (
	"errors"
	"fmt"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// ErrInvalidTuning is returned when a vehicle definition fails validation.
// This is the only fatal error in the physics core; it is raised once at
// spawn time, never per tick.
var ErrInvalidTuning = errors.New("invalid vehicle tuning")

// SuspensionTuning holds the spring/damper constants for one strut.
type SuspensionTuning struct {
	SpringStrength float64 `json:"springStrength" mapstructure:"springStrength"` // N/m
	Damping        float64 `json:"damping" mapstructure:"damping"`               // Ns/m
	RestLength     float64 `json:"restLength" mapstructure:"restLength"`         // m
	MinLength      float64 `json:"minLength" mapstructure:"minLength"`           // m
	MaxLength      float64 `json:"maxLength" mapstructure:"maxLength"`           // m
	MaxForce       float64 `json:"maxForce" mapstructure:"maxForce"`             // N, damage threshold
}

// WheelTuning holds the physical constants for one wheel type.
type WheelTuning struct {
	Radius            float64 `json:"radius" mapstructure:"radius"` // m
	Width             float64 `json:"width" mapstructure:"width"`   // m
	Mass              float64 `json:"mass" mapstructure:"mass"`     // kg
	Inertia           float64 `json:"inertia" mapstructure:"inertia"`
	RollingResistance float64 `json:"rollingResistance" mapstructure:"rollingResistance"`
	GripCoefficient   float64 `json:"gripCoefficient" mapstructure:"gripCoefficient"`
	MaxSteeringAngle  float64 `json:"maxSteeringAngle" mapstructure:"maxSteeringAngle"` // rad
}

// EngineTuning is the torque delivery model.
type EngineTuning struct {
	IdleRPM float64 `json:"idleRpm" mapstructure:"idleRpm"`
	Redline float64 `json:"redline" mapstructure:"redline"`
	// TorqueCurve is a piecewise-linear [rpm, Nm] map, ascending by rpm.
	TorqueCurve [][2]float64 `json:"torqueCurve" mapstructure:"torqueCurve"`
}

// TransmissionTuning is the gearbox model.
type TransmissionTuning struct {
	GearRatios   []float64 `json:"gearRatios" mapstructure:"gearRatios"`
	FinalDrive   float64   `json:"finalDrive" mapstructure:"finalDrive"`
	Efficiency   float64   `json:"efficiency" mapstructure:"efficiency"`
	ShiftUpRPM   float64   `json:"shiftUpRpm" mapstructure:"shiftUpRpm"`
	ShiftDownRPM float64   `json:"shiftDownRpm" mapstructure:"shiftDownRpm"`
}

// AeroTuning is the aerodynamic drag/downforce model.
type AeroTuning struct {
	DragCoefficient float64   `json:"dragCoefficient" mapstructure:"dragCoefficient"`
	LiftCoefficient float64   `json:"liftCoefficient" mapstructure:"liftCoefficient"`
	FrontalArea     float64   `json:"frontalArea" mapstructure:"frontalArea"` // m²
	Center          core.Vec3 `json:"center" mapstructure:"center"`           // chassis local
}

// WheelMount fixes one wheel's attachment and role at spawn time.
type WheelMount struct {
	Offset   core.Vec3 `json:"offset" mapstructure:"offset"` // chassis local
	CanDrive bool      `json:"canDrive" mapstructure:"canDrive"`
	CanSteer bool      `json:"canSteer" mapstructure:"canSteer"`
}

// Tuning is the complete read-only definition of a vehicle type. Instances
// of the same type share one Tuning; nothing in the core mutates it.
type Tuning struct {
	Name         string             `json:"name" mapstructure:"name"`
	Mass         float64            `json:"mass" mapstructure:"mass"` // kg, chassis only
	CenterOfMass core.Vec3          `json:"centerOfMass" mapstructure:"centerOfMass"`
	Mounts       [4]WheelMount      `json:"mounts" mapstructure:"mounts"`
	Suspension   SuspensionTuning   `json:"suspension" mapstructure:"suspension"`
	Wheel        WheelTuning        `json:"wheel" mapstructure:"wheel"`
	Engine       EngineTuning       `json:"engine" mapstructure:"engine"`
	Transmission TransmissionTuning `json:"transmission" mapstructure:"transmission"`
	Aero         AeroTuning         `json:"aero" mapstructure:"aero"`
	BrakeTorque  float64            `json:"brakeTorque" mapstructure:"brakeTorque"` // Nm at full pedal, per wheel
}

// DefaultTuning returns a stock off-road 4x4 setup.
func DefaultTuning() Tuning {
	return Tuning{
		Name:         "stock-4x4",
		Mass:         1500,
		CenterOfMass: core.Vec3{Y: -0.2},
		Mounts: [4]WheelMount{
			{Offset: core.Vec3{X: -0.8, Y: -0.2, Z: 1.19}, CanDrive: true, CanSteer: true},  // front left
			{Offset: core.Vec3{X: 0.8, Y: -0.2, Z: 1.19}, CanDrive: true, CanSteer: true},   // front right
			{Offset: core.Vec3{X: -0.8, Y: -0.2, Z: -1.19}, CanDrive: true, CanSteer: false}, // rear left
			{Offset: core.Vec3{X: 0.8, Y: -0.2, Z: -1.19}, CanDrive: true, CanSteer: false},  // rear right
		},
		Suspension: SuspensionTuning{
			SpringStrength: 50000,
			Damping:        4000,
			RestLength:     0.5,
			MinLength:      0.2,
			MaxLength:      0.8,
			MaxForce:       60000,
		},
		Wheel: WheelTuning{
			Radius:            0.35,
			Width:             0.275,
			Mass:              25,
			Inertia:           2.5,
			RollingResistance: 0.015,
			GripCoefficient:   0.85,
			MaxSteeringAngle:  0.61, // ~35 deg
		},
		Engine: EngineTuning{
			IdleRPM: 800,
			Redline: 6000,
			TorqueCurve: [][2]float64{
				{1000, 180},
				{3000, 340},
				{5000, 400},
				{6000, 360},
			},
		},
		Transmission: TransmissionTuning{
			GearRatios:   []float64{3.5, 2.5, 1.8, 1.3, 1.0},
			FinalDrive:   3.73,
			Efficiency:   0.85,
			ShiftUpRPM:   5200,
			ShiftDownRPM: 1800,
		},
		Aero: AeroTuning{
			DragCoefficient: 0.4,
			LiftCoefficient: -0.1,
			FrontalArea:     2.5,
			Center:          core.Vec3{Y: 0.4},
		},
		BrakeTorque: 3000,
	}
}

// Validate rejects a tuning that would make the simulation degenerate.
func (t *Tuning) Validate() error {
	if t.Mass <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %f", ErrInvalidTuning, t.Mass)
	}
	s := t.Suspension
	if s.MinLength < 0 || s.MinLength > s.RestLength || s.RestLength > s.MaxLength {
		return fmt.Errorf("%w: suspension lengths must satisfy 0 <= min <= rest <= max (min=%f rest=%f max=%f)",
			ErrInvalidTuning, s.MinLength, s.RestLength, s.MaxLength)
	}
	if s.SpringStrength <= 0 || s.Damping < 0 {
		return fmt.Errorf("%w: spring strength must be positive and damping non-negative", ErrInvalidTuning)
	}
	w := t.Wheel
	if w.Radius <= 0 || w.Mass <= 0 || w.Inertia <= 0 {
		return fmt.Errorf("%w: wheel radius, mass and inertia must be positive", ErrInvalidTuning)
	}
	if w.GripCoefficient < 0 || w.RollingResistance < 0 {
		return fmt.Errorf("%w: grip and rolling resistance must be non-negative", ErrInvalidTuning)
	}
	if len(t.Transmission.GearRatios) == 0 {
		return fmt.Errorf("%w: transmission needs at least one gear", ErrInvalidTuning)
	}
	if t.Engine.Redline <= t.Engine.IdleRPM {
		return fmt.Errorf("%w: engine redline must exceed idle rpm", ErrInvalidTuning)
	}
	if len(t.Engine.TorqueCurve) < 2 {
		return fmt.Errorf("%w: engine torque curve needs at least two points", ErrInvalidTuning)
	}
	for i := 1; i < len(t.Engine.TorqueCurve); i++ {
		if t.Engine.TorqueCurve[i][0] <= t.Engine.TorqueCurve[i-1][0] {
			return fmt.Errorf("%w: engine torque curve rpm values must ascend", ErrInvalidTuning)
		}
	}
	if t.BrakeTorque < 0 {
		return fmt.Errorf("%w: brake torque must be non-negative", ErrInvalidTuning)
	}
	return nil
}

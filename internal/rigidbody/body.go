// Package rigidbody integrates chassis motion from the force/torque pairs
// produced by the physics core. Semi-implicit Euler: velocity first, then
// position, which keeps spring-heavy systems stable at fixed timesteps.
package rigidbody

import (
	"errors"
	"fmt"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// Gravity is the world gravitational acceleration.
var Gravity = core.Vec3{Y: -9.81}

// ErrInvalidBody is returned when mass or inertia are degenerate.
var ErrInvalidBody = errors.New("invalid rigid body")

// Body is one simulated rigid body. Force and torque accumulate between
// Integrate calls and reset afterwards.
type Body struct {
	Position        core.Vec3
	Orientation     core.Quat
	LinearVelocity  core.Vec3
	AngularVelocity core.Vec3

	mass           float64
	invMass        float64
	invInertiaBody core.Vec3 // diagonal inverse inertia in body space

	LinearDamping  float64
	AngularDamping float64

	forceAccum  core.Vec3
	torqueAccum core.Vec3
}

// BoxInertia returns the diagonal inertia tensor of a solid box with the
// given full extents.
func BoxInertia(mass float64, size core.Vec3) core.Vec3 {
	c := mass / 12
	return core.Vec3{
		X: c * (size.Y*size.Y + size.Z*size.Z),
		Y: c * (size.X*size.X + size.Z*size.Z),
		Z: c * (size.X*size.X + size.Y*size.Y),
	}
}

// New builds a body at the origin with identity orientation.
func New(mass float64, inertia core.Vec3) (*Body, error) {
	if mass <= 0 {
		return nil, fmt.Errorf("%w: mass must be positive, got %f", ErrInvalidBody, mass)
	}
	if inertia.X <= 0 || inertia.Y <= 0 || inertia.Z <= 0 {
		return nil, fmt.Errorf("%w: inertia must be positive on all axes, got %+v", ErrInvalidBody, inertia)
	}
	return &Body{
		Orientation:    core.IdentityQuat,
		mass:           mass,
		invMass:        1 / mass,
		invInertiaBody: core.Vec3{X: 1 / inertia.X, Y: 1 / inertia.Y, Z: 1 / inertia.Z},
	}, nil
}

// Mass returns the body mass in kg.
func (b *Body) Mass() float64 { return b.mass }

// ApplyForce adds a world-space force through the center of mass.
func (b *Body) ApplyForce(f core.Vec3) {
	b.forceAccum = b.forceAccum.Add(f)
}

// ApplyTorque adds a world-space torque.
func (b *Body) ApplyTorque(t core.Vec3) {
	b.torqueAccum = b.torqueAccum.Add(t)
}

// ApplyForceAt adds a world-space force acting at a world point, producing
// torque about the center of mass.
func (b *Body) ApplyForceAt(f, point core.Vec3) {
	b.ApplyForce(f)
	b.ApplyTorque(point.Sub(b.Position).Cross(f))
}

// Integrate advances the body by dt and clears the accumulators. Gravity is
// applied here, not by callers.
func (b *Body) Integrate(dt float64) {
	if dt <= 0 {
		return
	}

	accel := b.forceAccum.Scale(b.invMass).Add(Gravity)
	b.LinearVelocity = b.LinearVelocity.Add(accel.Scale(dt))

	// torque into body space, scale by inverse inertia, back to world
	q := b.Orientation.Normalized()
	localTorque := q.Conjugate().Rotate(b.torqueAccum)
	localAngAccel := core.Vec3{
		X: localTorque.X * b.invInertiaBody.X,
		Y: localTorque.Y * b.invInertiaBody.Y,
		Z: localTorque.Z * b.invInertiaBody.Z,
	}
	b.AngularVelocity = b.AngularVelocity.Add(q.Rotate(localAngAccel).Scale(dt))

	if b.LinearDamping > 0 {
		b.LinearVelocity = b.LinearVelocity.Scale(max(0, 1-b.LinearDamping*dt))
	}
	if b.AngularDamping > 0 {
		b.AngularVelocity = b.AngularVelocity.Scale(max(0, 1-b.AngularDamping*dt))
	}

	b.Position = b.Position.Add(b.LinearVelocity.Scale(dt))
	b.Orientation = b.Orientation.Integrate(b.AngularVelocity, dt).Normalized()

	b.forceAccum = core.Zero3
	b.torqueAccum = core.Zero3
}

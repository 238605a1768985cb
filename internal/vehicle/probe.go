// internal/vehicle/probe.go
package vehicle

import "github.com/sandk/offroad-dynamics/pkg/core"

// Raycaster is the collision service the suspension probes against. The
// rigid-body engine owns broad-phase and constraint solving; this core only
// asks it where the ground is.
type Raycaster interface {
	// CastRay traces from origin along direction (unit length) up to
	// maxDistance and reports the nearest surface hit. ok is false when
	// nothing is hit within range.
	CastRay(origin, direction core.Vec3, maxDistance float64) (hit core.RayHit, ok bool)
}

// GroundProbe finds the ground contact under one wheel mount. A nil or
// unavailable collision service reads as airborne, never as an error.
type GroundProbe struct {
	Caster Raycaster
}

// Probe casts down the suspension axis from the wheel mount. maxDistance
// should be suspension max length plus wheel radius so a fully extended
// strut still finds its contact patch.
func (p GroundProbe) Probe(origin, down core.Vec3, maxDistance float64) (core.RayHit, bool) {
	if p.Caster == nil {
		return core.RayHit{}, false
	}
	hit, ok := p.Caster.CastRay(origin, down, maxDistance)
	if !ok {
		return core.RayHit{}, false
	}
	if hit.Distance < 0 || hit.Distance > maxDistance || !hit.Point.IsFinite() {
		return core.RayHit{}, false
	}
	if hit.Friction < 0 {
		hit.Friction = 0
	}
	return hit, true
}

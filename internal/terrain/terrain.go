// Package terrain provides the ground model the physics core probes against:
// a heightfield for elevation and polygonal zones for surface friction.
package terrain

import (
	"math"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

const (
	// bisection passes after the march brackets the surface
	refineSteps = 24
	// march step as a fraction of the grid cell
	marchFraction = 0.5
)

// Terrain couples a heightfield with friction zones. It satisfies the
// physics core's raycaster contract.
type Terrain struct {
	field           *Heightfield
	zones           []Zone
	defaultFriction float64
}

// New builds a terrain over the given heightfield. Zones are checked in
// order; the first zone containing a point wins.
func New(field *Heightfield, defaultFriction float64, zones ...Zone) *Terrain {
	return &Terrain{
		field:           field,
		zones:           zones,
		defaultFriction: defaultFriction,
	}
}

// Field returns the underlying heightfield.
func (t *Terrain) Field() *Heightfield { return t.field }

// FrictionAt returns the surface friction at a world X/Z point.
func (t *Terrain) FrictionAt(x, z float64) float64 {
	for i := range t.zones {
		if t.zones[i].Contains(x, z) {
			return t.zones[i].Friction
		}
	}
	return t.defaultFriction
}

// CastRay marches the ray against the heightfield and returns the first
// surface crossing within maxDistance. An origin already below the surface
// hits at distance zero.
func (t *Terrain) CastRay(origin, direction core.Vec3, maxDistance float64) (core.RayHit, bool) {
	if maxDistance <= 0 || direction.LengthSq() == 0 {
		return core.RayHit{}, false
	}
	dir := direction.Normalized()

	above := func(dist float64) float64 {
		p := origin.Add(dir.Scale(dist))
		return p.Y - t.field.HeightAt(p.X, p.Z)
	}

	prev := 0.0
	if above(0) <= 0 {
		return t.hitAt(origin, dir, 0), true
	}

	step := t.field.cellSize * marchFraction
	if step > maxDistance {
		step = maxDistance
	}

	for dist := step; ; dist += step {
		if dist > maxDistance {
			dist = maxDistance
		}
		val := above(dist)
		if val <= 0 {
			// bracket found, refine by bisection
			lo, hi := prev, dist
			for i := 0; i < refineSteps; i++ {
				mid := (lo + hi) / 2
				if above(mid) > 0 {
					lo = mid
				} else {
					hi = mid
				}
			}
			return t.hitAt(origin, dir, hi), true
		}
		if dist >= maxDistance {
			return core.RayHit{}, false
		}
		prev = dist
	}
}

func (t *Terrain) hitAt(origin, dir core.Vec3, dist float64) core.RayHit {
	p := origin.Add(dir.Scale(dist))
	surface := core.Vec3{X: p.X, Y: t.field.HeightAt(p.X, p.Z), Z: p.Z}
	return core.RayHit{
		Point:    surface,
		Normal:   t.field.NormalAt(p.X, p.Z),
		Distance: dist,
		Friction: t.FrictionAt(p.X, p.Z),
	}
}

// Slope returns the terrain gradient angle in radians at a world X/Z point.
func (t *Terrain) Slope(x, z float64) float64 {
	n := t.field.NormalAt(x, z)
	return math.Acos(core.Clamp(n.Y, -1, 1))
}

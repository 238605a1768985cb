package terrain

import (
	"errors"
	"fmt"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// ErrInvalidHeightfield is returned when the grid dimensions and sample
// count disagree.
var ErrInvalidHeightfield = errors.New("invalid heightfield")

// Heightfield is a regular grid of terrain elevations. X/Z are the ground
// plane axes, Y is elevation. Sampling outside the grid clamps to the edge
// so vehicles near the map border still find ground.
type Heightfield struct {
	originX  float64
	originZ  float64
	cellSize float64
	cols     int // samples along X
	rows     int // samples along Z
	heights  []float64
}

// NewHeightfield builds a grid from row-major samples (Z rows of X columns).
func NewHeightfield(origin core.Vec3, cellSize float64, cols, rows int, heights []float64) (*Heightfield, error) {
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("%w: need at least a 2x2 grid, got %dx%d", ErrInvalidHeightfield, cols, rows)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("%w: cell size must be positive, got %f", ErrInvalidHeightfield, cellSize)
	}
	if len(heights) != cols*rows {
		return nil, fmt.Errorf("%w: expected %d samples, got %d", ErrInvalidHeightfield, cols*rows, len(heights))
	}
	return &Heightfield{
		originX:  origin.X,
		originZ:  origin.Z,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		heights:  heights,
	}, nil
}

// NewFlat builds a uniform plane at the given elevation covering the same
// extent as a cols x rows grid.
func NewFlat(origin core.Vec3, cellSize float64, cols, rows int, elevation float64) (*Heightfield, error) {
	heights := make([]float64, cols*rows)
	for i := range heights {
		heights[i] = elevation
	}
	return NewHeightfield(origin, cellSize, cols, rows, heights)
}

// CellSize returns the grid spacing in meters.
func (h *Heightfield) CellSize() float64 { return h.cellSize }

func (h *Heightfield) sample(col, row int) float64 {
	if col < 0 {
		col = 0
	} else if col >= h.cols {
		col = h.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= h.rows {
		row = h.rows - 1
	}
	return h.heights[row*h.cols+col]
}

// HeightAt returns the bilinearly interpolated elevation at a world X/Z.
func (h *Heightfield) HeightAt(x, z float64) float64 {
	fx := (x - h.originX) / h.cellSize
	fz := (z - h.originZ) / h.cellSize

	col := int(fx)
	row := int(fz)
	if fx < 0 {
		col--
	}
	if fz < 0 {
		row--
	}
	tx := fx - float64(col)
	tz := fz - float64(row)
	tx = core.Clamp(tx, 0, 1)
	tz = core.Clamp(tz, 0, 1)

	h00 := h.sample(col, row)
	h10 := h.sample(col+1, row)
	h01 := h.sample(col, row+1)
	h11 := h.sample(col+1, row+1)

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

// NormalAt returns the outward surface normal via central differences.
func (h *Heightfield) NormalAt(x, z float64) core.Vec3 {
	d := h.cellSize * 0.5
	dx := (h.HeightAt(x+d, z) - h.HeightAt(x-d, z)) / (2 * d)
	dz := (h.HeightAt(x, z+d) - h.HeightAt(x, z-d)) / (2 * d)
	return core.Vec3{X: -dx, Y: 1, Z: -dz}.Normalized()
}

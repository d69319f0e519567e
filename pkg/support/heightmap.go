package support

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/xiechao06/pyslm/pkg/mesh"
)

// NoHit marks a height-map cell whose downward ray misses the mesh.
var NoHit = math.Inf(-1)

// Grid describes a regular XY sampling lattice. Cell (ix, iy) is centered at
// (MinX + (ix+0.5)*Res, MinY + (iy+0.5)*Res).
type Grid struct {
	MinX, MinY float64
	Res        float64
	NX, NY     int
}

// GridForBounds builds a grid covering the XY footprint of the given bounds,
// padded by one cell on every side.
func GridForBounds(min, max mesh.Vec3, res float64) Grid {
	nx := int(math.Ceil((max.X-min.X)/res)) + 2
	ny := int(math.Ceil((max.Y-min.Y)/res)) + 2
	return Grid{
		MinX: min.X - res,
		MinY: min.Y - res,
		Res:  res,
		NX:   nx,
		NY:   ny,
	}
}

// CellCenter returns the world coordinates of the center of cell (ix, iy).
func (g Grid) CellCenter(ix, iy int) (x, y float64) {
	return g.MinX + (float64(ix)+0.5)*g.Res, g.MinY + (float64(iy)+0.5)*g.Res
}

// CellAt returns the cell containing world point (x, y) and whether it lies
// on the grid.
func (g Grid) CellAt(x, y float64) (ix, iy int, ok bool) {
	ix = int(math.Floor((x - g.MinX) / g.Res))
	iy = int(math.Floor((y - g.MinY) / g.Res))
	return ix, iy, ix >= 0 && ix < g.NX && iy >= 0 && iy < g.NY
}

// HeightMap is a sampled height field over a grid: per cell, the mesh Z hit
// by that cell's vertical ray, or NoHit.
type HeightMap struct {
	Grid
	Z []float64
}

// At returns the sampled height of cell (ix, iy).
func (h *HeightMap) At(ix, iy int) float64 {
	return h.Z[iy*h.NX+ix]
}

// Hit reports whether the ray through cell (ix, iy) hit the mesh.
func (h *HeightMap) Hit(ix, iy int) bool {
	return !math.IsInf(h.At(ix, iy), -1)
}

// Sample returns the height at world point (x, y) and whether the covering
// cell recorded a hit.
func (h *HeightMap) Sample(x, y float64) (float64, bool) {
	ix, iy, ok := h.CellAt(x, y)
	if !ok {
		return NoHit, false
	}
	z := h.At(ix, iy)
	return z, !math.IsInf(z, -1)
}

// SampleNearest returns the height at (x, y), falling back to the nearest
// hit cell within maxCells rings when the covering cell has no hit. Used for
// footprint locations whose ray passes beside the overhang surface samples.
func (h *HeightMap) SampleNearest(x, y float64, maxCells int) (float64, bool) {
	ix, iy, ok := h.CellAt(x, y)
	if !ok {
		// Clamp off-grid queries to the border cell.
		ix = clampInt(ix, 0, h.NX-1)
		iy = clampInt(iy, 0, h.NY-1)
	}
	if h.Hit(ix, iy) {
		return h.At(ix, iy), true
	}
	for r := 1; r <= maxCells; r++ {
		best := NoHit
		found := false
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if maxAbs(dx, dy) != r {
					continue // ring cells only
				}
				cx, cy := ix+dx, iy+dy
				if cx < 0 || cx >= h.NX || cy < 0 || cy >= h.NY {
					continue
				}
				if h.Hit(cx, cy) {
					z := h.At(cx, cy)
					if !found || z < best {
						best = z
						found = true
					}
				}
			}
		}
		if found {
			return best, true
		}
	}
	return NoHit, false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

// ProjectHeightMap casts a downward ray per grid cell over the part's XY
// bounding footprint and records the topmost mesh intersection. Cell rays
// are independent; rows are processed concurrently.
func ProjectHeightMap(m *mesh.Mesh, resolution float64) (*HeightMap, error) {
	if m == nil || m.IsEmpty() {
		return nil, &InputError{Reason: "empty mesh"}
	}
	if resolution <= 0 {
		return nil, &ConfigurationError{Param: "ray-resolution", Reason: "must be positive"}
	}
	min, max := m.Bounds()
	g := GridForBounds(min, max, resolution)
	return projectOnto(m, g, false), nil
}

// projectOnto rasterizes the mesh onto the grid. With lowest, each cell
// keeps the lowest intersection (the underside of the surface); otherwise
// the topmost. Each cell is written by exactly one row worker.
func projectOnto(m *mesh.Mesh, g Grid, lowest bool) *HeightMap {
	h := &HeightMap{Grid: g, Z: make([]float64, g.NX*g.NY)}
	for i := range h.Z {
		h.Z[i] = NoHit
	}

	// Bucket triangles by the grid rows their bounding box spans so each
	// row worker only visits candidate triangles.
	rows := make([][]int, g.NY)
	type triBound struct{ x0, x1 float64 }
	for ti := range m.Triangles {
		t := m.Triangles[ti]
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		minY := math.Min(a.Y, math.Min(b.Y, c.Y))
		maxY := math.Max(a.Y, math.Max(b.Y, c.Y))
		y0 := clampInt(int(math.Floor((minY-g.MinY)/g.Res-0.5)), 0, g.NY-1)
		y1 := clampInt(int(math.Ceil((maxY-g.MinY)/g.Res)), 0, g.NY-1)
		for iy := y0; iy <= y1; iy++ {
			rows[iy] = append(rows[iy], ti)
		}
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for iy := 0; iy < g.NY; iy++ {
		iy := iy
		if len(rows[iy]) == 0 {
			continue
		}
		eg.Go(func() error {
			for _, ti := range rows[iy] {
				t := m.Triangles[ti]
				a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
				minX := math.Min(a.X, math.Min(b.X, c.X))
				maxX := math.Max(a.X, math.Max(b.X, c.X))
				x0 := clampInt(int(math.Floor((minX-g.MinX)/g.Res-0.5)), 0, g.NX-1)
				x1 := clampInt(int(math.Ceil((maxX-g.MinX)/g.Res)), 0, g.NX-1)
				for ix := x0; ix <= x1; ix++ {
					px, py := g.CellCenter(ix, iy)
					z, ok := triangleHeightAt(a, b, c, px, py)
					if !ok {
						continue
					}
					idx := iy*g.NX + ix
					cur := h.Z[idx]
					if math.IsInf(cur, -1) ||
						(lowest && z < cur) || (!lowest && z > cur) {
						h.Z[idx] = z
					}
				}
			}
			return nil
		})
	}
	_ = eg.Wait() // workers never fail; the group provides the limit and join
	return h
}

// triangleHeightAt intersects the vertical ray at (px, py) with the plane of
// triangle abc, reporting the hit Z when the point lies within the
// triangle's XY projection.
func triangleHeightAt(a, b, c mesh.Vec3, px, py float64) (float64, bool) {
	d := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if math.Abs(d) < 1e-15 {
		return 0, false // vertical triangle, projects to a line
	}
	l1 := ((b.Y-c.Y)*(px-c.X) + (c.X-b.X)*(py-c.Y)) / d
	l2 := ((c.Y-a.Y)*(px-c.X) + (a.X-c.X)*(py-c.Y)) / d
	l3 := 1 - l1 - l2
	const eps = -1e-12
	if l1 < eps || l2 < eps || l3 < eps {
		return 0, false
	}
	return l1*a.Z + l2*b.Z + l3*c.Z, true
}

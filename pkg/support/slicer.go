package support

import (
	"math"
	"sort"

	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/polygon"
)

// chainTol is the coordinate quantum used when chaining slice segments into
// loops.
const chainTol = 1e-6

// ContourGeometry is one closed boundary loop of a planar cross-section.
// Exterior loops wind counter-clockwise, holes clockwise, so callers can
// tell fill regions from holes without re-deriving orientation.
type ContourGeometry struct {
	// RegionID tags contours sliced from a support block; -1 for contours
	// of other solids such as the part itself.
	RegionID int
	Points   []polygon.Point
}

// Loop returns the contour as a polygon loop.
func (c ContourGeometry) Loop() polygon.Loop { return polygon.Loop(c.Points) }

// Layer owns the ordered contours produced for one slice height. Layers are
// immutable once produced.
type Layer struct {
	Z        float64
	Contours []ContourGeometry
}

// Slice intersects the solid's boundary with the horizontal plane at z.
// It returns one closed loop per boundary ring, largest first, or nothing
// when z lies outside the solid's Z extent.
func Slice(m *mesh.Mesh, z float64) []ContourGeometry {
	if m == nil || m.IsEmpty() {
		return nil
	}
	min, max := m.Bounds()
	if z <= min.Z || z >= max.Z {
		return nil
	}

	type qkey struct{ x, y int64 }
	quant := func(p polygon.Point) qkey {
		return qkey{int64(math.Round(p.X / chainTol)), int64(math.Round(p.Y / chainTol))}
	}

	// Collect one segment per triangle crossing the plane. Vertices lying
	// exactly on the plane are nudged to one side so every crossing
	// produces exactly two edge intersections.
	type segment struct {
		a, b polygon.Point
		used bool
	}
	var segs []segment
	side := func(vz float64) float64 {
		d := vz - z
		if d == 0 {
			return 1e-12
		}
		return d
	}
	for _, t := range m.Triangles {
		var pts []polygon.Point
		for e := 0; e < 3; e++ {
			v0 := m.Vertices[t[e]]
			v1 := m.Vertices[t[(e+1)%3]]
			d0, d1 := side(v0.Z), side(v1.Z)
			if (d0 > 0) == (d1 > 0) {
				continue
			}
			f := d0 / (d0 - d1)
			pts = append(pts, polygon.Point{
				X: v0.X + (v1.X-v0.X)*f,
				Y: v0.Y + (v1.Y-v0.Y)*f,
			})
		}
		if len(pts) == 2 && quant(pts[0]) != quant(pts[1]) {
			segs = append(segs, segment{a: pts[0], b: pts[1]})
		}
	}
	if len(segs) == 0 {
		return nil
	}

	// Chain segments into closed loops by their quantized endpoints.
	type end struct {
		seg   int
		entry int // 0 = a, 1 = b
	}
	adj := make(map[qkey][]end, len(segs)*2)
	for i, s := range segs {
		adj[quant(s.a)] = append(adj[quant(s.a)], end{i, 0})
		adj[quant(s.b)] = append(adj[quant(s.b)], end{i, 1})
	}
	takeAt := func(k qkey, skip int) (int, polygon.Point, bool) {
		for _, e := range adj[k] {
			if e.seg == skip || segs[e.seg].used {
				continue
			}
			segs[e.seg].used = true
			if e.entry == 0 {
				return e.seg, segs[e.seg].b, true
			}
			return e.seg, segs[e.seg].a, true
		}
		return 0, polygon.Point{}, false
	}

	var loops []polygon.Loop
	for i := range segs {
		if segs[i].used {
			continue
		}
		segs[i].used = true
		pts := polygon.Loop{segs[i].a, segs[i].b}
		start := quant(segs[i].a)
		cur := quant(segs[i].b)
		last := i
		closed := false
		for {
			if cur == start {
				closed = true
				break
			}
			next, p, ok := takeAt(cur, last)
			if !ok {
				break // open chain from a mesh defect, discard
			}
			pts = append(pts, p)
			cur = quant(p)
			last = next
		}
		if !closed || len(pts) < 3 {
			continue
		}
		// Drop the duplicated closing point if present.
		if quant(pts[0]) == quant(pts[len(pts)-1]) {
			pts = pts[:len(pts)-1]
		}
		if len(pts) >= 3 && pts.Area() > chainTol {
			loops = append(loops, pts)
		}
	}

	// Fix winding from nesting parity: even depth rings are exteriors.
	out := make([]ContourGeometry, 0, len(loops))
	for i, l := range loops {
		depth := 0
		for j, other := range loops {
			if i != j && other.Contains(l[0]) {
				depth++
			}
		}
		wantCCW := depth%2 == 0
		if l.IsCCW() != wantCCW {
			l = l.Reversed()
		}
		out = append(out, ContourGeometry{RegionID: -1, Points: l})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := polygon.Loop(out[i].Points).Area(), polygon.Loop(out[j].Points).Area()
		if ai != aj {
			return ai > aj
		}
		pi, pj := out[i].Points[0], out[j].Points[0]
		if pi.X != pj.X {
			return pi.X < pj.X
		}
		return pi.Y < pj.Y
	})
	return out
}

// SliceBlocks slices every support block at z and assembles a layer, block
// contours tagged with their region ids and kept in region order.
func SliceBlocks(blocks []*SupportBlock, z float64) *Layer {
	layer := &Layer{Z: z}
	for _, blk := range blocks {
		for _, c := range Slice(blk.Volume, z) {
			c.RegionID = blk.RegionID
			layer.Contours = append(layer.Contours, c)
		}
	}
	return layer
}

package polygon

import (
	"fmt"
	"math"
	"sort"
)

// Triangle2 is a filled triangle in the plane.
type Triangle2 [3]Point

// Triangulate decomposes the polygon into triangles by ear clipping.
// Holes are first bridged into the exterior loop through mutually visible
// vertex pairs, then the resulting weakly simple loop is clipped.
func Triangulate(p Polygon) ([]Triangle2, error) {
	p = p.Normalized()
	if len(p.Outer) < 3 {
		return nil, fmt.Errorf("polygon: outer loop has %d points", len(p.Outer))
	}
	merged, err := bridgeHoles(p.Outer, p.Holes)
	if err != nil {
		return nil, err
	}
	return earClip(merged)
}

// bridgeHoles splices every hole into the outer loop via a bridge edge to a
// visible outer vertex. Holes are processed right-to-left so already spliced
// holes participate in later visibility tests.
func bridgeHoles(outer Loop, holes []Loop) (Loop, error) {
	if len(holes) == 0 {
		return outer, nil
	}
	sorted := make([]Loop, len(holes))
	copy(sorted, holes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return maxX(sorted[i]) > maxX(sorted[j])
	})

	merged := append(Loop{}, outer...)
	for _, hole := range sorted {
		if len(hole) < 3 {
			continue
		}
		hi := maxXIndex(hole)
		vi, ok := visibleVertex(merged, hole, hole[hi])
		if !ok {
			return nil, fmt.Errorf("polygon: no visible bridge vertex for hole at (%.3f, %.3f)", hole[hi].X, hole[hi].Y)
		}
		merged = splice(merged, vi, hole, hi)
	}
	return merged, nil
}

func maxX(l Loop) float64 {
	m := math.Inf(-1)
	for _, p := range l {
		m = math.Max(m, p.X)
	}
	return m
}

func maxXIndex(l Loop) int {
	idx := 0
	for i, p := range l {
		if p.X > l[idx].X {
			idx = i
		}
	}
	return idx
}

// visibleVertex finds the merged-loop vertex closest to m whose connecting
// segment crosses no edge of the merged loop.
func visibleVertex(merged Loop, hole Loop, m Point) (int, bool) {
	type cand struct {
		idx  int
		dist float64
	}
	cands := make([]cand, 0, len(merged))
	for i, v := range merged {
		cands = append(cands, cand{i, m.Dist(v)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].idx < cands[j].idx
	})

	blocked := func(v Point) bool {
		for i := range merged {
			a, b := merged[i], merged[(i+1)%len(merged)]
			if a == v || b == v {
				continue
			}
			if segmentsIntersect(m, v, a, b) {
				return true
			}
		}
		for i := range hole {
			a, b := hole[i], hole[(i+1)%len(hole)]
			if a == m || b == m {
				continue
			}
			if segmentsIntersect(m, v, a, b) {
				return true
			}
		}
		return false
	}
	for _, c := range cands {
		if merged[c.idx] == m {
			continue
		}
		if !blocked(merged[c.idx]) {
			return c.idx, true
		}
	}
	return 0, false
}

// splice inserts the hole (starting at hole index hi) into the merged loop
// after vertex vi, duplicating both bridge endpoints.
func splice(merged Loop, vi int, hole Loop, hi int) Loop {
	out := make(Loop, 0, len(merged)+len(hole)+2)
	out = append(out, merged[:vi+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(hi+k)%len(hole)])
	}
	out = append(out, merged[vi:]...)
	return out
}

// earClip triangulates a weakly simple CCW loop.
func earClip(l Loop) ([]Triangle2, error) {
	n := len(l)
	if n < 3 {
		return nil, fmt.Errorf("polygon: cannot triangulate %d points", n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	var tris []Triangle2
	guard := 0
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			prev := idx[(i-1+len(idx))%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if isEar(l, idx, prev, cur, next) {
				tris = append(tris, Triangle2{l[prev], l[cur], l[next]})
				idx = append(idx[:i], idx[i+1:]...)
				clipped = true
				break
			}
		}
		if !clipped {
			// Numeric stalemate on near-degenerate input: clip the most
			// convex remaining corner whose diagonal stays clear, so the
			// pass terminates without cutting across boundary vertices.
			best := -1
			bestArea := 0.0
			for i := 0; i < len(idx); i++ {
				prev := idx[(i-1+len(idx))%len(idx)]
				cur := idx[i]
				next := idx[(i+1)%len(idx)]
				a := cross(l[prev], l[cur], l[next])
				if a > bestArea && !diagonalBlocked(l, idx, l[prev], l[cur], l[next]) {
					bestArea = a
					best = i
				}
			}
			if best < 0 {
				return nil, fmt.Errorf("polygon: ear clipping failed with %d vertices left", len(idx))
			}
			prev := idx[(best-1+len(idx))%len(idx)]
			cur := idx[best]
			next := idx[(best+1)%len(idx)]
			tris = append(tris, Triangle2{l[prev], l[cur], l[next]})
			idx = append(idx[:best], idx[best+1:]...)
		}
		guard++
		if guard > n*n {
			return nil, fmt.Errorf("polygon: ear clipping did not terminate")
		}
	}
	tris = append(tris, Triangle2{l[idx[0]], l[idx[1]], l[idx[2]]})
	return tris, nil
}

// isEar reports whether the corner (prev, cur, next) is convex, contains no
// other active vertex, and its diagonal does not cut across one. Boundary
// loops carry collinear run points (wall subdivision vertices); an ear whose
// diagonal passed through one would orphan it from the cap.
func isEar(l Loop, idx []int, prev, cur, next int) bool {
	a, b, c := l[prev], l[cur], l[next]
	if cross(a, b, c) <= 1e-12 {
		return false
	}
	for _, vi := range idx {
		if vi == prev || vi == cur || vi == next {
			continue
		}
		p := l[vi]
		if p == a || p == b || p == c {
			continue // duplicated bridge vertex
		}
		if pointInTriangle(p, a, b, c) {
			return false
		}
		if onSegment(a, c, p) {
			return false
		}
	}
	return true
}

// diagonalBlocked reports whether any active vertex lies on the open
// diagonal a-c of a candidate ear.
func diagonalBlocked(l Loop, idx []int, a, b, c Point) bool {
	for _, vi := range idx {
		p := l[vi]
		if p == a || p == b || p == c {
			continue
		}
		if onSegment(a, c, p) {
			return true
		}
	}
	return false
}

// onSegment reports whether p lies on the open segment ab.
func onSegment(a, b, p Point) bool {
	if math.Abs(cross(a, b, p)) > 1e-9 {
		return false
	}
	dot := (p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)
	if dot <= 0 {
		return false
	}
	return dot < (b.X-a.X)*(b.X-a.X)+(b.Y-a.Y)*(b.Y-a.Y)
}

// pointInTriangle reports whether p lies strictly inside triangle abc (CCW).
func pointInTriangle(p, a, b, c Point) bool {
	return cross(a, b, p) > 0 && cross(b, c, p) > 0 && cross(c, a, p) > 0
}

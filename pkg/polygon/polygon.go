// Package polygon provides the 2D boundary arithmetic used when deriving
// support footprints: signed area and winding, containment, per-vertex
// offsetting, Douglas-Peucker simplification, spline smoothing, and
// ear-clipping triangulation with holes.
//
// Convention: x increases to the right, y up the page. Exterior loops are
// counter-clockwise (positive signed area), holes clockwise.
package polygon

import (
	"math"
)

// Point is a 2D coordinate.
type Point struct {
	X, Y float64
}

// Add returns a + b.
func (a Point) Add(b Point) Point { return Point{a.X + b.X, a.Y + b.Y} }

// Sub returns a - b.
func (a Point) Sub(b Point) Point { return Point{a.X - b.X, a.Y - b.Y} }

// Scale returns a scaled by s.
func (a Point) Scale(s float64) Point { return Point{a.X * s, a.Y * s} }

// Dist returns the Euclidean distance between a and b.
func (a Point) Dist(b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Loop is a closed boundary; the edge from the last point back to the first
// is implicit.
type Loop []Point

// SignedArea returns the shoelace area: positive for counter-clockwise loops.
func (l Loop) SignedArea() float64 {
	if len(l) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range l {
		q := l[(i+1)%len(l)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area.
func (l Loop) Area() float64 { return math.Abs(l.SignedArea()) }

// IsCCW reports whether the loop winds counter-clockwise.
func (l Loop) IsCCW() bool { return l.SignedArea() > 0 }

// Reversed returns a copy of the loop with opposite winding.
func (l Loop) Reversed() Loop {
	out := make(Loop, len(l))
	for i, p := range l {
		out[len(l)-1-i] = p
	}
	return out
}

// Perimeter returns the total boundary length.
func (l Loop) Perimeter() float64 {
	sum := 0.0
	for i, p := range l {
		sum += p.Dist(l[(i+1)%len(l)])
	}
	return sum
}

// Contains reports whether p lies inside the loop (even-odd rule).
// Points exactly on the boundary are not reliably classified.
func (l Loop) Contains(p Point) bool {
	inside := false
	for i, a := range l {
		b := l[(i+1)%len(l)]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// segmentsIntersect reports proper or improper intersection of segments
// (p1,p2) and (p3,p4), excluding shared endpoints.
func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

// IsSimple reports whether no two non-adjacent edges of the loop intersect.
func (l Loop) IsSimple() bool {
	n := len(l)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := l[i], l[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges, they always share a vertex.
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			if segmentsIntersect(a1, a2, l[j], l[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}

// VertexNormals returns the outward unit normal at each vertex, the
// normalized average of the two adjacent edge normals. The loop's winding
// determines which side counts as outward.
func (l Loop) VertexNormals() []Point {
	n := len(l)
	out := make([]Point, n)
	sign := 1.0
	if !l.IsCCW() {
		sign = -1.0
	}
	edgeNormal := func(a, b Point) Point {
		d := b.Sub(a)
		m := math.Hypot(d.X, d.Y)
		if m == 0 {
			return Point{}
		}
		// For a CCW loop the outward normal of edge (dx,dy) is (dy,-dx).
		return Point{sign * d.Y / m, sign * -d.X / m}
	}
	for i := range l {
		prev := l[(i-1+n)%n]
		next := l[(i+1)%n]
		sum := edgeNormal(prev, l[i]).Add(edgeNormal(l[i], next))
		m := math.Hypot(sum.X, sum.Y)
		if m == 0 {
			out[i] = edgeNormal(l[i], next)
			continue
		}
		out[i] = sum.Scale(1 / m)
	}
	return out
}

// Offset displaces every vertex outward by dist (inward when negative).
func (l Loop) Offset(dist float64) Loop {
	dists := make([]float64, len(l))
	for i := range dists {
		dists[i] = dist
	}
	return l.OffsetPerVertex(dists)
}

// OffsetPerVertex displaces each vertex along its outward normal by its own
// distance. Callers supply negative distances to inset individual vertices.
func (l Loop) OffsetPerVertex(dists []float64) Loop {
	normals := l.VertexNormals()
	out := make(Loop, len(l))
	for i, p := range l {
		out[i] = p.Add(normals[i].Scale(dists[i]))
	}
	return out
}

// perpendicularDistance returns the distance from p to the line through a, b.
func perpendicularDistance(p, a, b Point) float64 {
	d := b.Sub(a)
	m := math.Hypot(d.X, d.Y)
	if m == 0 {
		return p.Dist(a)
	}
	return math.Abs(cross(a, b, p)) / m
}

// Simplify reduces the loop with a closed-form Douglas-Peucker pass: the
// loop is split at its two mutually farthest anchor points and each open
// chain is simplified with the given tolerance.
func (l Loop) Simplify(tol float64) Loop {
	n := len(l)
	if n <= 4 || tol <= 0 {
		return l
	}
	// Anchor 0 is arbitrary; anchor 1 is the point farthest from it.
	far := 1
	maxD := 0.0
	for i := 1; i < n; i++ {
		if d := l[0].Dist(l[i]); d > maxD {
			maxD = d
			far = i
		}
	}
	first := douglasPeucker(append(Loop{}, l[:far+1]...), tol)
	second := douglasPeucker(append(append(Loop{}, l[far:]...), l[0]), tol)
	out := append(Loop{}, first...)
	if len(second) > 2 {
		out = append(out, second[1:len(second)-1]...)
	}
	if len(out) < 3 {
		return l
	}
	return out
}

// douglasPeucker simplifies an open polyline, keeping both endpoints.
func douglasPeucker(pts Loop, tol float64) Loop {
	if len(pts) < 3 {
		return pts
	}
	maxD := 0.0
	idx := 0
	last := len(pts) - 1
	for i := 1; i < last; i++ {
		if d := perpendicularDistance(pts[i], pts[0], pts[last]); d > maxD {
			maxD = d
			idx = i
		}
	}
	if maxD <= tol {
		return Loop{pts[0], pts[last]}
	}
	left := douglasPeucker(pts[:idx+1], tol)
	right := douglasPeucker(pts[idx:], tol)
	return append(left[:len(left)-1], right...)
}

// Resample returns the loop re-sampled to n points spaced evenly by arc
// length, starting at the first vertex.
func (l Loop) Resample(n int) Loop {
	if n < 3 || len(l) < 3 {
		return l
	}
	per := l.Perimeter()
	if per == 0 {
		return l
	}
	step := per / float64(n)
	out := make(Loop, 0, n)
	acc := 0.0
	target := 0.0
	for i := 0; i < len(l) && len(out) < n; i++ {
		a := l[i]
		b := l[(i+1)%len(l)]
		seg := a.Dist(b)
		for target <= acc+seg && len(out) < n {
			t := 0.0
			if seg > 0 {
				t = (target - acc) / seg
			}
			out = append(out, Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t})
			target += step
		}
		acc += seg
	}
	return out
}

// Smooth fits a closed Catmull-Rom spline through the loop's points and
// samples it back at roughly the given spacing. The input points act as
// control points, so the result interpolates them.
func (l Loop) Smooth(spacing float64) Loop {
	n := len(l)
	if n < 4 || spacing <= 0 {
		return l
	}
	samplesPerSeg := func(a, b Point) int {
		s := int(math.Ceil(a.Dist(b) / spacing))
		if s < 1 {
			s = 1
		}
		return s
	}
	var out Loop
	for i := 0; i < n; i++ {
		p0 := l[(i-1+n)%n]
		p1 := l[i]
		p2 := l[(i+1)%n]
		p3 := l[(i+2)%n]
		segs := samplesPerSeg(p1, p2)
		for s := 0; s < segs; s++ {
			t := float64(s) / float64(segs)
			out = append(out, catmullRom(p0, p1, p2, p3, t))
		}
	}
	return out
}

// catmullRom evaluates the uniform Catmull-Rom segment p1..p2 at t.
func catmullRom(p0, p1, p2, p3 Point, t float64) Point {
	t2 := t * t
	t3 := t2 * t
	f := func(a0, a1, a2, a3 float64) float64 {
		return 0.5 * ((2 * a1) +
			(-a0+a2)*t +
			(2*a0-5*a1+4*a2-a3)*t2 +
			(-a0+3*a1-3*a2+a3)*t3)
	}
	return Point{
		X: f(p0.X, p1.X, p2.X, p3.X),
		Y: f(p0.Y, p1.Y, p2.Y, p3.Y),
	}
}

// Polygon is an exterior loop with zero or more interior holes.
type Polygon struct {
	Outer Loop
	Holes []Loop
}

// Area returns the outer area minus the hole areas, clamped at zero.
func (p Polygon) Area() float64 {
	a := p.Outer.Area()
	for _, h := range p.Holes {
		a -= h.Area()
	}
	return math.Max(a, 0)
}

// Normalized returns a copy with canonical winding: outer CCW, holes CW.
func (p Polygon) Normalized() Polygon {
	out := Polygon{Outer: p.Outer}
	if !p.Outer.IsCCW() {
		out.Outer = p.Outer.Reversed()
	}
	for _, h := range p.Holes {
		if h.IsCCW() {
			h = h.Reversed()
		}
		out.Holes = append(out.Holes, h)
	}
	return out
}

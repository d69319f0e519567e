// Package mesh provides an indexed triangle mesh, the derived quantities
// the support pipeline needs (normals, bounds, adjacency), and STL
// encoding/decoding. Meshes use shared vertices so that edge adjacency
// is well defined.
package mesh

import (
	"math"
)

// Vec3 is a 3D vector or point in mesh units (mm).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Scale returns a scaled by s.
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

// Dot returns the dot product of a and b.
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Cross returns the cross product of a and b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Length returns the Euclidean length of a.
func (a Vec3) Length() float64 { return math.Sqrt(a.Dot(a)) }

// Normalized returns a unit-length copy of a, or the zero vector when a is
// degenerate.
func (a Vec3) Normalized() Vec3 {
	l := a.Length()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// Triangle indexes three vertices of a mesh, counter-clockwise when viewed
// from outside the solid.
type Triangle [3]int

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices  []Vec3
	Triangles []Triangle
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Triangles) }

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool { return len(m.Triangles) == 0 }

// FaceNormal returns the unit outward normal of triangle i.
// Degenerate triangles yield the zero vector.
func (m *Mesh) FaceNormal(i int) Vec3 {
	t := m.Triangles[i]
	a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
	return b.Sub(a).Cross(c.Sub(a)).Normalized()
}

// FaceCentroid returns the centroid of triangle i.
func (m *Mesh) FaceCentroid(i int) Vec3 {
	t := m.Triangles[i]
	a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
	return a.Add(b).Add(c).Scale(1.0 / 3.0)
}

// Bounds returns the axis-aligned bounding box of the mesh. An empty mesh
// reports a zero box.
func (m *Mesh) Bounds() (min, max Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		min.Z = math.Min(min.Z, v.Z)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
		max.Z = math.Max(max.Z, v.Z)
	}
	return min, max
}

// Transformed returns a new mesh with f applied to every vertex.
// Triangle indices are shared structure and must not be mutated by callers.
func (m *Mesh) Transformed(f func(Vec3) Vec3) *Mesh {
	out := &Mesh{
		Vertices:  make([]Vec3, len(m.Vertices)),
		Triangles: m.Triangles,
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = f(v)
	}
	return out
}

// SubMesh returns a new mesh containing only the given triangles, with
// vertices compacted.
func (m *Mesh) SubMesh(faces []int) *Mesh {
	out := New()
	remap := make(map[int]int)
	for _, fi := range faces {
		var t Triangle
		for j, vi := range m.Triangles[fi] {
			ni, ok := remap[vi]
			if !ok {
				ni = len(out.Vertices)
				remap[vi] = ni
				out.Vertices = append(out.Vertices, m.Vertices[vi])
			}
			t[j] = ni
		}
		out.Triangles = append(out.Triangles, t)
	}
	return out
}

// Append merges other into m. Vertices are not welded across the two meshes.
func (m *Mesh) Append(other *Mesh) {
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, t := range other.Triangles {
		m.Triangles = append(m.Triangles, Triangle{t[0] + base, t[1] + base, t[2] + base})
	}
}

// EdgeKey identifies an undirected mesh edge by its sorted vertex indices.
type EdgeKey [2]int

// MakeEdgeKey returns the canonical key for the edge (a, b).
func MakeEdgeKey(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{a, b}
}

// EdgeFaces maps every undirected edge to the indices of its incident
// triangles. Manifold interior edges map to exactly two faces.
func (m *Mesh) EdgeFaces() map[EdgeKey][]int {
	ef := make(map[EdgeKey][]int, len(m.Triangles)*3/2)
	for fi, t := range m.Triangles {
		for j := 0; j < 3; j++ {
			k := MakeEdgeKey(t[j], t[(j+1)%3])
			ef[k] = append(ef[k], fi)
		}
	}
	return ef
}

// VertexNeighbors returns, per vertex, the sorted-by-discovery set of
// vertices connected to it by an edge.
func (m *Mesh) VertexNeighbors() [][]int {
	seen := make([]map[int]bool, len(m.Vertices))
	nb := make([][]int, len(m.Vertices))
	add := func(a, b int) {
		if seen[a] == nil {
			seen[a] = make(map[int]bool)
		}
		if !seen[a][b] {
			seen[a][b] = true
			nb[a] = append(nb[a], b)
		}
	}
	for _, t := range m.Triangles {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			add(a, b)
			add(b, a)
		}
	}
	return nb
}

// IsClosedManifold reports whether every edge is shared by exactly two
// triangles with opposite orientation, i.e. the mesh bounds a solid.
func (m *Mesh) IsClosedManifold() bool {
	type dirEdge struct{ a, b int }
	count := make(map[dirEdge]int, len(m.Triangles)*3)
	for _, t := range m.Triangles {
		for j := 0; j < 3; j++ {
			count[dirEdge{t[j], t[(j+1)%3]}]++
		}
	}
	for e, n := range count {
		if n != 1 || count[dirEdge{e.b, e.a}] != 1 {
			return false
		}
	}
	return true
}

// Builder accumulates triangles while welding identical vertices, so that
// synthesized solids have shared vertices and well defined adjacency.
type Builder struct {
	mesh  *Mesh
	index map[Vec3]int
}

// NewBuilder returns an empty mesh builder.
func NewBuilder() *Builder {
	return &Builder{mesh: New(), index: make(map[Vec3]int)}
}

func (b *Builder) vertex(v Vec3) int {
	if i, ok := b.index[v]; ok {
		return i
	}
	i := len(b.mesh.Vertices)
	b.index[v] = i
	b.mesh.Vertices = append(b.mesh.Vertices, v)
	return i
}

// AddTriangle appends the triangle (p0, p1, p2). Degenerate triangles with
// repeated welded vertices are dropped.
func (b *Builder) AddTriangle(p0, p1, p2 Vec3) {
	i0, i1, i2 := b.vertex(p0), b.vertex(p1), b.vertex(p2)
	if i0 == i1 || i1 == i2 || i2 == i0 {
		return
	}
	b.mesh.Triangles = append(b.mesh.Triangles, Triangle{i0, i1, i2})
}

// Mesh returns the accumulated mesh. The builder must not be reused after.
func (b *Builder) Mesh() *Mesh {
	return b.mesh
}

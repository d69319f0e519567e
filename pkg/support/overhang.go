package support

import (
	"math"
	"sort"

	"github.com/xiechao06/pyslm/pkg/mesh"
)

// localExtremumTol is the height slack used when testing whether a vertex is
// a locally unsupported low point.
const localExtremumTol = 1e-6

// OverhangFaces returns the indices of faces requiring support: faces whose
// outward normal lies within angleDeg of the downward build direction.
// Degenerate faces (zero normal) are skipped rather than failing the pass.
func OverhangFaces(m *mesh.Mesh, angleDeg float64) []int {
	// dot(n, down) > cos(angle) with down = (0,0,-1) reduces to
	// n.Z < -cos(angle).
	limit := -math.Cos(angleDeg * math.Pi / 180)
	var faces []int
	for i := range m.Triangles {
		n := m.FaceNormal(i)
		if n == (mesh.Vec3{}) {
			continue
		}
		if n.Z < limit {
			faces = append(faces, i)
		}
	}
	return faces
}

// FindOverhangEdges returns the edges bounding the overhang surface patches:
// edges with exactly one overhanging incident face. Edges on the mesh
// boundary count their absent neighbor as non-overhanging.
func FindOverhangEdges(m *mesh.Mesh, angleDeg float64) []mesh.EdgeKey {
	overhang := make(map[int]bool)
	for _, f := range OverhangFaces(m, angleDeg) {
		overhang[f] = true
	}
	var edges []mesh.EdgeKey
	for key, faces := range m.EdgeFaces() {
		n := 0
		for _, f := range faces {
			if overhang[f] {
				n++
			}
		}
		if n == 1 {
			edges = append(edges, key)
		}
	}
	// Map iteration order is random; sort for reproducible output.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// FindOverhangPoints returns vertices that are locally unsupported extrema:
// strictly lower than every edge-connected neighbor and not already covered
// by an overhang face. These are isolated low points such as unsupported pin
// tips.
func FindOverhangPoints(m *mesh.Mesh, angleDeg float64) []int {
	covered := make(map[int]bool)
	for _, f := range OverhangFaces(m, angleDeg) {
		for _, vi := range m.Triangles[f] {
			covered[vi] = true
		}
	}
	neighbors := m.VertexNeighbors()
	var points []int
	for vi, nbs := range neighbors {
		if covered[vi] || len(nbs) == 0 {
			continue
		}
		low := true
		for _, ni := range nbs {
			if m.Vertices[ni].Z <= m.Vertices[vi].Z+localExtremumTol {
				low = false
				break
			}
		}
		if low {
			points = append(points, vi)
		}
	}
	return points
}

// Classify runs the full overhang classification in one pass.
func Classify(m *mesh.Mesh, angleDeg float64) (faces []int, points []int, edges []mesh.EdgeKey) {
	return OverhangFaces(m, angleDeg), FindOverhangPoints(m, angleDeg), FindOverhangEdges(m, angleDeg)
}

// OverhangMesh extracts the overhang surface as one sub-mesh, or as one
// sub-mesh per edge-connected patch when split is true.
func OverhangMesh(m *mesh.Mesh, angleDeg float64, split bool) []*mesh.Mesh {
	faces := OverhangFaces(m, angleDeg)
	if len(faces) == 0 {
		return nil
	}
	if !split {
		return []*mesh.Mesh{m.SubMesh(faces)}
	}
	var out []*mesh.Mesh
	for _, comp := range groupFaces(m, faces, true) {
		out = append(out, m.SubMesh(comp))
	}
	return out
}

// groupFaces partitions the given faces into connected components with
// union-find over a face-index arena. With edgeOnly, faces connect only
// through shared edges; otherwise shared vertices also connect them, which
// bridges patches meeting at geometric discontinuities.
func groupFaces(m *mesh.Mesh, faces []int, edgeOnly bool) [][]int {
	pos := make(map[int]int, len(faces)) // face index -> arena slot
	for i, f := range faces {
		pos[f] = i
	}
	uf := newUnionFind(len(faces))

	if edgeOnly {
		byEdge := make(map[mesh.EdgeKey]int)
		for i, f := range faces {
			t := m.Triangles[f]
			for j := 0; j < 3; j++ {
				k := mesh.MakeEdgeKey(t[j], t[(j+1)%3])
				if prev, ok := byEdge[k]; ok {
					uf.union(prev, i)
				} else {
					byEdge[k] = i
				}
			}
		}
	} else {
		byVertex := make(map[int]int)
		for i, f := range faces {
			for _, vi := range m.Triangles[f] {
				if prev, ok := byVertex[vi]; ok {
					uf.union(prev, i)
				} else {
					byVertex[vi] = i
				}
			}
		}
	}

	// Components emerge ordered by their lowest face index, keeping
	// downstream region ids deterministic.
	byRoot := make(map[int][]int)
	var order []int
	for i, f := range faces {
		r := uf.find(i)
		if _, ok := byRoot[r]; !ok {
			order = append(order, r)
		}
		byRoot[r] = append(byRoot[r], f)
	}
	comps := make([][]int, 0, len(order))
	for _, r := range order {
		comps = append(comps, byRoot[r])
	}
	return comps
}

// unionFind is a plain array-based disjoint set.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

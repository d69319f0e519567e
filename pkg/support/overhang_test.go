package support

import (
	"testing"

	"github.com/xiechao06/pyslm/pkg/mesh"
)

// addPlateDown adds a horizontal rectangular plate at height z whose normals
// face straight down.
func addPlateDown(b *mesh.Builder, x0, y0, x1, y1, z float64) {
	p00 := mesh.Vec3{X: x0, Y: y0, Z: z}
	p10 := mesh.Vec3{X: x1, Y: y0, Z: z}
	p11 := mesh.Vec3{X: x1, Y: y1, Z: z}
	p01 := mesh.Vec3{X: x0, Y: y1, Z: z}
	b.AddTriangle(p00, p11, p10)
	b.AddTriangle(p00, p01, p11)
}

// addPlateUp is the same plate with normals facing up.
func addPlateUp(b *mesh.Builder, x0, y0, x1, y1, z float64) {
	p00 := mesh.Vec3{X: x0, Y: y0, Z: z}
	p10 := mesh.Vec3{X: x1, Y: y0, Z: z}
	p11 := mesh.Vec3{X: x1, Y: y1, Z: z}
	p01 := mesh.Vec3{X: x0, Y: y1, Z: z}
	b.AddTriangle(p00, p10, p11)
	b.AddTriangle(p00, p11, p01)
}

func plateMesh(x0, y0, x1, y1, z float64) *mesh.Mesh {
	b := mesh.NewBuilder()
	addPlateDown(b, x0, y0, x1, y1, z)
	return b.Mesh()
}

// testTetra is a closed tetrahedron whose only overhanging face is the
// bottom, added first.
func testTetra() *mesh.Mesh {
	a := mesh.Vec3{X: 0, Y: 0, Z: 0}
	bb := mesh.Vec3{X: 1, Y: 0, Z: 0}
	c := mesh.Vec3{X: 0, Y: 1, Z: 0}
	d := mesh.Vec3{X: 0, Y: 0, Z: 1}
	b := mesh.NewBuilder()
	b.AddTriangle(a, c, bb)
	b.AddTriangle(a, bb, d)
	b.AddTriangle(bb, c, d)
	b.AddTriangle(a, d, c)
	return b.Mesh()
}

func TestOverhangFacesPlate(t *testing.T) {
	m := plateMesh(0, 0, 2, 2, 5)
	if got := OverhangFaces(m, 55); len(got) != 2 {
		t.Errorf("overhang faces = %v, want both plate faces", got)
	}

	b := mesh.NewBuilder()
	addPlateUp(b, 0, 0, 2, 2, 5)
	if got := OverhangFaces(b.Mesh(), 55); got != nil {
		t.Errorf("upward plate reported overhangs: %v", got)
	}
}

func TestOverhangFacesAngleThreshold(t *testing.T) {
	// One face tilted 45 degrees from horizontal, normal pointing down.
	m := &mesh.Mesh{
		Vertices: []mesh.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 1},
		},
		Triangles: []mesh.Triangle{{0, 2, 1}},
	}
	if got := OverhangFaces(m, 55); len(got) != 1 {
		t.Errorf("45 degree face at 55 tolerance: faces = %v, want 1", got)
	}
	if got := OverhangFaces(m, 30); got != nil {
		t.Errorf("45 degree face at 30 tolerance: faces = %v, want none", got)
	}
}

func TestOverhangFacesSkipsVerticalAndDegenerate(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []mesh.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, // vertical wall
			{X: 2, Y: 2, Z: 2}, {X: 3, Y: 3, Z: 3}, {X: 4, Y: 4, Z: 4}, // collinear
		},
		Triangles: []mesh.Triangle{{0, 1, 2}, {3, 4, 5}},
	}
	if got := OverhangFaces(m, 55); got != nil {
		t.Errorf("faces = %v, want none", got)
	}
}

func TestFindOverhangEdges(t *testing.T) {
	m := testTetra()
	edges := FindOverhangEdges(m, 55)
	// Only the bottom face overhangs, so its three edges bound the patch.
	want := []mesh.EdgeKey{{0, 1}, {0, 2}, {1, 2}}
	if len(edges) != len(want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, edges[i], want[i])
		}
	}
}

func TestFindOverhangEdgesInteriorExcluded(t *testing.T) {
	// A lone plate: the 4 perimeter edges each border one overhanging face,
	// the shared diagonal borders two and is interior to the patch.
	m := plateMesh(0, 0, 2, 2, 5)
	if got := FindOverhangEdges(m, 55); len(got) != 4 {
		t.Errorf("edges = %v, want the 4 perimeter edges", got)
	}
}

func TestFindOverhangPointsPinTip(t *testing.T) {
	// A steep funnel: faces too steep to classify as overhang, tip strictly
	// below every neighbor.
	tip := mesh.Vec3{X: 0, Y: 0, Z: 0}
	p1 := mesh.Vec3{X: 1, Y: 0, Z: 5}
	p2 := mesh.Vec3{X: -0.5, Y: 0.866, Z: 5}
	p3 := mesh.Vec3{X: -0.5, Y: -0.866, Z: 5}
	b := mesh.NewBuilder()
	b.AddTriangle(tip, p1, p2)
	b.AddTriangle(tip, p2, p3)
	b.AddTriangle(tip, p3, p1)
	m := b.Mesh()

	if faces := OverhangFaces(m, 55); faces != nil {
		t.Fatalf("funnel faces classified as overhang: %v", faces)
	}
	points := FindOverhangPoints(m, 55)
	if len(points) != 1 || points[0] != 0 {
		t.Errorf("points = %v, want just the tip vertex 0", points)
	}
}

func TestFindOverhangPointsCoveredByFaces(t *testing.T) {
	// Every low vertex of the plate belongs to an overhang face already.
	m := plateMesh(0, 0, 2, 2, 5)
	if got := FindOverhangPoints(m, 55); got != nil {
		t.Errorf("points = %v, want none", got)
	}
}

func TestClassify(t *testing.T) {
	m := testTetra()
	faces, points, edges := Classify(m, 55)
	if len(faces) != 1 || faces[0] != 0 {
		t.Errorf("faces = %v, want [0]", faces)
	}
	if points != nil {
		t.Errorf("points = %v, want none", points)
	}
	if len(edges) != 3 {
		t.Errorf("edges = %v, want 3", edges)
	}
}

func TestOverhangMeshSplit(t *testing.T) {
	b := mesh.NewBuilder()
	addPlateDown(b, 0, 0, 2, 2, 5)
	addPlateDown(b, 10, 0, 12, 2, 5)
	m := b.Mesh()

	whole := OverhangMesh(m, 55, false)
	if len(whole) != 1 || whole[0].TriangleCount() != 4 {
		t.Errorf("unsplit overhang mesh = %d pieces, want 1 with 4 faces", len(whole))
	}
	split := OverhangMesh(m, 55, true)
	if len(split) != 2 {
		t.Fatalf("split overhang mesh = %d pieces, want 2", len(split))
	}
	for i, p := range split {
		if p.TriangleCount() != 2 {
			t.Errorf("piece %d has %d faces, want 2", i, p.TriangleCount())
		}
	}
}

func TestOverhangMeshNoOverhang(t *testing.T) {
	b := mesh.NewBuilder()
	addPlateUp(b, 0, 0, 2, 2, 5)
	if got := OverhangMesh(b.Mesh(), 55, true); got != nil {
		t.Errorf("OverhangMesh = %v, want nil", got)
	}
}

func TestGroupFacesVertexBridging(t *testing.T) {
	// Two plates sharing only the corner vertex (2, 2).
	b := mesh.NewBuilder()
	addPlateDown(b, 0, 0, 2, 2, 5)
	addPlateDown(b, 2, 2, 4, 4, 5)
	m := b.Mesh()
	faces := OverhangFaces(m, 55)
	if len(faces) != 4 {
		t.Fatalf("faces = %v, want 4", faces)
	}

	if comps := groupFaces(m, faces, true); len(comps) != 2 {
		t.Errorf("edge-only components = %d, want 2", len(comps))
	}
	if comps := groupFaces(m, faces, false); len(comps) != 1 {
		t.Errorf("vertex-bridged components = %d, want 1", len(comps))
	}
}

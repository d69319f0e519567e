package support

import (
	"math"
	"reflect"
	"testing"

	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/polygon"
)

func TestSliceOutsideExtent(t *testing.T) {
	m := testTetra()
	for _, z := range []float64{-1, 0, 1, 5} {
		if got := Slice(m, z); got != nil {
			t.Errorf("Slice at %g = %v, want nil", z, got)
		}
	}
}

func TestSliceEmptyInput(t *testing.T) {
	if Slice(nil, 0.5) != nil {
		t.Error("nil mesh should slice to nothing")
	}
	if Slice(mesh.New(), 0.5) != nil {
		t.Error("empty mesh should slice to nothing")
	}
}

func TestSliceTetrahedronMidPlane(t *testing.T) {
	m := testTetra()
	contours := Slice(m, 0.5)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}
	c := contours[0]
	if c.RegionID != -1 {
		t.Errorf("RegionID = %d, want -1 for a non-block solid", c.RegionID)
	}
	loop := c.Loop()
	if !loop.IsCCW() {
		t.Error("exterior contour should be CCW")
	}
	// The cross-section at z = 0.5 is a right triangle with legs 0.5.
	if got := loop.Area(); math.Abs(got-0.125) > 1e-9 {
		t.Errorf("area = %g, want 0.125", got)
	}
}

func TestSliceBoxBlock(t *testing.T) {
	blk, warnings := SynthesizeBlock(flatRegion(0, 5), volumeConfig())
	if blk == nil {
		t.Fatalf("no block, warnings: %v", warnings)
	}
	contours := Slice(blk.Volume, 2.5)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}
	loop := contours[0].Loop()
	if !loop.IsCCW() {
		t.Error("exterior contour should be CCW")
	}
	if got := loop.Area(); math.Abs(got-64) > 1e-6 {
		t.Errorf("area = %g, want the 8x8 footprint", got)
	}
}

func TestSliceBlocksNestingAndTags(t *testing.T) {
	r := flatRegion(7, 5)
	hole := polygon.Loop{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}}
	r.Footprint.Holes = []polygon.Loop{hole.Reversed()}

	blk, warnings := SynthesizeBlock(r, volumeConfig())
	if blk == nil {
		t.Fatalf("no block, warnings: %v", warnings)
	}
	layer := SliceBlocks([]*SupportBlock{blk}, 2.5)
	if layer.Z != 2.5 {
		t.Errorf("layer Z = %g", layer.Z)
	}
	if len(layer.Contours) != 2 {
		t.Fatalf("contours = %d, want outer ring and hole", len(layer.Contours))
	}

	outer, inner := layer.Contours[0], layer.Contours[1]
	if outer.RegionID != 7 || inner.RegionID != 7 {
		t.Errorf("region tags = %d, %d, want 7", outer.RegionID, inner.RegionID)
	}
	// Largest first, exterior CCW, nested hole CW.
	if !outer.Loop().IsCCW() {
		t.Error("outer contour should be CCW")
	}
	if inner.Loop().IsCCW() {
		t.Error("hole contour should be CW")
	}
	if !outer.Loop().Contains(inner.Points[0]) {
		t.Error("hole contour should nest inside the outer contour")
	}
	if math.Abs(outer.Loop().Area()-64) > 1e-6 {
		t.Errorf("outer area = %g, want 64", outer.Loop().Area())
	}
	if math.Abs(inner.Loop().Area()-4) > 1e-6 {
		t.Errorf("hole area = %g, want 4", inner.Loop().Area())
	}
}

func TestSliceBlocksMultipleRegions(t *testing.T) {
	a, _ := SynthesizeBlock(flatRegion(0, 5), volumeConfig())
	b, _ := SynthesizeBlock(flatRegion(3, 5), volumeConfig())
	if a == nil || b == nil {
		t.Fatal("block synthesis failed")
	}
	layer := SliceBlocks([]*SupportBlock{a, b}, 1)
	if len(layer.Contours) != 2 {
		t.Fatalf("contours = %d, want 2", len(layer.Contours))
	}
	if layer.Contours[0].RegionID != 0 || layer.Contours[1].RegionID != 3 {
		t.Errorf("tags = %d, %d, want region order 0, 3",
			layer.Contours[0].RegionID, layer.Contours[1].RegionID)
	}
}

func TestSliceDeterministic(t *testing.T) {
	blk, _ := SynthesizeBlock(flatRegion(0, 5), volumeConfig())
	if blk == nil {
		t.Fatal("block synthesis failed")
	}
	first := Slice(blk.Volume, 3)
	for run := 0; run < 3; run++ {
		if again := Slice(blk.Volume, 3); !reflect.DeepEqual(again, first) {
			t.Fatalf("run %d produced different contours", run)
		}
	}
}

func TestSliceVertexOnPlane(t *testing.T) {
	// A double pyramid whose equator vertices lie exactly on the slicing
	// plane. On-plane vertices are nudged to one side, so the loop must
	// still come out closed.
	ring := []mesh.Vec3{
		{X: 0, Y: 0, Z: 0.5}, {X: 1, Y: 0, Z: 0.5},
		{X: 1, Y: 1, Z: 0.5}, {X: 0, Y: 1, Z: 0.5},
	}
	bot := mesh.Vec3{X: 0.5, Y: 0.5, Z: 0}
	top := mesh.Vec3{X: 0.5, Y: 0.5, Z: 1}
	b := mesh.NewBuilder()
	for i := range ring {
		j := (i + 1) % len(ring)
		b.AddTriangle(bot, ring[j], ring[i])
		b.AddTriangle(top, ring[i], ring[j])
	}

	contours := Slice(b.Mesh(), 0.5)
	if len(contours) != 1 {
		t.Fatalf("contours = %d, want 1", len(contours))
	}
	if got := contours[0].Loop().Area(); math.Abs(got-1) > 1e-6 {
		t.Errorf("area = %g, want the unit equator square", got)
	}
}

package support

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/polygon"
)

// degenerateHeight is the cutoff below which a support column counts as
// zero-height.
const degenerateHeight = 1e-6

// SupportBlock is the synthesized solid volume for one support region: a
// closed manifold triangulated solid resting on the platform plane, its top
// conforming to the region's overhang surface.
type SupportBlock struct {
	RegionID int
	Volume   *mesh.Mesh
}

// SynthesizeBlock extrudes the region's footprint from the platform up to
// the heights in its profile. Walls and the vertical extent are subdivided
// no coarser than cfg.TriangulationSpacing.
//
// A nil block with a warning means the region was abandoned under the
// configured degenerate-column policy or could not be triangulated.
func SynthesizeBlock(r *SupportRegion, cfg Config) (*SupportBlock, []Warning) {
	if err := cfg.Validate(); err != nil {
		return nil, []Warning{{RegionID: r.ID, Stage: "synthesis", Message: err.Error()}}
	}

	fp := polygon.Polygon{
		Outer: densify(r.Footprint.Outer, cfg.TriangulationSpacing),
	}
	for _, h := range r.Footprint.Holes {
		fp.Holes = append(fp.Holes, densify(h, cfg.TriangulationSpacing))
	}

	// The clip floor keeps clamped columns thick enough to stay manifold.
	clipFloor := cfg.RayProjectionResolution
	searchRadius := r.Profile.NX + r.Profile.NY
	degenerate := false
	heightAt := func(p polygon.Point) (float64, bool) {
		z, ok := r.Profile.SampleNearest(p.X, p.Y, searchRadius)
		if !ok || z <= degenerateHeight {
			degenerate = true
			return clipFloor, false
		}
		return z, true
	}

	// Probe all boundary vertices first so PolicySkipRegion can bail before
	// any geometry is built.
	probe := func(l polygon.Loop) {
		for _, p := range l {
			heightAt(p)
		}
	}
	probe(fp.Outer)
	for _, h := range fp.Holes {
		probe(h)
	}
	if degenerate && cfg.DegenerateColumns == PolicySkipRegion {
		return nil, []Warning{{
			RegionID: r.ID, Stage: "synthesis",
			Message: "zero-height column in footprint, region skipped per policy",
		}}
	}

	capTris, err := polygon.Triangulate(fp)
	if err != nil {
		return nil, []Warning{{
			RegionID: r.ID, Stage: "synthesis",
			Message: fmt.Sprintf("footprint triangulation failed: %v", err),
		}}
	}

	b := mesh.NewBuilder()
	lift := func(p polygon.Point) mesh.Vec3 {
		z, _ := heightAt(p)
		return mesh.Vec3{X: p.X, Y: p.Y, Z: z}
	}
	at0 := func(p polygon.Point) mesh.Vec3 {
		return mesh.Vec3{X: p.X, Y: p.Y}
	}

	// Caps: triangulation is CCW in the plane, so the top emits as-is
	// (normals up) and the bottom reversed (normals down).
	for _, t := range capTris {
		b.AddTriangle(lift(t[0]), lift(t[1]), lift(t[2]))
		b.AddTriangle(at0(t[2]), at0(t[1]), at0(t[0]))
	}

	buildWall(b, fp.Outer, heightAt, cfg.TriangulationSpacing)
	for _, h := range fp.Holes {
		buildWall(b, h, heightAt, cfg.TriangulationSpacing)
	}

	volume := b.Mesh()
	var warnings []Warning
	if degenerate {
		warnings = append(warnings, Warning{
			RegionID: r.ID, Stage: "synthesis",
			Message: fmt.Sprintf("zero-height columns clamped to %.3g per clip policy", clipFloor),
		})
	}
	if !volume.IsClosedManifold() {
		return nil, append(warnings, Warning{
			RegionID: r.ID, Stage: "synthesis",
			Message: "synthesized volume is not a closed manifold, region dropped",
		})
	}
	return &SupportBlock{RegionID: r.ID, Volume: volume}, warnings
}

// SynthesizeBlocks runs SynthesizeBlock per region concurrently, collecting
// results into id-indexed slots so output order matches region order.
func SynthesizeBlocks(regions []*SupportRegion, cfg Config) ([]*SupportBlock, []Warning) {
	blocks := make([]*SupportBlock, len(regions))
	warnSlots := make([][]Warning, len(regions))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range regions {
		i, r := i, r
		eg.Go(func() error {
			blocks[i], warnSlots[i] = SynthesizeBlock(r, cfg)
			return nil
		})
	}
	_ = eg.Wait()

	var out []*SupportBlock
	var warnings []Warning
	for i, blk := range blocks {
		warnings = append(warnings, warnSlots[i]...)
		if blk != nil {
			out = append(out, blk)
		}
	}
	return out, warnings
}

// densify subdivides loop edges so no segment exceeds spacing. Wall quads
// and cap boundary vertices share these points exactly.
func densify(l polygon.Loop, spacing float64) polygon.Loop {
	// Collapse coincident neighbors first; they would produce degenerate
	// wall quads.
	var clean polygon.Loop
	for i, p := range l {
		if i > 0 && p == clean[len(clean)-1] {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) > 1 && clean[0] == clean[len(clean)-1] {
		clean = clean[:len(clean)-1]
	}
	l = clean

	var out polygon.Loop
	for i, a := range l {
		c := l[(i+1)%len(l)]
		out = append(out, a)
		d := a.Dist(c)
		n := int(math.Ceil(d / spacing))
		for k := 1; k < n; k++ {
			t := float64(k) / float64(n)
			out = append(out, polygon.Point{X: a.X + (c.X-a.X)*t, Y: a.Y + (c.Y-a.Y)*t})
		}
	}
	return out
}

// buildWall emits the vertical wall strip for one boundary loop. The loop's
// winding (outer CCW, holes CW) makes the emitted triangles face away from
// the solid in both cases. Vertex columns share a single row count so
// adjacent quads weld seamlessly.
func buildWall(b *mesh.Builder, l polygon.Loop, heightAt func(polygon.Point) (float64, bool), spacing float64) {
	n := len(l)
	if n < 3 {
		return
	}
	maxH := 0.0
	hs := make([]float64, n)
	for i, p := range l {
		hs[i], _ = heightAt(p)
		maxH = math.Max(maxH, hs[i])
	}
	rows := int(math.Ceil(maxH / spacing))
	if rows < 1 {
		rows = 1
	}
	level := func(h float64, k int) float64 {
		switch k {
		case 0:
			return 0
		case rows:
			return h
		default:
			return h * float64(k) / float64(rows)
		}
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := l[i], l[j]
		for k := 0; k < rows; k++ {
			b0 := mesh.Vec3{X: pi.X, Y: pi.Y, Z: level(hs[i], k)}
			b1 := mesh.Vec3{X: pj.X, Y: pj.Y, Z: level(hs[j], k)}
			t1 := mesh.Vec3{X: pj.X, Y: pj.Y, Z: level(hs[j], k+1)}
			t0 := mesh.Vec3{X: pi.X, Y: pi.Y, Z: level(hs[i], k+1)}
			b.AddTriangle(b0, b1, t1)
			b.AddTriangle(b0, t1, t0)
		}
	}
}

package support

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/xiechao06/pyslm/pkg/part"
	"github.com/xiechao06/pyslm/pkg/polygon"
)

// SupportRegion is one connected cluster of overhang faces with its derived
// 2D footprint and column height profile. Regions are immutable once
// returned.
type SupportRegion struct {
	// ID is the discovery-order component index, ascending and stable
	// across repeated runs on the same input. Dropped components leave id
	// gaps, so every Warning.RegionID names either a returned region or a
	// component reported dropped.
	ID int

	// Footprint is the offset, simplified and smoothed boundary of the
	// region projected on the platform plane. Outer loop CCW, holes CW.
	Footprint polygon.Polygon

	// Area is the footprint area (outer minus holes).
	Area float64

	// Profile samples the underside of the region's overhang surface on the
	// projector grid: per cell, the height the support column must reach.
	Profile *HeightMap
}

// IdentifySupportRegions classifies overhangs on the placed part, groups
// them into connected regions, and derives each region's footprint and
// height profile.
//
// With splitMesh, components split at edge-connectivity boundaries; without
// it, patches sharing only vertices are bridged into larger regions.
//
// Degenerate components are dropped and reported as warnings; regions below
// the configured area threshold are filtered the same way. The returned
// slice is ordered by ascending region ID.
func IdentifySupportRegions(p *part.Part, angleDeg float64, splitMesh bool, cfg Config) ([]*SupportRegion, []Warning, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if angleDeg <= 0 || angleDeg >= 90 {
		return nil, nil, &ConfigurationError{Param: "overhang-angle", Reason: fmt.Sprintf("%.2f outside (0, 90)", angleDeg)}
	}
	m, err := p.TransformedMesh()
	if err != nil {
		return nil, nil, &InputError{Reason: "part has no usable geometry", Err: err}
	}
	if m.IsEmpty() {
		return nil, nil, &InputError{Reason: "empty mesh"}
	}

	faces := OverhangFaces(m, angleDeg)
	if len(faces) == 0 {
		return nil, nil, nil
	}
	comps := groupFaces(m, faces, splitMesh)

	min, max := m.Bounds()
	grid := GridForBounds(min, max, cfg.RayProjectionResolution)

	// Project each component's underside onto the shared grid. Sequential
	// ownership marking happens below; the projections themselves are
	// independent.
	profiles := make([]*HeightMap, len(comps))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for ci := range comps {
		ci := ci
		eg.Go(func() error {
			profiles[ci] = projectOnto(m.SubMesh(comps[ci]), grid, true)
			return nil
		})
	}
	_ = eg.Wait()

	owners := markOwners(grid, profiles)

	// Footprint derivation is independent per component once grouping and
	// ownership are done; results land in id-indexed slots so ordering
	// never depends on completion order.
	regions := make([]*SupportRegion, len(comps))
	warnSlots := make([][]Warning, len(comps))
	var fg errgroup.Group
	fg.SetLimit(runtime.GOMAXPROCS(0))
	for ci := range comps {
		ci := ci
		fg.Go(func() error {
			r, warns := deriveRegion(ci, profiles[ci], owners, cfg)
			regions[ci] = r
			warnSlots[ci] = warns
			return nil
		})
	}
	_ = fg.Wait()

	var out []*SupportRegion
	var warnings []Warning
	for ci, r := range regions {
		warnings = append(warnings, warnSlots[ci]...)
		if r == nil {
			continue
		}
		r.ID = ci // dropped components leave gaps, ids stay warning-aligned
		out = append(out, r)
	}
	return out, warnings, nil
}

// cellOwners tracks which component covers each grid cell, for inner-gap
// adjacency tests. Cells covered by more than one component are contested.
type cellOwners struct {
	Grid
	owner     []int32 // component index, -1 for none
	contested []bool
}

func markOwners(g Grid, profiles []*HeightMap) *cellOwners {
	o := &cellOwners{
		Grid:      g,
		owner:     make([]int32, g.NX*g.NY),
		contested: make([]bool, g.NX*g.NY),
	}
	for i := range o.owner {
		o.owner[i] = -1
	}
	for ci, p := range profiles {
		for idx, z := range p.Z {
			if math.IsInf(z, -1) {
				continue
			}
			switch o.owner[idx] {
			case -1:
				o.owner[idx] = int32(ci)
			case int32(ci):
			default:
				o.contested[idx] = true
			}
		}
	}
	return o
}

// nearOtherRegion reports whether any cell within radius cells of (x, y) is
// covered by a component other than ci.
func (o *cellOwners) nearOtherRegion(x, y float64, ci int, radius int) bool {
	ix, iy, _ := o.CellAt(x, y)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			cx, cy := ix+dx, iy+dy
			if cx < 0 || cx >= o.NX || cy < 0 || cy >= o.NY {
				continue
			}
			idx := cy*o.NX + cx
			if o.contested[idx] {
				return true
			}
			if ow := o.owner[idx]; ow >= 0 && ow != int32(ci) {
				return true
			}
		}
	}
	return false
}

// deriveRegion turns one component's raster profile into a footprint
// polygon: trace, gap-offset, simplify, smooth, area-filter. A nil region
// with warnings means the component was dropped.
func deriveRegion(ci int, profile *HeightMap, owners *cellOwners, cfg Config) (*SupportRegion, []Warning) {
	loops := traceLoops(profile)
	if len(loops) == 0 {
		return nil, []Warning{{RegionID: ci, Stage: "region", Message: "no footprint cells at this resolution"}}
	}

	// The largest CCW loop is the exterior; CW loops inside it are holes.
	var outer polygon.Loop
	var rest []polygon.Loop
	for _, l := range loops {
		if l.SignedArea() > 0 && l.Area() > outer.Area() {
			if outer != nil {
				rest = append(rest, outer)
			}
			outer = l
		} else {
			rest = append(rest, l)
		}
	}
	if outer == nil {
		return nil, []Warning{{RegionID: ci, Stage: "region", Message: "no exterior boundary traced"}}
	}
	var warnings []Warning
	var holes []polygon.Loop
	for _, l := range rest {
		switch {
		case l.SignedArea() < 0 && outer.Contains(l[0]):
			holes = append(holes, l)
		case l.Area() >= cfg.MinimumAreaThreshold:
			warnings = append(warnings, Warning{
				RegionID: ci, Stage: "region",
				Message: fmt.Sprintf("dropping disjoint footprint fragment (area %.3f)", l.Area()),
			})
		}
	}

	// The area threshold applies to the raw traced footprint. Filtering
	// after the gap offsets would let the outer outset inflate
	// sub-threshold patches past it.
	rawArea := polygon.Polygon{Outer: outer, Holes: holes}.Area()
	if rawArea < cfg.MinimumAreaThreshold {
		return nil, append(warnings, Warning{
			RegionID: ci, Stage: "region",
			Message: fmt.Sprintf("footprint area %.4f below threshold %.4f", rawArea, cfg.MinimumAreaThreshold),
		})
	}

	radius := int(math.Ceil((cfg.InnerSupportEdgeGap+cfg.OuterSupportEdgeGap)/cfg.RayProjectionResolution)) + 1
	finish := func(l polygon.Loop, isHole bool) (polygon.Loop, bool) {
		l = offsetGaps(l, isHole, ci, owners, radius, cfg)
		s, ok := simplifyLoop(l, cfg)
		if !ok {
			return nil, false
		}
		return smoothLoop(s, cfg), true
	}

	finished, ok := finish(outer, false)
	if !ok {
		return nil, append(warnings, Warning{
			RegionID: ci, Stage: "region",
			Message: "boundary failed to simplify into a simple polygon",
		})
	}
	fp := polygon.Polygon{Outer: finished}
	for _, h := range holes {
		fh, ok := finish(h, true)
		if !ok {
			// A bad hole is dropped; the solid is conservatively larger.
			warnings = append(warnings, Warning{
				RegionID: ci, Stage: "region",
				Message: "hole boundary failed to simplify, filling it",
			})
			continue
		}
		fp.Holes = append(fp.Holes, fh)
	}
	fp = fp.Normalized()

	area := fp.Area()
	if area <= 0 {
		return nil, append(warnings, Warning{
			RegionID: ci, Stage: "region",
			Message: "footprint collapsed by edge gaps",
		})
	}
	return &SupportRegion{Footprint: fp, Area: area, Profile: profile}, warnings
}

// offsetGaps applies the inner/outer edge gaps: boundary stretches facing an
// adjacent support region move inward by the inner gap, free stretches
// outward by the outer gap. Hole loops use mirrored signs since their
// outward normal points into the surrounding material.
func offsetGaps(l polygon.Loop, isHole bool, ci int, owners *cellOwners, radius int, cfg Config) polygon.Loop {
	dists := make([]float64, len(l))
	for i, p := range l {
		adjacent := owners.nearOtherRegion(p.X, p.Y, ci, radius)
		switch {
		case !isHole && adjacent:
			dists[i] = -cfg.InnerSupportEdgeGap
		case !isHole:
			dists[i] = cfg.OuterSupportEdgeGap
		case adjacent:
			dists[i] = cfg.InnerSupportEdgeGap
		default:
			dists[i] = -cfg.OuterSupportEdgeGap
		}
	}
	return l.OffsetPerVertex(dists)
}

// simplifyLoop reduces the traced staircase boundary. The tolerance scales
// with the mean segment length; if the result self-intersects the tolerance
// is halved once before the loop is rejected.
func simplifyLoop(l polygon.Loop, cfg Config) (polygon.Loop, bool) {
	if len(l) < 3 {
		return nil, false
	}
	tol := cfg.SimplifyPolygonFactor * l.Perimeter() / float64(len(l))
	for attempt := 0; attempt < 2; attempt++ {
		s := l.Simplify(tol)
		if len(s) >= 3 && s.IsSimple() {
			return s, true
		}
		tol /= 2
	}
	if l.IsSimple() {
		return l, true // keep the raw boundary rather than a broken one
	}
	return nil, false
}

// smoothLoop fits a spline through a reduced set of control points and
// samples it back at the wall triangulation spacing.
func smoothLoop(l polygon.Loop, cfg Config) polygon.Loop {
	control := len(l) / int(math.Max(cfg.SplineSimplificationFactor, 1))
	if control < 8 {
		control = 8
	}
	if control >= len(l) {
		return l
	}
	sm := l.Resample(control).Smooth(cfg.TriangulationSpacing)
	if len(sm) >= 3 && sm.IsSimple() {
		return sm
	}
	return l
}

// latticeNode is a grid corner; corner (ix, iy) sits at world
// (MinX + ix*Res, MinY + iy*Res).
type latticeNode struct{ ix, iy int }

// traceLoops extracts the boundary loops of the height map's hit mask.
// Segments are oriented with the covered side on the left, so exterior
// loops come out counter-clockwise and holes clockwise.
func traceLoops(h *HeightMap) []polygon.Loop {
	type seg struct {
		from, to latticeNode
		used     bool
	}
	var segs []seg
	inside := func(ix, iy int) bool {
		return ix >= 0 && ix < h.NX && iy >= 0 && iy < h.NY && h.Hit(ix, iy)
	}
	for iy := 0; iy < h.NY; iy++ {
		for ix := 0; ix < h.NX; ix++ {
			if !h.Hit(ix, iy) {
				continue
			}
			if !inside(ix-1, iy) {
				segs = append(segs, seg{from: latticeNode{ix, iy + 1}, to: latticeNode{ix, iy}})
			}
			if !inside(ix+1, iy) {
				segs = append(segs, seg{from: latticeNode{ix + 1, iy}, to: latticeNode{ix + 1, iy + 1}})
			}
			if !inside(ix, iy-1) {
				segs = append(segs, seg{from: latticeNode{ix, iy}, to: latticeNode{ix + 1, iy}})
			}
			if !inside(ix, iy+1) {
				segs = append(segs, seg{from: latticeNode{ix + 1, iy + 1}, to: latticeNode{ix, iy + 1}})
			}
		}
	}

	byStart := make(map[latticeNode][]int, len(segs))
	for i, s := range segs {
		byStart[s.from] = append(byStart[s.from], i)
	}
	next := func(n latticeNode) int {
		for _, i := range byStart[n] {
			if !segs[i].used {
				return i
			}
		}
		return -1
	}

	var loops []polygon.Loop
	for start := range segs {
		if segs[start].used {
			continue
		}
		var nodes []latticeNode
		origin := segs[start].from
		cur := start
		closed := false
		for {
			segs[cur].used = true
			nodes = append(nodes, segs[cur].from)
			if segs[cur].to == origin {
				closed = true
				break
			}
			nxt := next(segs[cur].to)
			if nxt < 0 {
				break // dangling chain, raster artifact
			}
			cur = nxt
		}
		if !closed || len(nodes) < 4 {
			continue
		}
		loops = append(loops, lattice2world(h.Grid, nodes))
	}
	return loops
}

// lattice2world converts lattice corners to world coordinates, dropping
// collinear run interiors to keep only actual corners.
func lattice2world(g Grid, nodes []latticeNode) polygon.Loop {
	n := len(nodes)
	loop := make(polygon.Loop, 0, n)
	for i := 0; i < n; i++ {
		prev := nodes[(i-1+n)%n]
		cur := nodes[i]
		next := nodes[(i+1)%n]
		if (prev.ix == cur.ix && cur.ix == next.ix) ||
			(prev.iy == cur.iy && cur.iy == next.iy) {
			continue
		}
		loop = append(loop, polygon.Point{
			X: g.MinX + float64(cur.ix)*g.Res,
			Y: g.MinY + float64(cur.iy)*g.Res,
		})
	}
	return loop
}

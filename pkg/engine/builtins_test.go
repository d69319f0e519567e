package engine

import (
	"testing"

	"github.com/xiechao06/pyslm/pkg/support"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(part "bracket" :stl "bracket.stl")`,
			expect: `(part "bracket" "__kw_stl" "bracket.stl")`,
		},
		{
			name:   "multiple keywords",
			input:  `(box-part "slab" :x 40 :y 20)`,
			expect: `(box_part "slab" "__kw_x" 40 "__kw_y" 20)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(slice-at 1.0 :inner-gap 0.3)`,
			expect: `(slice_at 1.0 "__kw_inner-gap" 0.3)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Builtin evaluation tests
// ---------------------------------------------------------------------------

// evalJob runs source through a fresh engine and fails the test on any error.
func evalJob(t *testing.T, source string) *Job {
	t.Helper()
	j, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if j == nil {
		t.Fatal("expected non-nil job")
	}
	return j
}

// evalExpectError runs source expecting at least one eval error.
func evalExpectError(t *testing.T, source string) []EvalError {
	t.Helper()
	j, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if j != nil {
		t.Fatal("expected nil job on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval errors")
	}
	return evalErrs
}

func TestPartSTLDeclaration(t *testing.T) {
	j := evalJob(t, `(part "bracket" :stl "models/bracket.stl")`)

	if len(j.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(j.Parts))
	}
	ps := j.Parts[0]
	if ps.Name != "bracket" {
		t.Errorf("name = %q, want bracket", ps.Name)
	}
	if ps.Kind != SourceSTL {
		t.Errorf("kind = %v, want SourceSTL", ps.Kind)
	}
	if ps.Path != "models/bracket.stl" {
		t.Errorf("path = %q", ps.Path)
	}
	if ps.Scale != 1 {
		t.Errorf("scale = %g, want 1", ps.Scale)
	}
}

func TestPartLookupUnknownFails(t *testing.T) {
	evalExpectError(t, `(part "nothing")`)
}

func TestPartDuplicateNameFails(t *testing.T) {
	evalExpectError(t, `
(part "a" :stl "a.stl")
(part "a" :stl "other.stl")
`)
}

func TestBoxPart(t *testing.T) {
	j := evalJob(t, `(box-part "slab" :x 40 :y 20 :z 3)`)

	if len(j.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(j.Parts))
	}
	ps := j.Parts[0]
	if ps.Kind != SourceBox {
		t.Errorf("kind = %v, want SourceBox", ps.Kind)
	}
	if ps.X != 40 || ps.Y != 20 || ps.Z != 3 {
		t.Errorf("dimensions = (%g, %g, %g), want (40, 20, 3)", ps.X, ps.Y, ps.Z)
	}
}

func TestBoxPartMissingDimensionFails(t *testing.T) {
	evalExpectError(t, `(box-part "slab" :x 40 :y 20)`)
}

func TestCylinderPart(t *testing.T) {
	j := evalJob(t, `(cylinder-part "pin" :height 20 :radius 3)`)

	ps := j.Parts[0]
	if ps.Kind != SourceCylinder {
		t.Errorf("kind = %v, want SourceCylinder", ps.Kind)
	}
	if ps.Height != 20 || ps.Radius != 3 {
		t.Errorf("height, radius = %g, %g, want 20, 3", ps.Height, ps.Radius)
	}
	if ps.Segments != 64 {
		t.Errorf("default segments = %d, want 64", ps.Segments)
	}
}

func TestOrient(t *testing.T) {
	j := evalJob(t, `
(box-part "slab" :x 40 :y 20 :z 3)
(orient (part "slab") :rotation (vec3 0 30 0) :scale 2 :drop 10)
`)

	ps := j.Parts[0]
	if ps.Rotation != [3]float64{0, 30, 0} {
		t.Errorf("rotation = %v, want [0 30 0]", ps.Rotation)
	}
	if ps.Scale != 2 {
		t.Errorf("scale = %g, want 2", ps.Scale)
	}
	if !ps.Drop || ps.DropGap != 10 {
		t.Errorf("drop = %v gap %g, want drop with gap 10", ps.Drop, ps.DropGap)
	}
}

func TestOrientChains(t *testing.T) {
	// orient returns the part ref, so calls can nest.
	j := evalJob(t, `
(supports (orient (box-part "slab" :x 40 :y 20 :z 3) :drop 5) :angle 45)
`)
	if len(j.Supports) != 1 {
		t.Fatalf("expected 1 support run, got %d", len(j.Supports))
	}
	if !j.Parts[0].Drop || j.Parts[0].DropGap != 5 {
		t.Errorf("drop gap = %g, want 5", j.Parts[0].DropGap)
	}
}

func TestSupportsDefaults(t *testing.T) {
	j := evalJob(t, `
(box-part "slab" :x 40 :y 20 :z 3)
(supports (part "slab"))
`)

	if len(j.Supports) != 1 {
		t.Fatalf("expected 1 support run, got %d", len(j.Supports))
	}
	ss := j.Supports[0]
	if ss.PartName != "slab" {
		t.Errorf("part name = %q", ss.PartName)
	}
	if ss.Angle != support.DefaultOverhangAngle {
		t.Errorf("angle = %g, want %g", ss.Angle, support.DefaultOverhangAngle)
	}
	if ss.SplitMesh {
		t.Error("split-mesh should default to false")
	}
	if ss.Config.DegenerateColumns != support.PolicyClip {
		t.Errorf("degenerate policy = %v, want clip", ss.Config.DegenerateColumns)
	}
	if err := ss.Config.Validate(); err != nil {
		t.Errorf("default support config should validate: %v", err)
	}
}

func TestSupportsOverrides(t *testing.T) {
	j := evalJob(t, `
(box-part "slab" :x 40 :y 20 :z 3)
(supports (part "slab")
          :angle 45 :split-mesh true
          :resolution 0.1 :inner-gap 0.2 :outer-gap 0.4
          :simplify 0.8 :spacing 1.5 :min-area 0.5 :spline 5
          :degenerate :skip-region)
`)

	ss := j.Supports[0]
	if ss.Angle != 45 {
		t.Errorf("angle = %g, want 45", ss.Angle)
	}
	if !ss.SplitMesh {
		t.Error("split-mesh = false, want true")
	}
	cfg := ss.Config
	if cfg.RayProjectionResolution != 0.1 {
		t.Errorf("resolution = %g, want 0.1", cfg.RayProjectionResolution)
	}
	if cfg.InnerSupportEdgeGap != 0.2 || cfg.OuterSupportEdgeGap != 0.4 {
		t.Errorf("gaps = %g/%g, want 0.2/0.4", cfg.InnerSupportEdgeGap, cfg.OuterSupportEdgeGap)
	}
	if cfg.SimplifyPolygonFactor != 0.8 {
		t.Errorf("simplify = %g, want 0.8", cfg.SimplifyPolygonFactor)
	}
	if cfg.TriangulationSpacing != 1.5 {
		t.Errorf("spacing = %g, want 1.5", cfg.TriangulationSpacing)
	}
	if cfg.MinimumAreaThreshold != 0.5 {
		t.Errorf("min-area = %g, want 0.5", cfg.MinimumAreaThreshold)
	}
	if cfg.SplineSimplificationFactor != 5 {
		t.Errorf("spline = %g, want 5", cfg.SplineSimplificationFactor)
	}
	if cfg.DegenerateColumns != support.PolicySkipRegion {
		t.Errorf("policy = %v, want skip-region", cfg.DegenerateColumns)
	}
}

func TestSupportsInvalidAngleFails(t *testing.T) {
	evalExpectError(t, `
(box-part "slab" :x 40 :y 20 :z 3)
(supports (part "slab") :angle 95)
`)
}

func TestSupportsUnknownPartFails(t *testing.T) {
	evalExpectError(t, `(supports (part "ghost"))`)
}

func TestSliceAt(t *testing.T) {
	j := evalJob(t, `
(slice-at 1.0 2.5)
(slice-at 4)
`)

	want := []float64{1.0, 2.5, 4}
	if len(j.SliceZ) != len(want) {
		t.Fatalf("slice heights = %v, want %v", j.SliceZ, want)
	}
	for i, z := range want {
		if j.SliceZ[i] != z {
			t.Errorf("slice height %d = %g, want %g", i, j.SliceZ[i], z)
		}
	}
}

func TestExport(t *testing.T) {
	j := evalJob(t, `(export :dir "out" :merged true)`)

	if j.Export == nil {
		t.Fatal("expected export spec")
	}
	if j.Export.Dir != "out" {
		t.Errorf("dir = %q, want out", j.Export.Dir)
	}
	if !j.Export.Merged {
		t.Error("merged = false, want true")
	}
}

func TestExportDefaults(t *testing.T) {
	j := evalJob(t, `(export)`)

	if j.Export == nil {
		t.Fatal("expected export spec")
	}
	if j.Export.Dir != "." {
		t.Errorf("dir = %q, want .", j.Export.Dir)
	}
	if j.Export.Merged {
		t.Error("merged should default to false")
	}
}

func TestPartNamed(t *testing.T) {
	j := evalJob(t, `
(box-part "a" :x 1 :y 1 :z 1)
(cylinder-part "b" :height 5 :radius 1)
`)

	if _, ok := j.PartNamed("b"); !ok {
		t.Error("PartNamed(b) not found")
	}
	if _, ok := j.PartNamed("missing"); ok {
		t.Error("PartNamed(missing) should not be found")
	}
}

func TestJobValueDetached(t *testing.T) {
	// The returned job must not alias builder state across evaluations.
	eng := NewEngine()
	j1, _, err := eng.Evaluate(`(box-part "a" :x 1 :y 1 :z 1)`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	j2, _, err := eng.Evaluate(`(box-part "b" :x 2 :y 2 :z 2)`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if j1.Parts[0].Name != "a" || j2.Parts[0].Name != "b" {
		t.Errorf("jobs share state: %q, %q", j1.Parts[0].Name, j2.Parts[0].Name)
	}
}

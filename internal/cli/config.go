package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/support"
)

// fileConfig mirrors the generator tunables for TOML decoding. Pointer
// fields distinguish "absent" from "zero" so the file only overrides what it
// names.
type fileConfig struct {
	Generator struct {
		OverhangAngle    *float64 `toml:"overhang-angle"`
		RayResolution    *float64 `toml:"ray-resolution"`
		InnerGap         *float64 `toml:"inner-gap"`
		OuterGap         *float64 `toml:"outer-gap"`
		SimplifyFactor   *float64 `toml:"simplify-factor"`
		Spacing          *float64 `toml:"triangulation-spacing"`
		MinArea          *float64 `toml:"min-area"`
		SplineFactor     *float64 `toml:"spline-factor"`
		DegeneratePolicy *string  `toml:"degenerate-policy"`
		SplitMesh        *bool    `toml:"split-mesh"`
	} `toml:"generator"`
}

// generatorFlags holds the per-command generator flags. Values layer as
// defaults <- TOML file <- explicitly set flags.
type generatorFlags struct {
	configPath string
	angle      float64
	resolution float64
	innerGap   float64
	outerGap   float64
	simplify   float64
	spacing    float64
	minArea    float64
	spline     float64
	policy     string
	splitMesh  bool
}

// register installs the shared generator flags on cmd.
func (g *generatorFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&g.configPath, "config", "", "TOML config file with generator parameters")
	f.Float64Var(&g.angle, "angle", support.DefaultOverhangAngle, "overhang angle in degrees, exclusive (0, 90)")
	f.Float64Var(&g.resolution, "resolution", support.DefaultRayProjectionResolution, "height-map grid cell size")
	f.Float64Var(&g.innerGap, "inner-gap", support.DefaultInnerSupportEdgeGap, "inset for boundaries adjacent to other regions")
	f.Float64Var(&g.outerGap, "outer-gap", support.DefaultOuterSupportEdgeGap, "outset for free boundaries")
	f.Float64Var(&g.simplify, "simplify", support.DefaultSimplifyPolygonFactor, "boundary simplification factor")
	f.Float64Var(&g.spacing, "spacing", support.DefaultTriangulationSpacing, "wall triangulation spacing")
	f.Float64Var(&g.minArea, "min-area", support.DefaultMinimumAreaThreshold, "minimum region footprint area")
	f.Float64Var(&g.spline, "spline", support.DefaultSplineSimplificationFactor, "boundary spline smoothing factor")
	f.StringVar(&g.policy, "degenerate-policy", "clip", "zero-height column policy: clip or skip-region")
	f.BoolVar(&g.splitMesh, "split-mesh", false, "group overhang faces by shared edges only")
}

// resolve layers the configuration: built-in defaults, then the TOML file
// (if given), then any flag the user set explicitly. The result is validated
// before it is returned.
func (g *generatorFlags) resolve(cmd *cobra.Command) (support.Config, bool, error) {
	cfg := support.DefaultConfig()
	cfg.DegenerateColumns = support.PolicyClip
	splitMesh := false

	if g.configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(g.configPath, &fc); err != nil {
			return cfg, false, fmt.Errorf("config %s: %w", g.configPath, err)
		}
		gen := fc.Generator
		if gen.OverhangAngle != nil {
			cfg.OverhangAngle = *gen.OverhangAngle
		}
		if gen.RayResolution != nil {
			cfg.RayProjectionResolution = *gen.RayResolution
		}
		if gen.InnerGap != nil {
			cfg.InnerSupportEdgeGap = *gen.InnerGap
		}
		if gen.OuterGap != nil {
			cfg.OuterSupportEdgeGap = *gen.OuterGap
		}
		if gen.SimplifyFactor != nil {
			cfg.SimplifyPolygonFactor = *gen.SimplifyFactor
		}
		if gen.Spacing != nil {
			cfg.TriangulationSpacing = *gen.Spacing
		}
		if gen.MinArea != nil {
			cfg.MinimumAreaThreshold = *gen.MinArea
		}
		if gen.SplineFactor != nil {
			cfg.SplineSimplificationFactor = *gen.SplineFactor
		}
		if gen.DegeneratePolicy != nil {
			policy, err := support.ParsePolicy(*gen.DegeneratePolicy)
			if err != nil {
				return cfg, false, fmt.Errorf("config %s: %w", g.configPath, err)
			}
			cfg.DegenerateColumns = policy
		}
		if gen.SplitMesh != nil {
			splitMesh = *gen.SplitMesh
		}
	}

	flags := cmd.Flags()
	if flags.Changed("angle") {
		cfg.OverhangAngle = g.angle
	}
	if flags.Changed("resolution") {
		cfg.RayProjectionResolution = g.resolution
	}
	if flags.Changed("inner-gap") {
		cfg.InnerSupportEdgeGap = g.innerGap
	}
	if flags.Changed("outer-gap") {
		cfg.OuterSupportEdgeGap = g.outerGap
	}
	if flags.Changed("simplify") {
		cfg.SimplifyPolygonFactor = g.simplify
	}
	if flags.Changed("spacing") {
		cfg.TriangulationSpacing = g.spacing
	}
	if flags.Changed("min-area") {
		cfg.MinimumAreaThreshold = g.minArea
	}
	if flags.Changed("spline") {
		cfg.SplineSimplificationFactor = g.spline
	}
	if flags.Changed("degenerate-policy") {
		policy, err := support.ParsePolicy(g.policy)
		if err != nil {
			return cfg, false, err
		}
		cfg.DegenerateColumns = policy
	}
	if flags.Changed("split-mesh") {
		splitMesh = g.splitMesh
	}

	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, splitMesh, nil
}

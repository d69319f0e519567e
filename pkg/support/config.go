// Package support implements the block support generation pipeline:
// overhang classification, height-map projection, support region
// identification, block volume synthesis, and planar slicing of the
// resulting solids into layer contours.
package support

import "fmt"

// Default parameter values, in mesh units (mm / mm^2 / degrees).
const (
	DefaultOverhangAngle              = 55.0
	DefaultRayProjectionResolution    = 0.05
	DefaultInnerSupportEdgeGap        = 0.3
	DefaultOuterSupportEdgeGap        = 0.3
	DefaultSimplifyPolygonFactor      = 0.5
	DefaultTriangulationSpacing       = 2.0
	DefaultMinimumAreaThreshold       = 0.1
	DefaultSplineSimplificationFactor = 10.0
)

// DegenerateColumnPolicy selects how the synthesizer handles footprint
// locations whose required support height is zero or negative. There is no
// default: the zero value fails validation so callers must choose.
type DegenerateColumnPolicy int

const (
	// PolicyUnset is invalid and rejected by Config.Validate.
	PolicyUnset DegenerateColumnPolicy = iota
	// PolicyClip clamps degenerate columns to a minimal positive height so
	// the rest of the region still receives a valid solid.
	PolicyClip
	// PolicySkipRegion abandons the whole region with a warning.
	PolicySkipRegion
)

func (p DegenerateColumnPolicy) String() string {
	switch p {
	case PolicyClip:
		return "clip"
	case PolicySkipRegion:
		return "skip-region"
	default:
		return "unset"
	}
}

// ParsePolicy converts a policy name ("clip", "skip-region") to its value.
func ParsePolicy(s string) (DegenerateColumnPolicy, error) {
	switch s {
	case "clip":
		return PolicyClip, nil
	case "skip-region", "skip":
		return PolicySkipRegion, nil
	}
	return PolicyUnset, &ConfigurationError{Param: "degenerate-policy", Reason: fmt.Sprintf("unknown policy %q", s)}
}

// Config holds the generator tunables. It is an immutable value passed into
// each pipeline call; repeated invocations with equal configs are
// deterministic.
type Config struct {
	// OverhangAngle is the tolerated surface angle in degrees from
	// horizontal, in (0, 90). Faces whose normals lie within this angle of
	// straight down require support.
	OverhangAngle float64

	// RayProjectionResolution is the height-map grid cell size.
	RayProjectionResolution float64

	// InnerSupportEdgeGap insets footprint boundaries that face an adjacent
	// support region, keeping neighboring blocks from fusing.
	InnerSupportEdgeGap float64

	// OuterSupportEdgeGap outsets free footprint boundaries, giving the
	// block engagement margin against the part surface.
	OuterSupportEdgeGap float64

	// SimplifyPolygonFactor scales the boundary point-reduction tolerance;
	// the tolerance is this factor times the mean boundary segment length.
	SimplifyPolygonFactor float64

	// TriangulationSpacing bounds wall element size, both around the
	// boundary and in the wall-height direction.
	TriangulationSpacing float64

	// MinimumAreaThreshold discards regions with smaller footprint areas.
	MinimumAreaThreshold float64

	// SplineSimplificationFactor controls boundary smoothing: the loop is
	// reduced to len/factor spline control points before re-sampling.
	SplineSimplificationFactor float64

	// DegenerateColumns selects the zero-height column policy. Required.
	DegenerateColumns DegenerateColumnPolicy
}

// DefaultConfig returns the standard tunables. DegenerateColumns is left
// unset deliberately; callers must pick a policy before Validate passes.
func DefaultConfig() Config {
	return Config{
		OverhangAngle:              DefaultOverhangAngle,
		RayProjectionResolution:    DefaultRayProjectionResolution,
		InnerSupportEdgeGap:        DefaultInnerSupportEdgeGap,
		OuterSupportEdgeGap:        DefaultOuterSupportEdgeGap,
		SimplifyPolygonFactor:      DefaultSimplifyPolygonFactor,
		TriangulationSpacing:       DefaultTriangulationSpacing,
		MinimumAreaThreshold:       DefaultMinimumAreaThreshold,
		SplineSimplificationFactor: DefaultSplineSimplificationFactor,
	}
}

// Validate rejects out-of-range parameters. Values are never clamped.
func (c Config) Validate() error {
	if c.OverhangAngle <= 0 || c.OverhangAngle >= 90 {
		return &ConfigurationError{Param: "overhang-angle", Reason: fmt.Sprintf("%.2f outside (0, 90)", c.OverhangAngle)}
	}
	positive := []struct {
		name  string
		value float64
	}{
		{"ray-resolution", c.RayProjectionResolution},
		{"inner-gap", c.InnerSupportEdgeGap},
		{"outer-gap", c.OuterSupportEdgeGap},
		{"simplify-factor", c.SimplifyPolygonFactor},
		{"triangulation-spacing", c.TriangulationSpacing},
		{"min-area", c.MinimumAreaThreshold},
		{"spline-factor", c.SplineSimplificationFactor},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ConfigurationError{Param: p.name, Reason: fmt.Sprintf("%g is not positive", p.value)}
		}
	}
	if c.DegenerateColumns != PolicyClip && c.DegenerateColumns != PolicySkipRegion {
		return &ConfigurationError{Param: "degenerate-policy", Reason: "no policy chosen (clip or skip-region)"}
	}
	return nil
}

package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/xiechao06/pyslm/pkg/support"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms job script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: slice-at -> slice_at
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPartRef wraps a named part spec so it can be passed between builtins.
type sexpPartRef struct {
	name string
}

func (p *sexpPartRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(part %q)", p.name)
}
func (p *sexpPartRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a 3-component vector.
type sexpVec3 struct {
	x, y, z float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.x, v.y, v.z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an int from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected bool, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_clip) and plain strings ("clip").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toPartRef extracts the part name from a sexpPartRef.
func toPartRef(s zygo.Sexp) (string, error) {
	if ref, ok := s.(*sexpPartRef); ok {
		return ref.name, nil
	}
	return "", fmt.Errorf("expected part reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts the components of a sexpVec3.
func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return [3]float64{v.x, v.y, v.z}, nil
	}
	return [3]float64{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all job DSL builtins into a zygomys environment.
// The builtins populate the provided jobBuilder during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, jb *jobBuilder) {

	// -----------------------------------------------------------------------
	// (part "bracket" :stl "models/bracket.stl")
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}

		// A bare (part "name") looks up an already declared part.
		if _, ok := pa.kw["stl"]; !ok {
			if _, found := jb.lookup(partName); !found {
				return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
			}
			return &sexpPartRef{name: partName}, nil
		}

		path, err := toString(pa.kw["stl"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: stl: %w", err)
		}
		if _, found := jb.lookup(partName); found {
			return zygo.SexpNull, fmt.Errorf("part: duplicate part name %q", partName)
		}
		jb.parts = append(jb.parts, PartSpec{
			Name:  partName,
			Kind:  SourceSTL,
			Path:  path,
			Scale: 1,
		})
		return &sexpPartRef{name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (box-part "slab" :x 40 :y 20 :z 3)
	// -----------------------------------------------------------------------
	env.AddFunction("box_part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("box-part requires a name argument")
		}
		partName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box-part: name: %w", err)
		}
		if _, found := jb.lookup(partName); found {
			return zygo.SexpNull, fmt.Errorf("box-part: duplicate part name %q", partName)
		}
		ps := PartSpec{Name: partName, Kind: SourceBox, Scale: 1}
		for kw, dst := range map[string]*float64{"x": &ps.X, "y": &ps.Y, "z": &ps.Z} {
			v, ok := pa.kw[kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("box-part: missing :%s dimension", kw)
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box-part: %s: %w", kw, err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("box-part: %s must be positive, got %g", kw, f)
			}
			*dst = f
		}
		jb.parts = append(jb.parts, ps)
		return &sexpPartRef{name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder-part "pin" :height 20 :radius 3 :segments 64)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder_part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("cylinder-part requires a name argument")
		}
		partName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder-part: name: %w", err)
		}
		if _, found := jb.lookup(partName); found {
			return zygo.SexpNull, fmt.Errorf("cylinder-part: duplicate part name %q", partName)
		}
		ps := PartSpec{Name: partName, Kind: SourceCylinder, Segments: 64, Scale: 1}
		for kw, dst := range map[string]*float64{"height": &ps.Height, "radius": &ps.Radius} {
			v, ok := pa.kw[kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("cylinder-part: missing :%s", kw)
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder-part: %s: %w", kw, err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("cylinder-part: %s must be positive, got %g", kw, f)
			}
			*dst = f
		}
		if v, ok := pa.kw["segments"]; ok {
			n, err := toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder-part: segments: %w", err)
			}
			ps.Segments = n
		}
		jb.parts = append(jb.parts, ps)
		return &sexpPartRef{name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}
		return &sexpVec3{x: x, y: y, z: z}, nil
	})

	// -----------------------------------------------------------------------
	// (orient (part "bracket") :rotation (vec3 0 30 0) :scale 2 :drop 10)
	// -----------------------------------------------------------------------
	env.AddFunction("orient", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("orient requires a part reference as first argument")
		}
		partName, err := toPartRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("orient: part: %w", err)
		}
		idx, found := jb.lookup(partName)
		if !found {
			return zygo.SexpNull, fmt.Errorf("orient: no part named %q", partName)
		}

		if v, ok := pa.kw["rotation"]; ok {
			rot, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("orient: rotation: %w", err)
			}
			jb.parts[idx].Rotation = rot
		}
		if v, ok := pa.kw["scale"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("orient: scale: %w", err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("orient: scale must be positive, got %g", f)
			}
			jb.parts[idx].Scale = f
		}
		if v, ok := pa.kw["drop"]; ok {
			gap, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("orient: drop: %w", err)
			}
			if gap < 0 {
				return zygo.SexpNull, fmt.Errorf("orient: drop gap must be non-negative, got %g", gap)
			}
			jb.parts[idx].Drop = true
			jb.parts[idx].DropGap = gap
		}
		return &sexpPartRef{name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (supports (part "bracket") :angle 55 :split-mesh true
	//           :resolution 0.05 :inner-gap 0.3 :outer-gap 0.3
	//           :simplify 0.5 :spacing 2.0 :min-area 0.1 :spline 10
	//           :degenerate :clip)
	// -----------------------------------------------------------------------
	env.AddFunction("supports", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("supports requires a part reference as first argument")
		}
		partName, err := toPartRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("supports: part: %w", err)
		}
		if _, found := jb.lookup(partName); !found {
			return zygo.SexpNull, fmt.Errorf("supports: no part named %q", partName)
		}

		cfg := support.DefaultConfig()
		cfg.DegenerateColumns = support.PolicyClip
		for kw, dst := range map[string]*float64{
			"angle":      &cfg.OverhangAngle,
			"resolution": &cfg.RayProjectionResolution,
			"inner-gap":  &cfg.InnerSupportEdgeGap,
			"outer-gap":  &cfg.OuterSupportEdgeGap,
			"simplify":   &cfg.SimplifyPolygonFactor,
			"spacing":    &cfg.TriangulationSpacing,
			"min-area":   &cfg.MinimumAreaThreshold,
			"spline":     &cfg.SplineSimplificationFactor,
		} {
			if v, ok := pa.kw[kw]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("supports: %s: %w", kw, err)
				}
				*dst = f
			}
		}
		if v, ok := pa.kw["degenerate"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("supports: degenerate: %w", err)
			}
			policy, err := support.ParsePolicy(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("supports: degenerate: %w", err)
			}
			cfg.DegenerateColumns = policy
		}
		splitMesh := false
		if v, ok := pa.kw["split-mesh"]; ok {
			splitMesh, err = toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("supports: split-mesh: %w", err)
			}
		}
		if err := cfg.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("supports: %w", err)
		}

		jb.supports = append(jb.supports, SupportSpec{
			PartName:  partName,
			Angle:     cfg.OverhangAngle,
			SplitMesh: splitMesh,
			Config:    cfg,
		})
		return &sexpPartRef{name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (slice-at 1.0 2.5 4.0)
	// -----------------------------------------------------------------------
	env.AddFunction("slice_at", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("slice-at requires at least one height")
		}
		for i, a := range args {
			z, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("slice-at: height %d: %w", i, err)
			}
			jb.sliceZ = append(jb.sliceZ, z)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (export :dir "out" :merged true)
	// -----------------------------------------------------------------------
	env.AddFunction("export", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		spec := ExportSpec{Dir: "."}
		if v, ok := pa.kw["dir"]; ok {
			dir, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("export: dir: %w", err)
			}
			spec.Dir = dir
		}
		if v, ok := pa.kw["merged"]; ok {
			merged, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("export: merged: %w", err)
			}
			spec.Merged = merged
		}
		jb.export = &spec
		return zygo.SexpNull, nil
	})
}

package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/xiechao06/pyslm/pkg/kernel"
	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/part"
	"github.com/xiechao06/pyslm/pkg/support"
)

// PartSourceKind names where a job part's geometry comes from.
type PartSourceKind int

const (
	// SourceSTL loads geometry from an STL file at materialization time.
	SourceSTL PartSourceKind = iota
	// SourceBox synthesizes a box through the geometry kernel.
	SourceBox
	// SourceCylinder synthesizes a cylinder through the geometry kernel.
	SourceCylinder
)

// PartSpec is a declarative description of a part: its geometry source and
// placement. Scripts run in a sandbox with no filesystem access, so geometry
// is resolved later by Materialize, not during evaluation.
type PartSpec struct {
	Name string
	Kind PartSourceKind

	// SourceSTL
	Path string

	// SourceBox (X, Y, Z) and SourceCylinder (Height, Radius, Segments)
	X, Y, Z        float64
	Height, Radius float64
	Segments       int

	// Placement applied after loading, pyslm order: scale, rotate, drop.
	Rotation [3]float64 // Euler degrees
	Scale    float64
	Drop     bool
	DropGap  float64
}

// Materialize resolves the spec into a placed part. STL sources read from
// disk; synthetic sources go through the kernel.
func (ps PartSpec) Materialize(k kernel.Kernel) (*part.Part, error) {
	p := part.New(ps.Name)

	var m *mesh.Mesh
	var err error
	switch ps.Kind {
	case SourceSTL:
		m, err = mesh.ReadSTLFile(ps.Path)
		if err != nil {
			return nil, fmt.Errorf("part %q: %w", ps.Name, err)
		}
	case SourceBox:
		m, err = k.ToMesh(k.Box(ps.X, ps.Y, ps.Z))
		if err != nil {
			return nil, fmt.Errorf("part %q: box: %w", ps.Name, err)
		}
	case SourceCylinder:
		m, err = k.ToMesh(k.Cylinder(ps.Height, ps.Radius, ps.Segments))
		if err != nil {
			return nil, fmt.Errorf("part %q: cylinder: %w", ps.Name, err)
		}
	default:
		return nil, fmt.Errorf("part %q: unknown geometry source", ps.Name)
	}
	p.SetGeometry(m)

	if ps.Scale != 0 && ps.Scale != 1 {
		p.SetScaleFactor(ps.Scale)
	}
	if ps.Rotation != [3]float64{} {
		p.SetRotation(mesh.Vec3{X: ps.Rotation[0], Y: ps.Rotation[1], Z: ps.Rotation[2]})
	}
	if ps.Drop {
		p.DropToPlatform(ps.DropGap)
	}
	return p, nil
}

// SupportSpec is one requested support run over a named part.
type SupportSpec struct {
	PartName  string
	Angle     float64
	SplitMesh bool
	Config    support.Config
}

// ExportSpec describes where synthesized block volumes should be written.
type ExportSpec struct {
	Dir    string
	Merged bool // one STL per job instead of one per region
}

// Job is the immutable result of evaluating a job script. The CLI run
// command consumes it: parts are materialized, support runs executed, slices
// taken, and exports written, in that order.
type Job struct {
	ID       string
	Parts    []PartSpec
	Supports []SupportSpec
	SliceZ   []float64
	Export   *ExportSpec
}

// PartNamed returns the spec for name, or false when the job has no such
// part.
func (j *Job) PartNamed(name string) (PartSpec, bool) {
	for _, ps := range j.Parts {
		if ps.Name == name {
			return ps, true
		}
	}
	return PartSpec{}, false
}

// jobBuilder accumulates job state while builtins execute. The finished Job
// value is detached from the builder, so later evaluations cannot alias it.
type jobBuilder struct {
	parts    []PartSpec
	supports []SupportSpec
	sliceZ   []float64
	export   *ExportSpec
}

func (jb *jobBuilder) lookup(name string) (int, bool) {
	for i, ps := range jb.parts {
		if ps.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (jb *jobBuilder) job() *Job {
	j := &Job{
		ID:       uuid.NewString(),
		Parts:    append([]PartSpec(nil), jb.parts...),
		Supports: append([]SupportSpec(nil), jb.supports...),
		SliceZ:   append([]float64(nil), jb.sliceZ...),
	}
	if jb.export != nil {
		e := *jb.export
		j.Export = &e
	}
	return j
}

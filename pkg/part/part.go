// Package part models a build-platform placement of an externally supplied
// triangle mesh: Euler rotation, uniform scale, and a platform drop offset
// along the build axis. The support pipeline reads the placed mesh and never
// mutates the placement.
package part

import (
	"errors"
	"math"

	"github.com/xiechao06/pyslm/pkg/mesh"
)

// ErrNoGeometry is returned when a part is used before geometry is set.
var ErrNoGeometry = errors.New("part: no geometry set")

// Part is a placed mesh on the build platform.
type Part struct {
	name     string
	geometry *mesh.Mesh

	rotation mesh.Vec3 // Euler angles in degrees, applied X then Y then Z
	scale    float64
	dropped  bool
	dropGap  float64 // clearance between platform and part after dropping

	placed *mesh.Mesh // cached transformed geometry
}

// New creates an empty part with unit scale.
func New(name string) *Part {
	return &Part{name: name, scale: 1}
}

// Name returns the part name.
func (p *Part) Name() string { return p.name }

// SetGeometry assigns the source mesh. The mesh must be non-empty.
func (p *Part) SetGeometry(m *mesh.Mesh) error {
	if m == nil || m.IsEmpty() {
		return ErrNoGeometry
	}
	p.geometry = m
	p.placed = nil
	return nil
}

// Geometry returns the untransformed source mesh, or nil.
func (p *Part) Geometry() *mesh.Mesh { return p.geometry }

// SetRotation sets the Euler rotation in degrees.
func (p *Part) SetRotation(deg mesh.Vec3) {
	p.rotation = deg
	p.placed = nil
}

// Rotation returns the Euler rotation in degrees.
func (p *Part) Rotation() mesh.Vec3 { return p.rotation }

// SetScaleFactor sets the uniform scale applied before rotation.
func (p *Part) SetScaleFactor(s float64) {
	p.scale = s
	p.placed = nil
}

// ScaleFactor returns the uniform scale factor.
func (p *Part) ScaleFactor() float64 { return p.scale }

// DropToPlatform translates the placed part along the build axis so its
// lowest point sits gap above the platform plane z = 0.
func (p *Part) DropToPlatform(gap float64) {
	p.dropped = true
	p.dropGap = gap
	p.placed = nil
}

// TransformedMesh returns the geometry with scale, rotation and platform
// drop applied. The result is cached until the placement changes.
func (p *Part) TransformedMesh() (*mesh.Mesh, error) {
	if p.geometry == nil {
		return nil, ErrNoGeometry
	}
	if p.placed != nil {
		return p.placed, nil
	}
	rot := rotationMatrix(p.rotation)
	placed := p.geometry.Transformed(func(v mesh.Vec3) mesh.Vec3 {
		return rot.apply(v.Scale(p.scale))
	})
	if p.dropped {
		min, _ := placed.Bounds()
		dz := p.dropGap - min.Z
		placed = placed.Transformed(func(v mesh.Vec3) mesh.Vec3 {
			return mesh.Vec3{X: v.X, Y: v.Y, Z: v.Z + dz}
		})
	}
	p.placed = placed
	return placed, nil
}

// Bounds returns the bounding box of the placed mesh.
func (p *Part) Bounds() (min, max mesh.Vec3, err error) {
	m, err := p.TransformedMesh()
	if err != nil {
		return mesh.Vec3{}, mesh.Vec3{}, err
	}
	min, max = m.Bounds()
	return min, max, nil
}

// matrix3 is a row-major 3x3 rotation matrix.
type matrix3 [3][3]float64

func (m matrix3) apply(v mesh.Vec3) mesh.Vec3 {
	return mesh.Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m matrix3) mul(o matrix3) matrix3 {
	var r matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// rotationMatrix builds the combined rotation Rz * Ry * Rx from Euler angles
// in degrees, so the X rotation is applied first.
func rotationMatrix(deg mesh.Vec3) matrix3 {
	rx := deg.X * math.Pi / 180
	ry := deg.Y * math.Pi / 180
	rz := deg.Z * math.Pi / 180
	sx, cx := math.Sincos(rx)
	sy, cy := math.Sincos(ry)
	sz, cz := math.Sincos(rz)
	mx := matrix3{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	my := matrix3{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	mz := matrix3{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return mz.mul(my).mul(mx)
}

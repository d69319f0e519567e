package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/part"
)

// placementFlags holds the shared part placement flags: Euler rotation,
// uniform scale, and drop-to-platform.
type placementFlags struct {
	rotation []float64
	scale    float64
	dropGap  float64
	noDrop   bool
}

// register installs the placement flags on cmd.
func (pf *placementFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64SliceVar(&pf.rotation, "rotation", []float64{0, 0, 0}, "Euler rotation in degrees (rx,ry,rz)")
	f.Float64Var(&pf.scale, "scale", 1, "uniform scale factor")
	f.Float64Var(&pf.dropGap, "drop-gap", 0, "platform gap left under the part after dropping")
	f.BoolVar(&pf.noDrop, "no-drop", false, "keep the part at its original height")
}

// loadPart reads an STL file and applies the placement flags.
func (pf *placementFlags) loadPart(name, path string) (*part.Part, error) {
	if len(pf.rotation) != 3 {
		return nil, fmt.Errorf("--rotation needs exactly 3 components, got %d", len(pf.rotation))
	}
	if pf.scale <= 0 {
		return nil, fmt.Errorf("--scale must be positive, got %g", pf.scale)
	}
	if pf.dropGap < 0 {
		return nil, fmt.Errorf("--drop-gap must be non-negative, got %g", pf.dropGap)
	}

	m, err := mesh.ReadSTLFile(path)
	if err != nil {
		return nil, err
	}

	p := part.New(name)
	if err := p.SetGeometry(m); err != nil {
		return nil, err
	}
	p.SetScaleFactor(pf.scale)
	p.SetRotation(mesh.Vec3{X: pf.rotation[0], Y: pf.rotation[1], Z: pf.rotation[2]})
	if !pf.noDrop {
		p.DropToPlatform(pf.dropGap)
	}
	return p, nil
}

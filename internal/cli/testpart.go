package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/kernel"
	"github.com/xiechao06/pyslm/pkg/kernel/sdfx"
	"github.com/xiechao06/pyslm/pkg/mesh"
)

// testpartCommand creates the testpart command: simple part geometry
// synthesized through the CAD kernel, useful for exercising the support
// pipeline without external models.
func (c *CLI) testpartCommand() *cobra.Command {
	var x, y, z float64
	var height, radius float64

	cmd := &cobra.Command{
		Use:   "testpart <box|cylinder|tee> <out.stl>",
		Short: "Synthesize simple test geometry through the CAD kernel",
		Long: `Synthesize test geometry and write it as binary STL.

Shapes:
  box       a plain box (--x, --y, --z)
  cylinder  an upright cylinder (--height, --radius)
  tee       a column with a cantilevered arm, producing a real overhang

Examples:
  pyslm testpart box slab.stl --x 40 --y 20 --z 3
  pyslm testpart tee tee.stl --x 30 --y 10 --z 20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			k := sdfx.New()
			var solid kernel.Solid
			switch args[0] {
			case "box":
				solid = k.Box(x, y, z)
			case "cylinder":
				solid = k.Cylinder(height, radius, 64)
			case "tee":
				// Vertical column with an arm cantilevered off the top third
				// of its height. The arm's underside is a flat overhang.
				column := k.Box(x/3, y, z)
				arm := k.Translate(k.Box(x, y, z/3), 0, 0, 2*z/3)
				solid = k.Union(column, arm)
			default:
				return fmt.Errorf("unknown shape %q, expected box, cylinder, or tee", args[0])
			}

			prog := newProgress(logger)
			m, err := k.ToMesh(solid)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Tessellated %s: %d triangles", args[0], m.TriangleCount()))

			if err := mesh.WriteSTLFile(args[1], m); err != nil {
				return err
			}
			logger.Infof("Wrote %s", args[1])
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&x, "x", 40, "box X dimension")
	f.Float64Var(&y, "y", 20, "box Y dimension")
	f.Float64Var(&z, "z", 15, "box Z dimension")
	f.Float64Var(&height, "height", 20, "cylinder height")
	f.Float64Var(&radius, "radius", 5, "cylinder radius")

	return cmd
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/support"
)

// overhangCommand creates the overhang command: classification of
// overhanging faces, unsupported edges, and local minimum points, with
// optional export of the overhang surface patches.
func (c *CLI) overhangCommand() *cobra.Command {
	place := &placementFlags{}
	var angle float64
	var split bool
	var out string

	cmd := &cobra.Command{
		Use:   "overhang <part.stl>",
		Short: "Classify overhanging faces, edges, and points",
		Long: `Classify the overhanging geometry of a placed part.

Faces whose normals lie within the angle threshold of straight down are
overhangs; boundary edges of the overhang set and locally lowest vertices
are reported as line and point support anchors.

Examples:
  pyslm overhang bracket.stl --angle 45
  pyslm overhang bracket.stl --split-mesh --out overhangs/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if angle <= 0 || angle >= 90 {
				return fmt.Errorf("--angle %g outside (0, 90)", angle)
			}

			p, err := place.loadPart(baseName(args[0]), args[0])
			if err != nil {
				return err
			}
			m, err := p.TransformedMesh()
			if err != nil {
				return err
			}

			faces, points, edges := support.Classify(m, angle)
			logger.Infof("%d overhang faces, %d support edges, %d support points",
				len(faces), len(edges), len(points))

			if out == "" {
				return nil
			}
			patches := support.OverhangMesh(m, angle, split)
			if len(patches) == 0 {
				logger.Warn("no overhang patches to export")
				return nil
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("export dir: %w", err)
			}
			combined := mesh.New()
			for i, patch := range patches {
				combined.Append(patch)
				logger.Debugf("patch %d: %d triangles", i, patch.TriangleCount())
			}
			path := filepath.Join(out, baseName(args[0])+"_overhang.stl")
			if err := mesh.WriteSTLFile(path, combined); err != nil {
				return err
			}
			logger.Infof("Wrote %s (%d patches, %d triangles)",
				path, len(patches), combined.TriangleCount())
			return nil
		},
	}

	place.register(cmd)
	cmd.Flags().Float64Var(&angle, "angle", support.DefaultOverhangAngle, "overhang angle in degrees, exclusive (0, 90)")
	cmd.Flags().BoolVar(&split, "split-mesh", false, "split patches by shared edges only")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory to write the overhang surface STL")

	return cmd
}

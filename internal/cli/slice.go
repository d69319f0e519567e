package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/polygon"
	"github.com/xiechao06/pyslm/pkg/support"
)

// sliceCommand creates the slice command: planar cross-sections of a placed
// part at one or more heights.
func (c *CLI) sliceCommand() *cobra.Command {
	place := &placementFlags{}
	var heights []float64

	cmd := &cobra.Command{
		Use:   "slice <part.stl>",
		Short: "Cross-section a solid at given heights",
		Long: `Cross-section a placed part with horizontal planes.

For every height the closed boundary loops of the cross-section are
reported: exterior loops wind counter-clockwise, holes clockwise.

Examples:
  pyslm slice bracket.stl --z 1.0 --z 2.5
  pyslm slice bracket.stl --z 5 --rotation 0,45,0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if len(heights) == 0 {
				return fmt.Errorf("at least one --z height is required")
			}

			p, err := place.loadPart(baseName(args[0]), args[0])
			if err != nil {
				return err
			}
			m, err := p.TransformedMesh()
			if err != nil {
				return err
			}
			min, max := m.Bounds()
			logger.Debugf("part Z extent [%.3f, %.3f]", min.Z, max.Z)

			for _, z := range heights {
				contours := support.Slice(m, z)
				if len(contours) == 0 {
					logger.Warnf("z=%.3f: no contours (outside the solid?)", z)
					continue
				}
				total := 0.0
				holes := 0
				for _, ct := range contours {
					l := ct.Loop()
					if l.IsCCW() {
						total += l.Area()
					} else {
						total -= l.Area()
						holes++
					}
				}
				logger.Infof("z=%.3f: %d contours (%d holes), area %.3f", z, len(contours), holes, total)
				for i, ct := range contours {
					logger.Debugf("  contour %d: %d points, area %.3f, ccw=%v",
						i, len(ct.Points), polygon.Loop(ct.Points).Area(), ct.Loop().IsCCW())
				}
			}
			return nil
		},
	}

	place.register(cmd)
	cmd.Flags().Float64SliceVar(&heights, "z", nil, "slice height (repeatable)")

	return cmd
}

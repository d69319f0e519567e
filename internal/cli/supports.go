package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/support"
)

// supportsCommand creates the supports command: the full pipeline from an
// STL part to synthesized block volumes.
func (c *CLI) supportsCommand() *cobra.Command {
	gen := &generatorFlags{}
	place := &placementFlags{}
	var out string
	var merged bool

	cmd := &cobra.Command{
		Use:   "supports <part.stl>",
		Short: "Generate block support volumes for an STL part",
		Long: `Generate block support volumes for an STL part.

The part is placed (scaled, rotated, dropped to the platform), overhanging
surfaces below the angle threshold are grouped into support regions, and a
watertight block volume is synthesized for each region.

Examples:
  pyslm supports bracket.stl --angle 50 --out blocks/
  pyslm supports bracket.stl --rotation 0,30,0 --drop-gap 0.3 --out blocks/ --merged
  pyslm supports bracket.stl --config params.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, splitMesh, err := gen.resolve(cmd)
			if err != nil {
				return err
			}
			p, err := place.loadPart(baseName(args[0]), args[0])
			if err != nil {
				return err
			}
			logger.Debugf("Loaded %s: %d triangles", args[0], p.Geometry().TriangleCount())

			prog := newProgress(logger)
			blocks, warnings, err := support.GenerateSupports(p, cfg.OverhangAngle, splitMesh, cfg)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				logger.Warn(w.String())
			}
			prog.done(fmt.Sprintf("Synthesized %d support blocks", len(blocks)))

			for _, blk := range blocks {
				min, max := blk.Volume.Bounds()
				logger.Infof("region %d: %d triangles, height %.2f",
					blk.RegionID, blk.Volume.TriangleCount(), max.Z-min.Z)
			}

			if out != "" {
				return writeBlocks(out, baseName(args[0]), merged, blocks, logger)
			}
			return nil
		},
	}

	gen.register(cmd)
	place.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory to write block STL files")
	cmd.Flags().BoolVar(&merged, "merged", false, "write one merged STL instead of one per region")

	return cmd
}

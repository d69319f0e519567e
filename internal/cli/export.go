package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/xiechao06/pyslm/pkg/mesh"
	"github.com/xiechao06/pyslm/pkg/support"
)

// writeBlocks writes synthesized block volumes under dir as binary STL,
// either one file per region or a single merged solid.
func writeBlocks(dir, base string, merged bool, blocks []*support.SupportBlock, logger *log.Logger) error {
	if len(blocks) == 0 {
		logger.Warn("no support blocks to export")
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}

	if merged {
		combined := mesh.New()
		for _, blk := range blocks {
			combined.Append(blk.Volume)
		}
		path := filepath.Join(dir, base+"_supports.stl")
		if err := mesh.WriteSTLFile(path, combined); err != nil {
			return err
		}
		logger.Infof("Wrote %s (%d triangles)", path, combined.TriangleCount())
		return nil
	}

	for _, blk := range blocks {
		path := filepath.Join(dir, fmt.Sprintf("%s_region_%03d.stl", base, blk.RegionID))
		if err := mesh.WriteSTLFile(path, blk.Volume); err != nil {
			return err
		}
		logger.Debugf("Wrote %s (%d triangles)", path, blk.Volume.TriangleCount())
	}
	logger.Infof("Wrote %d block files to %s", len(blocks), dir)
	return nil
}

// baseName strips the directory and extension from an input path, giving the
// stem used for derived output file names.
func baseName(path string) string {
	b := filepath.Base(path)
	return b[:len(b)-len(filepath.Ext(b))]
}

package support

import (
	"github.com/xiechao06/pyslm/pkg/part"
)

// GenerateSupports runs the full pipeline on a placed part: overhang
// classification, region identification, and block synthesis. Warnings from
// both stages accompany the surviving blocks; input and configuration
// errors abort before anything is produced.
func GenerateSupports(p *part.Part, angleDeg float64, splitMesh bool, cfg Config) ([]*SupportBlock, []Warning, error) {
	regions, warnings, err := IdentifySupportRegions(p, angleDeg, splitMesh, cfg)
	if err != nil {
		return nil, nil, err
	}
	blocks, synthWarnings := SynthesizeBlocks(regions, cfg)
	return blocks, append(warnings, synthWarnings...), nil
}

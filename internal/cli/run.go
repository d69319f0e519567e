package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/engine"
	"github.com/xiechao06/pyslm/pkg/kernel/sdfx"
	"github.com/xiechao06/pyslm/pkg/part"
	"github.com/xiechao06/pyslm/pkg/support"
)

// runCommand creates the run command: evaluate a job script and execute the
// support runs, slices, and exports it describes.
func (c *CLI) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <job.lisp>",
		Short: "Evaluate a job script describing a whole support run",
		Long: `Evaluate a job script and execute it.

Scripts declare parts (from STL files or kernel primitives), orient them,
request support generation, take slices, and export results:

  (part "bracket" :stl "models/bracket.stl")
  (orient (part "bracket") :rotation (vec3 0 30 0) :drop 0.3)
  (supports (part "bracket") :angle 50)
  (slice-at 2.0 5.0)
  (export :dir "out")`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			job, evalErrs, err := engine.NewEngine().Evaluate(string(source))
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					logger.Errorf("%s: %s", args[0], e.Error())
				}
				return fmt.Errorf("%s: %d script errors", args[0], len(evalErrs))
			}
			logger.Debugf("job %s: %d parts, %d support runs", job.ID, len(job.Parts), len(job.Supports))

			k := sdfx.New()
			parts := make(map[string]*part.Part)
			materialize := func(name string) (*part.Part, error) {
				if p, ok := parts[name]; ok {
					return p, nil
				}
				spec, ok := job.PartNamed(name)
				if !ok {
					return nil, fmt.Errorf("job references unknown part %q", name)
				}
				p, err := spec.Materialize(k)
				if err != nil {
					return nil, err
				}
				parts[name] = p
				return p, nil
			}

			var blocks []*support.SupportBlock
			for _, ss := range job.Supports {
				p, err := materialize(ss.PartName)
				if err != nil {
					return err
				}
				prog := newProgress(logger)
				runBlocks, warnings, err := support.GenerateSupports(p, ss.Angle, ss.SplitMesh, ss.Config)
				if err != nil {
					return fmt.Errorf("supports for %q: %w", ss.PartName, err)
				}
				for _, w := range warnings {
					logger.Warn(w.String())
				}
				prog.done(fmt.Sprintf("%s: %d support blocks", ss.PartName, len(runBlocks)))
				blocks = append(blocks, runBlocks...)

				if job.Export != nil {
					if err := writeBlocks(job.Export.Dir, ss.PartName, job.Export.Merged, runBlocks, logger); err != nil {
						return err
					}
				}
			}

			for _, z := range job.SliceZ {
				layer := support.SliceBlocks(blocks, z)
				logger.Infof("z=%.3f: %d block contours", z, len(layer.Contours))
			}
			return nil
		},
	}

	return cmd
}

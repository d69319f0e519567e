// Package cli implements the pyslm command-line interface.
//
// This package provides commands for generating block support structures for
// overhanging part geometry, inspecting overhang classification, slicing
// solids into layer contours, generating test parts, and running job
// scripts. The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - supports: Generate block support volumes for an STL part
//   - overhang: Classify and export overhanging faces, edges, and points
//   - slice:    Cross-section a solid at given heights
//   - testpart: Synthesize simple test geometry through the CAD kernel
//   - run:      Evaluate a job script describing a whole support run
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// appName is the application name used for display.
const appName = "pyslm"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Block support generation for additive manufacturing",
		Long: `pyslm generates block support structures for overhanging geometry in
additive manufacturing parts: it classifies overhanging surfaces, groups
them into support regions, synthesizes watertight block volumes underneath
them, and slices the results into planar layer contours.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.AddCommand(c.supportsCommand())
	root.AddCommand(c.overhangCommand())
	root.AddCommand(c.sliceCommand())
	root.AddCommand(c.testpartCommand())
	root.AddCommand(c.runCommand())

	return root
}

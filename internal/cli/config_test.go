package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/xiechao06/pyslm/pkg/support"
)

// newConfigCmd builds a throwaway command with generator flags registered,
// optionally applying explicit flag values.
func newConfigCmd(t *testing.T, gen *generatorFlags, flagValues map[string]string) *cobra.Command {
	t.Helper()
	// register rebinds configPath with an empty default, so reapply any
	// pre-set path through the flag, as parsing would in production.
	configPath := gen.configPath
	cmd := &cobra.Command{Use: "test"}
	gen.register(cmd)
	if configPath != "" {
		if err := cmd.Flags().Set("config", configPath); err != nil {
			t.Fatalf("set flag config: %v", err)
		}
	}
	for name, value := range flagValues {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set flag %s: %v", name, err)
		}
	}
	return cmd
}

func TestResolveDefaults(t *testing.T) {
	gen := &generatorFlags{}
	cmd := newConfigCmd(t, gen, nil)

	cfg, splitMesh, err := gen.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.OverhangAngle != support.DefaultOverhangAngle {
		t.Errorf("angle = %g, want default %g", cfg.OverhangAngle, support.DefaultOverhangAngle)
	}
	if cfg.DegenerateColumns != support.PolicyClip {
		t.Errorf("policy = %v, want clip", cfg.DegenerateColumns)
	}
	if splitMesh {
		t.Error("split-mesh should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("resolved default config should validate: %v", err)
	}
}

func TestResolveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	content := `
[generator]
overhang-angle = 45.0
inner-gap = 0.5
degenerate-policy = "skip-region"
split-mesh = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := &generatorFlags{configPath: path}
	cmd := newConfigCmd(t, gen, nil)

	cfg, splitMesh, err := gen.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.OverhangAngle != 45 {
		t.Errorf("angle = %g, want 45", cfg.OverhangAngle)
	}
	if cfg.InnerSupportEdgeGap != 0.5 {
		t.Errorf("inner gap = %g, want 0.5", cfg.InnerSupportEdgeGap)
	}
	// Values the file does not name keep their defaults.
	if cfg.OuterSupportEdgeGap != support.DefaultOuterSupportEdgeGap {
		t.Errorf("outer gap = %g, want default", cfg.OuterSupportEdgeGap)
	}
	if cfg.DegenerateColumns != support.PolicySkipRegion {
		t.Errorf("policy = %v, want skip-region", cfg.DegenerateColumns)
	}
	if !splitMesh {
		t.Error("split-mesh = false, want true from file")
	}
}

func TestResolveFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	content := `
[generator]
overhang-angle = 45.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := &generatorFlags{configPath: path}
	// Set updates the bound flag variable and marks the flag changed.
	cmd := newConfigCmd(t, gen, map[string]string{"angle": "60"})

	cfg, _, err := gen.resolve(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.OverhangAngle != 60 {
		t.Errorf("angle = %g, want flag value 60 over file value 45", cfg.OverhangAngle)
	}
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"angle out of range", "[generator]\noverhang-angle = 95.0\n"},
		{"negative resolution", "[generator]\nray-resolution = -0.1\n"},
		{"unknown policy", "[generator]\ndegenerate-policy = \"explode\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "params.toml")
			if err := os.WriteFile(path, []byte(tt.toml), 0o644); err != nil {
				t.Fatal(err)
			}
			gen := &generatorFlags{configPath: path}
			cmd := newConfigCmd(t, gen, nil)
			if _, _, err := gen.resolve(cmd); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestResolveMissingConfigFile(t *testing.T) {
	gen := &generatorFlags{configPath: filepath.Join(t.TempDir(), "absent.toml")}
	cmd := newConfigCmd(t, gen, nil)
	if _, _, err := gen.resolve(cmd); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

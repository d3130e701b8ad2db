package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workstation-engine/internal/config"
)

func TestValidateBundledTemplates(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", filepath.Join("..", "..", "processes")})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	for _, id := range []string{"log_to_planks", "planks_to_sticks", "iron_pickaxe", "wooden_crate", "smelt_iron", "cool_lava", "empty_lava_bucket"} {
		assert.Contains(t, out.String(), "ok   "+id)
	}
	assert.NotContains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "part kinds: duration, duration_scale, fluid_container_fill, fluid_input, fluid_output, item_input, item_output, rule")
}

func TestValidateReportsBrokenFileAndContinues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
id: log_to_planks
type: woodworking
parts:
  - kind: duration
    duration: 2s
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.yaml"), []byte("id: [unclosed\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", dir})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.Error(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "ok   log_to_planks")
	assert.Contains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "z.yaml")
}

func TestAppSeedStartsAutomaticWork(t *testing.T) {
	templates, err := filepath.Abs(filepath.Join("..", "..", "processes"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
template_dirs: [`+templates+`]
store:
  driver: none
workstations:
  - id: sawmill
    layout:
      input: {start: 0, count: 2}
      output: {start: 2, count: 2}
    processes:
      woodworking: {max_level: 1, automatic: true}
    items:
      - {slot: 0, kind: log, count: 3}
`), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.authority.Restore())
	a.seed()

	inflight := a.authority.InFlight("sawmill")
	require.Len(t, inflight, 1)
	assert.Equal(t, "log_to_planks", inflight[0].ProcessID)
	assert.Equal(t, 2, a.inv.Items("sawmill")[0].Count)
}

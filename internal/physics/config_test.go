package physics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "physics.toml")
	cfg := DefaultConfig()
	cfg.Substep = 0.005
	cfg.Gravity = [3]float32{0, -20, 0}
	cfg.MaxSubsteps = 8
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "physics.toml")
	require.NoError(t, os.WriteFile(path, []byte("sleep_time = 2.0\ncorrection_bias = 0.5\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, float32(2), cfg.SleepTime)
	assert.Equal(t, float32(0.5), cfg.CorrectionBias)
	assert.Equal(t, DefaultConfig().Substep, cfg.Substep)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("substep = [oops"), 0o644))
	cfg, err := LoadConfig(bad)
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	zero := filepath.Join(dir, "zero.toml")
	require.NoError(t, os.WriteFile(zero, []byte("substep = 0.0\n"), 0o644))
	_, err = LoadConfig(zero)
	assert.ErrorContains(t, err, "substep")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.SliceMultiple = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxSubsteps = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SolverIterations = 0
	assert.ErrorContains(t, cfg.Validate(), "solver_iterations")

	_, err := NewPhysicsWorld(Config{}, nil)
	assert.Error(t, err)
}

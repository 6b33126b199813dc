package physics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the world's tuning constants.
type Config struct {
	// Substep is the fixed simulation step in seconds.
	Substep float32 `toml:"substep"`
	// MaxSubsteps caps substeps per Process call; leftover time is dropped. 0 means unbounded.
	MaxSubsteps int        `toml:"max_substeps"`
	Gravity     [3]float32 `toml:"gravity"`

	// A body falls asleep after SleepTime seconds below both thresholds.
	// Thresholds are multiplied by the body's form scale.
	SleepTime             float32 `toml:"sleep_time"`
	SleepLinearThreshold  float32 `toml:"sleep_linear_threshold"`
	SleepAngularThreshold float32 `toml:"sleep_angular_threshold"`
	MaxLinearSpeed        float32 `toml:"max_linear_speed"`

	// SolverIterations is how many velocity passes run over the contacts each
	// substep. Positional correction is applied on the first pass only.
	SolverIterations int `toml:"solver_iterations"`

	CorrectionBias  float32 `toml:"correction_bias"`
	AllowRestSpeed  float32 `toml:"allow_rest_speed"`
	CollisionWindow float32 `toml:"collision_window"`

	// Phases run on the job queue in Workers*SliceMultiple slices once the
	// body or pair count reaches the matching minimum.
	SliceMultiple     int `toml:"slice_multiple"`
	MinParallelBodies int `toml:"min_parallel_bodies"`
	MinParallelPairs  int `toml:"min_parallel_pairs"`

	ConvexVertexBudget     int `toml:"convex_vertex_budget"`
	GPUBroadPhaseThreshold int `toml:"gpu_broad_phase_threshold"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Substep:                1.0 / 60.0,
		MaxSubsteps:            0,
		Gravity:                [3]float32{0, -9.81, 0},
		SleepTime:              0.8,
		SleepLinearThreshold:   0.3,
		SleepAngularThreshold:  0.3,
		MaxLinearSpeed:         500,
		SolverIterations:       6,
		CorrectionBias:         0.25,
		AllowRestSpeed:         1,
		CollisionWindow:        0.015,
		SliceMultiple:          4,
		MinParallelBodies:      256,
		MinParallelPairs:       256,
		ConvexVertexBudget:     32,
		GPUBroadPhaseThreshold: 750,
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read physics config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse physics config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the config as TOML.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode physics config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write physics config: %w", err)
	}
	return nil
}

// Validate rejects values the stepping loop cannot run with.
func (c Config) Validate() error {
	if c.Substep <= 0 {
		return fmt.Errorf("physics config: substep must be positive, got %v", c.Substep)
	}
	if c.SliceMultiple <= 0 {
		return fmt.Errorf("physics config: slice_multiple must be positive, got %d", c.SliceMultiple)
	}
	if c.SolverIterations <= 0 {
		return fmt.Errorf("physics config: solver_iterations must be positive, got %d", c.SolverIterations)
	}
	if c.MaxSubsteps < 0 {
		return fmt.Errorf("physics config: max_substeps must not be negative, got %d", c.MaxSubsteps)
	}
	return nil
}

func (c Config) gravity() rl.Vector3 {
	return rl.Vector3{X: c.Gravity[0], Y: c.Gravity[1], Z: c.Gravity[2]}
}

// Package config defines service configuration structures and loading.
//
// Conventions:
// - Provide New() returning defaults and Load(ctx) layering file and env.
// - Detection thresholds are configuration, not hard-coded constants; the
//   defaults below come from calibration against recorded sessions and are
//   not ground truth.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TemplatePath points at the YAML template definition. Empty or missing
	// file means the compiled-in defaults are used.
	TemplatePath string `koanf:"template_path"`

	// BufferCapacity bounds the per-joint rolling sample ring.
	BufferCapacity int `koanf:"buffer_capacity"`

	// MinConfidence gates landmark acceptance; below it the previous valid
	// position is carried forward.
	MinConfidence float64 `koanf:"min_confidence"`

	// MaxHoldMS bounds hold-last-value before a joint is marked lost.
	MaxHoldMS int `koanf:"max_hold_ms"`

	// MoveThreshold is the per-frame displacement (normalized units) that
	// counts as limb movement.
	MoveThreshold float64 `koanf:"move_threshold"`

	// SettleVelocity and SettleDwellMS define a settled foot: velocity below
	// the threshold sustained for the dwell.
	SettleVelocity float64 `koanf:"settle_velocity"`
	SettleDwellMS  int     `koanf:"settle_dwell_ms"`

	// HoldRadius is the cluster radius treating nearby foot placements as
	// the same support.
	HoldRadius float64 `koanf:"hold_radius"`

	// PivotAngleDeg filters foot rotations in place from repositions.
	PivotAngleDeg float64 `koanf:"pivot_angle_deg"`

	// PauseMinMS and PauseMaxMS bound a route-reading pause.
	PauseMinMS int `koanf:"pause_min_ms"`
	PauseMaxMS int `koanf:"pause_max_ms"`

	// DynamicVelocity is the hand speed (units/s) marking a dynamic move.
	DynamicVelocity float64 `koanf:"dynamic_velocity"`

	// QueueSize bounds the analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// WeaknessCutoff is the global score below which a category becomes a
	// SWOT weakness.
	WeaknessCutoff float64 `koanf:"weakness_cutoff"`

	// GradeCalibration offsets the overall score before grade lookup to
	// compensate the pose provider's systematic noise.
	GradeCalibration float64 `koanf:"grade_calibration"`

	// GradeBracket selects the reposition norm table bracket for the
	// session's declared level: 5a-5c, 6a-6b, 6c-7a or 7b+.
	GradeBracket string `koanf:"grade_bracket"`

	// Weights maps technique categories to aggregation weights. They are
	// renormalized over present categories at scoring time.
	Weights map[string]float64 `koanf:"weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		TemplatePath:     "",
		BufferCapacity:   256,
		MinConfidence:    0.5,
		MaxHoldMS:        1000,
		MoveThreshold:    0.02,
		SettleVelocity:   0.03,
		SettleDwellMS:    150,
		HoldRadius:       0.02,
		PivotAngleDeg:    15,
		PauseMinMS:       1000,
		PauseMaxMS:       3000,
		DynamicVelocity:  0.05,
		QueueSize:        1024,
		WorkerCount:      runtime.NumCPU(),
		WeaknessCutoff:   55,
		GradeCalibration: 8,
		GradeBracket:     "6a-6b",
		Weights: map[string]float64{
			"quiet_feet":      0.20,
			"hip_position":    0.20,
			"diagonal":        0.15,
			"grip_release":    0.15,
			"rhythm":          0.10,
			"dynamic_control": 0.10,
			"route_reading":   0.10,
		},
	}
}

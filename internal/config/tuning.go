package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/features"
	"github.com/banshee-data/motion.check/internal/motion/path"
	"github.com/banshee-data/motion.check/internal/motion/recorder"
	"github.com/banshee-data/motion.check/internal/motion/session"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the evaluator tuning file. Every field is optional; the
// Get* methods fall back to the built-in defaults for anything omitted.
type TuningConfig struct {
	// Path generation
	PathSegments    *int     `json:"path_segments,omitempty"`
	PathPaddingX    *float64 `json:"path_padding_x,omitempty"`
	PathPaddingY    *float64 `json:"path_padding_y,omitempty"`
	PathStartJitter *float64 `json:"path_start_jitter,omitempty"`
	PathStepJitter  *float64 `json:"path_step_jitter,omitempty"`
	PathWidth       *float64 `json:"path_width,omitempty"`

	// Recorder geometry and timing
	StartRadius    *float64 `json:"start_radius,omitempty"`
	EndRadius      *float64 `json:"end_radius,omitempty"`
	EndMargin      *float64 `json:"end_margin,omitempty"`
	CollisionSlack *float64 `json:"collision_slack,omitempty"`
	DTFloorMs      *float64 `json:"dt_floor_ms,omitempty"`
	MinTraceLength *int     `json:"min_trace_length,omitempty"`

	// Feature extraction
	VelocityWindow      *int     `json:"velocity_window,omitempty"`
	JitterPixels        *float64 `json:"jitter_pixels,omitempty"`
	MinVectorMagnitude  *float64 `json:"min_vector_magnitude,omitempty"`
	DirectionSimilarity *float64 `json:"direction_similarity,omitempty"`
	IdlePauseMs         *float64 `json:"idle_pause_ms,omitempty"`

	// Classification thresholds
	MinVariance       *float64 `json:"min_variance,omitempty"`
	MinVelocityCV     *float64 `json:"min_velocity_cv,omitempty"`
	MinDirectionNoise *float64 `json:"min_direction_noise,omitempty"`
	MinJitterRatio    *float64 `json:"min_jitter_ratio,omitempty"`
	MinIdlePauses     *int     `json:"min_idle_pauses,omitempty"`
	MinSamples        *int     `json:"min_samples,omitempty"`

	// Sessions
	SessionIdleTimeout *string `json:"session_idle_timeout,omitempty"` // duration string like "10m"
	SinkTimeout        *string `json:"sink_timeout,omitempty"`         // duration string like "5s"
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the JSON file keep their defaults, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the working directory.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/motion/session/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.PathSegments != nil && *c.PathSegments < 1 {
		return fmt.Errorf("path_segments must be at least 1, got %d", *c.PathSegments)
	}

	positive := []struct {
		name string
		v    *float64
	}{
		{"path_width", c.PathWidth},
		{"start_radius", c.StartRadius},
		{"end_radius", c.EndRadius},
		{"dt_floor_ms", c.DTFloorMs},
		{"idle_pause_ms", c.IdlePauseMs},
	}
	for _, f := range positive {
		if f.v != nil && *f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", f.name, *f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"path_padding_x", c.PathPaddingX},
		{"path_padding_y", c.PathPaddingY},
		{"path_start_jitter", c.PathStartJitter},
		{"path_step_jitter", c.PathStepJitter},
		{"end_margin", c.EndMargin},
		{"jitter_pixels", c.JitterPixels},
		{"min_vector_magnitude", c.MinVectorMagnitude},
		{"min_variance", c.MinVariance},
		{"min_velocity_cv", c.MinVelocityCV},
		{"min_direction_noise", c.MinDirectionNoise},
		{"min_jitter_ratio", c.MinJitterRatio},
	}
	for _, f := range nonNegative {
		if f.v != nil && *f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", f.name, *f.v)
		}
	}

	if c.CollisionSlack != nil && (*c.CollisionSlack <= 0 || *c.CollisionSlack > 1) {
		return fmt.Errorf("collision_slack must be in (0, 1], got %f", *c.CollisionSlack)
	}
	rd := recorder.DefaultConfig()
	if margin, radius := getFloat(c.EndMargin, rd.EndMargin), getFloat(c.EndRadius, rd.EndRadius); margin >= radius {
		return fmt.Errorf("end_margin (%f) must be less than end_radius (%f)", margin, radius)
	}
	if c.DirectionSimilarity != nil && (*c.DirectionSimilarity < -1 || *c.DirectionSimilarity > 1) {
		return fmt.Errorf("direction_similarity must be between -1 and 1, got %f", *c.DirectionSimilarity)
	}
	if c.VelocityWindow != nil && *c.VelocityWindow < 2 {
		return fmt.Errorf("velocity_window must be at least 2, got %d", *c.VelocityWindow)
	}
	if c.MinTraceLength != nil && *c.MinTraceLength < 2 {
		return fmt.Errorf("min_trace_length must be at least 2, got %d", *c.MinTraceLength)
	}
	if c.MinIdlePauses != nil && *c.MinIdlePauses < 0 {
		return fmt.Errorf("min_idle_pauses must be non-negative, got %d", *c.MinIdlePauses)
	}
	if c.MinSamples != nil && *c.MinSamples < 0 {
		return fmt.Errorf("min_samples must be non-negative, got %d", *c.MinSamples)
	}

	if c.SessionIdleTimeout != nil && *c.SessionIdleTimeout != "" {
		if _, err := time.ParseDuration(*c.SessionIdleTimeout); err != nil {
			return fmt.Errorf("invalid session_idle_timeout '%s': %w", *c.SessionIdleTimeout, err)
		}
	}
	if c.SinkTimeout != nil && *c.SinkTimeout != "" {
		if _, err := time.ParseDuration(*c.SinkTimeout); err != nil {
			return fmt.Errorf("invalid sink_timeout '%s': %w", *c.SinkTimeout, err)
		}
	}

	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

// GetSessionIdleTimeout returns how long an untouched session lives.
func (c *TuningConfig) GetSessionIdleTimeout() time.Duration {
	return getDuration(c.SessionIdleTimeout, 10*time.Minute)
}

// GetSinkTimeout returns the bound on each verdict write.
func (c *TuningConfig) GetSinkTimeout() time.Duration {
	return getDuration(c.SinkTimeout, 5*time.Second)
}

// GetPathWidth returns the path_width value or the default.
func (c *TuningConfig) GetPathWidth() float64 {
	return getFloat(c.PathWidth, 34)
}

// PathConfig returns the path generator settings.
func (c *TuningConfig) PathConfig() path.Config {
	d := path.DefaultConfig()
	return path.Config{
		Segments:    getInt(c.PathSegments, d.Segments),
		PaddingX:    getFloat(c.PathPaddingX, d.PaddingX),
		PaddingY:    getFloat(c.PathPaddingY, d.PaddingY),
		StartJitter: getFloat(c.PathStartJitter, d.StartJitter),
		StepJitter:  getFloat(c.PathStepJitter, d.StepJitter),
		StrokeWidth: c.GetPathWidth(),
	}
}

// FeatureParams returns the feature extraction constants.
func (c *TuningConfig) FeatureParams() features.Params {
	d := features.DefaultParams()
	return features.Params{
		Window:              getInt(c.VelocityWindow, d.Window),
		JitterPixels:        getFloat(c.JitterPixels, d.JitterPixels),
		MinVectorMagnitude:  getFloat(c.MinVectorMagnitude, d.MinVectorMagnitude),
		DirectionSimilarity: getFloat(c.DirectionSimilarity, d.DirectionSimilarity),
		IdlePauseMs:         getFloat(c.IdlePauseMs, d.IdlePauseMs),
	}
}

// Thresholds returns the classification rules.
func (c *TuningConfig) Thresholds() classify.Thresholds {
	d := classify.DefaultThresholds()
	return classify.Thresholds{
		Variance:       getFloat(c.MinVariance, d.Variance),
		CV:             getFloat(c.MinVelocityCV, d.CV),
		DirectionNoise: getFloat(c.MinDirectionNoise, d.DirectionNoise),
		JitterRatio:    getFloat(c.MinJitterRatio, d.JitterRatio),
		MinIdlePauses:  getInt(c.MinIdlePauses, d.MinIdlePauses),
		MinSamples:     getInt(c.MinSamples, d.MinSamples),
	}
}

// RecorderConfig returns the recorder settings, including the feature
// and classification settings it evaluates with.
func (c *TuningConfig) RecorderConfig() recorder.Config {
	d := recorder.DefaultConfig()
	return recorder.Config{
		StartRadius:    getFloat(c.StartRadius, d.StartRadius),
		EndRadius:      getFloat(c.EndRadius, d.EndRadius),
		EndMargin:      getFloat(c.EndMargin, d.EndMargin),
		PathWidth:      c.GetPathWidth(),
		CollisionSlack: getFloat(c.CollisionSlack, d.CollisionSlack),
		DTFloor:        getFloat(c.DTFloorMs, d.DTFloor),
		MinSamples:     getInt(c.MinTraceLength, d.MinSamples),
		Features:       c.FeatureParams(),
		Thresholds:     c.Thresholds(),
	}
}

// SessionConfig returns the shared session settings. The caller supplies
// the clock and sink.
func (c *TuningConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Path = c.PathConfig()
	cfg.Recorder = c.RecorderConfig()
	cfg.SinkTimeout = c.GetSinkTimeout()
	return cfg
}

package config

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/motion.check/internal/motion/path"
	"github.com/banshee-data/motion.check/internal/motion/recorder"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return p
}

// The defaults file must describe exactly the built-in defaults, so a
// deployment that copies it changes nothing.
func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if diff := cmp.Diff(path.DefaultConfig(), cfg.PathConfig()); diff != "" {
		t.Errorf("PathConfig mismatch (-builtin +file):\n%s", diff)
	}
	if diff := cmp.Diff(recorder.DefaultConfig(), cfg.RecorderConfig()); diff != "" {
		t.Errorf("RecorderConfig mismatch (-builtin +file):\n%s", diff)
	}
	if got := cfg.GetSessionIdleTimeout(); got != 10*time.Minute {
		t.Errorf("GetSessionIdleTimeout() = %v, want 10m", got)
	}
	if got := cfg.GetSinkTimeout(); got != 5*time.Second {
		t.Errorf("GetSinkTimeout() = %v, want 5s", got)
	}
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config should be valid: %v", err)
	}
	if diff := cmp.Diff(recorder.DefaultConfig(), cfg.RecorderConfig()); diff != "" {
		t.Errorf("RecorderConfig mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.GetPathWidth(); got != 34 {
		t.Errorf("GetPathWidth() = %f, want 34", got)
	}
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	p := writeConfig(t, "partial.json", `{
  "min_samples": 40,
  "min_velocity_cv": 0.3,
  "path_width": 40,
  "session_idle_timeout": "90s"
}`)

	cfg, err := LoadTuningConfig(p)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	th := cfg.Thresholds()
	if th.MinSamples != 40 {
		t.Errorf("MinSamples = %d, want 40", th.MinSamples)
	}
	if th.CV != 0.3 {
		t.Errorf("CV = %f, want 0.3", th.CV)
	}
	if th.JitterRatio != 0.10 {
		t.Errorf("JitterRatio = %f, want default 0.10", th.JitterRatio)
	}

	rc := cfg.RecorderConfig()
	if rc.PathWidth != 40 {
		t.Errorf("recorder PathWidth = %f, want 40", rc.PathWidth)
	}
	if rc.Thresholds != th {
		t.Errorf("recorder thresholds %+v, want %+v", rc.Thresholds, th)
	}
	if got := cfg.PathConfig().StrokeWidth; got != 40 {
		t.Errorf("path StrokeWidth = %f, want 40", got)
	}

	sc := cfg.SessionConfig()
	if sc.Recorder.Thresholds.MinSamples != 40 {
		t.Errorf("session recorder MinSamples = %d, want 40", sc.Recorder.Thresholds.MinSamples)
	}
	if cfg.GetSessionIdleTimeout() != 90*time.Second {
		t.Errorf("GetSessionIdleTimeout() = %v, want 90s", cfg.GetSessionIdleTimeout())
	}
}

func TestPathConfig_ZeroJitterIsFlat(t *testing.T) {
	zero := 0.0
	cfg := &TuningConfig{PathStartJitter: &zero, PathStepJitter: &zero}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero jitter should be valid: %v", err)
	}

	pc := cfg.PathConfig()
	if pc.StartJitter != 0 || pc.StepJitter != 0 {
		t.Fatalf("PathConfig jitter = %f/%f, want 0/0", pc.StartJitter, pc.StepJitter)
	}
	g := path.NewGenerator(pc, rand.New(rand.NewPCG(11, 13)))
	if diff := cmp.Diff(pc, g.Config()); diff != "" {
		t.Errorf("generator config mismatch (-want +got):\n%s", diff)
	}

	p, err := g.Generate(640, 320)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i, pt := range p.Points {
		if pt.Y != 160 {
			t.Errorf("point %d: y = %f, want 160", i, pt.Y)
		}
	}
}

func TestEndMarginBelowRadiusIsValid(t *testing.T) {
	radius, margin := 10.0, 9.5
	cfg := &TuningConfig{EndRadius: &radius, EndMargin: &margin}
	if err := cfg.Validate(); err != nil {
		t.Errorf("end_margin %f under end_radius %f should be valid: %v", margin, radius, err)
	}
}

func TestLoadTuningConfig_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "cfg.yaml", `{}`, ".json extension"},
		{"bad json", "cfg.json", `{"min_samples":`, "parse config JSON"},
		{"segments", "cfg.json", `{"path_segments": 0}`, "path_segments"},
		{"negative width", "cfg.json", `{"path_width": -1}`, "path_width"},
		{"negative threshold", "cfg.json", `{"min_jitter_ratio": -0.1}`, "min_jitter_ratio"},
		{"slack", "cfg.json", `{"collision_slack": 1.5}`, "collision_slack"},
		{"end margin", "cfg.json", `{"end_radius": 10, "end_margin": 10}`, "end_margin"},
		{"end margin over default radius", "cfg.json", `{"end_margin": 25}`, "end_radius"},
		{"similarity", "cfg.json", `{"direction_similarity": 2}`, "direction_similarity"},
		{"window", "cfg.json", `{"velocity_window": 1}`, "velocity_window"},
		{"trace length", "cfg.json", `{"min_trace_length": 1}`, "min_trace_length"},
		{"pauses", "cfg.json", `{"min_idle_pauses": -1}`, "min_idle_pauses"},
		{"idle timeout", "cfg.json", `{"session_idle_timeout": "soon"}`, "session_idle_timeout"},
		{"sink timeout", "cfg.json", `{"sink_timeout": "5 seconds"}`, "sink_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeConfig(t, tt.file, tt.body)
			_, err := LoadTuningConfig(p)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfig_Missing(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTuningConfig_TooLarge(t *testing.T) {
	body := `{"min_samples": 70` + strings.Repeat(" ", 1024*1024) + `}`
	p := writeConfig(t, "big.json", body)
	_, err := LoadTuningConfig(p)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

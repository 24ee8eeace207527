package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.ThresholdMultiplier != 3.0 {
		t.Errorf("ThresholdMultiplier = %v, want 3.0", cfg.ThresholdMultiplier)
	}
	if cfg.MinThreshold != 10.0 {
		t.Errorf("MinThreshold = %v, want 10.0", cfg.MinThreshold)
	}
	if cfg.MotionPersistence != 3 {
		t.Errorf("MotionPersistence = %d, want 3", cfg.MotionPersistence)
	}
	if cfg.WindowSize != 100 {
		t.Errorf("WindowSize = %d, want 100", cfg.WindowSize)
	}
	if cfg.ContextWindowSeconds != 5.0 {
		t.Errorf("ContextWindowSeconds = %v, want 5.0", cfg.ContextWindowSeconds)
	}
	if cfg.UsePostgres() {
		t.Error("UsePostgres() = true with no postgres env set")
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvThresholdMult, "2.5")
	t.Setenv(EnvMinThreshold, "4")
	t.Setenv(EnvMotionFrames, "5")
	t.Setenv(EnvWindowSize, "50")
	t.Setenv(EnvContextWindow, "2")
	t.Setenv(EnvDataDir, "/tmp/videorag-test")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.ThresholdMultiplier != 2.5 {
		t.Errorf("ThresholdMultiplier = %v, want 2.5", cfg.ThresholdMultiplier)
	}
	if cfg.MinThreshold != 4.0 {
		t.Errorf("MinThreshold = %v, want 4.0", cfg.MinThreshold)
	}
	if cfg.MotionPersistence != 5 {
		t.Errorf("MotionPersistence = %d, want 5", cfg.MotionPersistence)
	}
	if cfg.WindowSize != 50 {
		t.Errorf("WindowSize = %d, want 50", cfg.WindowSize)
	}
	if cfg.ContextWindowSeconds != 2.0 {
		t.Errorf("ContextWindowSeconds = %v, want 2.0", cfg.ContextWindowSeconds)
	}
	if got, want := cfg.DBPath(), filepath.Join("/tmp/videorag-test", "videorag.db"); got != want {
		t.Errorf("DBPath() = %s, want %s", got, want)
	}
}

func TestNew_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad float", EnvThresholdMult, "three"},
		{"bad int", EnvWindowSize, "many"},
		{"zero window", EnvWindowSize, "0"},
		{"zero persistence", EnvMotionFrames, "0"},
		{"negative context window", EnvContextWindow, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%s should fail", tt.env, tt.value)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tt.value)
			cfg, err := New()
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlogLevel_DefaultsToDebug(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := cfg.SlogLevel(); got != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug by default", got)
	}
}

func TestUsePostgres(t *testing.T) {
	t.Setenv(EnvPostgresHost, "localhost")
	t.Setenv(EnvPostgresDB, "videorag")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !cfg.UsePostgres() {
		t.Error("UsePostgres() = false with host and db set")
	}
}

func TestPerVideoPaths(t *testing.T) {
	t.Setenv(EnvDataDir, "/data")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got, want := cfg.GraphPath("demo"), filepath.Join("/data", "demo_kg.json"); got != want {
		t.Errorf("GraphPath() = %s, want %s", got, want)
	}
	if got, want := cfg.TranscriptPath("demo"), filepath.Join("/data", "demo_transcript.json"); got != want {
		t.Errorf("TranscriptPath() = %s, want %s", got, want)
	}
}

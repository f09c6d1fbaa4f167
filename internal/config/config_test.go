package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	cfg := m.Get()
	if cfg.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.FrameIntervalMS != 16 {
		t.Errorf("default FrameIntervalMS = %d, want 16", cfg.FrameIntervalMS)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	m.SetLogLevel("debug")
	m.SetFrameIntervalMS(33)
	if err := m.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() reload failed: %v", err)
	}
	cfg := reloaded.Get()
	if cfg.LogLevel != "debug" {
		t.Errorf("reloaded LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.FrameIntervalMS != 33 {
		t.Errorf("reloaded FrameIntervalMS = %d, want 33", cfg.FrameIntervalMS)
	}
}

func TestFrameInterval(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		want time.Duration
	}{
		{"configured", 33, 33 * time.Millisecond},
		{"zero falls back", 0, 16 * time.Millisecond},
		{"negative falls back", -5, 16 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{FrameIntervalMS: tt.ms}
			if got := cfg.FrameInterval(); got != tt.want {
				t.Errorf("FrameInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

package config

import (
	"path/filepath"
	"sort"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TickRateHz <= 0 {
		t.Error("tick rate should be positive")
	}
	if cfg.Dt() != 1.0/float64(cfg.TickRateHz) {
		t.Errorf("dt = %f, want %f", cfg.Dt(), 1.0/float64(cfg.TickRateHz))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.TickRateHz = 0 }},
		{"negative setpoint", func(c *Config) { c.Setpoint = -1 }},
		{"negative process noise", func(c *Config) { c.Noise.Process[2] = -0.1 }},
		{"negative measurement noise", func(c *Config) { c.Noise.Measurement[0] = -1 }},
		{"zero read timeout", func(c *Config) { c.ReadTimeoutMs = 0 }},
		{"zero motor pin", func(c *Config) { c.Motors.Pins[3] = 0 }},
		{"duplicate motor pins", func(c *Config) { c.Motors.Pins[1] = c.Motors.Pins[0] }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quadfc.yaml")

	cfg := DefaultConfig()
	cfg.Setpoint = 3.25
	cfg.PID.Kp = 42
	cfg.AltitudeHold = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Setpoint != 3.25 || loaded.PID.Kp != 42 || !loaded.AltitudeHold {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := DefaultConfig()
	cfg.TickRateHz = -5
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error loading invalid config")
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	sort.Strings(names)
	if len(names) == 0 {
		t.Fatal("expected presets")
	}

	for _, name := range names {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s: nil config", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

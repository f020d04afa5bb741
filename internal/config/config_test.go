package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"HUM_SAMPLE_RATE", "HUM_MAX_SECONDS", "HUM_OUTPUT_DIR", "HUM_WORKERS",
		"HUM_INSTRUMENT", "HUM_PRESET", "HUM_TIMEOUT_SECONDS",
	} {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.MaxSeconds != 60 {
		t.Errorf("MaxSeconds = %f, want 60", cfg.MaxSeconds)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q, want 'out'", cfg.OutputDir)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (auto)", cfg.Workers)
	}
	if cfg.Instrument != "piano" {
		t.Errorf("Instrument = %q, want 'piano'", cfg.Instrument)
	}
	if cfg.Preset != "" {
		t.Errorf("Preset = %q, want empty", cfg.Preset)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HUM_SAMPLE_RATE", "48000")
	t.Setenv("HUM_MAX_SECONDS", "30.5")
	t.Setenv("HUM_OUTPUT_DIR", "/tmp/hum")
	t.Setenv("HUM_WORKERS", "4")
	t.Setenv("HUM_INSTRUMENT", "bells")
	t.Setenv("HUM_PRESET", "presets/studio.json")
	t.Setenv("HUM_TIMEOUT_SECONDS", "15")

	cfg := Load()

	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.MaxSeconds != 30.5 {
		t.Errorf("MaxSeconds = %f, want 30.5", cfg.MaxSeconds)
	}
	if cfg.OutputDir != "/tmp/hum" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Instrument != "bells" {
		t.Errorf("Instrument = %q", cfg.Instrument)
	}
	if cfg.Preset != "presets/studio.json" {
		t.Errorf("Preset = %q", cfg.Preset)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HUM_SAMPLE_RATE", "fast")
	t.Setenv("HUM_WORKERS", "-2")
	t.Setenv("HUM_MAX_SECONDS", "long")
	t.Setenv("HUM_TIMEOUT_SECONDS", "soon")

	cfg := Load()
	if cfg.SampleRate != 44100 || cfg.Workers != 0 || cfg.MaxSeconds != 60 || cfg.Timeout != 120*time.Second {
		t.Errorf("malformed values not ignored: %+v", cfg)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Setenv("HUM_TIMEOUT_SECONDS", v)
		t.Setenv("HUM_SAMPLE_RATE", v)
		cfg := Load()
		if cfg.Timeout != 120*time.Second {
			t.Errorf("HUM_TIMEOUT_SECONDS=%s: Timeout = %v, want 2m", v, cfg.Timeout)
		}
		if cfg.SampleRate != 44100 {
			t.Errorf("HUM_SAMPLE_RATE=%s: SampleRate = %d, want 44100", v, cfg.SampleRate)
		}
	}
}

func TestParseWorkers(t *testing.T) {
	if n, err := ParseWorkers("auto"); err != nil || n != 0 {
		t.Errorf("auto = %d, %v", n, err)
	}
	if n, err := ParseWorkers(" 8 "); err != nil || n != 8 {
		t.Errorf("8 = %d, %v", n, err)
	}
	for _, bad := range []string{"", "0", "many"} {
		if _, err := ParseWorkers(bad); err == nil {
			t.Errorf("ParseWorkers(%q) should fail", bad)
		}
	}
}

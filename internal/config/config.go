package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the command-line defaults, loaded from environment variables.
type Config struct {
	SampleRate int     // render rate in Hz
	MaxSeconds float64 // longest accepted input
	OutputDir  string
	Workers    int // synth goroutines, 0 = GOMAXPROCS
	Instrument string
	Preset     string // optional instrument preset file
	Timeout    time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate: envPositiveInt("HUM_SAMPLE_RATE", 44100),
		MaxSeconds: envFloat("HUM_MAX_SECONDS", 60),
		OutputDir:  envStr("HUM_OUTPUT_DIR", "out"),
		Workers:    envWorkers("HUM_WORKERS", 0),
		Instrument: envStr("HUM_INSTRUMENT", "piano"),
		Preset:     envStr("HUM_PRESET", ""),
		Timeout:    time.Duration(envPositiveInt("HUM_TIMEOUT_SECONDS", 120)) * time.Second,
	}
}

// ParseWorkers accepts an integer >= 1 or "auto" (returned as 0).
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envPositiveInt treats zero and negative values as malformed.
func envPositiveInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envWorkers(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := ParseWorkers(v); err == nil {
			return n
		}
	}
	return fallback
}

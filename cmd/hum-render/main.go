package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cwbudde/hum2melody/internal/config"
	"github.com/cwbudde/hum2melody/internal/wavio"
	"github.com/cwbudde/hum2melody/pipeline"
	"github.com/cwbudde/hum2melody/preset"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type cliOptions struct {
	input      string
	outputDir  string
	presetPath string
	sampleRate int
	workers    int
	maxSeconds float64
	debug      bool
	instrument string // fallback when neither -instrument nor the preset picks one
	params     pipeline.Params
}

func parseFlags(args []string, cfg config.Config) (cliOptions, error) {
	fs := flag.NewFlagSet("hum-render", flag.ContinueOnError)
	opts := cliOptions{params: pipeline.DefaultParams()}
	p := &opts.params

	fs.StringVar(&opts.input, "input", "", "Input WAV recording (required)")
	fs.StringVar(&opts.outputDir, "output-dir", cfg.OutputDir, "Directory for the .mid, .wav and .json artifacts")
	fs.StringVar(&opts.presetPath, "preset", cfg.Preset, "Instrument preset JSON file (optional)")
	fs.IntVar(&opts.sampleRate, "sample-rate", cfg.SampleRate, "Render sample rate in Hz")
	workers := fs.String("workers", "auto", "Synth worker count (integer >= 1 or 'auto')")
	fs.Float64Var(&opts.maxSeconds, "max-seconds", cfg.MaxSeconds, "Longest accepted input in seconds")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	fs.StringVar(&p.Instrument, "instrument", "", "Instrument profile (default from preset or HUM_INSTRUMENT)")
	fs.StringVar(&p.Scale, "scale", "auto", "Scale name or 'auto'")
	fs.StringVar(&p.Root, "root", "auto", "Root note (C, C#, Db, ...) or 'auto'")
	fs.StringVar(&p.QuantizeGrid, "grid", "", "Quantize grid: 1/4, 1/8, 1/16, 1/32 or none")
	fs.StringVar(&p.GrooveTemplate, "groove", "", "Groove template")
	fs.Float64Var(&p.Humanize, "humanize", 0, "Timing jitter amount in [0,1]")
	fs.StringVar(&p.EnhancementMode, "mode", "", "Enhancement: smooth, bounce, trap_run, afro_vibe, choir")
	fs.Float64Var(&p.EnhancementIntensity, "intensity", p.EnhancementIntensity, "Enhancement intensity in [0,1]")
	fs.Float64Var(&p.Tempo, "tempo", 0, "Tempo in BPM (0 = detect)")
	fs.Int64Var(&p.Seed, "seed", 1, "Random seed for humanize, ornaments and extension")
	fs.Float64Var(&p.MinLength, "min-length", 0, "Repeat the melody until it lasts this many seconds")
	fs.StringVar(&p.Ornament, "ornament", "", "Ornament style: grace or trill")
	fs.Float64Var(&p.OrnamentDensity, "ornament-density", 0, "Share of notes to ornament in [0,1]")
	fs.Float64Var(&p.Reverb, "reverb", 0, "Room reverb wet share in [0,1]")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.input == "" {
		return opts, errors.New("-input is required")
	}
	opts.instrument = cfg.Instrument
	opts.workers = cfg.Workers
	if flagSet(fs, "workers") {
		n, err := config.ParseWorkers(*workers)
		if err != nil {
			return opts, fmt.Errorf("invalid -workers: %w", err)
		}
		opts.workers = n
	}
	if opts.sampleRate <= 0 {
		return opts, fmt.Errorf("invalid -sample-rate %d", opts.sampleRate)
	}
	return opts, nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

type report struct {
	ID     string           `json:"id"`
	Input  string           `json:"input"`
	MIDI   string           `json:"midi"`
	WAV    string           `json:"wav"`
	Result *pipeline.Result `json:"result"`
}

func main() {
	cfg := config.Load()
	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	initLogger(opts.debug)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	rep, err := run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("done",
		"id", rep.ID,
		"outcome", rep.Result.Outcome.String(),
		"key", rep.Result.Key,
		"tempo", rep.Result.Tempo,
		"notes", rep.Result.Metrics.NoteCount)
	fmt.Printf("Wrote %s and %s\n", rep.MIDI, rep.WAV)
}

func run(ctx context.Context, opts cliOptions) (*report, error) {
	samples, sr, err := wavio.ReadMono(opts.input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.input, err)
	}

	pre := preset.NewDefault()
	if opts.presetPath != "" {
		if pre, err = preset.LoadJSON(opts.presetPath); err != nil {
			return nil, fmt.Errorf("load preset %q: %w", opts.presetPath, err)
		}
	}
	opts.instrument = pre.Instrument(opts.instrument)
	if opts.params.Instrument == "" {
		opts.params.Instrument = opts.instrument
	}

	po := pipeline.DefaultOptions()
	po.Logger = logger
	po.Profiles = pre.Profiles
	po.MaxSeconds = opts.maxSeconds
	po.Render.SampleRate = opts.sampleRate
	po.Render.Workers = opts.workers
	po.Render.NoteGain = pre.NoteGain

	logger.Debug("input loaded", "path", opts.input, "sample_rate", sr, "samples", len(samples))
	res, err := pipeline.Run(ctx, pipeline.Input{Samples: samples, SampleRate: sr}, opts.params, po)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	id := uuid.NewString()
	rep := &report{
		ID:     id,
		Input:  opts.input,
		MIDI:   filepath.Join(opts.outputDir, id+".mid"),
		WAV:    filepath.Join(opts.outputDir, id+".wav"),
		Result: res,
	}
	if err := os.WriteFile(rep.MIDI, res.MIDI, 0o644); err != nil {
		return nil, fmt.Errorf("write midi: %w", err)
	}
	if err := wavio.WriteMono(rep.WAV, res.Audio, res.SampleRate); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.outputDir, id+".json"), append(b, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return rep, nil
}

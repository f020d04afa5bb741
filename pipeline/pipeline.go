// Package pipeline turns a hummed recording into a melody: pitch tracking,
// note segmentation, key resolution, quantization, enhancement, then MIDI and
// audio rendering.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/hum2melody/analysis"
	"github.com/cwbudde/hum2melody/dsp"
	"github.com/cwbudde/hum2melody/enhance"
	"github.com/cwbudde/hum2melody/melody"
	"github.com/cwbudde/hum2melody/pitch"
	"github.com/cwbudde/hum2melody/rhythm"
	"github.com/cwbudde/hum2melody/synth"
	"github.com/cwbudde/hum2melody/theory"
)

// AnalysisRate is the sample rate the pitch tracker runs at.
const AnalysisRate = 22050

// DefaultMaxSeconds bounds the accepted input length.
const DefaultMaxSeconds = 60.0

// Input is a mono recording.
type Input struct {
	Samples    []float64
	SampleRate int
}

// Seconds returns the input length.
func (in Input) Seconds() float64 {
	if in.SampleRate <= 0 {
		return 0
	}
	return float64(len(in.Samples)) / float64(in.SampleRate)
}

// Options carries the non-user-facing knobs of a run.
type Options struct {
	Logger       *slog.Logger      // nil discards
	Profiles     *synth.ProfileSet // nil uses the built-ins
	Render       synth.Options
	MaxSeconds   float64 // DefaultMaxSeconds when <= 0
	AnalysisRate int     // AnalysisRate when <= 0
	Pitch        pitch.Config
	Segment      melody.SegmentConfig
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Render:       synth.DefaultOptions(),
		MaxSeconds:   DefaultMaxSeconds,
		AnalysisRate: AnalysisRate,
		Pitch:        pitch.DefaultConfig(),
		Segment:      melody.DefaultSegmentConfig(),
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Profiles == nil {
		o.Profiles = synth.NewProfileSet(nil)
	}
	if o.Render.SampleRate <= 0 {
		o.Render = synth.DefaultOptions()
	}
	if o.MaxSeconds <= 0 {
		o.MaxSeconds = DefaultMaxSeconds
	}
	if o.AnalysisRate <= 0 {
		o.AnalysisRate = AnalysisRate
	}
	if o.Pitch == (pitch.Config{}) {
		o.Pitch = pitch.DefaultConfig()
	}
	if o.Segment == (melody.SegmentConfig{}) {
		o.Segment = melody.DefaultSegmentConfig()
	}
	return o
}

// Outcome tells a successful run with a melody apart from the recoverable
// "nothing found" cases.
type Outcome int

const (
	OK Outcome = iota
	InputTooShort
	NoNotesDetected
)

var outcomeNames = [...]string{"ok", "input_too_short", "no_notes_detected"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result holds every artifact of a run.
type Result struct {
	Outcome    Outcome              `json:"outcome"`
	Params     Params               `json:"params"`
	Key        string               `json:"key"`
	Tempo      float64              `json:"tempo"`
	Original   melody.Sequence      `json:"original"`
	Final      melody.Voices        `json:"final"`
	Metrics    analysis.Metrics     `json:"metrics"`
	Render     analysis.RenderStats `json:"render"`
	SampleRate int                  `json:"sample_rate"`
	MIDI       []byte               `json:"-"`
	Audio      []float32            `json:"-"`
}

// Run executes the whole chain. Parameter and input problems are returned as
// errors before any stage runs; a recording without a melody yields a Result
// whose Outcome says so, with a silent buffer and an empty MIDI file.
func Run(ctx context.Context, in Input, params Params, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	pl, err := params.resolve(opts.Profiles)
	if err != nil {
		return nil, err
	}
	if len(in.Samples) == 0 {
		return nil, ErrEmptyInput
	}
	if in.SampleRate <= 0 {
		return nil, invalid("sample_rate", in.SampleRate, ErrOutOfRange)
	}
	if sec := in.Seconds(); sec > opts.MaxSeconds {
		return nil, fmt.Errorf("%w: %.1f s exceeds %.1f s", ErrInputTooLong, sec, opts.MaxSeconds)
	}
	for _, v := range in.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid("samples", "non-finite", ErrOutOfRange)
		}
	}

	started := time.Now()
	res := &Result{Params: params, SampleRate: opts.Render.SampleRate, Tempo: rhythm.DefaultTempo}
	rng := rand.New(rand.NewSource(params.Seed))

	x := dsp.Normalize(in.Samples, 0.95)
	x, err = dsp.Resample(x, in.SampleRate, opts.AnalysisRate)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	if err := stageDone(ctx, "resample"); err != nil {
		return nil, err
	}

	frames := pitch.Track(x, opts.AnalysisRate, opts.Pitch)
	log.Debug("pitch tracked", "frames", len(frames), "voiced", pitch.VoicedCount(frames))
	if len(frames) == 0 {
		res.Outcome = InputTooShort
		if err := finishEmpty(res, pl, opts); err != nil {
			return nil, err
		}
		return res, nil
	}
	if err := stageDone(ctx, "pitch"); err != nil {
		return nil, err
	}

	segCfg := opts.Segment
	segCfg.Hop = opts.Pitch.HopSeconds(opts.AnalysisRate)
	notes := melody.Segment(frames, segCfg)
	log.Debug("segmented", "notes", len(notes))
	if len(notes) == 0 {
		res.Outcome = NoNotesDetected
		if err := finishEmpty(res, pl, opts); err != nil {
			return nil, err
		}
		return res, nil
	}
	if err := stageDone(ctx, "segment"); err != nil {
		return nil, err
	}

	key, snapped, err := theory.Resolve(notes, pl.root, pl.scale)
	if err != nil {
		return nil, fmt.Errorf("resolve key: %w", err)
	}
	res.Key = key.String()
	res.Original = snapped
	log.Debug("key resolved", "root", theory.RootName(key.Root), "scale", key.Scale.Name)
	if err := stageDone(ctx, "key"); err != nil {
		return nil, err
	}

	tempo := params.Tempo
	if tempo <= 0 {
		tempo = rhythm.FitTempo(snapped, params.Seed)
	}
	res.Tempo = tempo
	seq := rhythm.Quantize(snapped, rhythm.Options{
		Grid:     pl.grid,
		Tempo:    tempo,
		Groove:   pl.groove,
		Humanize: pl.humanize,
		Rand:     rng,
	})
	log.Debug("quantized", "tempo", tempo, "grid", pl.grid.String(), "notes", len(seq))
	if err := stageDone(ctx, "quantize"); err != nil {
		return nil, err
	}

	seq = melody.Extend(seq, params.MinLength, rng)
	seq = enhance.Decorate(seq, pl.ornament, key, rng)
	voices := enhance.Apply(seq, pl.mode, enhance.Context{Key: key, Beat: rhythm.BeatSeconds(tempo)})
	res.Final = voices
	log.Debug("enhanced", "voices", len(voices), "notes", voices.NoteCount())
	if err := stageDone(ctx, "enhance"); err != nil {
		return nil, err
	}

	if res.MIDI, err = synth.EncodeMIDI(voices, tempo, synth.DefaultPPQ); err != nil {
		return nil, fmt.Errorf("encode midi: %w", err)
	}
	res.Audio = synth.Render(voices, pl.profile, opts.Render)
	if params.Reverb > 0 {
		room := synth.DefaultRoomConfig(res.SampleRate)
		room.Seed = params.Seed
		ir, err := synth.RoomIR(room)
		if err != nil {
			return nil, fmt.Errorf("room: %w", err)
		}
		if res.Audio, err = synth.ApplyRoom(res.Audio, ir, params.Reverb); err != nil {
			return nil, err
		}
	}
	res.Metrics = analysis.Analyze(snapped, voices, segCfg.LegatoGap)
	res.Render = analysis.Stats(res.Audio, res.SampleRate)
	log.Debug("rendered",
		"instrument", pl.profile.Name,
		"samples", len(res.Audio),
		"peak_dbfs", res.Render.PeakDBFS,
		"elapsed", time.Since(started))
	if err := stageDone(ctx, "render"); err != nil {
		return nil, err
	}
	return res, nil
}

func stageDone(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

func finishEmpty(res *Result, pl plan, opts Options) error {
	midi, err := synth.EncodeMIDI(nil, res.Tempo, synth.DefaultPPQ)
	if err != nil {
		return fmt.Errorf("encode midi: %w", err)
	}
	res.MIDI = midi
	res.Audio = synth.Render(nil, pl.profile, opts.Render)
	res.Render = analysis.Stats(res.Audio, res.SampleRate)
	opts.Logger.Debug("no melody", "outcome", res.Outcome.String())
	return nil
}

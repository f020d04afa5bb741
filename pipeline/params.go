package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/hum2melody/enhance"
	"github.com/cwbudde/hum2melody/rhythm"
	"github.com/cwbudde/hum2melody/synth"
	"github.com/cwbudde/hum2melody/theory"
)

var (
	ErrUnknownScale       = theory.ErrUnknownScale
	ErrUnknownRoot        = theory.ErrUnknownRoot
	ErrUnknownGroove      = errors.New("unknown groove template")
	ErrUnknownGrid        = errors.New("unknown quantize grid")
	ErrUnknownInstrument  = errors.New("unknown instrument")
	ErrUnknownEnhancement = errors.New("unknown enhancement mode")
	ErrUnknownOrnament    = errors.New("unknown ornament")
	ErrOutOfRange         = errors.New("value out of range")
	ErrInputTooLong       = errors.New("input too long")
	ErrEmptyInput         = errors.New("empty input")
)

// ValidationError reports a rejected parameter. Unwrap yields one of the
// sentinel errors above.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, value any, err error) error {
	return &ValidationError{Field: field, Value: fmt.Sprint(value), Err: err}
}

// Params are the user-facing processing options. Empty strings and zero
// values select the defaults; "auto" is accepted for scale and root.
type Params struct {
	Instrument           string  `json:"instrument"`
	Scale                string  `json:"scale"`
	Root                 string  `json:"root"`
	QuantizeGrid         string  `json:"quantize_grid"`
	GrooveTemplate       string  `json:"groove_template"`
	Humanize             float64 `json:"humanize"`
	EnhancementMode      string  `json:"enhancement_mode"`
	EnhancementIntensity float64 `json:"enhancement_intensity"`

	Tempo           float64 `json:"tempo"` // BPM, 0 = detect
	Seed            int64   `json:"seed"`
	MinLength       float64 `json:"min_length"` // seconds, 0 = no extension
	Ornament        string  `json:"ornament"`
	OrnamentDensity float64 `json:"ornament_density"`
	Reverb          float64 `json:"reverb"` // room wet share, 0 = dry
}

// DefaultParams returns the parameters used when a caller sets nothing.
func DefaultParams() Params {
	return Params{
		Instrument:           synth.DefaultInstrument,
		EnhancementIntensity: 0.7,
	}
}

const (
	minTempo     = 30.0
	maxTempo     = 300.0
	maxMinLength = 600.0
)

// plan is the validated, resolved form of Params.
type plan struct {
	root     string
	scale    string
	grid     rhythm.Grid
	groove   *rhythm.Groove
	humanize float64
	mode     *enhance.Mode
	profile  synth.Profile
	ornament enhance.Ornament
}

// Validate checks p against the built-in registries.
func (p Params) Validate() error {
	_, err := p.resolve(nil)
	return err
}

func (p Params) resolve(profiles *synth.ProfileSet) (plan, error) {
	var pl plan

	if s := auto(p.Scale); s != "" {
		if _, ok := theory.LookupScale(s); !ok {
			return pl, invalid("scale", p.Scale, ErrUnknownScale)
		}
		pl.scale = s
	}
	if r := auto(p.Root); r != "" {
		if _, err := theory.ParseRoot(r); err != nil {
			return pl, invalid("root", p.Root, ErrUnknownRoot)
		}
		pl.root = r
	}

	grid, err := rhythm.ParseGrid(p.QuantizeGrid)
	if err != nil {
		return pl, invalid("quantize_grid", p.QuantizeGrid, ErrUnknownGrid)
	}
	pl.grid = grid

	if g := strings.TrimSpace(p.GrooveTemplate); g != "" && !strings.EqualFold(g, "none") {
		groove, err := rhythm.LookupGroove(g)
		if err != nil {
			return pl, invalid("groove_template", p.GrooveTemplate, ErrUnknownGroove)
		}
		pl.groove = groove
	}

	if !inUnit(p.Humanize) {
		return pl, invalid("humanize", p.Humanize, ErrOutOfRange)
	}
	pl.humanize = p.Humanize

	if !inUnit(p.EnhancementIntensity) {
		return pl, invalid("enhancement_intensity", p.EnhancementIntensity, ErrOutOfRange)
	}
	if m := strings.TrimSpace(p.EnhancementMode); m != "" && !strings.EqualFold(m, "none") {
		kind, err := enhance.ParseKind(m)
		if err != nil {
			return pl, invalid("enhancement_mode", p.EnhancementMode, ErrUnknownEnhancement)
		}
		pl.mode = &enhance.Mode{Kind: kind, Intensity: p.EnhancementIntensity}
	}

	if profiles == nil {
		profiles = synth.NewProfileSet(nil)
	}
	profile, ok := profiles.Lookup(p.Instrument)
	if !ok {
		return pl, invalid("instrument", p.Instrument, ErrUnknownInstrument)
	}
	pl.profile = profile

	if p.Tempo != 0 && (math.IsNaN(p.Tempo) || p.Tempo < minTempo || p.Tempo > maxTempo) {
		return pl, invalid("tempo", p.Tempo, ErrOutOfRange)
	}
	if math.IsNaN(p.MinLength) || p.MinLength < 0 || p.MinLength > maxMinLength {
		return pl, invalid("min_length", p.MinLength, ErrOutOfRange)
	}

	style, err := enhance.ParseStyle(p.Ornament)
	if err != nil {
		return pl, invalid("ornament", p.Ornament, ErrUnknownOrnament)
	}
	if !inUnit(p.OrnamentDensity) {
		return pl, invalid("ornament_density", p.OrnamentDensity, ErrOutOfRange)
	}
	pl.ornament = enhance.Ornament{Style: style, Density: p.OrnamentDensity}

	if !inUnit(p.Reverb) {
		return pl, invalid("reverb", p.Reverb, ErrOutOfRange)
	}
	return pl, nil
}

func auto(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return ""
	}
	return s
}

func inUnit(x float64) bool {
	return !math.IsNaN(x) && x >= 0 && x <= 1
}

package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cwbudde/hum2melody/synth"
)

// File is the JSON schema for instrument presets.
type File struct {
	DefaultInstrument string                       `json:"default_instrument"`
	NoteGain          *float64                     `json:"note_gain"`
	Instruments       map[string]InstrumentSetting `json:"instruments"`
}

// InstrumentSetting is a partial instrument entry in a preset file. An entry
// named like a built-in overrides it; any other name defines a new instrument
// starting from Base (or from nothing).
type InstrumentSetting struct {
	Base       string           `json:"base"`
	Harmonics  []synth.Harmonic `json:"harmonics"`
	Attack     *float64         `json:"attack"`
	Decay      *float64         `json:"decay"`
	Sustain    *float64         `json:"sustain"`
	Release    *float64         `json:"release"`
	Brightness *float64         `json:"brightness"`
}

// Preset is the resolved result of a preset file.
type Preset struct {
	Profiles *synth.ProfileSet
	// DefaultInstrument is empty unless the file names one.
	DefaultInstrument string
	NoteGain          float64
}

// NewDefault returns the preset used when no file is given.
func NewDefault() *Preset {
	return &Preset{
		Profiles: synth.NewProfileSet(nil),
		NoteGain: synth.DefaultOptions().NoteGain,
	}
}

// Instrument returns the preset's default instrument, or fallback when the
// file did not name one.
func (p *Preset) Instrument(fallback string) string {
	if p.DefaultInstrument != "" {
		return p.DefaultInstrument
	}
	return fallback
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := NewDefault()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}
	if dst.Profiles == nil {
		dst.Profiles = synth.NewProfileSet(nil)
	}

	if f.NoteGain != nil {
		if *f.NoteGain <= 0 {
			return fmt.Errorf("note_gain must be > 0")
		}
		dst.NoteGain = *f.NoteGain
	}

	names := make([]string, 0, len(f.Instruments))
	for k := range f.Instruments {
		names = append(names, k)
	}
	sort.Strings(names)

	var profiles []synth.Profile
	for _, name := range names {
		p, err := resolveInstrument(dst.Profiles, name, f.Instruments[name])
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
	}
	if len(profiles) > 0 {
		dst.Profiles = dst.Profiles.With(profiles)
	}

	if d := strings.TrimSpace(f.DefaultInstrument); d != "" {
		if _, ok := dst.Profiles.Lookup(d); !ok {
			return fmt.Errorf("default_instrument %q is not defined", d)
		}
		dst.DefaultInstrument = strings.ToLower(d)
	}
	return nil
}

func resolveInstrument(set *synth.ProfileSet, name string, s InstrumentSetting) (synth.Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return synth.Profile{}, fmt.Errorf("instrument names must not be empty")
	}

	p, ok := set.Lookup(key)
	if s.Base != "" {
		if p, ok = set.Lookup(s.Base); !ok {
			return synth.Profile{}, fmt.Errorf("instruments[%s].base %q is not defined", key, s.Base)
		}
	}
	if !ok {
		p = synth.Profile{Brightness: 1, Sustain: 1}
	}
	p.Name = key

	if len(s.Harmonics) > 0 {
		p.Harmonics = append([]synth.Harmonic(nil), s.Harmonics...)
	}
	if s.Attack != nil {
		p.Attack = *s.Attack
	}
	if s.Decay != nil {
		p.Decay = *s.Decay
	}
	if s.Sustain != nil {
		p.Sustain = *s.Sustain
	}
	if s.Release != nil {
		p.Release = *s.Release
	}
	if s.Brightness != nil {
		p.Brightness = *s.Brightness
	}
	if err := p.Validate(); err != nil {
		return synth.Profile{}, fmt.Errorf("instruments[%s]: %w", key, err)
	}
	return p, nil
}

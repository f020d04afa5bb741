package synth

import (
	"fmt"
	"sort"
	"strings"
)

// Harmonic is one partial of an instrument, as a multiple of f0.
type Harmonic struct {
	Ratio     float64 `json:"ratio"`
	Amplitude float64 `json:"amplitude"`
}

// Profile describes an additive instrument voice. Envelope times are in
// seconds; Sustain is a level in [0,1]. Brightness tilts the harmonic weights.
type Profile struct {
	Name       string     `json:"name"`
	Harmonics  []Harmonic `json:"harmonics"`
	Attack     float64    `json:"attack"`
	Decay      float64    `json:"decay"`
	Sustain    float64    `json:"sustain"`
	Release    float64    `json:"release"`
	Brightness float64    `json:"brightness"`
}

// Validate checks the profile ranges.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if len(p.Harmonics) == 0 {
		return fmt.Errorf("profile %s: at least one harmonic is required", p.Name)
	}
	for i, h := range p.Harmonics {
		if h.Ratio <= 0 {
			return fmt.Errorf("profile %s: harmonic %d ratio must be > 0", p.Name, i)
		}
		if h.Amplitude < 0 {
			return fmt.Errorf("profile %s: harmonic %d amplitude must be >= 0", p.Name, i)
		}
	}
	if p.Attack < 0 || p.Decay < 0 || p.Release < 0 {
		return fmt.Errorf("profile %s: envelope times must be >= 0", p.Name)
	}
	if p.Sustain < 0 || p.Sustain > 1 {
		return fmt.Errorf("profile %s: sustain must be in [0,1]", p.Name)
	}
	if p.Brightness <= 0 {
		return fmt.Errorf("profile %s: brightness must be > 0", p.Name)
	}
	return nil
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	p.Harmonics = append([]Harmonic(nil), p.Harmonics...)
	return p
}

func h(pairs ...float64) []Harmonic {
	out := make([]Harmonic, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Harmonic{Ratio: pairs[i], Amplitude: pairs[i+1]})
	}
	return out
}

var builtin = []Profile{
	{Name: "piano", Harmonics: h(1, 1, 2, 0.4, 3, 0.2, 4, 0.15, 5, 0.1),
		Attack: 0.01, Decay: 0.05, Sustain: 0.7, Release: 0.15, Brightness: 1.2},
	{Name: "guitar", Harmonics: h(1, 1, 2, 0.6, 3, 0.4, 4, 0.25, 5, 0.15, 6, 0.1),
		Attack: 0.005, Decay: 0.1, Sustain: 0.6, Release: 0.2, Brightness: 1.5},
	{Name: "strings", Harmonics: h(1, 1, 2, 0.5, 3, 0.35, 4, 0.25, 5, 0.2, 6, 0.15),
		Attack: 0.15, Decay: 0.1, Sustain: 0.85, Release: 0.3, Brightness: 0.9},
	{Name: "bells", Harmonics: h(1, 1, 2.7, 0.7, 4.1, 0.5, 5.8, 0.3, 7.2, 0.2),
		Attack: 0.001, Decay: 0.3, Sustain: 0.3, Release: 0.8, Brightness: 2.0},
	{Name: "synth_lead", Harmonics: h(1, 1, 2, 0.8, 3, 0.6, 4, 0.4, 5, 0.2),
		Attack: 0.02, Decay: 0.05, Sustain: 0.8, Release: 0.1, Brightness: 1.8},
	{Name: "pads", Harmonics: h(1, 1, 2, 0.7, 3, 0.5, 4, 0.4, 5, 0.3, 6, 0.2),
		Attack: 0.3, Decay: 0.2, Sustain: 0.9, Release: 0.5, Brightness: 0.7},
}

var aliases = map[string]string{"synth": "synth_lead", "pad": "pads"}

// DefaultInstrument is used when no instrument is requested.
const DefaultInstrument = "piano"

// ProfileSet is an immutable collection of instrument profiles keyed by name.
type ProfileSet struct {
	byName map[string]Profile
}

var defaultSet = NewProfileSet(nil)

// NewProfileSet returns the built-ins with extra profiles added or replacing
// built-ins of the same name.
func NewProfileSet(extra []Profile) *ProfileSet {
	s := &ProfileSet{byName: make(map[string]Profile, len(builtin)+len(extra))}
	for _, p := range builtin {
		s.byName[p.Name] = p.Clone()
	}
	for _, p := range extra {
		s.byName[strings.ToLower(p.Name)] = p.Clone()
	}
	return s
}

// With returns a new set holding s plus the given profiles, replacing
// profiles of the same name. s itself is not modified.
func (s *ProfileSet) With(extra []Profile) *ProfileSet {
	if s == nil {
		s = defaultSet
	}
	out := &ProfileSet{byName: make(map[string]Profile, len(s.byName)+len(extra))}
	for k, p := range s.byName {
		out.byName[k] = p.Clone()
	}
	for _, p := range extra {
		out.byName[strings.ToLower(p.Name)] = p.Clone()
	}
	return out
}

// Lookup finds a profile by name or alias (case-insensitive).
func (s *ProfileSet) Lookup(name string) (Profile, bool) {
	if s == nil {
		s = defaultSet
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultInstrument
	}
	if p, ok := s.byName[key]; ok {
		return p.Clone(), true
	}
	if target, ok := aliases[key]; ok {
		if p, ok := s.byName[target]; ok {
			return p.Clone(), true
		}
	}
	return Profile{}, false
}

// Names returns the profile names in sorted order.
func (s *ProfileSet) Names() []string {
	if s == nil {
		s = defaultSet
	}
	out := make([]string, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Profiles returns copies of every profile, sorted by name.
func (s *ProfileSet) Profiles() []Profile {
	names := s.Names()
	if s == nil {
		s = defaultSet
	}
	out := make([]Profile, len(names))
	for i, n := range names {
		out[i] = s.byName[n].Clone()
	}
	return out
}

// Lookup finds a built-in profile by name or alias.
func Lookup(name string) (Profile, bool) {
	return defaultSet.Lookup(name)
}

// Names lists the built-in profile names.
func Names() []string {
	return defaultSet.Names()
}

// Profiles returns copies of the built-in profiles.
func Profiles() []Profile {
	return defaultSet.Profiles()
}

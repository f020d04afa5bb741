package theory

import (
	"fmt"
	"strings"
)

// Scale is a named set of semitone offsets from a root.
type Scale struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Intervals []int  `json:"intervals"`
}

// Contains reports whether the offset from the root (mod 12) is in the scale.
func (s Scale) Contains(offset int) bool {
	offset = mod12(offset)
	for _, iv := range s.Intervals {
		if iv == offset {
			return true
		}
	}
	return false
}

// Scale categories. They only group scales for listing.
const (
	CategoryWestern    = "Western"
	CategoryModes      = "Modes"
	CategoryPentatonic = "Pentatonic"
	CategoryBlues      = "Blues"
	CategoryAfrobeat   = "Afrobeat"
	CategoryTrap       = "Trap"
	CategoryWorld      = "World"
)

// Declaration order matters: key detection prefers earlier scales on ties.
var registry = []Scale{
	{Name: "major", Category: CategoryWestern, Intervals: []int{0, 2, 4, 5, 7, 9, 11}},
	{Name: "minor", Category: CategoryWestern, Intervals: []int{0, 2, 3, 5, 7, 8, 10}},
	{Name: "harmonic_minor", Category: CategoryWestern, Intervals: []int{0, 2, 3, 5, 7, 8, 11}},
	{Name: "melodic_minor", Category: CategoryWestern, Intervals: []int{0, 2, 3, 5, 7, 9, 11}},

	{Name: "dorian", Category: CategoryModes, Intervals: []int{0, 2, 3, 5, 7, 9, 10}},
	{Name: "phrygian", Category: CategoryModes, Intervals: []int{0, 1, 3, 5, 7, 8, 10}},
	{Name: "lydian", Category: CategoryModes, Intervals: []int{0, 2, 4, 6, 7, 9, 11}},
	{Name: "mixolydian", Category: CategoryModes, Intervals: []int{0, 2, 4, 5, 7, 9, 10}},
	{Name: "locrian", Category: CategoryModes, Intervals: []int{0, 1, 3, 5, 6, 8, 10}},

	{Name: "major_pentatonic", Category: CategoryPentatonic, Intervals: []int{0, 2, 4, 7, 9}},
	{Name: "minor_pentatonic", Category: CategoryPentatonic, Intervals: []int{0, 3, 5, 7, 10}},

	{Name: "blues", Category: CategoryBlues, Intervals: []int{0, 3, 5, 6, 7, 10}},
	{Name: "major_blues", Category: CategoryBlues, Intervals: []int{0, 2, 3, 4, 7, 9}},

	{Name: "afrobeat", Category: CategoryAfrobeat, Intervals: []int{0, 2, 3, 5, 7, 9, 10}},
	{Name: "afro_pentatonic", Category: CategoryAfrobeat, Intervals: []int{0, 2, 5, 7, 10}},

	{Name: "trap", Category: CategoryTrap, Intervals: []int{0, 2, 3, 5, 7, 8, 11}},
	{Name: "trap_pentatonic", Category: CategoryTrap, Intervals: []int{0, 3, 5, 7, 10}},

	{Name: "arabic", Category: CategoryWorld, Intervals: []int{0, 1, 4, 5, 7, 8, 11}},
	{Name: "japanese", Category: CategoryWorld, Intervals: []int{0, 1, 5, 7, 8}},
	{Name: "hungarian_minor", Category: CategoryWorld, Intervals: []int{0, 2, 3, 6, 7, 8, 11}},
	{Name: "spanish", Category: CategoryWorld, Intervals: []int{0, 1, 4, 5, 7, 8, 10}},
}

var categoryOrder = []string{
	CategoryWestern, CategoryModes, CategoryPentatonic, CategoryBlues,
	CategoryAfrobeat, CategoryTrap, CategoryWorld,
}

// NoteNames are the pitch-class names used for roots, sharps only.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = map[string]int{"DB": 1, "EB": 3, "GB": 6, "AB": 8, "BB": 10}

// Scales returns the registry in declaration order.
func Scales() []Scale {
	out := make([]Scale, len(registry))
	copy(out, registry)
	return out
}

// ScaleNames returns every registered scale name in declaration order.
func ScaleNames() []string {
	out := make([]string, len(registry))
	for i, s := range registry {
		out[i] = s.Name
	}
	return out
}

// LookupScale finds a scale by name (case-insensitive).
func LookupScale(name string) (Scale, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, s := range registry {
		if s.Name == key {
			return s, true
		}
	}
	return Scale{}, false
}

// Categories groups scale names by category, in declaration order.
func Categories() map[string][]string {
	out := make(map[string][]string, len(categoryOrder))
	for _, s := range registry {
		out[s.Category] = append(out[s.Category], s.Name)
	}
	return out
}

// CategoryNames returns the categories in listing order.
func CategoryNames() []string {
	return append([]string(nil), categoryOrder...)
}

// ParseRoot converts a pitch-class name ("C", "F#", "Bb") to 0..11.
func ParseRoot(name string) (int, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range NoteNames {
		if strings.ToUpper(n) == key {
			return i, nil
		}
	}
	if pc, ok := flatNames[key]; ok {
		return pc, nil
	}
	return 0, fmt.Errorf("unknown root %q", name)
}

// RootName returns the sharp spelling of a pitch class.
func RootName(pc int) string {
	return NoteNames[mod12(pc)]
}

// PitchName renders a MIDI pitch as name+octave, 60 = C4.
func PitchName(p int) string {
	return fmt.Sprintf("%s%d", NoteNames[mod12(p)], p/12-1)
}

func mod12(v int) int {
	v %= 12
	if v < 0 {
		v += 12
	}
	return v
}

package rhythm

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/cwbudde/hum2melody/melody"
)

// Grid is a quantization resolution in beats per grid step. GridNone disables
// quantization.
type Grid float64

const (
	GridNone         Grid = 0
	GridQuarter      Grid = 1
	GridEighth       Grid = 0.5
	GridSixteenth    Grid = 0.25
	GridThirtySecond Grid = 0.125
)

// DefaultTempo is used when no tempo can be derived.
const DefaultTempo = 120.0

var gridNames = []struct {
	name string
	grid Grid
}{
	{"1/4", GridQuarter},
	{"1/8", GridEighth},
	{"1/16", GridSixteenth},
	{"1/32", GridThirtySecond},
}

// ParseGrid converts "1/4", "1/8", "1/16" or "1/32" to a Grid. An empty
// string or "none" means no quantization.
func ParseGrid(s string) (Grid, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" || key == "none" {
		return GridNone, nil
	}
	for _, g := range gridNames {
		if g.name == key {
			return g.grid, nil
		}
	}
	return GridNone, fmt.Errorf("unknown grid %q", s)
}

// GridNames lists the accepted grid names.
func GridNames() []string {
	out := make([]string, len(gridNames))
	for i, g := range gridNames {
		out[i] = g.name
	}
	return out
}

func (g Grid) String() string {
	for _, n := range gridNames {
		if n.grid == g {
			return n.name
		}
	}
	return "none"
}

// Step returns the grid step in seconds at the given tempo.
func (g Grid) Step(tempo float64) float64 {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	return float64(g) * BeatSeconds(tempo)
}

// BeatSeconds returns the length of one beat in seconds.
func BeatSeconds(tempo float64) float64 {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	return 60 / tempo
}

// Options configures Quantize.
type Options struct {
	Grid     Grid
	Tempo    float64 // BPM, DefaultTempo when <= 0
	Groove   *Groove
	Humanize float64 // 0..1
	Rand     *rand.Rand
}

// Quantize snaps each note start to its nearest grid line and its duration to
// whole steps, applies the groove and humanize jitter, and returns a
// monophonic, non-overlapping sequence starting at 0. Notes that land on the
// same grid line are merged into one note carrying the pitch of the longer
// one, so later notes never move. With GridNone the input is returned as a
// copy.
func Quantize(s melody.Sequence, opts Options) melody.Sequence {
	if opts.Grid <= GridNone || len(s) == 0 {
		return s.Clone()
	}
	step := opts.Grid.Step(opts.Tempo)
	jitter := 0.3 * clampUnit(opts.Humanize) * step
	rng := opts.Rand
	if jitter > 0 && rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	type slot struct {
		pos      int
		first    float64 // earliest original start
		end      float64 // latest original end
		longest  float64
		pitch    int
		velocity int
	}
	var slots []slot
	for _, n := range s {
		pos := int(math.Round(n.Start / step))
		if k := len(slots) - 1; k >= 0 && pos <= slots[k].pos {
			last := &slots[k]
			last.end = math.Max(last.end, n.End())
			if n.Duration > last.longest {
				last.longest, last.pitch, last.velocity = n.Duration, n.Pitch, n.Velocity
			}
			continue
		}
		slots = append(slots, slot{
			pos: pos, first: n.Start, end: n.End(),
			longest: n.Duration, pitch: n.Pitch, velocity: n.Velocity,
		})
	}

	out := make(melody.Sequence, len(slots))
	for i, sl := range slots {
		start := float64(sl.pos) * step
		dur := math.Max(1, math.Round((sl.end-sl.first)/step)) * step

		if opts.Groove != nil {
			gs := opts.Groove.Step(sl.pos)
			start += gs.Shift * step
			if gs.DurationScale > 0 {
				dur *= gs.DurationScale
			}
		}
		if jitter > 0 {
			start += (2*rng.Float64() - 1) * jitter
			dur += (2*rng.Float64() - 1) * jitter
		}

		out[i] = melody.Note{Start: start, Duration: dur, Pitch: sl.pitch, Velocity: sl.velocity}
	}
	return settle(out, math.Min(0.05, step/4)).ShiftToZero()
}

// settle clamps starts to >= 0, restores time order and trims durations so
// notes never overlap and never fall below floor.
func settle(s melody.Sequence, floor float64) melody.Sequence {
	for i := range s {
		if s[i].Start < 0 {
			s[i].Start = 0
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Start < s[j].Start })
	for i := range s {
		if s[i].Duration < floor {
			s[i].Duration = floor
		}
		if i+1 == len(s) {
			break
		}
		if s[i+1].Start-s[i].Start < floor {
			s[i+1].Start = s[i].Start + floor
		}
		if gap := s[i+1].Start - s[i].Start; s[i].Duration > gap {
			s[i].Duration = gap
		}
	}
	return s
}

func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Package enhance applies stylistic transforms to a monophonic melody.
package enhance

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/hum2melody/melody"
	"github.com/cwbudde/hum2melody/theory"
)

// Kind selects an enhancement transform.
type Kind int

const (
	Smooth Kind = iota
	Bounce
	TrapRun
	AfroVibe
	Choir
)

var kindNames = []string{"smooth", "bounce", "trap_run", "afro_vibe", "choir"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a mode name such as "trap_run" to its Kind.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for i, n := range kindNames {
		if n == key {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown enhancement mode %q", name)
}

// KindNames lists every mode name.
func KindNames() []string {
	return append([]string(nil), kindNames...)
}

// Mode is a transform together with its strength in [0,1].
type Mode struct {
	Kind      Kind
	Intensity float64
}

// Context carries the musical frame the transforms work in.
type Context struct {
	Key  theory.Key
	Beat float64 // seconds per beat
}

const (
	minNoteLength = 0.05
	onBeatWindow  = 0.05 // fraction of a beat
)

// Apply runs the transform selected by mode. A nil mode returns the input as
// the only voice. The input is never modified.
func Apply(s melody.Sequence, mode *Mode, ctx Context) melody.Voices {
	if mode == nil || len(s) == 0 {
		return melody.Voices{s.Clone()}
	}
	if ctx.Beat <= 0 {
		ctx.Beat = 0.5
	}
	i := clampUnit(mode.Intensity)

	switch mode.Kind {
	case Smooth:
		return melody.Voices{smooth(s, i, ctx)}
	case Bounce:
		return melody.Voices{bounce(s, i, ctx)}
	case TrapRun:
		return melody.Voices{trapRun(s, i, ctx)}
	case AfroVibe:
		return melody.Voices{afroVibe(s, i, ctx)}
	case Choir:
		return choir(s, i, ctx)
	default:
		return melody.Voices{s.Clone()}
	}
}

// smooth pulls leaps wider than a fifth toward it and closes gaps toward legato.
func smooth(s melody.Sequence, intensity float64, ctx Context) melody.Sequence {
	out := s.Clone()
	if intensity == 0 {
		return out
	}
	for i := 1; i < len(out); i++ {
		prev := out[i-1].Pitch
		iv := out[i].Pitch - prev
		if abs(iv) <= 7 {
			continue
		}
		target := prev + 7*sign(iv)
		blended := int(math.Round(float64(out[i].Pitch)*(1-intensity) + float64(target)*intensity))
		out[i].Pitch = ctx.Key.Snap(blended)
	}
	for i := 0; i+1 < len(out); i++ {
		if gap := out[i+1].Start - out[i].End(); gap > 0 {
			out[i].Duration += gap * intensity
		}
	}
	return out
}

func bounce(s melody.Sequence, intensity float64, ctx Context) melody.Sequence {
	out := s.Clone()
	accent := int(math.Round(12 * intensity))
	for i := range out {
		orig := out[i].Duration
		d := math.Max(minNoteLength, orig*(1-0.5*intensity))
		out[i].Duration = math.Min(d, orig)
		if onBeat(out[i].Start, ctx.Beat) {
			out[i].Velocity = clampInt(out[i].Velocity+accent, 1, 127)
		}
	}
	return out
}

const (
	trapMinLength = 0.15
	slideStep     = 0.06
)

// trapRun decorates a deterministic share of the longer notes, alternating
// between a diatonic slide into the note and a triplet repeat.
func trapRun(s melody.Sequence, intensity float64, ctx Context) melody.Sequence {
	out := make(melody.Sequence, 0, len(s)*2)
	var acc float64
	slide := true
	for _, n := range s {
		if n.Duration < trapMinLength {
			out = append(out, n)
			continue
		}
		acc += intensity
		if acc < 1 {
			out = append(out, n)
			continue
		}
		acc--
		if slide {
			out = append(out, slideInto(n, ctx.Key)...)
		} else {
			out = append(out, triplet(n)...)
		}
		slide = !slide
	}
	return out
}

func slideInto(n melody.Note, key theory.Key) []melody.Note {
	lead := math.Min(slideStep, n.Duration/6)
	vel := clampInt(int(math.Round(0.8*float64(n.Velocity))), 1, 127)
	return []melody.Note{
		{Start: n.Start, Duration: lead, Pitch: key.Transpose(n.Pitch, -2), Velocity: vel},
		{Start: n.Start + lead, Duration: lead, Pitch: key.Transpose(n.Pitch, -1), Velocity: vel},
		{Start: n.Start + 2*lead, Duration: n.Duration - 2*lead, Pitch: n.Pitch, Velocity: n.Velocity},
	}
}

func triplet(n melody.Note) []melody.Note {
	d := n.Duration / 3
	decay := []float64{1, 0.85, 0.7}
	out := make([]melody.Note, 3)
	for k := range out {
		out[k] = melody.Note{
			Start:    n.Start + float64(k)*d,
			Duration: d,
			Pitch:    n.Pitch,
			Velocity: clampInt(int(math.Round(decay[k]*float64(n.Velocity))), 1, 127),
		}
	}
	return out
}

// afroVibe delays a deterministic share of onsets by a fraction of a
// sixteenth, favouring off-beat notes. Note ends do not move.
func afroVibe(s melody.Sequence, intensity float64, ctx Context) melody.Sequence {
	out := s.Clone()
	shift := 0.3 * intensity * ctx.Beat / 4
	var acc float64
	for i := range out {
		w := intensity
		if onBeat(out[i].Start, ctx.Beat) {
			w /= 2
		}
		acc += w
		if acc < 1 {
			continue
		}
		acc--
		d := math.Min(shift, out[i].Duration-minNoteLength)
		if d <= 0 {
			continue
		}
		out[i].Start += d
		out[i].Duration -= d
	}
	return out
}

// choir adds a diatonic third voice above 0.3 intensity and a fifth voice
// above 0.6.
func choir(s melody.Sequence, intensity float64, ctx Context) melody.Voices {
	voices := melody.Voices{s.Clone()}
	gain := 0.5 + 0.3*intensity
	harmony := func(steps int) melody.Sequence {
		out := s.Clone()
		for i := range out {
			out[i].Pitch = diatonicAbove(ctx.Key, out[i].Pitch, steps)
			out[i].Velocity = clampInt(int(math.Round(float64(out[i].Velocity)*gain)), 1, 127)
		}
		return out
	}
	if intensity > 0.3 {
		voices = append(voices, harmony(2))
	}
	if intensity > 0.6 {
		voices = append(voices, harmony(4))
	}
	return voices
}

// diatonicAbove moves p up by steps scale degrees, dropping an octave when the
// result would leave the MIDI range.
func diatonicAbove(k theory.Key, p, steps int) int {
	if p < 12 {
		return k.Transpose(p, steps)
	}
	q := k.Transpose(p-12, steps) + 12
	for q > 127 {
		q -= 12
	}
	return q
}

func onBeat(t, beat float64) bool {
	if beat <= 0 {
		return false
	}
	x := t / beat
	return math.Abs(x-math.Round(x)) < onBeatWindow
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

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

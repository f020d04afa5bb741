package theory

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/hum2melody/melody"
)

var (
	// ErrUnknownScale is returned for scale names missing from the registry.
	ErrUnknownScale = errors.New("unknown scale")
	// ErrUnknownRoot is returned for root names that are not pitch classes.
	ErrUnknownRoot = errors.New("unknown root")
)

// Key is a root pitch class combined with a scale.
type Key struct {
	Root  int   `json:"root"`
	Scale Scale `json:"scale"`
}

// DefaultKey is used when there is nothing to detect from.
func DefaultKey() Key {
	s, _ := LookupScale("minor")
	return Key{Root: 0, Scale: s}
}

// String renders the key as "C minor".
func (k Key) String() string {
	return RootName(k.Root) + " " + k.Scale.Name
}

// InScale reports whether a MIDI pitch belongs to the key.
func (k Key) InScale(p int) bool {
	return k.Scale.Contains(p - k.Root)
}

// PitchClasses returns the absolute pitch classes of the key.
func (k Key) PitchClasses() []int {
	out := make([]int, len(k.Scale.Intervals))
	for i, iv := range k.Scale.Intervals {
		out[i] = mod12(k.Root + iv)
	}
	return out
}

// Snap moves p to the nearest in-key pitch. Ties go to the lower pitch and
// the result stays within 0..127.
func (k Key) Snap(p int) int {
	if len(k.Scale.Intervals) == 0 || k.InScale(p) {
		return clamp(p, 0, 127)
	}
	for d := 1; d <= 12; d++ {
		if lo := p - d; lo >= 0 && k.InScale(lo) {
			return clamp(lo, 0, 127)
		}
		if hi := p + d; hi <= 127 && k.InScale(hi) {
			return clamp(hi, 0, 127)
		}
	}
	return clamp(p, 0, 127)
}

// Degree returns the scale degree of an in-key pitch and its octave relative
// to the root's octave. ok is false for out-of-key pitches.
func (k Key) Degree(p int) (degree, octave int, ok bool) {
	rel := p - k.Root
	octave = floorDiv(rel, 12)
	off := rel - octave*12
	for i, iv := range k.Scale.Intervals {
		if iv == off {
			return i, octave, true
		}
	}
	return 0, 0, false
}

// Transpose moves p by the given number of scale steps. Out-of-key input is
// snapped first. The result is clamped to 0..127.
func (k Key) Transpose(p, steps int) int {
	n := len(k.Scale.Intervals)
	if n == 0 {
		return clamp(p+steps, 0, 127)
	}
	deg, oct, ok := k.Degree(p)
	if !ok {
		deg, oct, _ = k.Degree(k.Snap(p))
	}
	idx := deg + steps
	oct += floorDiv(idx, n)
	idx -= floorDiv(idx, n) * n
	return clamp(k.Root+oct*12+k.Scale.Intervals[idx], 0, 127)
}

// SnapSequence snaps every note of s to the key.
func (k Key) SnapSequence(s melody.Sequence) melody.Sequence {
	out := s.Clone()
	for i := range out {
		out[i].Pitch = k.Snap(out[i].Pitch)
	}
	return out
}

// Transpose shifts every note chromatically, clamped to 0..127.
func Transpose(s melody.Sequence, semitones int) melody.Sequence {
	out := s.Clone()
	for i := range out {
		out[i].Pitch = clamp(out[i].Pitch+semitones, 0, 127)
	}
	return out
}

// Histogram returns the duration-weighted pitch-class histogram of s.
func Histogram(s melody.Sequence) [12]float64 {
	var h [12]float64
	for _, n := range s {
		if n.Duration > 0 {
			h[mod12(n.Pitch)] += n.Duration
		}
	}
	return h
}

// DetectKey scores every (scale, root) pair against the pitch-class histogram
// and returns the best. In-scale weight counts fully and out-of-scale weight
// costs half. Ties keep the earlier scale, then the lower root. With no notes
// the default key is returned.
func DetectKey(s melody.Sequence, candidates []Scale) Key {
	if len(candidates) == 0 {
		candidates = registry
	}
	hist := Histogram(s)
	var total float64
	for _, w := range hist {
		total += w
	}
	if total <= 0 {
		return DefaultKey()
	}

	best := Key{Root: 0, Scale: candidates[0]}
	bestScore := math.Inf(-1)
	for _, sc := range candidates {
		for root := 0; root < 12; root++ {
			score := keyScore(hist, total, root, sc)
			if score > bestScore {
				bestScore = score
				best = Key{Root: root, Scale: sc}
			}
		}
	}
	return best
}

func keyScore(hist [12]float64, total float64, root int, sc Scale) float64 {
	var in, out float64
	for pc, w := range hist {
		if sc.Contains(pc - root) {
			in += w
		} else {
			out += w
		}
	}
	return (in - 0.5*out) / total
}

// Resolve picks the key for s and snaps s to it. An empty root or scale is
// inferred from the notes; when only the root is given, detection is limited
// to that root, and when only the scale is given, to that scale.
func Resolve(s melody.Sequence, root, scale string) (Key, melody.Sequence, error) {
	var (
		sc      Scale
		haveSc  bool
		rootPC  int
		haveRt  bool
		err     error
		choices = registry
	)
	if scale != "" {
		var ok bool
		sc, ok = LookupScale(scale)
		if !ok {
			return Key{}, nil, fmt.Errorf("%w: %q", ErrUnknownScale, scale)
		}
		haveSc = true
		choices = []Scale{sc}
	}
	if root != "" {
		rootPC, err = ParseRoot(root)
		if err != nil {
			return Key{}, nil, fmt.Errorf("%w: %q", ErrUnknownRoot, root)
		}
		haveRt = true
	}

	var key Key
	switch {
	case haveSc && haveRt:
		key = Key{Root: rootPC, Scale: sc}
	case haveRt:
		key = detectForRoot(s, rootPC)
	default:
		key = DetectKey(s, choices)
		if len(s) == 0 && haveSc {
			key = Key{Root: 0, Scale: sc}
		}
	}
	return key, key.SnapSequence(s), nil
}

func detectForRoot(s melody.Sequence, root int) Key {
	hist := Histogram(s)
	var total float64
	for _, w := range hist {
		total += w
	}
	if total <= 0 {
		k := DefaultKey()
		k.Root = root
		return k
	}
	best := Key{Root: root, Scale: registry[0]}
	bestScore := math.Inf(-1)
	for _, sc := range registry {
		if score := keyScore(hist, total, root, sc); score > bestScore {
			bestScore = score
			best = Key{Root: root, Scale: sc}
		}
	}
	return best
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

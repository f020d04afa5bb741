package enhance

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/cwbudde/hum2melody/melody"
	"github.com/cwbudde/hum2melody/theory"
)

// Style selects an ornament.
type Style int

const (
	NoOrnament Style = iota
	Grace
	Trill
)

// ParseStyle maps "grace" or "trill" to a Style; "" and "none" disable
// ornamentation.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoOrnament, nil
	case "grace":
		return Grace, nil
	case "trill":
		return Trill, nil
	}
	return NoOrnament, fmt.Errorf("unknown ornament %q", name)
}

func (s Style) String() string {
	switch s {
	case Grace:
		return "grace"
	case Trill:
		return "trill"
	}
	return "none"
}

// Ornament configures ornamentation. Density is the chance in [0,1] that an
// eligible note is decorated.
type Ornament struct {
	Style   Style
	Density float64
}

const (
	graceLength  = 0.05
	trillLength  = 0.06
	trillMinNote = 0.3
	graceMinNote = 2 * graceLength
)

// Decorate adds grace notes or trills using the upper scale neighbour.
// Decorations stay inside each note's extent, so the result is still
// monophonic. rng drives the selection; nil means a fixed seed.
func Decorate(s melody.Sequence, o Ornament, key theory.Key, rng *rand.Rand) melody.Sequence {
	if o.Style == NoOrnament || o.Density <= 0 || len(s) == 0 {
		return s.Clone()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	out := make(melody.Sequence, 0, len(s))
	for _, n := range s {
		switch o.Style {
		case Grace:
			if n.Duration < graceMinNote || rng.Float64() >= o.Density {
				out = append(out, n)
				continue
			}
			out = append(out,
				melody.Note{Start: n.Start, Duration: graceLength, Pitch: key.Transpose(n.Pitch, 1), Velocity: n.Velocity},
				melody.Note{Start: n.Start + graceLength, Duration: n.Duration - graceLength, Pitch: n.Pitch, Velocity: n.Velocity},
			)
		case Trill:
			if n.Duration <= trillMinNote || rng.Float64() >= o.Density {
				out = append(out, n)
				continue
			}
			out = append(out, trill(n, key.Transpose(n.Pitch, 1))...)
		default:
			out = append(out, n)
		}
	}
	return out
}

func trill(n melody.Note, upper int) []melody.Note {
	count := int(n.Duration / trillLength)
	if count < 2 {
		return []melody.Note{n}
	}
	out := make([]melody.Note, count)
	for i := range out {
		p := n.Pitch
		if i%2 == 1 {
			p = upper
		}
		out[i] = melody.Note{Start: n.Start + float64(i)*trillLength, Duration: trillLength, Pitch: p, Velocity: n.Velocity}
	}
	// last segment absorbs the remainder
	out[count-1].Duration = n.End() - out[count-1].Start
	return out
}

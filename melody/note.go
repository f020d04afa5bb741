package melody

import (
	"fmt"
	"sort"
)

// Note is one discrete note event. Times are in seconds.
type Note struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Pitch    int     `json:"pitch"`
	Velocity int     `json:"velocity"`
}

// End returns the note-off time.
func (n Note) End() float64 {
	return n.Start + n.Duration
}

// Sequence is a monophonic, time-ordered run of notes.
type Sequence []Note

// Clone returns an independent copy.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	return append(Sequence(nil), s...)
}

// End returns the latest note-off time, 0 for an empty sequence.
func (s Sequence) End() float64 {
	var end float64
	for _, n := range s {
		if e := n.End(); e > end {
			end = e
		}
	}
	return end
}

// Pitches returns the pitch of every note in order.
func (s Sequence) Pitches() []int {
	out := make([]int, len(s))
	for i, n := range s {
		out[i] = n.Pitch
	}
	return out
}

// ShiftToZero moves the sequence so the first note starts at 0.
func (s Sequence) ShiftToZero() Sequence {
	if len(s) == 0 {
		return s.Clone()
	}
	offset := s[0].Start
	out := s.Clone()
	for i := range out {
		out[i].Start -= offset
		if out[i].Start < 0 {
			out[i].Start = 0
		}
	}
	return out
}

// Validate checks the monophonic sequence invariants: non-negative starts,
// positive durations, MIDI ranges, time order and no overlap.
func (s Sequence) Validate() error {
	const eps = 1e-9
	for i, n := range s {
		if n.Start < 0 {
			return fmt.Errorf("note %d: start %f must be >= 0", i, n.Start)
		}
		if n.Duration <= 0 {
			return fmt.Errorf("note %d: duration %f must be > 0", i, n.Duration)
		}
		if n.Pitch < 0 || n.Pitch > 127 {
			return fmt.Errorf("note %d: pitch %d outside 0..127", i, n.Pitch)
		}
		if n.Velocity < 0 || n.Velocity > 127 {
			return fmt.Errorf("note %d: velocity %d outside 0..127", i, n.Velocity)
		}
		if i > 0 && n.Start+eps < s[i-1].End() {
			return fmt.Errorf("note %d starts at %f before previous end %f", i, n.Start, s[i-1].End())
		}
	}
	return nil
}

// Legato reports, for each pair of neighbouring notes, whether the gap
// between them is at most maxGap seconds.
func (s Sequence) Legato(maxGap float64) []bool {
	if len(s) < 2 {
		return nil
	}
	out := make([]bool, len(s)-1)
	for i := 1; i < len(s); i++ {
		out[i-1] = s[i].Start-s[i-1].End() <= maxGap
	}
	return out
}

// Voices holds concurrently sounding monophonic sequences. Index 0 is the lead.
type Voices []Sequence

// Lead returns the first voice, or nil.
func (v Voices) Lead() Sequence {
	if len(v) == 0 {
		return nil
	}
	return v[0]
}

// NoteCount returns the total number of notes across voices.
func (v Voices) NoteCount() int {
	n := 0
	for _, s := range v {
		n += len(s)
	}
	return n
}

// End returns the latest note-off time across voices.
func (v Voices) End() float64 {
	var end float64
	for _, s := range v {
		if e := s.End(); e > end {
			end = e
		}
	}
	return end
}

// Merge flattens all voices into one slice ordered by start, then voice, then
// pitch. The result may overlap and is meant for rendering and reporting only.
func (v Voices) Merge() []Note {
	type tagged struct {
		n     Note
		voice int
	}
	all := make([]tagged, 0, v.NoteCount())
	for vi, s := range v {
		for _, n := range s {
			all = append(all, tagged{n: n, voice: vi})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].n.Start != all[j].n.Start {
			return all[i].n.Start < all[j].n.Start
		}
		if all[i].voice != all[j].voice {
			return all[i].voice < all[j].voice
		}
		return all[i].n.Pitch < all[j].n.Pitch
	})
	out := make([]Note, len(all))
	for i, t := range all {
		out[i] = t.n
	}
	return out
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

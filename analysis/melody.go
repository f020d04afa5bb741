package analysis

import (
	"math"

	"github.com/cwbudde/hum2melody/melody"
)

// Metrics summarizes a rendered melody. Counts, duration and range cover the
// merged voices; AvgInterval and LegatoRatio follow the lead voice.
type Metrics struct {
	NoteCount         int     `json:"note_count"`
	OriginalNoteCount int     `json:"original_note_count"`
	VoiceCount        int     `json:"voice_count"`
	Duration          float64 `json:"duration"`
	PitchRange        int     `json:"pitch_range"`
	AvgInterval       float64 `json:"avg_interval"`
	LowestNote        int     `json:"lowest_note"`
	HighestNote       int     `json:"highest_note"`
	LegatoRatio       float64 `json:"legato_ratio"`
}

// Analyze computes melody metrics for the final voices. original is the
// segmented melody before any transformation.
func Analyze(original melody.Sequence, final melody.Voices, legatoGap float64) Metrics {
	m := Metrics{
		OriginalNoteCount: len(original),
		VoiceCount:        len(final),
	}
	notes := final.Merge()
	m.NoteCount = len(notes)
	if len(notes) == 0 {
		return m
	}

	m.Duration = final.End()
	m.LowestNote, m.HighestNote = notes[0].Pitch, notes[0].Pitch
	for _, n := range notes {
		if n.Pitch < m.LowestNote {
			m.LowestNote = n.Pitch
		}
		if n.Pitch > m.HighestNote {
			m.HighestNote = n.Pitch
		}
	}
	m.PitchRange = m.HighestNote - m.LowestNote

	lead := final.Lead()
	if len(lead) > 1 {
		var sum float64
		for i := 1; i < len(lead); i++ {
			sum += math.Abs(float64(lead[i].Pitch - lead[i-1].Pitch))
		}
		m.AvgInterval = sum / float64(len(lead)-1)
	}

	if pairs := lead.Legato(legatoGap); len(pairs) > 0 {
		legato := 0
		for _, ok := range pairs {
			if ok {
				legato++
			}
		}
		m.LegatoRatio = float64(legato) / float64(len(pairs))
	}
	return m
}

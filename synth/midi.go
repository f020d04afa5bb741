package synth

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cwbudde/hum2melody/melody"
)

// DefaultPPQ is the MIDI resolution in ticks per quarter note.
const DefaultPPQ = 480

// Event is one note-on or note-off at an absolute tick.
type Event struct {
	Tick     uint32
	Channel  uint8
	Pitch    uint8
	Velocity uint8
	On       bool
}

func secondsToTicks(sec, tempo float64, ppq int) uint32 {
	if sec <= 0 {
		return 0
	}
	return uint32(math.Round(sec * tempo / 60 * float64(ppq)))
}

func ticksToSeconds(tick uint32, tempo float64, ppq int) float64 {
	return float64(tick) * 60 / (tempo * float64(ppq))
}

// Events converts voices to an absolute-tick event list. Voice i plays on
// channel i. Events are ordered by tick with note-offs before note-ons on the
// same tick.
func Events(voices melody.Voices, tempo float64, ppq int) []Event {
	if tempo <= 0 {
		tempo = 120
	}
	if ppq <= 0 {
		ppq = DefaultPPQ
	}
	var out []Event
	for vi, s := range voices {
		ch := uint8(vi)
		if vi > 15 {
			ch = 15
		}
		for _, n := range s {
			on := secondsToTicks(n.Start, tempo, ppq)
			off := secondsToTicks(n.End(), tempo, ppq)
			if off <= on {
				off = on + 1
			}
			pitch := uint8(clampInt(n.Pitch, 0, 127))
			vel := uint8(clampInt(n.Velocity, 1, 127))
			out = append(out,
				Event{Tick: on, Channel: ch, Pitch: pitch, Velocity: vel, On: true},
				Event{Tick: off, Channel: ch, Pitch: pitch},
			)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if a.On != b.On {
			return !a.On
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.Pitch < b.Pitch
	})
	return out
}

// EncodeMIDI writes voices as a single-track Standard MIDI File with a tempo
// meta event.
func EncodeMIDI(voices melody.Voices, tempo float64, ppq int) ([]byte, error) {
	if tempo <= 0 {
		tempo = 120
	}
	if ppq <= 0 {
		ppq = DefaultPPQ
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ppq)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("melody"))
	tr.Add(0, smf.MetaTempo(tempo))
	var last uint32
	for _, ev := range Events(voices, tempo, ppq) {
		delta := ev.Tick - last
		last = ev.Tick
		if ev.On {
			tr.Add(delta, midi.NoteOn(ev.Channel, ev.Pitch, ev.Velocity))
		} else {
			tr.Add(delta, midi.NoteOff(ev.Channel, ev.Pitch))
		}
	}
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write smf: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMIDI reads a Standard MIDI File back into voices, one per channel in
// channel order. Only the first tempo event is honoured.
func DecodeMIDI(data []byte) (melody.Voices, float64, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("read smf: %w", err)
	}
	ppq := DefaultPPQ
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok && mt > 0 {
		ppq = int(mt)
	}

	type open struct {
		tick uint32
		vel  uint8
	}
	type raw struct {
		on, off uint32
		pitch   uint8
		vel     uint8
	}
	tempo := 0.0
	byChannel := map[uint8][]raw{}

	for _, tr := range s.Tracks {
		var tick uint32
		pending := map[[2]uint8]open{}
		for _, ev := range tr {
			tick += ev.Delta
			var bpm float64
			if tempo == 0 && ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				tempo = bpm
				continue
			}
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				pending[[2]uint8{ch, key}] = open{tick: tick, vel: vel}
			case msg.GetNoteEnd(&ch, &key):
				k := [2]uint8{ch, key}
				if o, ok := pending[k]; ok {
					byChannel[ch] = append(byChannel[ch], raw{on: o.tick, off: tick, pitch: key, vel: o.vel})
					delete(pending, k)
				}
			}
		}
	}
	if tempo == 0 {
		tempo = 120
	}

	channels := make([]int, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, int(ch))
	}
	sort.Ints(channels)

	voices := make(melody.Voices, 0, len(channels))
	for _, ch := range channels {
		notes := byChannel[uint8(ch)]
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].on < notes[j].on })
		seq := make(melody.Sequence, len(notes))
		for i, n := range notes {
			start := ticksToSeconds(n.on, tempo, ppq)
			seq[i] = melody.Note{
				Start:    start,
				Duration: ticksToSeconds(n.off, tempo, ppq) - start,
				Pitch:    int(n.pitch),
				Velocity: int(n.vel),
			}
		}
		voices = append(voices, seq)
	}
	return voices, tempo, nil
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

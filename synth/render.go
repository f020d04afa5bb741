// Package synth renders note voices with a small additive synthesizer and
// converts them to and from Standard MIDI Files.
package synth

import (
	"math"
	"runtime"
	"sync"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/hum2melody/melody"
)

// Options configures Render.
type Options struct {
	SampleRate int
	Workers    int     // goroutines, GOMAXPROCS when <= 0
	NoteGain   float64 // per-note gain before normalization
	Tail       float64 // seconds after the last note; 0 selects the default, < 0 none
}

// DefaultOptions returns the render defaults.
func DefaultOptions() Options {
	return Options{SampleRate: 44100, NoteGain: 0.5, Tail: 0.25}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleRate <= 0 {
		o.SampleRate = d.SampleRate
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.NoteGain <= 0 {
		o.NoteGain = d.NoteGain
	}
	switch {
	case o.Tail == 0:
		o.Tail = d.Tail
	case o.Tail < 0:
		o.Tail = 0
	}
	return o
}

// emptyLength is the length of the silent buffer returned for no notes.
const emptyLength = 0.1

// Render synthesizes every voice with the given profile and mixes them into a
// mono buffer. The mix is scaled down when it would clip.
func Render(voices melody.Voices, p Profile, opts Options) []float32 {
	opts = opts.withDefaults()
	sr := float64(opts.SampleRate)
	notes := voices.Merge()
	if len(notes) == 0 {
		return make([]float32, int(emptyLength*sr))
	}

	length := int(math.Ceil((voices.End() + opts.Tail) * sr))
	partials := prepareHarmonics(p)

	workers := opts.Workers
	if workers > len(notes) {
		workers = len(notes)
	}
	chunk := (len(notes) + workers - 1) / workers
	bufs := make([][]float64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(notes) {
			hi = len(notes)
		}
		bufs[w] = make([]float64, length)
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(dst []float64, part []melody.Note) {
			defer wg.Done()
			for _, n := range part {
				renderNote(dst, n, p, partials, sr, opts.NoteGain)
			}
		}(bufs[w], notes[lo:hi])
	}
	wg.Wait()

	mix := bufs[0]
	for _, b := range bufs[1:] {
		for i, v := range b {
			mix[i] += v
		}
	}

	peak := 0.0
	for i, v := range mix {
		v = dspcore.FlushDenormals(v)
		mix[i] = v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	scale := 1.0
	if peak > 1 {
		scale = 1 / peak
	}
	out := make([]float32, length)
	for i, v := range mix {
		out[i] = float32(v * scale)
	}
	return out
}

type partial struct {
	ratio  float64
	weight float64
}

// prepareHarmonics applies the brightness tilt and normalizes the weights to
// sum to one.
func prepareHarmonics(p Profile) []partial {
	bright := p.Brightness
	if bright <= 0 {
		bright = 1
	}
	out := make([]partial, 0, len(p.Harmonics))
	var sum float64
	for _, h := range p.Harmonics {
		if h.Ratio <= 0 || h.Amplitude <= 0 {
			continue
		}
		w := h.Amplitude * math.Pow(h.Ratio, -1/bright)
		out = append(out, partial{ratio: h.Ratio, weight: w})
		sum += w
	}
	if sum > 0 {
		for i := range out {
			out[i].weight /= sum
		}
	}
	return out
}

func renderNote(dst []float64, n melody.Note, p Profile, partials []partial, sr float64, gain float64) {
	start := int(math.Round(n.Start * sr))
	count := int(math.Round(n.Duration * sr))
	if start < 0 || count <= 0 || start >= len(dst) {
		return
	}
	if start+count > len(dst) {
		count = len(dst) - start
	}
	f0 := float64(midiNoteToFreq(n.Pitch))
	nyquist := 0.5 * sr
	amp := gain * float64(n.Velocity) / 127

	for _, h := range partials {
		freq := h.ratio * f0
		if freq >= nyquist {
			continue
		}
		w := 2 * math.Pi * freq / sr
		for i := 0; i < count; i++ {
			t := float64(i) / sr
			dst[start+i] += amp * h.weight * Envelope(p, t, n.Duration) * math.Sin(w*float64(i))
		}
	}
}

// Envelope returns the linear ADSR level at time t into a note of length dur.
// The release ends at the note end; attack, decay and release shrink
// proportionally when they do not fit.
func Envelope(p Profile, t, dur float64) float64 {
	if t < 0 || t >= dur || dur <= 0 {
		return 0
	}
	a, d, r := p.Attack, p.Decay, p.Release
	if total := a + d + r; total > dur {
		k := dur / total
		a, d, r = a*k, d*k, r*k
	}
	s := p.Sustain
	switch {
	case t < a:
		return t / a
	case t < a+d:
		return 1 - (1-s)*(t-a)/d
	case t < dur-r:
		return s
	default:
		if r <= 0 {
			return s
		}
		return math.Max(0, s*(dur-t)/r)
	}
}

// midiNoteToFreq converts MIDI note number to frequency in Hz.
func midiNoteToFreq(note int) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

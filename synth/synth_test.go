package synth

import (
	"math"
	"testing"

	"github.com/cwbudde/hum2melody/melody"
)

func testVoices() melody.Voices {
	lead := melody.Sequence{
		{Start: 0, Duration: 0.5, Pitch: 60, Velocity: 100},
		{Start: 0.5, Duration: 0.25, Pitch: 64, Velocity: 90},
		{Start: 0.75, Duration: 0.75, Pitch: 67, Velocity: 110},
	}
	third := melody.Sequence{
		{Start: 0, Duration: 0.5, Pitch: 64, Velocity: 70},
		{Start: 0.75, Duration: 0.75, Pitch: 71, Velocity: 70},
	}
	return melody.Voices{lead, third}
}

func mustProfile(t *testing.T, name string) Profile {
	t.Helper()
	p, ok := Lookup(name)
	if !ok {
		t.Fatalf("profile %q missing", name)
	}
	return p
}

func TestRenderEmptyIsSilent(t *testing.T) {
	out := Render(nil, mustProfile(t, "piano"), Options{SampleRate: 8000})
	if len(out) != 800 {
		t.Fatalf("silent length = %d, want 800", len(out))
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %f, want 0", i, v)
		}
	}
}

func TestRenderLengthAndRange(t *testing.T) {
	sr := 16000
	for _, name := range Names() {
		out := Render(testVoices(), mustProfile(t, name), Options{SampleRate: sr, Workers: 3})
		want := int(math.Ceil((1.5 + 0.25) * float64(sr)))
		if len(out) != want {
			t.Fatalf("%s: length = %d, want %d", name, len(out), want)
		}
		var peak float64
		for _, v := range out {
			if math.IsNaN(float64(v)) {
				t.Fatalf("%s: NaN sample", name)
			}
			peak = math.Max(peak, math.Abs(float64(v)))
		}
		if peak > 1+1e-6 {
			t.Fatalf("%s: peak %f exceeds 1", name, peak)
		}
		if peak < 0.01 {
			t.Fatalf("%s: render is nearly silent (peak %f)", name, peak)
		}
		tail := out[int(1.5*float64(sr))+1:]
		for _, v := range tail {
			if math.Abs(float64(v)) > 1e-6 {
				t.Fatalf("%s: sound after the last note end", name)
			}
		}
	}
}

func TestRenderTailOptions(t *testing.T) {
	sr := 16000
	p := mustProfile(t, "piano")
	cases := []struct {
		tail float64
		want float64
	}{
		{0, 1.5 + DefaultOptions().Tail},
		{-1, 1.5},
		{0.5, 2.0},
	}
	for _, tc := range cases {
		out := Render(testVoices(), p, Options{SampleRate: sr, Tail: tc.tail})
		if want := int(math.Ceil(tc.want * float64(sr))); len(out) != want {
			t.Fatalf("tail %v: length = %d, want %d", tc.tail, len(out), want)
		}
	}
}

func TestRenderWorkerCountDoesNotChangeOutput(t *testing.T) {
	p := mustProfile(t, "guitar")
	a := Render(testVoices(), p, Options{SampleRate: 8000, Workers: 1})
	b := Render(testVoices(), p, Options{SampleRate: 8000, Workers: 4})
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			t.Fatalf("sample %d differs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestRenderNormalizesLoudMixes(t *testing.T) {
	var voices melody.Voices
	for i := 0; i < 8; i++ {
		voices = append(voices, melody.Sequence{{Start: 0, Duration: 0.5, Pitch: 48, Velocity: 127}})
	}
	out := Render(voices, mustProfile(t, "synth"), Options{SampleRate: 8000, NoteGain: 1})
	var peak float64
	for _, v := range out {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak > 1+1e-6 || peak < 0.99 {
		t.Fatalf("peak after normalization = %f, want 1", peak)
	}
}

func TestEnvelopeShape(t *testing.T) {
	p := Profile{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.2}
	cases := []struct{ t, want float64 }{
		{0, 0},
		{0.05, 0.5},
		{0.1, 1},
		{0.15, 0.75},
		{0.5, 0.5},
		{0.9, 0.25},
		{1.0, 0},
	}
	for _, c := range cases {
		if got := Envelope(p, c.t, 1.0); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Envelope(%f) = %f, want %f", c.t, got, c.want)
		}
	}
	// A note shorter than A+D+R squeezes every stage.
	if got := Envelope(p, 0.05, 0.2); math.Abs(got-1) > 1e-9 {
		t.Fatalf("squeezed envelope at attack end = %f, want 1", got)
	}
}

func TestLookupAliasesAndNames(t *testing.T) {
	a := mustProfile(t, "synth")
	b := mustProfile(t, "synth_lead")
	if a.Name != b.Name {
		t.Fatalf("alias resolved to %s", a.Name)
	}
	if p := mustProfile(t, ""); p.Name != DefaultInstrument {
		t.Fatalf("empty name resolved to %s", p.Name)
	}
	if _, ok := Lookup("theremin"); ok {
		t.Fatalf("unexpected profile")
	}
	if len(Names()) != 6 {
		t.Fatalf("names = %v", Names())
	}
	for _, p := range Profiles() {
		if err := p.Validate(); err != nil {
			t.Fatalf("built-in invalid: %v", err)
		}
	}
}

func TestProfileSetOverrides(t *testing.T) {
	custom := Profile{Name: "piano", Harmonics: []Harmonic{{Ratio: 1, Amplitude: 1}}, Sustain: 1, Brightness: 1}
	set := NewProfileSet([]Profile{custom, {Name: "flute", Harmonics: []Harmonic{{Ratio: 1, Amplitude: 1}}, Brightness: 1}})
	p, ok := set.Lookup("piano")
	if !ok || len(p.Harmonics) != 1 {
		t.Fatalf("override not applied: %+v", p)
	}
	if _, ok := set.Lookup("flute"); !ok {
		t.Fatalf("custom profile missing")
	}
	if orig := mustProfile(t, "piano"); len(orig.Harmonics) != 5 {
		t.Fatalf("built-in registry mutated")
	}
}

func TestMidiNoteToFreq(t *testing.T) {
	cases := map[int]float64{69: 440, 60: 261.63, 81: 880}
	for note, want := range cases {
		got := float64(midiNoteToFreq(note))
		if math.Abs(got-want)/want > 0.005 {
			t.Fatalf("midiNoteToFreq(%d) = %f, want %f", note, got, want)
		}
	}
}

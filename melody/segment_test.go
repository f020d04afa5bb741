package melody

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/cwbudde/hum2melody/pitch"
)

const testHop = 512.0 / 22050.0

// contour builds frames from a per-frame MIDI pitch list; NaN marks unvoiced.
func contour(pitches ...float64) []pitch.Frame {
	frames := make([]pitch.Frame, len(pitches))
	for i, p := range pitches {
		frames[i].Time = float64(i) * testHop
		if math.IsNaN(p) {
			continue
		}
		frames[i].Voiced = true
		frames[i].Frequency = 440 * math.Pow(2, (p-69)/12)
		frames[i].Confidence = 0.95
		frames[i].Energy = 0.3
	}
	return frames
}

func repeat(p float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func join(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestSegmentSplitsStablePitchRuns(t *testing.T) {
	frames := contour(join(repeat(60, 20), repeat(64.2, 20), repeat(67, 20))...)
	seq := Segment(frames, DefaultSegmentConfig())
	if len(seq) != 3 {
		t.Fatalf("expected 3 notes, got %d: %+v", len(seq), seq)
	}
	want := []int{60, 64, 67}
	if !reflect.DeepEqual(seq.Pitches(), want) {
		t.Fatalf("pitches = %v, want %v", seq.Pitches(), want)
	}
	if err := seq.Validate(); err != nil {
		t.Fatalf("invalid sequence: %v", err)
	}
	if math.Abs(seq[0].Duration-20*testHop) > 1e-9 {
		t.Fatalf("first duration = %f, want %f", seq[0].Duration, 20*testHop)
	}
	for _, n := range seq {
		if n.Velocity < 40 || n.Velocity > 127 {
			t.Fatalf("velocity %d outside [40,127]", n.Velocity)
		}
	}
}

func TestSegmentIsIdempotent(t *testing.T) {
	frames := contour(join(repeat(57, 12), repeat(math.NaN(), 3), repeat(59.3, 15), repeat(62, 9))...)
	a := Segment(frames, DefaultSegmentConfig())
	b := Segment(frames, DefaultSegmentConfig())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("segmentation not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestSegmentDropsShortRuns(t *testing.T) {
	frames := contour(join(repeat(60, 20), repeat(math.NaN(), 4), repeat(72, 2), repeat(math.NaN(), 4), repeat(62, 20))...)
	seq := Segment(frames, DefaultSegmentConfig())
	if !reflect.DeepEqual(seq.Pitches(), []int{60, 62}) {
		t.Fatalf("expected blip to be discarded, got %v", seq.Pitches())
	}
}

func TestSegmentMedianRemovesOctaveGlitch(t *testing.T) {
	p := repeat(62, 30)
	p[14] = 74
	seq := Segment(contour(p...), DefaultSegmentConfig())
	if len(seq) != 1 || seq[0].Pitch != 62 {
		t.Fatalf("expected one D4 note, got %+v", seq)
	}
}

func TestSegmentBridgesSingleDropout(t *testing.T) {
	p := repeat(65, 30)
	p[10] = math.NaN()
	seq := Segment(contour(p...), DefaultSegmentConfig())
	if len(seq) != 1 {
		t.Fatalf("expected dropout to be bridged, got %d notes", len(seq))
	}
	if math.Abs(seq[0].Duration-30*testHop) > 1e-9 {
		t.Fatalf("duration = %f, want %f", seq[0].Duration, 30*testHop)
	}
}

func TestSegmentKeepsAdjacentRunsDistinct(t *testing.T) {
	frames := contour(join(repeat(60, 10), repeat(math.NaN(), 2), repeat(60, 10))...)
	seq := Segment(frames, DefaultSegmentConfig())
	if len(seq) != 2 {
		t.Fatalf("expected two distinct notes across the gap, got %d", len(seq))
	}
	if seq[1].Start < seq[0].End() {
		t.Fatalf("notes overlap: %+v", seq)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	if seq := Segment(nil, DefaultSegmentConfig()); len(seq) != 0 {
		t.Fatalf("expected no notes, got %d", len(seq))
	}
	if seq := Segment(contour(repeat(math.NaN(), 40)...), DefaultSegmentConfig()); len(seq) != 0 {
		t.Fatalf("expected no notes from unvoiced contour, got %d", len(seq))
	}
}

func TestExtendRepeatsUntilMinLength(t *testing.T) {
	seq := Sequence{
		{Start: 0, Duration: 0.5, Pitch: 60, Velocity: 90},
		{Start: 0.5, Duration: 0.5, Pitch: 62, Velocity: 90},
	}
	out := Extend(seq, 3.2, nil)
	if len(out) != 7 {
		t.Fatalf("expected 7 notes, got %d", len(out))
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("extended sequence invalid: %v", err)
	}
	if out[6].Start != 3.0 || out[6].Pitch != 60 {
		t.Fatalf("unexpected last note %+v", out[6])
	}
	if len(seq) != 2 {
		t.Fatalf("input mutated")
	}
}

func TestExtendVariationsStayInRange(t *testing.T) {
	seq := Sequence{{Start: 0, Duration: 0.25, Pitch: 90, Velocity: 80}}
	out := Extend(seq, 10, rand.New(rand.NewSource(3)))
	for _, n := range out[1:] {
		if n.Pitch < 36 || n.Pitch > 96 {
			t.Fatalf("variation out of range: %d", n.Pitch)
		}
	}
}

func TestVoicesMergeOrdersByStart(t *testing.T) {
	v := Voices{
		{{Start: 0, Duration: 1, Pitch: 60}, {Start: 1, Duration: 1, Pitch: 62}},
		{{Start: 0, Duration: 1, Pitch: 64}, {Start: 1, Duration: 1, Pitch: 65}},
	}
	merged := v.Merge()
	got := []int{merged[0].Pitch, merged[1].Pitch, merged[2].Pitch, merged[3].Pitch}
	if !reflect.DeepEqual(got, []int{60, 64, 62, 65}) {
		t.Fatalf("merge order = %v", got)
	}
	if v.NoteCount() != 4 || v.End() != 2 {
		t.Fatalf("unexpected count/end: %d %f", v.NoteCount(), v.End())
	}
}

func TestShiftToZero(t *testing.T) {
	seq := Sequence{{Start: 0.4, Duration: 0.2, Pitch: 60}, {Start: 0.7, Duration: 0.2, Pitch: 61}}
	out := seq.ShiftToZero()
	if out[0].Start != 0 || math.Abs(out[1].Start-0.3) > 1e-12 {
		t.Fatalf("unexpected shift: %+v", out)
	}
	if seq[0].Start != 0.4 {
		t.Fatalf("input mutated")
	}
}

func TestValidateRejectsOverlap(t *testing.T) {
	seq := Sequence{{Start: 0, Duration: 1, Pitch: 60, Velocity: 80}, {Start: 0.5, Duration: 1, Pitch: 62, Velocity: 80}}
	if err := seq.Validate(); err == nil {
		t.Fatalf("expected overlap error")
	}
}

func TestLegatoClassifiesGaps(t *testing.T) {
	seq := Sequence{
		{Start: 0, Duration: 0.5, Pitch: 60},
		{Start: 0.52, Duration: 0.5, Pitch: 62},
		{Start: 1.3, Duration: 0.5, Pitch: 64},
	}
	got := seq.Legato(DefaultSegmentConfig().LegatoGap)
	if !reflect.DeepEqual(got, []bool{true, false}) {
		t.Fatalf("legato = %v", got)
	}
}

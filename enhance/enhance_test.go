package enhance

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/cwbudde/hum2melody/melody"
	"github.com/cwbudde/hum2melody/theory"
)

func cMajor(t *testing.T) Context {
	t.Helper()
	sc, ok := theory.LookupScale("major")
	if !ok {
		t.Fatalf("major scale missing")
	}
	return Context{Key: theory.Key{Root: 0, Scale: sc}, Beat: 0.5}
}

func melodyOf(pitches ...int) melody.Sequence {
	s := make(melody.Sequence, len(pitches))
	for i, p := range pitches {
		s[i] = melody.Note{Start: float64(i) * 0.5, Duration: 0.4, Pitch: p, Velocity: 80}
	}
	return s
}

func TestApplyNilModeIsIdentity(t *testing.T) {
	in := melodyOf(60, 64, 67)
	v := Apply(in, nil, cMajor(t))
	if len(v) != 1 || !reflect.DeepEqual(v[0], in) {
		t.Fatalf("nil mode changed the melody: %+v", v)
	}
}

func TestBouncePreservesCountAndShortens(t *testing.T) {
	in := melodyOf(60, 62, 64, 65, 67)
	v := Apply(in, &Mode{Kind: Bounce, Intensity: 1}, cMajor(t))
	if len(v) != 1 || len(v[0]) != len(in) {
		t.Fatalf("bounce changed note count")
	}
	for i, n := range v[0] {
		if n.Start != in[i].Start || n.Pitch != in[i].Pitch {
			t.Fatalf("note %d moved: %+v", i, n)
		}
		if n.Duration > in[i].Duration || math.Abs(n.Duration-0.2) > 1e-9 {
			t.Fatalf("note %d duration %f, want 0.2", i, n.Duration)
		}
		if n.Velocity != 92 {
			t.Fatalf("note %d velocity %d, want accented 92", i, n.Velocity)
		}
	}
}

func TestBounceKeepsVeryShortNotes(t *testing.T) {
	in := melody.Sequence{{Start: 0.1, Duration: 0.03, Pitch: 60, Velocity: 70}}
	v := Apply(in, &Mode{Kind: Bounce, Intensity: 0.5}, cMajor(t))
	if v[0][0].Duration != 0.03 {
		t.Fatalf("short note lengthened to %f", v[0][0].Duration)
	}
}

func TestAfroVibePreservesCountOrderAndEnds(t *testing.T) {
	in := melodyOf(60, 62, 64, 65, 67, 69)
	v := Apply(in, &Mode{Kind: AfroVibe, Intensity: 1}, cMajor(t))
	out := v[0]
	if len(out) != len(in) {
		t.Fatalf("afro vibe changed note count")
	}
	shifted := 0
	for i, n := range out {
		if math.Abs(n.End()-in[i].End()) > 1e-9 {
			t.Fatalf("note %d end moved", i)
		}
		if n.Start < in[i].Start || n.Duration < minNoteLength {
			t.Fatalf("note %d invalid shift: %+v", i, n)
		}
		if n.Start > in[i].Start {
			shifted++
			if math.Abs(n.Start-in[i].Start-0.0375) > 1e-9 {
				t.Fatalf("note %d shift = %f", i, n.Start-in[i].Start)
			}
		}
	}
	if shifted != 3 {
		t.Fatalf("shifted %d notes, want 3", shifted)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("afro vibe output invalid: %v", err)
	}
}

func TestChoirVoiceCount(t *testing.T) {
	in := melodyOf(60, 72, 62, 64)
	ctx := cMajor(t)

	v := Apply(in, &Mode{Kind: Choir, Intensity: 0}, ctx)
	if len(v) != 1 || !reflect.DeepEqual(v[0], in) {
		t.Fatalf("choir at 0 should return the melody alone, got %d voices", len(v))
	}
	if v := Apply(in, &Mode{Kind: Choir, Intensity: 0.5}, ctx); len(v) != 2 {
		t.Fatalf("choir at 0.5: %d voices, want 2", len(v))
	}

	v = Apply(in, &Mode{Kind: Choir, Intensity: 1}, ctx)
	if len(v) != 3 {
		t.Fatalf("choir at 1: %d voices, want 3", len(v))
	}
	if !reflect.DeepEqual(v[1].Pitches(), []int{64, 76, 65, 67}) {
		t.Fatalf("third voice = %v", v[1].Pitches())
	}
	if !reflect.DeepEqual(v[2].Pitches(), []int{67, 79, 69, 71}) {
		t.Fatalf("fifth voice = %v", v[2].Pitches())
	}
	for vi, voice := range v {
		if len(voice) != len(in) {
			t.Fatalf("voice %d has %d notes", vi, len(voice))
		}
		for i, n := range voice {
			if n.Start != in[i].Start || n.Duration != in[i].Duration {
				t.Fatalf("voice %d note %d not simultaneous with lead", vi, i)
			}
		}
	}
	if v[1][0].Velocity != 64 {
		t.Fatalf("harmony velocity = %d, want 64", v[1][0].Velocity)
	}
}

func TestChoirStaysInMIDIRange(t *testing.T) {
	v := Apply(melodyOf(127, 124), &Mode{Kind: Choir, Intensity: 1}, cMajor(t))
	for _, voice := range v {
		for _, n := range voice {
			if n.Pitch < 0 || n.Pitch > 127 {
				t.Fatalf("pitch %d out of range", n.Pitch)
			}
		}
	}
}

func TestSmoothCompressesLeaps(t *testing.T) {
	in := melodyOf(60, 75, 74)
	out := Apply(in, &Mode{Kind: Smooth, Intensity: 1}, cMajor(t))[0]
	if out[1].Pitch != 67 {
		t.Fatalf("leap resolved to %d, want 67", out[1].Pitch)
	}
	if math.Abs(out[0].Duration-0.5) > 1e-9 {
		t.Fatalf("gap not closed: duration %f", out[0].Duration)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("smooth output invalid: %v", err)
	}
	if same := Apply(in, &Mode{Kind: Smooth, Intensity: 0}, cMajor(t))[0]; !reflect.DeepEqual(same, in) {
		t.Fatalf("smooth at 0 changed the melody")
	}
}

func TestTrapRunAlternatesSlideAndTriplet(t *testing.T) {
	in := melodyOf(64, 67, 65, 72)
	out := Apply(in, &Mode{Kind: TrapRun, Intensity: 1}, cMajor(t))[0]
	if len(out) != 12 {
		t.Fatalf("trap run produced %d notes, want 12", len(out))
	}
	if !reflect.DeepEqual(out[:3].Pitches(), []int{60, 62, 64}) {
		t.Fatalf("slide pitches = %v", out[:3].Pitches())
	}
	if !reflect.DeepEqual(out[3:6].Pitches(), []int{67, 67, 67}) {
		t.Fatalf("triplet pitches = %v", out[3:6].Pitches())
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("trap run output invalid: %v", err)
	}
	if half := Apply(in, &Mode{Kind: TrapRun, Intensity: 0.5}, cMajor(t))[0]; len(half) != 8 {
		t.Fatalf("half intensity produced %d notes, want 8", len(half))
	}
}

func TestDecorate(t *testing.T) {
	ctx := cMajor(t)
	in := melodyOf(60, 62)
	grace := Decorate(in, Ornament{Style: Grace, Density: 1}, ctx.Key, rand.New(rand.NewSource(1)))
	if len(grace) != 4 || grace[0].Pitch != 62 || grace[1].Pitch != 60 {
		t.Fatalf("unexpected grace output %+v", grace)
	}
	trill := Decorate(in, Ornament{Style: Trill, Density: 1}, ctx.Key, nil)
	if len(trill) != 12 {
		t.Fatalf("trill produced %d notes, want 12", len(trill))
	}
	for _, s := range []melody.Sequence{grace, trill} {
		if err := s.Validate(); err != nil {
			t.Fatalf("ornamented melody invalid: %v", err)
		}
		if math.Abs(s.End()-in.End()) > 1e-9 {
			t.Fatalf("ornaments changed the melody end")
		}
	}
	if none := Decorate(in, Ornament{Style: NoOrnament, Density: 1}, ctx.Key, nil); !reflect.DeepEqual(none, in) {
		t.Fatalf("no ornament changed the melody")
	}
}

func TestParseKind(t *testing.T) {
	for i, name := range KindNames() {
		k, err := ParseKind(name)
		if err != nil || int(k) != i || k.String() != name {
			t.Fatalf("ParseKind(%q) = %v, %v", name, k, err)
		}
	}
	if k, err := ParseKind("Afro-Vibe"); err != nil || k != AfroVibe {
		t.Fatalf("alias parse failed: %v %v", k, err)
	}
	if _, err := ParseKind("dubstep"); err == nil {
		t.Fatalf("expected error")
	}
}

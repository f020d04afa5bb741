package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func TestWriteReadMonoRoundTrip(t *testing.T) {
	sr := 22050
	data := make([]float32, sr/2)
	for i := range data {
		data[i] = float32(0.6 * math.Sin(2*math.Pi*330*float64(i)/float64(sr)))
	}
	path := filepath.Join(t.TempDir(), "nested", "tone.wav")
	if err := WriteMono(path, data, sr); err != nil {
		t.Fatalf("WriteMono: %v", err)
	}
	got, gotSR, err := ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if gotSR != sr || len(got) != len(data) {
		t.Fatalf("got sr=%d len=%d want sr=%d len=%d", gotSR, len(got), sr, len(data))
	}
	for i := range data {
		if d := math.Abs(got[i] - float64(data[i])); d > 1e-3 {
			t.Fatalf("sample %d differs by %f", i, d)
		}
	}
}

func TestReadMonoDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	frames := 1000
	data := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		data[i*2] = 0.5
		data[i*2+1] = -0.1
	}
	enc := wav.NewEncoder(f, 16000, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format:         &audio.Format{SampleRate: 16000, NumChannels: 2},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
	f.Close()

	mono, sr, err := ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if sr != 16000 || len(mono) != frames {
		t.Fatalf("sr=%d frames=%d", sr, len(mono))
	}
	if math.Abs(mono[frames/2]-0.2) > 1e-3 {
		t.Fatalf("downmix = %f, want 0.2", mono[frames/2])
	}
}

func TestReadMonoRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := ReadMono(path); err == nil {
		t.Fatalf("expected error for invalid file")
	}
}

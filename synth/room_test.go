package synth

import (
	"math"
	"testing"
)

func TestRoomIRShape(t *testing.T) {
	cfg := DefaultRoomConfig(16000)
	ir, err := RoomIR(cfg)
	if err != nil {
		t.Fatalf("RoomIR: %v", err)
	}
	if len(ir) != int(math.Round(cfg.Duration*16000)) {
		t.Fatalf("len = %d", len(ir))
	}
	peak := 0.0
	for _, v := range ir {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if math.Abs(peak-1) > 1e-6 {
		t.Fatalf("peak = %f, want 1", peak)
	}
	if math.Abs(float64(ir[len(ir)-1])) > 1e-6 {
		t.Fatalf("tail not faded: %f", ir[len(ir)-1])
	}

	again, _ := RoomIR(cfg)
	for i := range ir {
		if ir[i] != again[i] {
			t.Fatalf("RoomIR not deterministic at %d", i)
		}
	}
}

func TestRoomIRRejectsBadConfig(t *testing.T) {
	cfg := DefaultRoomConfig(4000)
	if _, err := RoomIR(cfg); err == nil {
		t.Fatal("expected error for low sample rate")
	}
	cfg = DefaultRoomConfig(16000)
	cfg.LowDecay = 0
	if _, err := RoomIR(cfg); err == nil {
		t.Fatal("expected error for zero decay")
	}
}

func TestApplyRoomDryIsCopy(t *testing.T) {
	dry := []float32{0.1, -0.2, 0.3}
	out, err := ApplyRoom(dry, []float32{1, 0.5}, 0)
	if err != nil {
		t.Fatalf("ApplyRoom: %v", err)
	}
	for i := range dry {
		if out[i] != dry[i] {
			t.Fatalf("out = %v, want %v", out, dry)
		}
	}
	out[0] = 9
	if dry[0] == 9 {
		t.Fatal("output aliases input")
	}
}

func TestApplyRoomAddsTail(t *testing.T) {
	sr := 16000
	ir, err := RoomIR(DefaultRoomConfig(sr))
	if err != nil {
		t.Fatalf("RoomIR: %v", err)
	}
	dry := make([]float32, sr/2)
	dry[0] = 0.9
	out, err := ApplyRoom(dry, ir, 0.5)
	if err != nil {
		t.Fatalf("ApplyRoom: %v", err)
	}
	if len(out) != len(dry) {
		t.Fatalf("len = %d, want %d", len(out), len(dry))
	}
	var tail float64
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 1 {
			t.Fatalf("sample %d = %f", i, v)
		}
		if i > sr/10 {
			tail += math.Abs(float64(v))
		}
	}
	if tail == 0 {
		t.Fatal("expected a reverberant tail")
	}
}

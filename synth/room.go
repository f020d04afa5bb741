package synth

import (
	"fmt"
	"math"
	"math/rand"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

// RoomConfig controls the synthetic room impulse response.
type RoomConfig struct {
	SampleRate int
	Duration   float64 // seconds
	Seed       int64
	EarlyCount int     // early reflections within the first 50 ms
	LateLevel  float64 // diffuse tail level relative to the reflections
	LowDecay   float64 // seconds
	HighDecay  float64 // seconds
	Brightness float64
}

// DefaultRoomConfig returns a small, fairly dry room.
func DefaultRoomConfig(sampleRate int) RoomConfig {
	return RoomConfig{
		SampleRate: sampleRate,
		Duration:   0.8,
		Seed:       1,
		EarlyCount: 24,
		LateLevel:  0.06,
		LowDecay:   1.0,
		HighDecay:  0.2,
		Brightness: 0.8,
	}
}

func (c RoomConfig) validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("room sample rate too low: %d", c.SampleRate)
	}
	if c.Duration <= 0 || c.LowDecay <= 0 || c.HighDecay <= 0 {
		return fmt.Errorf("room duration and decay times must be > 0")
	}
	if c.EarlyCount < 0 || c.LateLevel < 0 {
		return fmt.Errorf("room early count and late level must be >= 0")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("room brightness must be > 0")
	}
	return nil
}

// RoomIR synthesizes a mono room response: a unit direct path, sparse early
// reflections and a two-band noise tail. The result is peak-normalized to 1.
func RoomIR(cfg RoomConfig) ([]float32, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sr := float64(cfg.SampleRate)
	n := max(1, int(math.Round(cfg.Duration*sr)))
	buf := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	buf[0] = 1
	for i := 0; i < cfg.EarlyCount; i++ {
		t := 0.001 + 0.049*rng.Float64()
		idx := int(t * sr)
		if idx <= 0 || idx >= n {
			continue
		}
		amp := (0.10 + 0.35*rng.Float64()) * math.Exp(-t*20)
		amp *= math.Pow(0.5+0.5*rng.Float64(), 1/cfg.Brightness)
		if rng.Intn(2) == 0 {
			amp = -amp
		}
		buf[idx] += amp
	}

	air := math.Max(0, 0.3*(cfg.Brightness-0.3))
	lp, hp := 0.0, 0.0
	for i := range buf {
		t := float64(i) / sr
		noise := rng.NormFloat64()
		lp = 0.985*lp + 0.015*noise
		hp = 0.15*noise - 0.15*hp
		low := math.Exp(-t / (0.75 * cfg.LowDecay))
		high := math.Exp(-t / (0.75 * cfg.HighDecay))
		buf[i] += cfg.LateLevel * (low*lp + air*high*hp)
	}

	fade := min(n, int(0.01*sr))
	for i := 0; i < fade; i++ {
		buf[n-fade+i] *= 0.5 * (1 + math.Cos(math.Pi*float64(i+1)/float64(fade)))
	}

	peak := 0.0
	for _, v := range buf {
		peak = math.Max(peak, math.Abs(v))
	}
	out := make([]float32, n)
	for i, v := range buf {
		out[i] = float32(v / peak)
	}
	return out, nil
}

const roomBlock = 128

// ApplyRoom mixes dry with its convolution by ir. wet is the reverb share in
// [0,1]; the output has the length of dry and is rescaled when it would clip.
func ApplyRoom(dry []float32, ir []float32, wet float64) ([]float32, error) {
	wet = math.Max(0, math.Min(1, wet))
	out := make([]float32, len(dry))
	if wet == 0 || len(ir) == 0 || len(dry) == 0 {
		copy(out, dry)
		return out, nil
	}

	ola, err := dspconv.NewStreamingOverlapAdd32(ir, roomBlock)
	if err != nil {
		return nil, fmt.Errorf("room convolver: %w", err)
	}
	block := make([]float32, roomBlock)
	res := make([]float32, roomBlock)

	// Keep the dry level constant and scale the wet signal to the IR energy.
	var energy float64
	for _, v := range ir {
		energy += float64(v) * float64(v)
	}
	wetGain := float32(wet / math.Sqrt(math.Max(energy, 1e-12)))

	peak := 0.0
	for pos := 0; pos < len(dry); pos += roomBlock {
		end := min(pos+roomBlock, len(dry))
		clear(block)
		copy(block, dry[pos:end])
		if err := ola.ProcessBlockTo(res, block); err != nil {
			return nil, fmt.Errorf("room convolver: %w", err)
		}
		for i := pos; i < end; i++ {
			out[i] = dry[i] + wetGain*res[i-pos]
			peak = math.Max(peak, math.Abs(float64(out[i])))
		}
	}
	if peak > 1 {
		g := float32(1 / peak)
		for i := range out {
			out[i] *= g
		}
	}
	return out, nil
}

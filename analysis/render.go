package analysis

import (
	"math"
)

// RenderStats describes the level of a rendered buffer.
type RenderStats struct {
	SampleRate int     `json:"sample_rate"`
	Frames     int     `json:"frames"`
	Seconds    float64 `json:"seconds"`
	PeakDBFS   float64 `json:"peak_dbfs"`
	RMSDBFS    float64 `json:"rms_dbfs"`
	CrestDB    float64 `json:"crest_db"`

	// ActiveRatio is the share of envelope frames within 60 dB of the loudest.
	ActiveRatio float64 `json:"active_ratio"`
	// TailDecayDBPerS is the level slope after the loudest envelope frame; 0
	// when it cannot be estimated.
	TailDecayDBPerS float64 `json:"tail_decay_db_per_s"`
}

// Stats measures a rendered mono buffer.
func Stats(samples []float32, sampleRate int) RenderStats {
	s := RenderStats{SampleRate: sampleRate, Frames: len(samples)}
	if sampleRate > 0 {
		s.Seconds = float64(len(samples)) / float64(sampleRate)
	}
	x := make([]float64, len(samples))
	peak := 0.0
	for i, v := range samples {
		x[i] = float64(v)
		if a := math.Abs(x[i]); a > peak {
			peak = a
		}
	}
	r := rms1(x)
	s.PeakDBFS = linToDB(peak)
	s.RMSDBFS = linToDB(r)
	s.CrestDB = s.PeakDBFS - s.RMSDBFS

	env := rmsEnvelope(x, 256, 128)
	if len(env) > 0 {
		top := -math.MaxFloat64
		for _, v := range env {
			top = math.Max(top, linToDB(v))
		}
		active := 0
		for _, v := range env {
			if linToDB(v) > top-60 && v > 1e-9 {
				active++
			}
		}
		s.ActiveRatio = clamp01(float64(active) / float64(len(env)))
	}
	if sampleRate > 0 {
		if d := decaySlopeDBPerS(env, 128.0/float64(sampleRate)); isFinite(d) {
			s.TailDecayDBPerS = d
		}
	}
	return s
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func decaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		db := linToDB(v)
		if db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	threshold := peak - 60.0
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < threshold {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

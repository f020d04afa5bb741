package rhythm

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/hum2melody/melody"
)

const (
	minTempo = 60.0
	maxTempo = 180.0
)

// DetectTempo estimates the tempo from the inter-onset intervals of s. Each
// interval is folded into 60..180 BPM by octave doubling or halving and the
// peak of a smoothed 1 BPM histogram wins. With fewer than four notes the
// default tempo is returned.
func DetectTempo(s melody.Sequence) float64 {
	if len(s) < 4 {
		return DefaultTempo
	}
	bins := int(maxTempo - minTempo)
	hist := make([]float64, bins+1)
	for i := 1; i < len(s); i++ {
		ioi := s[i].Start - s[i-1].Start
		if ioi <= 0.05 {
			continue
		}
		bpm := 60 / ioi
		for bpm < minTempo {
			bpm *= 2
		}
		for bpm > maxTempo {
			bpm /= 2
		}
		b := int(math.Round(bpm - minTempo))
		for d := -2; d <= 2; d++ {
			if j := b + d; j >= 0 && j <= bins {
				hist[j] += 1 - math.Abs(float64(d))/3
			}
		}
	}
	best := -1
	for i, v := range hist {
		if v > 0 && (best < 0 || v > hist[best]) {
			best = i
		}
	}
	if best < 0 {
		return DefaultTempo
	}
	return minTempo + float64(best)
}

// FitTempo refines the histogram estimate within ±10 % with the mayfly
// optimiser, minimising how far onsets fall from the half-beat grid. The
// search is seeded and deterministic; on any optimiser failure the histogram
// estimate is returned.
func FitTempo(s melody.Sequence, seed int64) float64 {
	est := DetectTempo(s)
	if len(s) < 4 {
		return est
	}
	toBPM := func(x float64) float64 { return est * (0.9 + 0.2*clampUnit(x)) }
	cost := func(bpm float64) float64 {
		return gridError(s, bpm) + 0.05*math.Abs(bpm-est)/est
	}

	bestBPM := est
	bestCost := cost(est)

	const pop = 10
	cfg := mayfly.NewDefaultConfig()
	cfg.ProblemSize = 1
	cfg.LowerBound = 0
	cfg.UpperBound = 1
	cfg.MaxIterations = 30
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = 1
	cfg.Rand = rand.New(rand.NewSource(seed))
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if len(pos) == 0 {
			return math.Inf(1)
		}
		bpm := toBPM(pos[0])
		c := cost(bpm)
		if c < bestCost {
			bestCost = c
			bestBPM = bpm
		}
		return c
	}
	if _, err := runMayfly(cfg); err != nil {
		return est
	}
	return math.Round(bestBPM*100) / 100
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

// gridError is the mean distance of onsets (relative to the first) from the
// nearest half-beat line, as a fraction of the half beat.
func gridError(s melody.Sequence, bpm float64) float64 {
	half := BeatSeconds(bpm) / 2
	origin := s[0].Start
	var sum float64
	for _, n := range s {
		x := (n.Start - origin) / half
		sum += math.Abs(x - math.Round(x))
	}
	return sum / float64(len(s))
}

package dsp

import (
	"fmt"
	"math"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// Resample converts in from fromRate to toRate. Equal rates return in as is.
func Resample(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// Normalize returns a copy of in scaled so its peak magnitude is target.
// Silent input is copied unchanged.
func Normalize(in []float64, target float64) []float64 {
	out := make([]float64, len(in))
	peak := 0.0
	for _, v := range in {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak <= 1e-12 {
		copy(out, in)
		return out
	}
	g := target / peak
	for i, v := range in {
		out[i] = v * g
	}
	return out
}

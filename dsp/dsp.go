package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// conditionQ is the Butterworth quality factor.
const conditionQ = math.Sqrt2 / 2

// ConditionChain builds the highpass then lowpass cascade used by Condition.
// A corner outside (0, Nyquist) leaves its section out.
func ConditionChain(sampleRate, highpassHz, lowpassHz float64) *biquad.Chain {
	nyquist := 0.5 * sampleRate
	var coeffs []biquad.Coefficients
	if highpassHz > 0 && highpassHz < nyquist {
		coeffs = append(coeffs, design.Highpass(highpassHz, conditionQ, sampleRate))
	}
	if lowpassHz > 0 && lowpassHz < nyquist {
		coeffs = append(coeffs, design.Lowpass(lowpassHz, conditionQ, sampleRate))
	}
	return biquad.NewChain(coeffs)
}

// Condition band-limits a copy of in before periodicity analysis.
func Condition(in []float64, sampleRate, highpassHz, lowpassHz float64) []float64 {
	out := append([]float64(nil), in...)
	if chain := ConditionChain(sampleRate, highpassHz, lowpassHz); chain.NumSections() > 0 {
		chain.ProcessBlock(out)
	}
	return out
}

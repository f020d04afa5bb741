package pitch

import "math"

// HzToMIDI converts a frequency to a continuous MIDI pitch (A4 = 69 = 440 Hz).
func HzToMIDI(freq float64) float64 {
	if freq <= 0 {
		return math.NaN()
	}
	return 69 + 12*math.Log2(freq/440.0)
}

// VoicedCount returns how many frames carry a frequency estimate.
func VoicedCount(frames []Frame) int {
	n := 0
	for _, f := range frames {
		if f.Voiced {
			n++
		}
	}
	return n
}

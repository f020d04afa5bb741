package melody

import (
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/hum2melody/pitch"
)

// SegmentConfig controls how a pitch contour is cut into notes.
type SegmentConfig struct {
	Hop          float64 // frame spacing in seconds, inferred from frame times when 0
	MedianWindow int     // odd window length of the contour median filter
	Tolerance    float64 // semitones a frame may deviate from the run mean
	MinDuration  float64 // shorter runs are treated as noise
	MaxDropout   int     // unvoiced frames bridged inside one run
	LegatoGap    float64 // gaps up to this length count as legato, longer ones as rests
	MinVelocity  int
	MaxVelocity  int
}

// DefaultSegmentConfig returns the segmentation defaults.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		MedianWindow: 5,
		Tolerance:    0.5,
		MinDuration:  0.08,
		MaxDropout:   1,
		LegatoGap:    0.05,
		MinVelocity:  40,
		MaxVelocity:  127,
	}
}

// Segment converts a pitch contour into a monophonic note sequence. It is a
// pure function of its inputs.
func Segment(frames []pitch.Frame, cfg SegmentConfig) Sequence {
	if len(frames) == 0 {
		return nil
	}
	if cfg.MedianWindow < 1 {
		cfg.MedianWindow = 1
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 0.5
	}
	if cfg.MaxDropout < 0 {
		cfg.MaxDropout = 0
	}
	if cfg.MinVelocity <= 0 && cfg.MaxVelocity <= 0 {
		cfg.MinVelocity, cfg.MaxVelocity = 40, 127
	}
	hop := cfg.Hop
	if hop <= 0 && len(frames) > 1 {
		hop = frames[1].Time - frames[0].Time
	}

	raw := make([]float64, len(frames))
	maxEnergy := 0.0
	for i, f := range frames {
		if !f.Voiced {
			raw[i] = math.NaN()
			continue
		}
		raw[i] = pitch.HzToMIDI(f.Frequency)
		if f.Energy > maxEnergy {
			maxEnergy = f.Energy
		}
	}
	smooth := medianFilter(raw, cfg.MedianWindow)

	var out Sequence
	n := len(frames)
	voiced := func(i int) bool { return !math.IsNaN(smooth[i]) }

	for i := 0; i < n; {
		if !voiced(i) {
			i++
			continue
		}
		members := []int{i}
		sum := smooth[i]
		last := i
		absent := 0
		j := i + 1
		for j < n {
			mean := sum / float64(len(members))
			if voiced(j) {
				if math.Abs(smooth[j]-mean) > cfg.Tolerance {
					break
				}
				members = append(members, j)
				sum += smooth[j]
				last = j
				j++
				continue
			}
			k := j
			for k < n && !voiced(k) {
				k++
			}
			if k-j > cfg.MaxDropout || k >= n || math.Abs(smooth[k]-mean) > cfg.Tolerance {
				break
			}
			absent += k - j
			j = k
		}

		span := last - i + 1
		duration := frames[last].Time - frames[i].Time + hop
		if 2*absent <= span && duration >= cfg.MinDuration && duration > 0 {
			out = append(out, runToNote(frames, smooth, members, duration, maxEnergy, cfg))
		}
		i = last + 1
	}
	return out
}

func runToNote(frames []pitch.Frame, smooth []float64, members []int, duration float64, maxEnergy float64, cfg SegmentConfig) Note {
	values := make([]float64, len(members))
	var conf, energy float64
	for k, idx := range members {
		values[k] = smooth[idx]
		conf += frames[idx].Confidence
		energy += frames[idx].Energy
	}
	conf /= float64(len(members))
	energy /= float64(len(members))
	if maxEnergy > 0 {
		energy /= maxEnergy
	} else {
		energy = 0
	}

	level := 0.5*conf + 0.5*energy
	vel := cfg.MinVelocity + int(math.Round(float64(cfg.MaxVelocity-cfg.MinVelocity)*level))
	return Note{
		Start:    frames[members[0]].Time,
		Duration: duration,
		Pitch:    clampInt(int(math.Round(median(values))), 0, 127),
		Velocity: clampInt(vel, cfg.MinVelocity, cfg.MaxVelocity),
	}
}

// medianFilter replaces every voiced value with the median of the voiced values
// in a centred window. Unvoiced (NaN) entries stay unvoiced.
func medianFilter(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	half := window / 2
	buf := make([]float64, 0, window)
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = v
			continue
		}
		buf = buf[:0]
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(x) || math.IsNaN(x[j]) {
				continue
			}
			buf = append(buf, x[j])
		}
		out[i] = median(buf)
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return 0.5 * (s[mid-1] + s[mid])
}

// Extend repeats a sequence end to end until it reaches minLength seconds.
// With a non-nil rng about one in five repeated notes is varied by an octave
// or a fifth. Notes starting at or after minLength are dropped.
func Extend(s Sequence, minLength float64, rng *rand.Rand) Sequence {
	period := s.End()
	if len(s) == 0 || minLength <= 0 || period >= minLength || period <= 0 {
		return s.Clone()
	}
	variations := []int{12, -12, 7, -7, 0}

	out := s.Clone()
	for offset := period; offset < minLength; offset += period {
		for _, n := range s {
			c := n
			c.Start += offset
			if c.Start >= minLength {
				break
			}
			if rng != nil && rng.Float64() < 0.2 {
				c.Pitch = clampInt(n.Pitch+variations[rng.Intn(len(variations))], 36, 96)
			}
			out = append(out, c)
		}
	}
	return out
}

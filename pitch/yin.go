package pitch

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/hum2melody/dsp"
)

// Frame is one analysis window of the pitch contour.
type Frame struct {
	Time       float64 // window centre in seconds
	Frequency  float64 // Hz, 0 when unvoiced
	Voiced     bool
	Confidence float64 // 1 - CMNDF at the chosen lag, in [0,1]
	Energy     float64 // window RMS
}

// Config holds the YIN analysis parameters.
type Config struct {
	WindowSize      int
	HopSize         int
	MinFrequency    float64
	MaxFrequency    float64
	Threshold       float64
	ConfidenceFloor float64
	SilenceFloor    float64
	Prefilter       bool
}

// DefaultConfig returns vocal-range defaults for a 22.05 kHz analysis rate.
func DefaultConfig() Config {
	return Config{
		WindowSize:      2048,
		HopSize:         512,
		MinFrequency:    60,
		MaxFrequency:    1500,
		Threshold:       0.1,
		ConfidenceFloor: 0.6,
		SilenceFloor:    0.02,
		Prefilter:       true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.HopSize <= 0 {
		c.HopSize = d.HopSize
	}
	if c.MinFrequency <= 0 {
		c.MinFrequency = d.MinFrequency
	}
	if c.MaxFrequency <= c.MinFrequency {
		c.MaxFrequency = d.MaxFrequency
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.ConfidenceFloor < 0 {
		c.ConfidenceFloor = 0
	}
	if c.SilenceFloor < 0 {
		c.SilenceFloor = 0
	}
	return c
}

// HopSeconds returns the frame spacing in seconds.
func (c Config) HopSeconds(sampleRate int) float64 {
	c = c.withDefaults()
	if sampleRate <= 0 {
		return 0
	}
	return float64(c.HopSize) / float64(sampleRate)
}

// Track estimates the fundamental-frequency contour of a mono buffer. The
// result covers the buffer end to end with one frame per hop, the last window
// zero-padded; a buffer shorter than one analysis window yields no frames.
func Track(samples []float64, sampleRate int, cfg Config) []Frame {
	cfg = cfg.withDefaults()
	if sampleRate <= 0 || len(samples) < cfg.WindowSize {
		return nil
	}

	x := samples
	if cfg.Prefilter {
		x = dsp.Condition(samples, float64(sampleRate), 40, 2*cfg.MaxFrequency)
	}

	y := newYIN(cfg, sampleRate)
	n := 1 + (len(x)-cfg.WindowSize+cfg.HopSize-1)/cfg.HopSize
	frames := make([]Frame, 0, n)
	var pad []float64
	for i := 0; i < n; i++ {
		start := i * cfg.HopSize
		win := x[start:min(start+cfg.WindowSize, len(x))]
		if len(win) < cfg.WindowSize {
			// the last window runs past the end; zero-fill it
			if pad == nil {
				pad = make([]float64, cfg.WindowSize)
			}
			clear(pad[copy(pad, win):])
			win = pad
		}
		f := y.analyze(win)
		f.Time = (float64(start) + 0.5*float64(cfg.WindowSize)) / float64(sampleRate)
		frames = append(frames, f)
	}
	return frames
}

type yin struct {
	cfg        Config
	sampleRate float64
	minLag     int
	maxLag     int
	integ      int

	fftSize int
	forward func(dst []complex128, src []float64)
	inverse func(dst []float64, src []complex128)
	bufA    []float64
	bufB    []float64
	specA   []complex128
	specB   []complex128
	corr    []float64

	energy []float64 // prefix sums of squares
	diff   []float64
	cmnd   []float64
}

func newYIN(cfg Config, sampleRate int) *yin {
	sr := float64(sampleRate)
	minLag := int(math.Floor(sr / cfg.MaxFrequency))
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(math.Ceil(sr / cfg.MinFrequency))
	if maxLag > cfg.WindowSize/2 {
		maxLag = cfg.WindowSize / 2
	}
	if minLag >= maxLag {
		minLag = maxLag - 1
	}

	y := &yin{
		cfg:        cfg,
		sampleRate: sr,
		minLag:     minLag,
		maxLag:     maxLag,
		integ:      cfg.WindowSize - maxLag,
		energy:     make([]float64, cfg.WindowSize+1),
		diff:       make([]float64, maxLag+2),
		cmnd:       make([]float64, maxLag+2),
	}

	size := nextPow2(cfg.WindowSize)
	plan, err := algofft.NewPlanReal64(size)
	if err == nil {
		y.fftSize = size
		y.forward = func(dst []complex128, src []float64) { plan.Forward(dst, src) }
		y.inverse = func(dst []float64, src []complex128) { plan.Inverse(dst, src) }
		y.bufA = make([]float64, size)
		y.bufB = make([]float64, size)
		y.specA = make([]complex128, size/2+1)
		y.specB = make([]complex128, size/2+1)
		y.corr = make([]float64, size)
	}
	return y
}

func (y *yin) analyze(win []float64) Frame {
	var sumSq float64
	y.energy[0] = 0
	for i, v := range win {
		sumSq += v * v
		y.energy[i+1] = sumSq
	}
	f := Frame{Energy: math.Sqrt(sumSq / float64(len(win)))}
	if f.Energy < y.cfg.SilenceFloor || sumSq == 0 {
		return f
	}

	y.difference(win)
	y.normalize()

	tau := -1
	for t := y.minLag; t <= y.maxLag; t++ {
		if y.cmnd[t] < y.cfg.Threshold {
			for t+1 <= y.maxLag && y.cmnd[t+1] < y.cmnd[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		tau = y.minLag
		for t := y.minLag + 1; t <= y.maxLag; t++ {
			if y.cmnd[t] < y.cmnd[tau] {
				tau = t
			}
		}
	}

	f.Confidence = clamp01(1 - y.cmnd[tau])
	if f.Confidence < y.cfg.ConfidenceFloor {
		return f
	}

	period := float64(tau)
	if tau > 1 && tau < y.maxLag {
		s0, s1, s2 := y.cmnd[tau-1], y.cmnd[tau], y.cmnd[tau+1]
		den := s0 - 2*s1 + s2
		if den > 0 {
			shift := 0.5 * (s0 - s2) / den
			if math.Abs(shift) < 1 {
				period += shift
			}
		}
	}
	if period <= 0 {
		return f
	}
	f.Frequency = y.sampleRate / period
	f.Voiced = true
	return f
}

// difference fills d(τ) = Σ (x[j] - x[j+τ])² over the integration window.
func (y *yin) difference(win []float64) {
	w := y.integ
	e0 := y.energy[w]

	if y.forward == nil {
		for tau := 0; tau <= y.maxLag; tau++ {
			var sum float64
			for j := 0; j < w; j++ {
				d := win[j] - win[j+tau]
				sum += d * d
			}
			y.diff[tau] = sum
		}
		return
	}

	for i := range y.bufA {
		y.bufA[i] = 0
		y.bufB[i] = 0
	}
	copy(y.bufA, win[:w])
	copy(y.bufB, win)
	y.forward(y.specA, y.bufA)
	y.forward(y.specB, y.bufB)
	for k := range y.specA {
		a := y.specA[k]
		y.specB[k] = complex(real(a), -imag(a)) * y.specB[k]
	}
	y.inverse(y.corr, y.specB)

	// Calibrate against r(0) so the inverse transform's scaling convention
	// does not matter.
	scale := 1.0
	if y.corr[0] != 0 {
		scale = e0 / y.corr[0]
	}
	for tau := 0; tau <= y.maxLag; tau++ {
		et := y.energy[tau+w] - y.energy[tau]
		d := e0 + et - 2*scale*y.corr[tau]
		if d < 0 {
			d = 0
		}
		y.diff[tau] = d
	}
	y.diff[0] = 0
}

// normalize computes the cumulative mean normalized difference.
func (y *yin) normalize() {
	y.cmnd[0] = 1
	var running float64
	for tau := 1; tau <= y.maxLag; tau++ {
		running += y.diff[tau]
		if running <= 0 {
			y.cmnd[tau] = 1
			continue
		}
		y.cmnd[tau] = y.diff[tau] * float64(tau) / running
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
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

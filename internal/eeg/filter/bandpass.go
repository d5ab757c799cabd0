// Package filter implements the zero-phase FIR bandpass used by the
// conditioning pipeline. Zero-phase (forward-backward) filtering is
// mandatory here: a phase-skewing filter would corrupt the spatial and
// ICA stages that follow.
package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// Bandpass holds a designed FIR bandpass filter.
type Bandpass struct {
	Low, High float64 // passband edges in Hz
	Rate      float64 // sampling rate the filter was designed for
	Taps      []float64
}

// DesignBandpass designs a linear-phase Hann-windowed sinc bandpass. The
// filter order follows the usual transition-band heuristic (roughly
// 3.3 periods of the transition width), rounded up to an even order so
// the filter has a symmetric centre tap.
func DesignBandpass(low, high, transition, rate float64) (*Bandpass, error) {
	nyquist := rate / 2
	if low <= 0 || high <= low || high >= nyquist {
		return nil, &eeg.FormatError{Op: "filter", Msg: fmt.Sprintf("invalid passband %g-%g Hz at rate %g Hz", low, high, rate)}
	}
	if transition <= 0 {
		return nil, &eeg.FormatError{Op: "filter", Msg: fmt.Sprintf("invalid transition width %g Hz", transition)}
	}

	order := int(math.Ceil(3.3 * rate / transition))
	if order%2 == 1 {
		order++
	}
	taps := make([]float64, order+1)
	half := order / 2

	// Bandpass as a difference of two low-pass sincs.
	fl := low / nyquist
	fh := high / nyquist
	for i := range taps {
		t := float64(i - half)
		taps[i] = fh*sinc(fh*t) - fl*sinc(fl*t)
	}
	window.Hann(taps)

	// Normalise gain to unity at the passband centre.
	fc := (low + high) / 2 / nyquist
	var re, im float64
	for i, v := range taps {
		re += v * math.Cos(math.Pi*fc*float64(i))
		im += v * math.Sin(math.Pi*fc*float64(i))
	}
	g := math.Hypot(re, im)
	if g == 0 {
		return nil, &eeg.NumericalError{Op: "filter", Msg: "degenerate filter design"}
	}
	for i := range taps {
		taps[i] /= g
	}

	return &Bandpass{Low: low, High: high, Rate: rate, Taps: taps}, nil
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// Apply filters every channel forward and backward, returning a new
// recording. The double pass squares the magnitude response and cancels
// the phase response exactly.
func (f *Bandpass) Apply(rec *eeg.Recording) (*eeg.Recording, error) {
	if rec.SampleRate != f.Rate {
		return nil, &eeg.FormatError{Op: "filter", Msg: fmt.Sprintf("recording rate %g Hz does not match filter design rate %g Hz", rec.SampleRate, f.Rate)}
	}
	if rec.Samples() <= len(f.Taps) {
		return nil, &eeg.FormatError{Op: "filter", Msg: fmt.Sprintf("recording too short (%d samples) for filter length %d", rec.Samples(), len(f.Taps))}
	}

	monitoring.Logf("[filter] session=%s bandpass %g-%g Hz, %d taps, zero-phase", rec.SessionID, f.Low, f.High, len(f.Taps))

	out := rec.Clone()
	for ch, row := range rec.Data {
		fwd := f.filtOnce(row)
		reverseInPlace(fwd)
		bwd := f.filtOnce(fwd)
		reverseInPlace(bwd)
		out.Data[ch] = bwd
	}
	return out, nil
}

// filtOnce runs one centred convolution pass over a single channel with
// odd-symmetric edge extension, which avoids start-up transients leaking
// into the signal body.
func (f *Bandpass) filtOnce(x []float64) []float64 {
	half := (len(f.Taps) - 1) / 2
	n := len(x)
	padded := make([]float64, n+2*half)
	copy(padded[half:], x)
	for i := 0; i < half; i++ {
		padded[half-1-i] = 2*x[0] - x[minInt(i+1, n-1)]
		padded[half+n+i] = 2*x[n-1] - x[maxInt(n-2-i, 0)]
	}

	y := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		base := i // padded index of x[i] minus half
		for j, tap := range f.Taps {
			acc += tap * padded[base+j]
		}
		y[i] = acc
	}
	return y
}

func reverseInPlace(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package ica

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/stat"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// componentFeatures is the feature vector the pretrained classifier
// scores: spectral shape, topography shape and activation statistics.
type componentFeatures struct {
	DeltaPower float64 // relative power 1-4 Hz
	ThetaPower float64 // relative power 4-8 Hz
	AlphaPower float64 // relative power 8-13 Hz
	BetaPower  float64 // relative power 13-30 Hz
	LinePower  float64 // relative power 45-55 Hz
	Slope      float64 // log-log spectral slope over 2-25 Hz
	Focality   float64 // max / mean absolute topography weight
	Frontal    float64 // frontal / overall mean absolute topography weight
	Kurtosis   float64 // excess kurtosis of the activation
	CardiacAC  float64 // peak autocorrelation at 0.6-1.2 s lags
}

// classifierWeights holds the pretrained linear scoring coefficients,
// one row per category over (features..., bias). Scores pass through a
// softmax so the output is a proper probability vector.
var classifierWeights = [eeg.NumCategories][11]float64{
	// delta  theta  alpha   beta   line  slope  focal  front   kurt  cardiac bias
	{0.20, 0.60, 2.40, 0.40, -1.50, -0.80, -0.35, -0.40, -0.25, -0.60, 0.80},  // brain
	{-1.20, -0.60, -0.40, 2.60, 0.40, 1.60, 0.25, -0.50, 0.90, -0.40, -0.90}, // muscle
	{2.60, 0.40, -0.60, -1.20, -0.60, -1.40, 0.30, 2.80, 0.40, -0.30, -0.70}, // eye
	{-0.40, -0.30, -0.30, -0.20, -0.20, 0.10, 0.20, -0.30, 0.50, 3.20, -1.20}, // heart
	{-1.00, -0.80, -0.60, 0.40, 3.40, 0.80, 0.30, -0.30, -0.20, -0.30, -1.10}, // line noise
	{-0.30, -0.40, -0.60, 0.20, 0.20, 0.60, 2.90, -0.20, 1.20, -0.40, -1.00}, // channel noise
	{0.10, 0.10, -0.20, -0.10, 0.00, 0.20, -0.10, -0.10, 0.10, -0.10, 0.35},  // other
}

// Classify applies the pretrained statistical classifier to every
// component's activation and topography, producing a probability
// distribution over the fixed categories. Classification is
// deterministic given a fixed decomposition.
func Classify(dec *Decomposition, rec *eeg.Recording) []eeg.ComponentClassification {
	frontal := frontalChannels(rec.Labels)
	out := make([]eeg.ComponentClassification, dec.Rank)
	for c := 0; c < dec.Rank; c++ {
		f := extractFeatures(dec, c, rec.SampleRate, frontal)
		out[c] = eeg.ComponentClassification{
			Component:     c,
			Probabilities: score(f),
		}
	}
	return out
}

func extractFeatures(dec *Decomposition, comp int, fs float64, frontal []bool) componentFeatures {
	act := dec.Activations[comp]
	freqs, psd := periodogramPSD(act, fs)

	total := bandSum(freqs, psd, 0, fs/2)
	if total == 0 {
		total = 1
	}
	var f componentFeatures
	f.DeltaPower = bandSum(freqs, psd, 1, 4) / total
	f.ThetaPower = bandSum(freqs, psd, 4, 8) / total
	f.AlphaPower = bandSum(freqs, psd, 8, 13) / total
	f.BetaPower = bandSum(freqs, psd, 13, 30) / total
	f.LinePower = bandSum(freqs, psd, 45, 55) / total
	f.Slope = spectralSlope(freqs, psd, 2, 25)

	// Topography of the component: its mixing matrix column.
	var maxAbs, meanAbs, frontAbs float64
	nFront := 0
	for ch := range dec.Mixing {
		a := math.Abs(dec.Mixing[ch][comp])
		meanAbs += a
		if a > maxAbs {
			maxAbs = a
		}
		if frontal[ch] {
			frontAbs += a
			nFront++
		}
	}
	meanAbs /= float64(len(dec.Mixing))
	if meanAbs > 0 {
		f.Focality = maxAbs / meanAbs
		if nFront > 0 {
			f.Frontal = (frontAbs / float64(nFront)) / meanAbs
		}
	}

	f.Kurtosis = clamp(stat.ExKurtosis(act, nil), -5, 25)
	f.CardiacAC = cardiacAutocorrelation(act, fs)
	return f
}

func score(f componentFeatures) [eeg.NumCategories]float64 {
	vec := [11]float64{
		f.DeltaPower, f.ThetaPower, f.AlphaPower, f.BetaPower, f.LinePower,
		f.Slope, f.Focality / 4, f.Frontal / 2, f.Kurtosis / 10, f.CardiacAC, 1,
	}
	var scores [eeg.NumCategories]float64
	maxScore := math.Inf(-1)
	for cat := 0; cat < eeg.NumCategories; cat++ {
		var s float64
		for i, v := range vec {
			s += classifierWeights[cat][i] * v
		}
		scores[cat] = s
		if s > maxScore {
			maxScore = s
		}
	}
	// Softmax with max-shift for numerical stability.
	var sum float64
	for cat := range scores {
		scores[cat] = math.Exp(scores[cat] - maxScore)
		sum += scores[cat]
	}
	for cat := range scores {
		scores[cat] /= sum
	}
	return scores
}

// periodogramPSD computes a single Hann-tapered periodogram of an
// activation trace, on up to the first 4096 samples rounded down to a
// power-of-two-free even length. A full Welch average is unnecessary for
// feature extraction.
func periodogramPSD(x []float64, fs float64) (freqs, psd []float64) {
	n := len(x)
	if n > 4096 {
		n = 4096
	}
	if n%2 == 1 {
		n--
	}
	seg := make([]float64, n)
	copy(seg, x[:n])
	window.Hann(seg)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seg)

	bins := n/2 + 1
	freqs = make([]float64, bins)
	psd = make([]float64, bins)
	df := fs / float64(n)
	for k := 0; k < bins; k++ {
		freqs[k] = float64(k) * df
		p := real(coeffs[k])*real(coeffs[k]) + imag(coeffs[k])*imag(coeffs[k])
		if k != 0 && k != bins-1 {
			p *= 2
		}
		psd[k] = p
	}
	return freqs, psd
}

func bandSum(freqs, psd []float64, low, high float64) float64 {
	var sum float64
	for k, f := range freqs {
		if f >= low && f < high {
			sum += psd[k]
		}
	}
	return sum
}

// spectralSlope fits log10(psd) against log10(f) over [low, high] Hz by
// least squares and returns the slope.
func spectralSlope(freqs, psd []float64, low, high float64) float64 {
	var xs, ys []float64
	for k, f := range freqs {
		if f >= low && f <= high && psd[k] > 0 {
			xs = append(xs, math.Log10(f))
			ys = append(ys, math.Log10(psd[k]))
		}
	}
	if len(xs) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return clamp(slope, -6, 6)
}

// cardiacAutocorrelation returns the peak normalised autocorrelation over
// lags between 0.6 and 1.2 seconds, the inter-beat range of a resting
// heart rate.
func cardiacAutocorrelation(x []float64, fs float64) float64 {
	n := len(x)
	minLag := int(0.6 * fs)
	maxLag := int(1.2 * fs)
	if maxLag >= n || minLag < 1 {
		return 0
	}
	var energy float64
	for _, v := range x {
		energy += v * v
	}
	if energy == 0 {
		return 0
	}
	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var acc float64
		for i := 0; i+lag < n; i++ {
			acc += x[i] * x[i+lag]
		}
		r := acc / energy
		if r > best {
			best = r
		}
	}
	return best
}

func frontalChannels(labels []string) []bool {
	out := make([]bool, len(labels))
	for i, l := range labels {
		u := strings.ToUpper(l)
		switch {
		case strings.HasPrefix(u, "FP"), u == "F7", u == "F8", u == "F3", u == "F4", u == "FZ", u == "AF3", u == "AF4":
			out[i] = true
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

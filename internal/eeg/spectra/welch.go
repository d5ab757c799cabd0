// Package spectra implements the spectral estimation stage: Welch power
// spectral density per channel plus band-normalised relative power.
package spectra

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// Estimate computes the Welch PSD of every channel of the terminal
// cleaned recording: Hann windows of winSeconds, 50% overlap, FFT length
// equal to the window length. Relative power is the PSD divided by the
// summed PSD over the bins in [0, upperHz], which matches the filter
// passband edge so out-of-band energy does not dilute the normalisation.
func Estimate(rec *eeg.Recording, winSeconds, upperHz float64) (*eeg.SpectralEstimate, error) {
	fs := rec.SampleRate
	win := int(math.Round(winSeconds * fs))
	if win < 2 {
		return nil, &eeg.FormatError{Op: "spectra", Msg: fmt.Sprintf("window of %g s is too short at %g Hz", winSeconds, fs)}
	}
	if rec.Samples() < win {
		return nil, &eeg.FormatError{Op: "spectra", Msg: fmt.Sprintf("recording has %d samples, Welch window needs %d", rec.Samples(), win)}
	}

	bins := win/2 + 1
	df := fs / float64(win)
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * df
	}

	upperBin := int(math.Round(upperHz / df))
	if upperBin >= bins {
		upperBin = bins - 1
	}

	monitoring.Logf("[spectra] session=%s welch win=%d overlap=%d bins=%d df=%gHz norm_bin=%d",
		rec.SessionID, win, win/2, bins, df, upperBin)

	est := &eeg.SpectralEstimate{
		Freqs:    freqs,
		Power:    make([][]float64, rec.Channels()),
		Relative: make([][]float64, rec.Channels()),
	}

	fft := fourier.NewFFT(win)
	taper := make([]float64, win)
	for i := range taper {
		taper[i] = 1
	}
	window.Hann(taper)
	var norm float64
	for _, w := range taper {
		norm += w * w
	}
	norm *= fs

	for ch, row := range rec.Data {
		psd, err := welchChannel(fft, row, taper, win, norm)
		if err != nil {
			return nil, err
		}
		est.Power[ch] = psd
		est.Relative[ch] = relative(psd, upperBin)
	}
	return est, nil
}

// welchChannel averages modified periodograms over 50%-overlapping
// Hann-tapered segments of one channel.
func welchChannel(fft *fourier.FFT, x, taper []float64, win int, norm float64) ([]float64, error) {
	step := win / 2
	segCount := (len(x)-win)/step + 1
	if segCount < 1 {
		return nil, &eeg.FormatError{Op: "spectra", Msg: "no complete Welch segment"}
	}

	bins := win/2 + 1
	psd := make([]float64, bins)
	seg := make([]float64, win)
	coeffs := make([]complex128, bins)

	for s := 0; s < segCount; s++ {
		off := s * step
		for i := 0; i < win; i++ {
			seg[i] = x[off+i] * taper[i]
		}
		fft.Coefficients(coeffs, seg)
		for k := 0; k < bins; k++ {
			p := real(coeffs[k])*real(coeffs[k]) + imag(coeffs[k])*imag(coeffs[k])
			// One-sided spectrum: double everything except DC and Nyquist.
			if k != 0 && k != bins-1 {
				p *= 2
			}
			psd[k] += p / norm
		}
	}
	for k := range psd {
		psd[k] /= float64(segCount)
	}
	return psd, nil
}

// relative normalises a PSD by its total power over bins [0, upperBin].
func relative(psd []float64, upperBin int) []float64 {
	var total float64
	for k := 0; k <= upperBin; k++ {
		total += psd[k]
	}
	out := make([]float64, len(psd))
	if total == 0 {
		return out
	}
	for k := range psd {
		out[k] = psd[k] / total
	}
	return out
}

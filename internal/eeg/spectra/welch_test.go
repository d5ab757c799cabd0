package spectra

import (
	"math"
	"testing"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/testutil"
)

func TestEstimateGeometry(t *testing.T) {
	const fs = 250.0
	rec := &eeg.Recording{
		SessionID:  "s1",
		Labels:     []string{"a"},
		SampleRate: fs,
		Data:       [][]float64{testutil.GaussianNoise(1, 1, 2500)},
	}

	est, err := Estimate(rec, 2.0, 30.0)
	testutil.AssertNoError(t, err)

	// 2 s windows at 250 Hz: 500-point FFT, 251 one-sided bins, 0.5 Hz
	// resolution.
	if len(est.Freqs) != 251 {
		t.Fatalf("bins = %d, want 251", len(est.Freqs))
	}
	if est.Freqs[1] != 0.5 {
		t.Errorf("df = %f, want 0.5", est.Freqs[1])
	}
	if est.Freqs[60] != 30.0 {
		t.Errorf("Freqs[60] = %f, want 30", est.Freqs[60])
	}
	if est.Freqs[250] != 125.0 {
		t.Errorf("Nyquist bin = %f, want 125", est.Freqs[250])
	}
	if len(est.Power) != 1 || len(est.Power[0]) != 251 {
		t.Errorf("power shape = %dx%d, want 1x251", len(est.Power), len(est.Power[0]))
	}
}

func TestEstimatePeakAtToneFrequency(t *testing.T) {
	const fs = 250.0
	rec := &eeg.Recording{
		SessionID:  "s1",
		Labels:     []string{"a"},
		SampleRate: fs,
		Data:       [][]float64{testutil.Sine(10, 1, fs, 5000)},
	}

	est, err := Estimate(rec, 2.0, 30.0)
	testutil.AssertNoError(t, err)

	peak := 0
	for k := range est.Power[0] {
		if est.Power[0][k] > est.Power[0][peak] {
			peak = k
		}
	}
	if est.Freqs[peak] != 10.0 {
		t.Errorf("peak at %f Hz, want 10", est.Freqs[peak])
	}

	// Parseval sanity: total PSD power times df approximates the signal
	// variance (0.5 for a unit sine).
	var total float64
	for _, p := range est.Power[0] {
		total += p
	}
	total *= est.Freqs[1]
	if math.Abs(total-0.5) > 0.05 {
		t.Errorf("integrated power = %f, want ~0.5", total)
	}
}

func TestRelativePowerNormalisation(t *testing.T) {
	const fs = 250.0
	rec := &eeg.Recording{
		SessionID:  "s1",
		Labels:     []string{"a", "b"},
		SampleRate: fs,
		Data: [][]float64{
			testutil.GaussianNoise(5, 1, 2500),
			testutil.Sine(8, 2, fs, 2500),
		},
	}

	est, err := Estimate(rec, 2.0, 30.0)
	testutil.AssertNoError(t, err)

	// Relative power sums to one over the normalisation band [0, 30] Hz
	// for every channel.
	upperBin := 60
	for ch := range est.Relative {
		var sum float64
		for k := 0; k <= upperBin; k++ {
			sum += est.Relative[ch][k]
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("channel %d relative power sums to %.9f over [0,30] Hz, want 1", ch, sum)
		}
	}
}

func TestEstimateTooShort(t *testing.T) {
	rec := &eeg.Recording{
		Labels:     []string{"a"},
		SampleRate: 250,
		Data:       [][]float64{make([]float64, 100)},
	}
	if _, err := Estimate(rec, 2.0, 30.0); err == nil {
		t.Error("expected error for recording shorter than one window")
	}
}

func TestBandPowers(t *testing.T) {
	est := &eeg.SpectralEstimate{
		Freqs:    []float64{0, 2, 4, 6, 8, 10, 12, 14},
		Power:    [][]float64{{1, 2, 3, 4, 5, 6, 7, 8}},
		Relative: [][]float64{{0.1, 0.1, 0.1, 0.1, 0.2, 0.2, 0.1, 0.1}},
	}
	bands := []Band{
		{Name: "low", Low: 0.5, High: 8},
		{Name: "high", Low: 8, High: 14},
	}

	got := BandPowers(est, bands)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}

	// low: bins at 2, 4, 6 Hz (half-open upper edge excludes 8).
	if got[0].Absolute != 2+3+4 {
		t.Errorf("low band absolute = %f, want 9", got[0].Absolute)
	}
	// high: bins at 8, 10, 12 Hz.
	if got[1].Absolute != 5+6+7 {
		t.Errorf("high band absolute = %f, want 18", got[1].Absolute)
	}
	if math.Abs(got[1].Relative-0.5) > 1e-12 {
		t.Errorf("high band relative = %f, want 0.5", got[1].Relative)
	}
}

func TestCanonicalBandsCoverPassband(t *testing.T) {
	bands := CanonicalBands()
	if len(bands) != 4 {
		t.Fatalf("got %d bands, want 4", len(bands))
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Low != bands[i-1].High {
			t.Errorf("gap between %s and %s", bands[i-1].Name, bands[i].Name)
		}
	}
	if bands[len(bands)-1].High != 30 {
		t.Errorf("top edge = %f, want 30", bands[len(bands)-1].High)
	}
}

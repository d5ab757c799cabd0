// Package testutil provides shared test fixtures for the pipeline
// packages: synthetic recordings with known spectral and statistical
// content, generated from explicit seeds so tests are reproducible.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Sine returns a sine wave sampled at fs.
func Sine(freq, amp, fs float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return out
}

// GaussianNoise returns seeded normal noise.
func GaussianNoise(seed int64, sigma float64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}
	return out
}

// NewRecording builds a recording over the given layout with per-channel
// Gaussian noise at unit variance, seeded per channel.
func NewRecording(t *testing.T, layout *eeg.ChannelLayout, fs float64, n int, seed int64) *eeg.Recording {
	t.Helper()
	rec := &eeg.Recording{
		SessionID:  "test-session",
		Labels:     append([]string(nil), layout.Labels...),
		SampleRate: fs,
		Data:       make([][]float64, layout.Channels()),
	}
	for ch := range rec.Data {
		rec.Data[ch] = GaussianNoise(seed+int64(ch), 1.0, n)
	}
	return rec
}

// AddTo adds src into dst element-wise.
func AddTo(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

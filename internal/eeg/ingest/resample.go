package ingest

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// Resample converts a recording to the target rate with an anti-aliased
// polyphase FIR resampler. The rate ratio is reduced to up/down integer
// factors; the output length is round(n * target / native), so total
// duration is preserved to within one output sample period.
func Resample(rec *eeg.Recording, targetRate float64) (*eeg.Recording, error) {
	if rec.SampleRate == targetRate {
		return rec.Clone(), nil
	}
	up, down, err := rationalRatio(targetRate, rec.SampleRate)
	if err != nil {
		return nil, err
	}

	n := rec.Samples()
	outLen := int(math.Round(float64(n) * targetRate / rec.SampleRate))
	taps := antiAliasFIR(up, down)

	monitoring.Logf("[resample] session=%s %gHz -> %gHz (up=%d down=%d taps=%d) samples %d -> %d",
		rec.SessionID, rec.SampleRate, targetRate, up, down, len(taps), n, outLen)

	out := &eeg.Recording{
		SessionID:  rec.SessionID,
		Labels:     append([]string(nil), rec.Labels...),
		SampleRate: targetRate,
		Data:       make([][]float64, rec.Channels()),
		Segments:   append([]eeg.BadSegment(nil), rec.Segments...),
	}
	for ch, row := range rec.Data {
		out.Data[ch] = upfirdn(row, taps, up, down, outLen)
	}
	return out, nil
}

// rationalRatio reduces target/native to coprime up/down factors.
func rationalRatio(target, native float64) (up, down int, err error) {
	// Rates are configured in Hz with at most two decimal places; scale
	// to integers before reducing.
	const scale = 100
	ti := int(math.Round(target * scale))
	ni := int(math.Round(native * scale))
	if ti <= 0 || ni <= 0 {
		return 0, 0, &eeg.FormatError{Op: "resample", Msg: "sampling rates must be positive"}
	}
	g := gcd(ti, ni)
	return ti / g, ni / g, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// antiAliasFIR designs the low-pass used inside the polyphase resampler:
// a Hann-windowed sinc with cutoff at the narrower of the two Nyquist
// edges on the upsampled grid, gain up so the passband is unity.
func antiAliasFIR(up, down int) []float64 {
	maxRate := up
	if down > maxRate {
		maxRate = down
	}
	// 10 zero crossings per side of the sinc main lobe.
	half := 10 * maxRate
	n := 2*half + 1
	fc := 1.0 / float64(maxRate) // normalised to the upsampled Nyquist

	taps := make([]float64, n)
	for i := range taps {
		t := float64(i - half)
		taps[i] = fc * sinc(fc*t)
	}
	window.Hann(taps)

	// Normalise DC gain to the upsampling factor so signal amplitude is
	// preserved after zero-stuffing.
	var sum float64
	for _, v := range taps {
		sum += v
	}
	g := float64(up) / sum
	for i := range taps {
		taps[i] *= g
	}
	return taps
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// upfirdn applies upsample-filter-downsample without materialising the
// zero-stuffed intermediate: output m taps only the filter positions that
// land on real input samples.
func upfirdn(x, taps []float64, up, down, outLen int) []float64 {
	n := len(x)
	half := (len(taps) - 1) / 2
	y := make([]float64, outLen)
	for m := 0; m < outLen; m++ {
		// Centre of the filter on the upsampled grid.
		center := m * down
		var acc float64
		// Only indices j with (center + half - j) divisible by up hit a
		// real sample; walk them with stride up.
		j0 := (center + half) % up
		for j := j0; j < len(taps); j += up {
			k := (center + half - j) / up
			if k < 0 {
				break
			}
			if k >= n {
				continue
			}
			acc += taps[j] * x[k]
		}
		y[m] = acc
	}
	return y
}

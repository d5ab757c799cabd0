package spectra

import (
	"github.com/neuro-data/spectra.report/internal/eeg"
)

// Band is a named frequency range, half-open [Low, High) in Hz.
type Band struct {
	Name string  `json:"name"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// CanonicalBands returns the conventional EEG analysis bands within the
// 0.2-30 Hz passband.
func CanonicalBands() []Band {
	return []Band{
		{Name: "delta", Low: 0.5, High: 4},
		{Name: "theta", Low: 4, High: 8},
		{Name: "alpha", Low: 8, High: 13},
		{Name: "beta", Low: 13, High: 30},
	}
}

// ChannelBandPower is the integrated power of one channel in one band.
type ChannelBandPower struct {
	Channel  int     `json:"channel"`
	Band     string  `json:"band"`
	Absolute float64 `json:"absolute"`
	Relative float64 `json:"relative"`
}

// BandPowers integrates absolute and relative power per channel over each
// band. Bin k belongs to a band when Low <= freq(k) < High.
func BandPowers(est *eeg.SpectralEstimate, bands []Band) []ChannelBandPower {
	var out []ChannelBandPower
	for ch := range est.Power {
		for _, b := range bands {
			var abs, rel float64
			for k, f := range est.Freqs {
				if f >= b.Low && f < b.High {
					abs += est.Power[ch][k]
					rel += est.Relative[ch][k]
				}
			}
			out = append(out, ChannelBandPower{Channel: ch, Band: b.Name, Absolute: abs, Relative: rel})
		}
	}
	return out
}

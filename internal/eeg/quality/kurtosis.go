// Package quality implements the channel quality engine: automatic
// detection of bad channels through a normalised kurtosis statistic,
// spherical-spline interpolation of flagged channels from the remaining
// clean ones, and the merge of manually supplied bad channel lists.
package quality

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
	"github.com/neuro-data/spectra.report/internal/eeg/segments"
)

// Detect computes the per-channel quality report over the conditioned
// signal restricted to samples outside all registered bad segments. The
// per-channel excess kurtosis values are z-scored across channels and a
// channel is flagged when |z| exceeds the threshold.
func Detect(rec *eeg.Recording, threshold float64) (*eeg.ChannelQualityReport, error) {
	n := rec.Samples()
	idx := segments.CleanIndices(rec.Segments, n)
	if len(idx) < 8 {
		return nil, &eeg.DataQualityError{Msg: fmt.Sprintf("only %d clean samples available for channel statistics", len(idx))}
	}

	nch := rec.Channels()
	kurt := make([]float64, nch)
	report := &eeg.ChannelQualityReport{
		Threshold: threshold,
		Channels:  make([]eeg.ChannelQuality, nch),
	}

	buf := make([]float64, len(idx))
	for ch := 0; ch < nch; ch++ {
		for i, s := range idx {
			buf[i] = rec.Data[ch][s]
		}
		kurt[ch] = stat.ExKurtosis(buf, nil)

		mean, _ := stats.Mean(buf)
		sd, _ := stats.StandardDeviation(buf)
		lo, _ := stats.Min(buf)
		hi, _ := stats.Max(buf)

		report.Channels[ch] = eeg.ChannelQuality{
			Channel:  ch,
			Label:    rec.Labels[ch],
			Kurtosis: kurt[ch],
			Mean:     mean,
			StdDev:   sd,
			Min:      lo,
			Max:      hi,
		}
	}

	kmean, ksd := stat.MeanStdDev(kurt, nil)
	for ch := 0; ch < nch; ch++ {
		z := 0.0
		if ksd > 0 {
			z = (kurt[ch] - kmean) / ksd
		}
		report.Channels[ch].ZScore = z
		if math.Abs(z) > threshold {
			report.Channels[ch].Flagged = true
			report.Channels[ch].Source = eeg.SourceAutomatic
		}
	}

	if flagged := report.FlaggedChannels(); len(flagged) > 0 {
		monitoring.Logf("[quality] session=%s flagged %d channels by kurtosis: %v", rec.SessionID, len(flagged), flagged)
	}
	return report, nil
}

// MergeManual unions an externally supplied bad channel list into the
// report. Channels already flagged automatically keep their automatic
// source. An empty list is the explicit "no additional input" signal.
func MergeManual(report *eeg.ChannelQualityReport, manual []int) (*eeg.ChannelQualityReport, error) {
	out := &eeg.ChannelQualityReport{
		Threshold: report.Threshold,
		Channels:  append([]eeg.ChannelQuality(nil), report.Channels...),
	}
	for _, ch := range manual {
		if ch < 0 || ch >= len(out.Channels) {
			return nil, &eeg.FormatError{Op: "quality", Msg: fmt.Sprintf("manual bad channel index %d out of range (%d channels)", ch, len(out.Channels))}
		}
		if !out.Channels[ch].Flagged {
			out.Channels[ch].Flagged = true
			out.Channels[ch].Source = eeg.SourceManual
		}
	}
	return out, nil
}

// Package reference implements the two re-referencing schemes of the
// pipeline: the bipolar re-reference applied before filtering and the
// common average reference applied after channel repair.
package reference

import (
	"github.com/neuro-data/spectra.report/internal/eeg"
)

// Bipolar subtracts the average of the layout's two designated reference
// channels from every channel, sample by sample. The reference channels
// stay in the output unless dropRefs is set, in which case their rows are
// zeroed (the channel count is fixed across the pipeline, so rows are
// never removed).
func Bipolar(rec *eeg.Recording, layout *eeg.ChannelLayout, dropRefs bool) (*eeg.Recording, error) {
	if err := rec.Validate(layout.Channels()); err != nil {
		return nil, err
	}
	out := rec.Clone()
	a, b := layout.RefPair[0], layout.RefPair[1]
	n := rec.Samples()
	for s := 0; s < n; s++ {
		ref := (rec.Data[a][s] + rec.Data[b][s]) / 2
		for ch := range out.Data {
			out.Data[ch][s] -= ref
		}
	}
	if dropRefs {
		for s := 0; s < n; s++ {
			out.Data[a][s] = 0
			out.Data[b][s] = 0
		}
	}
	return out, nil
}

// CommonAverage subtracts the per-sample mean across all channels from
// each channel. Pure, stateless transform with no failure modes beyond
// the shape invariant.
func CommonAverage(rec *eeg.Recording) *eeg.Recording {
	out := rec.Clone()
	nch := rec.Channels()
	if nch == 0 {
		return out
	}
	n := rec.Samples()
	for s := 0; s < n; s++ {
		var mean float64
		for ch := 0; ch < nch; ch++ {
			mean += rec.Data[ch][s]
		}
		mean /= float64(nch)
		for ch := 0; ch < nch; ch++ {
			out.Data[ch][s] -= mean
		}
	}
	return out
}

package ica

import (
	"fmt"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// ApplyRejection derives the rejection decision for every classified
// component: a component is rejected iff its most probable category is
// not Brain and that probability reaches the threshold. Brain-labelled
// components are never rejected regardless of probability; the asymmetry
// is a deliberate precision bias against discarding true neural signal.
func ApplyRejection(classes []eeg.ComponentClassification, threshold float64) []eeg.ComponentClassification {
	out := append([]eeg.ComponentClassification(nil), classes...)
	for i := range out {
		cat, p := out[i].ArgMax()
		out[i].Rejected = cat != eeg.CategoryBrain && p >= threshold
	}
	return out
}

// Reconstruct projects out the rejected components: their rows in the
// activation matrix are zeroed and the remainder is reprojected through
// the mixing matrix to give the cleaned channel-by-sample signal. The
// decomposition itself is never modified.
func Reconstruct(dec *Decomposition, classes []eeg.ComponentClassification, rec *eeg.Recording) (*eeg.Recording, error) {
	if len(classes) != dec.Rank {
		return nil, &eeg.FormatError{Op: "reconstruct", Msg: fmt.Sprintf("%d classifications for rank-%d decomposition", len(classes), dec.Rank)}
	}

	kept := 0
	rejected := make([]int, 0, dec.Rank)
	for _, c := range classes {
		if c.Rejected {
			rejected = append(rejected, c.Component)
		} else {
			kept++
		}
	}
	if kept == 0 {
		return nil, &eeg.DataQualityError{Msg: "every component was rejected; no signal remains"}
	}

	monitoring.Logf("[ica] session=%s rejecting %d of %d components: %v", rec.SessionID, len(rejected), dec.Rank, rejected)

	isRejected := make([]bool, dec.Rank)
	for _, c := range rejected {
		isRejected[c] = true
	}

	nch := rec.Channels()
	n := rec.Samples()
	out := rec.Clone()
	for ch := 0; ch < nch; ch++ {
		row := out.Data[ch]
		for s := 0; s < n; s++ {
			var acc float64
			for c := 0; c < dec.Rank; c++ {
				if isRejected[c] {
					continue
				}
				acc += dec.Mixing[ch][c] * dec.Activations[c][s]
			}
			row[s] = acc
		}
	}
	return out, nil
}

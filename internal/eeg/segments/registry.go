// Package segments implements the bad-segment registry: externally
// supplied bad time intervals are merged into an ordered, non-overlapping
// set, persisted for audit and excluded from downstream statistics.
// The marked samples are never removed from the conditioned recording
// itself so downstream consumers can still inspect the raw values.
package segments

import (
	"sort"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// Register validates and merges the supplied segments into the
// recording's segment set, returning a new recording snapshot. The input
// list may be empty, which is the explicit "no additional input" signal
// for unattended batch runs.
func Register(rec *eeg.Recording, segs []eeg.BadSegment) (*eeg.Recording, error) {
	n := rec.Samples()
	for _, s := range segs {
		if err := s.Validate(n); err != nil {
			return nil, err
		}
	}

	out := rec.Clone()
	out.Segments = Merge(append(out.Segments, segs...))
	if len(segs) > 0 {
		monitoring.Logf("[segments] session=%s registered %d segments (%d after merge, %d samples masked)",
			rec.SessionID, len(segs), len(out.Segments), MaskedSamples(out.Segments))
	}
	return out, nil
}

// Merge sorts the segments and coalesces overlapping or adjacent ones.
func Merge(segs []eeg.BadSegment) []eeg.BadSegment {
	if len(segs) == 0 {
		return nil
	}
	sorted := append([]eeg.BadSegment(nil), segs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := sorted[:1]
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// MaskedSamples returns the total number of samples covered by a merged
// segment set.
func MaskedSamples(segs []eeg.BadSegment) int {
	total := 0
	for _, s := range segs {
		total += s.Len()
	}
	return total
}

// CleanMask returns a boolean mask of length n that is true for samples
// outside every registered segment.
func CleanMask(segs []eeg.BadSegment, n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	for _, s := range segs {
		for i := s.Start; i < s.End && i < n; i++ {
			mask[i] = false
		}
	}
	return mask
}

// CleanIndices returns the sample indices outside every registered
// segment, in order. Statistics and decomposition training read the
// signal through this index set.
func CleanIndices(segs []eeg.BadSegment, n int) []int {
	mask := CleanMask(segs, n)
	out := make([]int, 0, n)
	for i, ok := range mask {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

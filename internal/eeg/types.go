// Package eeg defines the core data model shared by the conditioning
// pipeline stages: recordings, channel layouts, bad-segment bookkeeping,
// channel quality reports, decomposition results and spectral estimates.
//
// Pipeline stages are pure functions over these values. Each stage returns
// a fresh Recording rather than mutating its input, so any persisted
// snapshot can be used to replay or resume downstream stages.
package eeg

import (
	"fmt"
)

// Recording is an immutable snapshot of a multi-channel signal at one
// pipeline stage: channel labels, sampling rate, a channel-by-sample
// matrix and the registered bad segments carried along for bookkeeping.
type Recording struct {
	SessionID  string       `json:"session_id"`
	Labels     []string     `json:"labels"`
	SampleRate float64      `json:"sample_rate"`
	Data       [][]float64  `json:"-"`
	Segments   []BadSegment `json:"segments,omitempty"`
}

// Channels returns the number of channels (matrix rows).
func (r *Recording) Channels() int { return len(r.Data) }

// Samples returns the number of samples per channel. Zero-channel
// recordings report zero samples.
func (r *Recording) Samples() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// Validate checks the shape invariants that every stage relies on: the
// channel count matches the layout, all rows have equal length and every
// registered segment is inside the sample range.
func (r *Recording) Validate(wantChannels int) error {
	if len(r.Data) != wantChannels {
		return &FormatError{Op: "validate", Msg: fmt.Sprintf("recording has %d channels, layout requires %d", len(r.Data), wantChannels)}
	}
	if len(r.Labels) != wantChannels {
		return &FormatError{Op: "validate", Msg: fmt.Sprintf("recording has %d labels, layout requires %d", len(r.Labels), wantChannels)}
	}
	n := r.Samples()
	for i, row := range r.Data {
		if len(row) != n {
			return &FormatError{Op: "validate", Msg: fmt.Sprintf("channel %d has %d samples, want %d", i, len(row), n)}
		}
	}
	for _, seg := range r.Segments {
		if err := seg.Validate(n); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the recording. Stages that transform the
// signal start from a clone so the input snapshot stays intact.
func (r *Recording) Clone() *Recording {
	out := &Recording{
		SessionID:  r.SessionID,
		Labels:     append([]string(nil), r.Labels...),
		SampleRate: r.SampleRate,
		Data:       make([][]float64, len(r.Data)),
		Segments:   append([]BadSegment(nil), r.Segments...),
	}
	for i, row := range r.Data {
		out.Data[i] = append([]float64(nil), row...)
	}
	return out
}

// BadSegment marks a half-open sample interval [Start, End) flagged by
// manual review or an automated detector. Segments owned by a Recording
// are kept ordered and non-overlapping (merged on insert).
type BadSegment struct {
	Start int `json:"start_sample"`
	End   int `json:"end_sample"`
}

// Len returns the number of samples covered by the segment.
func (s BadSegment) Len() int { return s.End - s.Start }

// Validate checks 0 <= Start < End <= sampleCount.
func (s BadSegment) Validate(sampleCount int) error {
	if s.Start < 0 || s.Start >= s.End || s.End > sampleCount {
		return &FormatError{Op: "segment", Msg: fmt.Sprintf("invalid segment [%d,%d) for %d samples", s.Start, s.End, sampleCount)}
	}
	return nil
}

// QualitySource records how a channel came to be flagged.
type QualitySource string

const (
	SourceAutomatic QualitySource = "automatic"
	SourceManual    QualitySource = "manual"
)

// ChannelQuality is the per-channel entry of a quality report.
type ChannelQuality struct {
	Channel  int           `json:"channel"`
	Label    string        `json:"label"`
	Kurtosis float64       `json:"kurtosis"`
	ZScore   float64       `json:"zscore"`
	Flagged  bool          `json:"flagged"`
	Source   QualitySource `json:"source,omitempty"`

	// Descriptive statistics over the unmasked signal, retained for audit.
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ChannelQualityReport is produced once per recording by the channel
// quality engine and retained for audit after interpolation consumes it.
type ChannelQualityReport struct {
	Threshold float64          `json:"threshold"`
	Channels  []ChannelQuality `json:"channels"`
}

// FlaggedChannels returns the indices of all flagged channels, ordered.
func (r *ChannelQualityReport) FlaggedChannels() []int {
	var out []int
	for _, c := range r.Channels {
		if c.Flagged {
			out = append(out, c.Channel)
		}
	}
	return out
}

// GoodChannels returns the indices of all unflagged channels, ordered.
func (r *ChannelQualityReport) GoodChannels() []int {
	var out []int
	for _, c := range r.Channels {
		if !c.Flagged {
			out = append(out, c.Channel)
		}
	}
	return out
}

// Category is one of the fixed component classification categories.
type Category int

const (
	CategoryBrain Category = iota
	CategoryMuscle
	CategoryEye
	CategoryHeart
	CategoryLineNoise
	CategoryChannelNoise
	CategoryOther

	// NumCategories is the size of a classification probability vector.
	NumCategories = 7
)

var categoryNames = [NumCategories]string{
	"brain", "muscle", "eye", "heart", "line_noise", "channel_noise", "other",
}

func (c Category) String() string {
	if c < 0 || int(c) >= NumCategories {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ComponentClassification holds the classifier output for one component:
// a probability vector over the fixed categories (sums to 1) and the
// rejection decision derived from it.
type ComponentClassification struct {
	Component     int                     `json:"component"`
	Probabilities [NumCategories]float64  `json:"probabilities"`
	Rejected      bool                    `json:"rejected"`
}

// ArgMax returns the most probable category and its probability.
func (c *ComponentClassification) ArgMax() (Category, float64) {
	best, p := Category(0), c.Probabilities[0]
	for i := 1; i < NumCategories; i++ {
		if c.Probabilities[i] > p {
			best, p = Category(i), c.Probabilities[i]
		}
	}
	return best, p
}

// SpectralEstimate is the per-channel Welch output: one shared frequency
// bin vector plus absolute and relative power rows per channel.
type SpectralEstimate struct {
	Freqs    []float64   `json:"freqs"`
	Power    [][]float64 `json:"power"`
	Relative [][]float64 `json:"relative"`
}

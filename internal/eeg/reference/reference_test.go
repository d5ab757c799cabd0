package reference

import (
	"math"
	"testing"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/testutil"
)

func smallLayout() *eeg.ChannelLayout {
	return &eeg.ChannelLayout{
		Labels: []string{"A", "B", "R1", "R2"},
		Positions: []eeg.Position{
			{X: 1}, {Y: 1}, {Z: 1}, {X: -1},
		},
		RefPair: [2]int{2, 3},
	}
}

func TestBipolar(t *testing.T) {
	layout := smallLayout()
	rec := &eeg.Recording{
		SessionID:  "s1",
		Labels:     layout.Labels,
		SampleRate: 250,
		Data: [][]float64{
			{10, 20, 30},
			{1, 2, 3},
			{4, 6, 8},  // R1
			{6, 10, 4}, // R2
		},
	}

	out, err := Bipolar(rec, layout, false)
	testutil.AssertNoError(t, err)

	// Reference is the average of R1 and R2: 5, 8, 6.
	want := [][]float64{
		{5, 12, 24},
		{-4, -6, -3},
		{-1, -2, 2},
		{1, 2, -2},
	}
	for ch := range want {
		for s := range want[ch] {
			if math.Abs(out.Data[ch][s]-want[ch][s]) > 1e-12 {
				t.Errorf("channel %d sample %d = %f, want %f", ch, s, out.Data[ch][s], want[ch][s])
			}
		}
	}

	// The input snapshot is untouched.
	if rec.Data[0][0] != 10 {
		t.Error("Bipolar mutated its input")
	}
}

func TestBipolarDropReferences(t *testing.T) {
	layout := smallLayout()
	rec := &eeg.Recording{
		Labels:     layout.Labels,
		SampleRate: 250,
		Data: [][]float64{
			{10, 20}, {1, 2}, {4, 6}, {6, 10},
		},
	}

	out, err := Bipolar(rec, layout, true)
	testutil.AssertNoError(t, err)

	// Channel count never changes; dropped reference rows are zeroed.
	if out.Channels() != 4 {
		t.Fatalf("Channels() = %d, want 4", out.Channels())
	}
	for s := 0; s < 2; s++ {
		if out.Data[2][s] != 0 || out.Data[3][s] != 0 {
			t.Errorf("reference rows not zeroed at sample %d: %f, %f", s, out.Data[2][s], out.Data[3][s])
		}
	}
}

func TestBipolarValidatesShape(t *testing.T) {
	layout := smallLayout()
	rec := &eeg.Recording{
		Labels: []string{"A", "B"},
		Data:   [][]float64{{1}, {2}},
	}
	_, err := Bipolar(rec, layout, false)
	testutil.AssertError(t, err)
}

func TestCommonAverage(t *testing.T) {
	rec := &eeg.Recording{
		Labels:     []string{"a", "b", "c"},
		SampleRate: 250,
		Data: [][]float64{
			{3, 6},
			{6, 9},
			{9, 15},
		},
	}

	out := CommonAverage(rec)

	// Per-sample channel mean of the output must be zero.
	for s := 0; s < 2; s++ {
		var sum float64
		for ch := 0; ch < 3; ch++ {
			sum += out.Data[ch][s]
		}
		if math.Abs(sum) > 1e-12 {
			t.Errorf("sample %d channel sum = %g, want 0", s, sum)
		}
	}
	if out.Data[0][0] != -3 || out.Data[2][1] != 5 {
		t.Errorf("unexpected values: %v", out.Data)
	}
}

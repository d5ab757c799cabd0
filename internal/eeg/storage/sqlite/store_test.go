package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/eeg/ica"
	"github.com/neuro-data/spectra.report/internal/eeg/spectra"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{
		"sessions", "bad_segments", "channel_quality",
		"checkpoints", "spectra_freqs", "spectra", "band_powers",
	} {
		var name string
		err := s.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)

	sess := &Session{
		SessionID:  "s1",
		SourceFile: "/data/s1.csv",
		NativeRate: 2048,
		TargetRate: 250,
		Channels:   32,
		Samples:    14990,
		ICASeed:    42,
	}
	require.NoError(t, s.BeginSession(sess))
	require.NotEmpty(t, sess.RunID, "run ID must be generated")

	got, err := s.GetSession("s1")
	require.NoError(t, err)
	require.Equal(t, SessionPending, got.Status)
	require.Equal(t, int64(42), got.ICASeed)
	require.Equal(t, float64(2048), got.NativeRate)

	require.NoError(t, s.FinishSession("s1", SessionFailed, "ica diverged"))
	got, err = s.GetSession("s1")
	require.NoError(t, err)
	require.Equal(t, SessionFailed, got.Status)
	require.Equal(t, "ica diverged", got.Error)

	// A rerun upserts the same session and clears the old failure.
	require.NoError(t, s.BeginSession(&Session{SessionID: "s1", SourceFile: "/data/s1.csv"}))
	got, err = s.GetSession("s1")
	require.NoError(t, err)
	require.Equal(t, SessionPending, got.Status)
	require.Empty(t, got.Error)

	_, err = s.GetSession("missing")
	require.Error(t, err)
}

func TestSegmentsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	segs := []eeg.BadSegment{{Start: 100, End: 250}, {Start: 900, End: 1400}}
	require.NoError(t, s.SaveSegments("s1", segs))

	got, err := s.ListSegments("s1")
	require.NoError(t, err)
	if diff := cmp.Diff(segs, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	// Saving again replaces, never appends.
	require.NoError(t, s.SaveSegments("s1", segs[:1]))
	got, err = s.ListSegments("s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestQualityReportRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rep := &eeg.ChannelQualityReport{
		Threshold: 5,
		Channels: []eeg.ChannelQuality{
			{Channel: 0, Label: "Fp1", Kurtosis: 0.2, ZScore: 0.1, Mean: 0.01, StdDev: 1.1, Min: -4, Max: 4},
			{Channel: 1, Label: "Fp2", Kurtosis: 9.4, ZScore: 5.6, Flagged: true, Source: eeg.SourceAutomatic, Mean: 0.2, StdDev: 8, Min: -60, Max: 75},
			{Channel: 2, Label: "F7", Kurtosis: 0.1, ZScore: -0.2, Flagged: true, Source: eeg.SourceManual, Mean: 0, StdDev: 1, Min: -3, Max: 3},
		},
	}
	require.NoError(t, s.SaveQualityReport("s1", rep))

	got, err := s.GetQualityReport("s1", 5)
	require.NoError(t, err)
	if diff := cmp.Diff(rep, got); diff != "" {
		t.Errorf("quality report mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := &eeg.Recording{
		SessionID:  "s1",
		Labels:     []string{"a", "b"},
		SampleRate: 250,
		Data:       [][]float64{{1.5, -2.5, 3.25}, {0.5, 0, -1}},
		Segments:   []eeg.BadSegment{{Start: 0, End: 1}},
	}
	dec := &ica.Decomposition{
		Rank:        2,
		Seed:        42,
		Mixing:      [][]float64{{1, 0.1}, {-0.2, 1}},
		Unmixing:    [][]float64{{0.98, -0.1}, {0.2, 0.98}},
		Activations: [][]float64{{1, 2, 3}, {4, 5, 6}},
	}
	classes := []eeg.ComponentClassification{
		{Component: 0, Probabilities: [eeg.NumCategories]float64{0.8, 0.05, 0.05, 0.02, 0.02, 0.03, 0.03}},
		{Component: 1, Rejected: true},
	}

	require.NoError(t, s.SaveCheckpoint("s1", "pre_reject", rec, dec, classes))

	gotRec, gotDec, gotClasses, err := s.LoadCheckpoint("s1", "pre_reject")
	require.NoError(t, err)
	if diff := cmp.Diff(rec, gotRec); diff != "" {
		t.Errorf("recording mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dec, gotDec); diff != "" {
		t.Errorf("decomposition mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(classes, gotClasses); diff != "" {
		t.Errorf("classifications mismatch (-want +got):\n%s", diff)
	}

	// Post-rejection checkpoints carry no decomposition.
	require.NoError(t, s.SaveCheckpoint("s1", "post_reject", rec, nil, classes))
	_, gotDec, _, err = s.LoadCheckpoint("s1", "post_reject")
	require.NoError(t, err)
	require.Nil(t, gotDec)

	// Overwriting a stage replaces its payload.
	rec2 := rec.Clone()
	rec2.Data[0][0] = 99
	require.NoError(t, s.SaveCheckpoint("s1", "pre_reject", rec2, dec, classes))
	gotRec, _, _, err = s.LoadCheckpoint("s1", "pre_reject")
	require.NoError(t, err)
	require.Equal(t, 99.0, gotRec.Data[0][0])

	_, _, _, err = s.LoadCheckpoint("s1", "no_such_stage")
	require.Error(t, err)
}

func TestSpectraRoundTrip(t *testing.T) {
	s := openTestStore(t)

	est := &eeg.SpectralEstimate{
		Freqs:    []float64{0, 0.5, 1.0},
		Power:    [][]float64{{1, 2, 3}, {4, 5, 6}},
		Relative: [][]float64{{0.1, 0.3, 0.6}, {0.2, 0.3, 0.5}},
	}
	bands := []spectra.ChannelBandPower{
		{Channel: 0, Band: "delta", Absolute: 3.5, Relative: 0.4},
		{Channel: 1, Band: "delta", Absolute: 9.1, Relative: 0.6},
	}

	require.NoError(t, s.SaveSpectra("s1", []string{"a", "b"}, est, bands))

	gotEst, err := s.GetSpectra("s1")
	require.NoError(t, err)
	if diff := cmp.Diff(est, gotEst); diff != "" {
		t.Errorf("spectra mismatch (-want +got):\n%s", diff)
	}

	gotBands, err := s.ListBandPowers("s1")
	require.NoError(t, err)
	if diff := cmp.Diff(bands, gotBands); diff != "" {
		t.Errorf("band powers mismatch (-want +got):\n%s", diff)
	}

	_, err = s.GetSpectra("missing")
	require.Error(t, err)
}

package pipeline

import (
	"fmt"

	"github.com/neuro-data/spectra.report/internal/config"
	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/eeg/filter"
	"github.com/neuro-data/spectra.report/internal/eeg/ica"
	"github.com/neuro-data/spectra.report/internal/eeg/ingest"
	"github.com/neuro-data/spectra.report/internal/eeg/quality"
	"github.com/neuro-data/spectra.report/internal/eeg/reference"
	"github.com/neuro-data/spectra.report/internal/eeg/segments"
	"github.com/neuro-data/spectra.report/internal/eeg/spectra"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// Checkpoint stage names used by the persistence contract. The
// pre-rejection checkpoint carries the decomposition, classification and
// unmodified signal; the post-rejection checkpoint carries the
// reconstructed signal, which is all stage 7 needs on restart.
const (
	StagePreRejection  = "pre_reject"
	StagePostRejection = "post_reject"
)

// ArtifactStore is the persistence surface the pipeline writes through.
// Implemented by storage/sqlite; a nil store disables persistence.
type ArtifactStore interface {
	SaveSegments(sessionID string, segs []eeg.BadSegment) error
	SaveQualityReport(sessionID string, rep *eeg.ChannelQualityReport) error
	SaveCheckpoint(sessionID, stage string, rec *eeg.Recording, dec *ica.Decomposition, classes []eeg.ComponentClassification) error
	LoadCheckpoint(sessionID, stage string) (*eeg.Recording, *ica.Decomposition, []eeg.ComponentClassification, error)
	SaveSpectra(sessionID string, labels []string, est *eeg.SpectralEstimate, bands []spectra.ChannelBandPower) error
}

// Result bundles everything one session produces.
type Result struct {
	Cleaned         *eeg.Recording
	Quality         *eeg.ChannelQualityReport
	Decomposition   *ica.Decomposition
	Classifications []eeg.ComponentClassification
	Spectra         *eeg.SpectralEstimate
	BandPowers      []spectra.ChannelBandPower
}

// Pipeline processes one session at a time. The layout is shared
// read-only across sessions; everything else is per-session state, so
// sessions in a batch are independent and may run concurrently.
type Pipeline struct {
	Layout *eeg.ChannelLayout
	Config *config.TuningConfig
	Review ReviewProvider
	Store  ArtifactStore
}

// New builds a pipeline with the unattended review provider by default.
func New(layout *eeg.ChannelLayout, cfg *config.TuningConfig) *Pipeline {
	return &Pipeline{Layout: layout, Config: cfg, Review: NoReview{}}
}

// Run executes the full stage sequence on one session file. Any error
// aborts this session only; the caller decides whether the batch
// continues.
func (p *Pipeline) Run(path, sessionID string) (*Result, error) {
	cfg := p.Config

	// Stage 1: ingestion and conditioning.
	raw, err := ingest.ReadRecording(path, sessionID, p.Layout, cfg.GetNativeRate())
	if err != nil {
		return nil, err
	}
	conditioned, err := ingest.Resample(raw, cfg.GetTargetRate())
	if err != nil {
		return nil, err
	}

	// Stage 2: bipolar re-reference, then the zero-phase bandpass.
	referenced, err := reference.Bipolar(conditioned, p.Layout, cfg.GetDropReference())
	if err != nil {
		return nil, err
	}
	bp, err := filter.DesignBandpass(cfg.GetPassbandLow(), cfg.GetPassbandHigh(), cfg.GetTransitionWidth(), cfg.GetTargetRate())
	if err != nil {
		return nil, err
	}
	filtered, err := bp.Apply(referenced)
	if err != nil {
		return nil, err
	}

	// Stage 3: segment registry. The review collaborator may legitimately
	// answer with an empty list; a failure to answer aborts the session.
	badSegs, err := p.Review.ProvideBadSegments(sessionID)
	if err != nil {
		return nil, &eeg.MissingInputError{SessionID: sessionID, Input: "bad segments", Err: err}
	}
	registered, err := segments.Register(filtered, badSegs)
	if err != nil {
		return nil, err
	}
	if err := p.save(func(s ArtifactStore) error { return s.SaveSegments(sessionID, registered.Segments) }); err != nil {
		return nil, err
	}

	// Stage 4: channel quality detection, manual merge, interpolation.
	report, err := quality.Detect(registered, cfg.GetKurtosisThreshold())
	if err != nil {
		return nil, err
	}
	if _, err := quality.Interpolate(registered, p.Layout, report); err != nil {
		// Surfaces DataQualityError as soon as the automatic pass alone
		// exhausts the clean channels.
		return nil, err
	}
	badChans, err := p.Review.ProvideBadChannels(sessionID)
	if err != nil {
		return nil, &eeg.MissingInputError{SessionID: sessionID, Input: "bad channels", Err: err}
	}
	report, err = quality.MergeManual(report, badChans)
	if err != nil {
		return nil, err
	}
	repaired, err := quality.Interpolate(registered, p.Layout, report)
	if err != nil {
		return nil, err
	}
	if err := p.save(func(s ArtifactStore) error { return s.SaveQualityReport(sessionID, report) }); err != nil {
		return nil, err
	}

	// Stage 5: common average reference over the repaired channels.
	normalized := reference.CommonAverage(repaired)

	// Stage 6: decomposition, classification, rejection, reconstruction.
	dec, err := ica.Decompose(normalized, ica.Options{
		Seed:          cfg.GetICASeed(),
		MaxIterations: cfg.GetICAMaxIterations(),
		Convergence:   cfg.GetICAConvergence(),
		RankTolerance: cfg.GetRankTolerance(),
	})
	if err != nil {
		return nil, err
	}
	classes := ica.Classify(dec, normalized)
	if err := p.save(func(s ArtifactStore) error {
		return s.SaveCheckpoint(sessionID, StagePreRejection, normalized, dec, classes)
	}); err != nil {
		return nil, err
	}

	classes = ica.ApplyRejection(classes, cfg.GetRejectThreshold())
	cleaned, err := ica.Reconstruct(dec, classes, normalized)
	if err != nil {
		return nil, err
	}
	if err := p.save(func(s ArtifactStore) error {
		return s.SaveCheckpoint(sessionID, StagePostRejection, cleaned, nil, classes)
	}); err != nil {
		return nil, err
	}

	// Stage 7: spectral estimation on the terminal cleaned recording.
	est, bands, err := p.estimate(sessionID, cleaned)
	if err != nil {
		return nil, err
	}

	return &Result{
		Cleaned:         cleaned,
		Quality:         report,
		Decomposition:   dec,
		Classifications: classes,
		Spectra:         est,
		BandPowers:      bands,
	}, nil
}

// Resume restarts spectral estimation from the persisted post-rejection
// checkpoint, skipping the expensive decomposition stages.
func (p *Pipeline) Resume(sessionID string) (*Result, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("resume requires an artifact store")
	}
	cleaned, _, classes, err := p.Store.LoadCheckpoint(sessionID, StagePostRejection)
	if err != nil {
		return nil, fmt.Errorf("load post-rejection checkpoint: %w", err)
	}
	monitoring.Logf("[pipeline] session=%s resuming spectral estimation from checkpoint", sessionID)

	est, bands, err := p.estimate(sessionID, cleaned)
	if err != nil {
		return nil, err
	}
	return &Result{Cleaned: cleaned, Classifications: classes, Spectra: est, BandPowers: bands}, nil
}

func (p *Pipeline) estimate(sessionID string, cleaned *eeg.Recording) (*eeg.SpectralEstimate, []spectra.ChannelBandPower, error) {
	cfg := p.Config
	est, err := spectra.Estimate(cleaned, cfg.GetWelchWindowSeconds(), cfg.GetRelativePowerUpper())
	if err != nil {
		return nil, nil, err
	}
	bands := spectra.BandPowers(est, spectra.CanonicalBands())
	if err := p.save(func(s ArtifactStore) error {
		return s.SaveSpectra(sessionID, cleaned.Labels, est, bands)
	}); err != nil {
		return nil, nil, err
	}
	return est, bands, nil
}

func (p *Pipeline) save(fn func(ArtifactStore) error) error {
	if p.Store == nil {
		return nil
	}
	return fn(p.Store)
}

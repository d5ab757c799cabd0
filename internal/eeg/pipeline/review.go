// Package pipeline wires the conditioning stages into the per-session
// processing sequence and drives persistence of the audit artifacts.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// ReviewProvider is the manual-review collaborator contract. Interactive
// marking tools, automated detectors and test stubs all implement it.
// Both methods may return empty lists: that is the explicit "no
// additional input" signal, so unattended batch runs never block.
type ReviewProvider interface {
	ProvideBadSegments(sessionID string) ([]eeg.BadSegment, error)
	ProvideBadChannels(sessionID string) ([]int, error)
}

// NoReview is the unattended-mode provider: no bad segments, no extra
// bad channels.
type NoReview struct{}

func (NoReview) ProvideBadSegments(string) ([]eeg.BadSegment, error) { return nil, nil }
func (NoReview) ProvideBadChannels(string) ([]int, error)           { return nil, nil }

// reviewSidecar is the JSON schema of a session's review file.
type reviewSidecar struct {
	BadSegments []eeg.BadSegment `json:"bad_segments"`
	BadChannels []int            `json:"bad_channels"`
}

// FileReview reads review data from JSON sidecar files named
// <session>.review.json in a fixed directory. A missing sidecar means no
// additional input; a malformed one is an error.
type FileReview struct {
	Dir string
}

func (f FileReview) load(sessionID string) (*reviewSidecar, error) {
	path := filepath.Join(f.Dir, sessionID+".review.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &reviewSidecar{}, nil
		}
		return nil, fmt.Errorf("read review sidecar: %w", err)
	}
	var sc reviewSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse review sidecar %s: %w", filepath.Base(path), err)
	}
	return &sc, nil
}

// ProvideBadSegments returns the session's reviewed bad segments.
func (f FileReview) ProvideBadSegments(sessionID string) ([]eeg.BadSegment, error) {
	sc, err := f.load(sessionID)
	if err != nil {
		return nil, err
	}
	return sc.BadSegments, nil
}

// ProvideBadChannels returns the session's manually flagged channels.
func (f FileReview) ProvideBadChannels(sessionID string) ([]int, error) {
	sc, err := f.load(sessionID)
	if err != nil {
		return nil, err
	}
	return sc.BadChannels, nil
}

// SessionIDFromPath derives the session identifier from a recording file
// name: the base name without its extension.
func SessionIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

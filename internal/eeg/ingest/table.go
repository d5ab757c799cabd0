// Package ingest loads raw session recordings from tabular CSV/XLSX
// exports or EDF files and resamples them to the pipeline target rate.
package ingest

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/monitoring"
)

// ReadRecording loads a session file, dispatching on the file extension.
// Supported formats: .csv, .xlsx (one leading time/index column followed
// by the layout's channel columns) and .edf.
func ReadRecording(path, sessionID string, layout *eeg.ChannelLayout, nativeRate float64) (*eeg.Recording, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(path, sessionID, layout, nativeRate)
	case ".xlsx":
		return ReadXLSX(path, sessionID, layout, nativeRate)
	case ".edf":
		return ReadEDF(path, sessionID, layout)
	default:
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("unsupported recording format %q", ext)}
	}
}

// assembleRecording converts raw tabular rows (one row per sample, one
// leading non-data column, then exactly one column per layout channel)
// into a channel-by-sample Recording.
//
// Sample rows where every channel cell is simultaneously invalid are
// dropped; these are acquisition-end artifacts. A row where only some
// channels are invalid is a format error, never silently dropped.
func assembleRecording(rows [][]string, sessionID string, layout *eeg.ChannelLayout, nativeRate float64) (*eeg.Recording, error) {
	nch := layout.Channels()
	data := make([][]float64, nch)
	dropped := 0

	for ri, row := range rows {
		if len(row) != nch+1 {
			return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("row %d has %d columns, want %d (1 index + %d channels)", ri, len(row), nch+1, nch)}
		}

		vals := make([]float64, nch)
		invalid := 0
		for ci := 0; ci < nch; ci++ {
			v, ok, err := parseCell(row[ci+1])
			if err != nil {
				return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("row %d channel column %d: %v", ri, ci, err)}
			}
			if !ok {
				invalid++
				continue
			}
			vals[ci] = v
		}

		switch invalid {
		case 0:
			for ci := 0; ci < nch; ci++ {
				data[ci] = append(data[ci], vals[ci])
			}
		case nch:
			dropped++
		default:
			return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("row %d has %d of %d channels invalid; partially invalid samples are rejected", ri, invalid, nch)}
		}
	}

	if dropped > 0 {
		monitoring.Logf("[ingest] session=%s dropped %d all-invalid sample columns", sessionID, dropped)
	}

	rec := &eeg.Recording{
		SessionID:  sessionID,
		Labels:     append([]string(nil), layout.Labels...),
		SampleRate: nativeRate,
		Data:       data,
	}
	if err := rec.Validate(nch); err != nil {
		return nil, err
	}
	return rec, nil
}

// parseCell parses one tabular cell. It reports ok=false for a missing
// value (empty cell or NaN marker) and an error for anything that is
// neither missing nor numeric.
func parseCell(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("non-numeric cell %q", s)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

// isHeaderRow reports whether the first row looks like a label header
// rather than a data row. Exports from some acquisition tools include
// one; the detection only inspects the first channel column.
func isHeaderRow(row []string) bool {
	if len(row) < 2 {
		return false
	}
	_, _, err := parseCell(row[1])
	return err != nil
}

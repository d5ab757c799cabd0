package ingest

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// ReadCSV loads a CSV session export: one time/index column followed by
// exactly one column per layout channel, one row per sample at the native
// acquisition rate. An optional label header row is skipped.
func ReadCSV(path, sessionID string, layout *eeg.ChannelLayout, nativeRate float64) (*eeg.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // column count is validated per row with a typed error
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV file: %w", err)
	}
	if len(rows) == 0 {
		return nil, &eeg.FormatError{Op: "ingest", Msg: "empty CSV file"}
	}

	if isHeaderRow(rows[0]) {
		rows = rows[1:]
	}
	return assembleRecording(rows, sessionID, layout, nativeRate)
}

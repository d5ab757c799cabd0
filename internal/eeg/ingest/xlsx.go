package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// ReadXLSX loads an Excel session export with the same row contract as
// ReadCSV. Data is always read from the first sheet of the workbook.
func ReadXLSX(path, sessionID string, layout *eeg.ChannelLayout, nativeRate float64) (*eeg.Recording, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &eeg.FormatError{Op: "ingest", Msg: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &eeg.FormatError{Op: "ingest", Msg: "empty worksheet"}
	}

	// excelize trims trailing empty cells per row; pad back to the full
	// column count so all-invalid tail samples are still recognisable.
	width := layout.Channels() + 1
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}

	if isHeaderRow(rows[0]) {
		rows = rows[1:]
	}
	return assembleRecording(rows, sessionID, layout, nativeRate)
}

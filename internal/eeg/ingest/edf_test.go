package ingest

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/testutil"
)

// writeEDF builds an EDF fixture with the given per-channel record data.
// Every channel shares the same record geometry.
func writeEDF(t *testing.T, signals int, samplesPerRecord int, records [][][]float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.edf")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "anon",
		RecordingID:        "test recording",
		StartTime:          time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        signals,
	}
	for i := 0; i < signals; i++ {
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             "EEG",
			PhysicalDimension: "uV",
			PhysicalMin:       -500,
			PhysicalMax:       500,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  samplesPerRecord,
		})
	}

	w, err := edf.Create(f, hdr)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadEDF(t *testing.T) {
	layout := testLayout4()
	const spr = 100

	// Two one-second records of distinct ramps per channel.
	records := make([][][]float64, 2)
	for r := range records {
		records[r] = make([][]float64, 4)
		for ch := range records[r] {
			row := make([]float64, spr)
			for i := range row {
				row[i] = float64(ch+1) * float64(r*spr+i) * 0.01
			}
			records[r][ch] = row
		}
	}
	path := writeEDF(t, 4, spr, records)

	rec, err := ReadEDF(path, "session", layout)
	testutil.AssertNoError(t, err)

	if rec.Channels() != 4 || rec.Samples() != 200 {
		t.Fatalf("got %dx%d, want 4x200", rec.Channels(), rec.Samples())
	}
	// Rate comes from the record geometry: 100 samples per 1 s record.
	if rec.SampleRate != 100 {
		t.Errorf("SampleRate = %f, want 100", rec.SampleRate)
	}

	// Values survive the digital round-trip to within quantisation of the
	// +/-500 uV physical range over 16 bits.
	const quantum = 1000.0 / 65535.0
	for ch := 0; ch < 4; ch++ {
		for i := 0; i < 200; i++ {
			want := float64(ch+1) * float64(i) * 0.01
			if math.Abs(rec.Data[ch][i]-want) > 2*quantum {
				t.Fatalf("channel %d sample %d = %f, want %f", ch, i, rec.Data[ch][i], want)
			}
		}
	}
}

func TestReadEDFSignalCountMismatch(t *testing.T) {
	layout := testLayout4()
	records := [][][]float64{{make([]float64, 10), make([]float64, 10)}}
	path := writeEDF(t, 2, 10, records)

	_, err := ReadEDF(path, "session", layout)
	var ferr *eeg.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("got %v, want FormatError for signal count mismatch", err)
	}
}

func TestReadEDFMissingFile(t *testing.T) {
	_, err := ReadEDF(filepath.Join(t.TempDir(), "nope.edf"), "session", testLayout4())
	testutil.AssertError(t, err)
}

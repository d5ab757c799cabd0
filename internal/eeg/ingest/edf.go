package ingest

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenPSG/edf"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// edfLayout describes the slice of the EDF header the ingester needs:
// record geometry and per-signal sample counts. Sample data itself is
// decoded through the edf package, which applies the digital-to-physical
// calibration from the signal headers.
type edfLayout struct {
	dataRecords    int
	recordDuration float64 // seconds
	signals        int
	labels         []string
	samplesPerRec  []int
}

// ReadEDF loads an EDF/EDF+ session file. The signal count must match
// the channel layout exactly; the native sampling rate is taken from the
// file's record geometry. EDF carries no missing-value representation,
// so the all-invalid column scan does not apply to this path.
func ReadEDF(path, sessionID string, layout *eeg.ChannelLayout) (*eeg.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open EDF file: %w", err)
	}
	defer f.Close()

	hdr, err := readEDFLayout(f)
	if err != nil {
		return nil, err
	}
	if hdr.signals != layout.Channels() {
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF file has %d signals, layout requires %d", hdr.signals, layout.Channels())}
	}
	for i := 1; i < hdr.signals; i++ {
		if hdr.samplesPerRec[i] != hdr.samplesPerRec[0] {
			return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF signal %d has %d samples per record, signal 0 has %d; mixed-rate files are not supported", i, hdr.samplesPerRec[i], hdr.samplesPerRec[0])}
		}
	}
	if hdr.dataRecords <= 0 || hdr.recordDuration <= 0 {
		return nil, &eeg.FormatError{Op: "ingest", Msg: "EDF file has unknown record count or duration"}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind EDF file: %w", err)
	}
	reader, err := edf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("parse EDF file: %w", err)
	}

	total := hdr.dataRecords * hdr.samplesPerRec[0]
	data := make([][]float64, hdr.signals)
	for ch := 0; ch < hdr.signals; ch++ {
		sig, err := reader.Signal(ch)
		if err != nil {
			return nil, fmt.Errorf("open EDF signal %d: %w", ch, err)
		}
		buf := make([]float64, total)
		n, err := sig.Read(buf)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read EDF signal %d: %w", ch, err)
		}
		data[ch] = buf[:n]
	}
	for ch := 1; ch < hdr.signals; ch++ {
		if len(data[ch]) != len(data[0]) {
			return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF signal %d decoded %d samples, signal 0 decoded %d", ch, len(data[ch]), len(data[0]))}
		}
	}

	rec := &eeg.Recording{
		SessionID:  sessionID,
		Labels:     append([]string(nil), layout.Labels...),
		SampleRate: float64(hdr.samplesPerRec[0]) / hdr.recordDuration,
		Data:       data,
	}
	if err := rec.Validate(layout.Channels()); err != nil {
		return nil, err
	}
	return rec, nil
}

// readEDFLayout parses the fixed-width ASCII EDF header fields the
// ingester needs. The edf package parses the same header internally but
// does not expose it, so the geometry is read here.
func readEDFLayout(r io.Reader) (*edfLayout, error) {
	fixed := make([]byte, 256)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("short EDF header: %v", err)}
	}

	hdr := &edfLayout{}
	var err error
	if hdr.dataRecords, err = edfInt(fixed[236:244]); err != nil {
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF data record count: %v", err)}
	}
	if hdr.recordDuration, err = edfFloat(fixed[244:252]); err != nil {
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF record duration: %v", err)}
	}
	if hdr.signals, err = edfInt(fixed[252:256]); err != nil {
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF signal count: %v", err)}
	}
	if hdr.signals <= 0 {
		return nil, &eeg.FormatError{Op: "ingest", Msg: "EDF file declares no signals"}
	}

	ns := hdr.signals
	variable := make([]byte, ns*216+ns*8)
	if _, err := io.ReadFull(r, variable); err != nil {
		return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("short EDF signal header: %v", err)}
	}

	hdr.labels = make([]string, ns)
	for i := 0; i < ns; i++ {
		hdr.labels[i] = strings.TrimSpace(string(variable[i*16 : (i+1)*16]))
	}
	// Samples-per-record fields follow label, transducer, dimension,
	// physical/digital ranges and prefiltering blocks: ns*216 bytes in.
	sprOff := ns * 216
	hdr.samplesPerRec = make([]int, ns)
	for i := 0; i < ns; i++ {
		v, err := edfInt(variable[sprOff+i*8 : sprOff+(i+1)*8])
		if err != nil {
			return nil, &eeg.FormatError{Op: "ingest", Msg: fmt.Sprintf("EDF samples per record for signal %d: %v", i, err)}
		}
		hdr.samplesPerRec[i] = v
	}
	return hdr, nil
}

func edfInt(b []byte) (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func edfFloat(b []byte) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}

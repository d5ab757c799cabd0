package sqlite

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/eeg/ica"
)

// checkpointPayload is the gob-encoded body of a checkpoint row. The
// pre-rejection checkpoint carries all three fields; the post-rejection
// checkpoint carries the reconstructed recording and the classification
// decisions only.
type checkpointPayload struct {
	Recording       *eeg.Recording
	Decomposition   *ica.Decomposition
	Classifications []eeg.ComponentClassification
}

// SaveCheckpoint persists one pipeline checkpoint, gob-encoded and
// gzip-compressed, replacing any earlier checkpoint for the same stage.
func (s *Store) SaveCheckpoint(sessionID, stage string, rec *eeg.Recording, dec *ica.Decomposition, classes []eeg.ComponentClassification) error {
	blob, err := encodeCheckpoint(&checkpointPayload{
		Recording:       rec,
		Decomposition:   dec,
		Classifications: classes,
	})
	if err != nil {
		return fmt.Errorf("encode %s checkpoint: %w", stage, err)
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO checkpoints (session_id, stage, payload, created_at_ns)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, stage) DO UPDATE SET
				payload = excluded.payload,
				created_at_ns = excluded.created_at_ns`,
			sessionID, stage, blob, time.Now().UnixNano(),
		)
		return err
	})
}

// LoadCheckpoint reads a persisted checkpoint back.
func (s *Store) LoadCheckpoint(sessionID, stage string) (*eeg.Recording, *ica.Decomposition, []eeg.ComponentClassification, error) {
	var blob []byte
	err := s.db.QueryRow(`
		SELECT payload FROM checkpoints WHERE session_id = ? AND stage = ?`,
		sessionID, stage,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil, nil, fmt.Errorf("no %s checkpoint for session %s", stage, sessionID)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query checkpoint: %w", err)
	}

	payload, err := decodeCheckpoint(blob)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode %s checkpoint: %w", stage, err)
	}
	return payload.Recording, payload.Decomposition, payload.Classifications, nil
}

func encodeCheckpoint(p *checkpointPayload) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(p); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCheckpoint(blob []byte) (*checkpointPayload, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var p checkpointPayload
	if err := gob.NewDecoder(gz).Decode(&p); err != nil && err != io.EOF {
		return nil, err
	}
	return &p, nil
}

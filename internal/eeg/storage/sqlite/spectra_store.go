package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/neuro-data/spectra.report/internal/eeg"
	"github.com/neuro-data/spectra.report/internal/eeg/spectra"
)

// SaveSpectra persists the spectral outputs of a session: the shared
// frequency bin vector, per-channel absolute and relative power rows and
// the integrated band powers. Any earlier spectra are replaced.
func (s *Store) SaveSpectra(sessionID string, labels []string, est *eeg.SpectralEstimate, bands []spectra.ChannelBandPower) error {
	freqsJSON, err := json.Marshal(est.Freqs)
	if err != nil {
		return fmt.Errorf("marshal frequency bins: %w", err)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, table := range []string{"spectra_freqs", "spectra", "band_powers"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE session_id = ?`, sessionID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		if _, err := tx.Exec(`
			INSERT INTO spectra_freqs (session_id, freqs_json) VALUES (?, ?)`,
			sessionID, string(freqsJSON),
		); err != nil {
			return fmt.Errorf("insert frequency bins: %w", err)
		}

		for ch := range est.Power {
			powerJSON, err := json.Marshal(est.Power[ch])
			if err != nil {
				return fmt.Errorf("marshal power row %d: %w", ch, err)
			}
			relJSON, err := json.Marshal(est.Relative[ch])
			if err != nil {
				return fmt.Errorf("marshal relative row %d: %w", ch, err)
			}
			label := ""
			if ch < len(labels) {
				label = labels[ch]
			}
			if _, err := tx.Exec(`
				INSERT INTO spectra (session_id, channel, label, power_json, relative_json)
				VALUES (?, ?, ?, ?, ?)`,
				sessionID, ch, label, string(powerJSON), string(relJSON),
			); err != nil {
				return fmt.Errorf("insert spectra row %d: %w", ch, err)
			}
		}

		for _, b := range bands {
			if _, err := tx.Exec(`
				INSERT INTO band_powers (session_id, channel, band, absolute, relative)
				VALUES (?, ?, ?, ?, ?)`,
				sessionID, b.Channel, b.Band, b.Absolute, b.Relative,
			); err != nil {
				return fmt.Errorf("insert band power (%d, %s): %w", b.Channel, b.Band, err)
			}
		}
		return tx.Commit()
	})
}

// GetSpectra reads a session's spectral estimate back.
func (s *Store) GetSpectra(sessionID string) (*eeg.SpectralEstimate, error) {
	var freqsJSON string
	err := s.db.QueryRow(`SELECT freqs_json FROM spectra_freqs WHERE session_id = ?`, sessionID).Scan(&freqsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no spectra for session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("query frequency bins: %w", err)
	}

	est := &eeg.SpectralEstimate{}
	if err := json.Unmarshal([]byte(freqsJSON), &est.Freqs); err != nil {
		return nil, fmt.Errorf("parse frequency bins: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT power_json, relative_json FROM spectra
		WHERE session_id = ? ORDER BY channel`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query spectra: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var powerJSON, relJSON string
		if err := rows.Scan(&powerJSON, &relJSON); err != nil {
			return nil, err
		}
		var power, rel []float64
		if err := json.Unmarshal([]byte(powerJSON), &power); err != nil {
			return nil, fmt.Errorf("parse power row: %w", err)
		}
		if err := json.Unmarshal([]byte(relJSON), &rel); err != nil {
			return nil, fmt.Errorf("parse relative row: %w", err)
		}
		est.Power = append(est.Power, power)
		est.Relative = append(est.Relative, rel)
	}
	return est, rows.Err()
}

// ListBandPowers reads a session's integrated band powers back, ordered
// by channel then band name.
func (s *Store) ListBandPowers(sessionID string) ([]spectra.ChannelBandPower, error) {
	rows, err := s.db.Query(`
		SELECT channel, band, absolute, relative FROM band_powers
		WHERE session_id = ? ORDER BY channel, band`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query band powers: %w", err)
	}
	defer rows.Close()

	var out []spectra.ChannelBandPower
	for rows.Next() {
		var b spectra.ChannelBandPower
		if err := rows.Scan(&b.Channel, &b.Band, &b.Absolute, &b.Relative); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

package sqlite

import (
	"fmt"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// SaveQualityReport persists the channel quality report of a session,
// replacing any earlier report.
func (s *Store) SaveQualityReport(sessionID string, rep *eeg.ChannelQualityReport) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM channel_quality WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("clear quality report: %w", err)
		}
		for _, c := range rep.Channels {
			if _, err := tx.Exec(`
				INSERT INTO channel_quality (
					session_id, channel, label, kurtosis, zscore, flagged, source,
					mean, stddev, min, max
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sessionID, c.Channel, c.Label, c.Kurtosis, c.ZScore, c.Flagged, string(c.Source),
				c.Mean, c.StdDev, c.Min, c.Max,
			); err != nil {
				return fmt.Errorf("insert quality row for channel %d: %w", c.Channel, err)
			}
		}
		return tx.Commit()
	})
}

// GetQualityReport returns the stored report of a session. The flag
// threshold is not persisted per channel, so the caller supplies it.
func (s *Store) GetQualityReport(sessionID string, threshold float64) (*eeg.ChannelQualityReport, error) {
	rows, err := s.db.Query(`
		SELECT channel, label, kurtosis, zscore, flagged, source, mean, stddev, min, max
		FROM channel_quality WHERE session_id = ? ORDER BY channel`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query quality report: %w", err)
	}
	defer rows.Close()

	rep := &eeg.ChannelQualityReport{Threshold: threshold}
	for rows.Next() {
		var c eeg.ChannelQuality
		var source string
		if err := rows.Scan(&c.Channel, &c.Label, &c.Kurtosis, &c.ZScore, &c.Flagged, &source,
			&c.Mean, &c.StdDev, &c.Min, &c.Max); err != nil {
			return nil, err
		}
		c.Source = eeg.QualitySource(source)
		rep.Channels = append(rep.Channels, c)
	}
	return rep, rows.Err()
}

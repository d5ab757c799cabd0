package sqlite

import (
	"fmt"

	"github.com/neuro-data/spectra.report/internal/eeg"
)

// SaveSegments persists the merged bad-segment set of a session,
// replacing any earlier set. Persisting happens regardless of whether
// later stages consume the segments: the registry is an audit record.
func (s *Store) SaveSegments(sessionID string, segs []eeg.BadSegment) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM bad_segments WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}
		for i, seg := range segs {
			if _, err := tx.Exec(`
				INSERT INTO bad_segments (session_id, position, start_sample, end_sample)
				VALUES (?, ?, ?, ?)`,
				sessionID, i, seg.Start, seg.End,
			); err != nil {
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// ListSegments returns a session's registered segments in order.
func (s *Store) ListSegments(sessionID string) ([]eeg.BadSegment, error) {
	rows, err := s.db.Query(`
		SELECT start_sample, end_sample FROM bad_segments
		WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segs []eeg.BadSegment
	for rows.Next() {
		var seg eeg.BadSegment
		if err := rows.Scan(&seg.Start, &seg.End); err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

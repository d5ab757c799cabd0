package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the per-session processing record.
type Session struct {
	SessionID   string  `json:"session_id"`
	RunID       string  `json:"run_id"`
	SourceFile  string  `json:"source_file"`
	NativeRate  float64 `json:"native_rate"`
	TargetRate  float64 `json:"target_rate"`
	Channels    int     `json:"channels"`
	Samples     int     `json:"samples"`
	ICASeed     int64   `json:"ica_seed"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	CreatedAtNs int64   `json:"created_at_ns"`
	UpdatedAtNs int64   `json:"updated_at_ns"`
}

// Session status values.
const (
	SessionPending  = "pending"
	SessionComplete = "complete"
	SessionFailed   = "failed"
)

// BeginSession registers a session before processing starts. A fresh run
// ID is generated when none is supplied.
func (s *Store) BeginSession(sess *Session) error {
	if sess.RunID == "" {
		sess.RunID = uuid.New().String()
	}
	if sess.CreatedAtNs == 0 {
		sess.CreatedAtNs = time.Now().UnixNano()
	}
	if sess.Status == "" {
		sess.Status = SessionPending
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sessions (
				session_id, run_id, source_file, native_rate, target_rate,
				channels, samples, ica_seed, status, error, created_at_ns, updated_at_ns
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				run_id = excluded.run_id,
				source_file = excluded.source_file,
				native_rate = excluded.native_rate,
				target_rate = excluded.target_rate,
				channels = excluded.channels,
				samples = excluded.samples,
				ica_seed = excluded.ica_seed,
				status = excluded.status,
				error = '',
				updated_at_ns = excluded.created_at_ns`,
			sess.SessionID, sess.RunID, sess.SourceFile, sess.NativeRate, sess.TargetRate,
			sess.Channels, sess.Samples, sess.ICASeed, sess.Status, sess.Error,
			sess.CreatedAtNs, sess.CreatedAtNs,
		)
		return err
	})
}

// FinishSession records the terminal status of a session. errMsg is empty
// on success.
func (s *Store) FinishSession(sessionID, status, errMsg string) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			UPDATE sessions SET status = ?, error = ?, updated_at_ns = ?
			WHERE session_id = ?`,
			status, errMsg, time.Now().UnixNano(), sessionID,
		)
		return err
	})
}

// GetSession returns one session record.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, run_id, source_file, native_rate, target_rate,
		       channels, samples, ica_seed, status, error, created_at_ns,
		       COALESCE(updated_at_ns, 0)
		FROM sessions WHERE session_id = ?`, sessionID)

	var sess Session
	err := row.Scan(&sess.SessionID, &sess.RunID, &sess.SourceFile, &sess.NativeRate, &sess.TargetRate,
		&sess.Channels, &sess.Samples, &sess.ICASeed, &sess.Status, &sess.Error,
		&sess.CreatedAtNs, &sess.UpdatedAtNs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &sess, nil
}

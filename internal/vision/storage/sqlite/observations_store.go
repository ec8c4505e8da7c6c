// Package sqlite persists finalized session observations. One row per
// session: the full aggregate as JSON plus a handful of lifted columns for
// filtering without parsing the blob.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/podium-data/delivery.report/internal/vision/pipeline"
)

// SessionRecord is one persisted session: identity, creation time, and the
// full observations aggregate.
type SessionRecord struct {
	SessionID    string                       `json:"session_id"`
	CreatedAt    int64                        `json:"created_at"`
	Observations *pipeline.VisualObservations `json:"observations"`
}

// ObservationsStore provides persistence for session observations.
type ObservationsStore struct {
	db *sql.DB
}

// NewObservationsStore creates an ObservationsStore backed by the given
// database. The schema must already be migrated.
func NewObservationsStore(db *sql.DB) *ObservationsStore {
	return &ObservationsStore{db: db}
}

// Insert persists a finalized session. If SessionID is empty, a UUID is
// generated; if CreatedAt is zero, the current time is used.
func (s *ObservationsStore) Insert(rec *SessionRecord) error {
	if rec.Observations == nil {
		return fmt.Errorf("insert session: nil observations")
	}
	if rec.SessionID == "" {
		rec.SessionID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}

	blob, err := json.Marshal(rec.Observations)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}

	obs := rec.Observations
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sessions (
				session_id, created_at, fingerprint,
				video_quality_grade, video_quality_warning,
				duration_seconds, frames_received, frames_analyzed,
				observations_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SessionID, rec.CreatedAt, obs.ProcessingFingerprint,
			obs.VideoQualityGrade, obs.VideoQualityWarning,
			obs.DurationSeconds, obs.Counters.FramesReceived, obs.Counters.FramesAnalyzed,
			string(blob),
		)
		return err
	})
}

// Get returns a single session by ID, or (nil, nil) when absent.
func (s *ObservationsStore) Get(sessionID string) (*SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT session_id, created_at, observations_json
		FROM sessions
		WHERE session_id = ?`, sessionID)

	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// List returns the most recent sessions, newest first.
func (s *ObservationsStore) List(limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT session_id, created_at, observations_json
		FROM sessions
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var recs []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var rec SessionRecord
	var blob string
	if err := row.Scan(&rec.SessionID, &rec.CreatedAt, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	var obs pipeline.VisualObservations
	if err := json.Unmarshal([]byte(blob), &obs); err != nil {
		return nil, fmt.Errorf("unmarshal observations: %w", err)
	}
	rec.Observations = &obs
	return &rec, nil
}

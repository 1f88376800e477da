package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UsageLog is one completed run's accounting record.
type UsageLog struct {
	ID           string
	RunID        string
	SessionID    string
	Model        string
	Provider     string
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	CreatedAt    int64
}

// UsageTotals is a session's aggregate over its usage history.
type UsageTotals struct {
	Requests     int64
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

// Store wraps the usage_log table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordUsage appends one completed run to the usage log. ID and CreatedAt
// are filled in when empty.
func (s *Store) RecordUsage(ctx context.Context, rec UsageLog) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_log (id, run_id, session_id, model, provider, input_tokens, output_tokens, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RunID, rec.SessionID, rec.Model, rec.Provider, rec.InputTokens, rec.OutputTokens, rec.Cost, rec.CreatedAt)
	return err
}

// SessionTotals aggregates the usage history for one session.
func (s *Store) SessionTotals(ctx context.Context, sessionID string) (UsageTotals, error) {
	var t UsageTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost), 0.0)
		FROM usage_log WHERE session_id = ?
	`, sessionID).Scan(&t.Requests, &t.InputTokens, &t.OutputTokens, &t.Cost)
	return t, err
}

// ListBySession returns a session's usage records, newest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]UsageLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, session_id, model, provider, input_tokens, output_tokens, cost, created_at
		FROM usage_log WHERE session_id = ? ORDER BY created_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageLog
	for rows.Next() {
		var rec UsageLog
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.SessionID, &rec.Model, &rec.Provider,
			&rec.InputTokens, &rec.OutputTokens, &rec.Cost, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

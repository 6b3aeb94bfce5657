package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainerrors "github.com/verihire/verihire-backend/internal/domain/errors"
	"github.com/verihire/verihire-backend/internal/domain/verification"
)

// SessionRepository implements the verification Store using PostgreSQL.
// Session state is stored as JSONB; the stage and timestamps are lifted into
// columns for querying.
type SessionRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveSession upserts the full session record.
func (r *SessionRepository) SaveSession(ctx context.Context, s *verification.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO verification_sessions (id, stage, state, created_at, started_at, ended_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			stage      = EXCLUDED.stage,
			state      = EXCLUDED.state,
			started_at = EXCLUDED.started_at,
			ended_at   = EXCLUDED.ended_at,
			updated_at = now()
	`

	if _, err := r.db.ExecContext(ctx, query,
		s.ID, string(s.Stage), payload, s.CreatedAt, s.StartedAt, s.EndedAt,
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveProgress persists the latest progress snapshot. The status endpoint
// reads this even mid-failure, so it is written after every sub-check.
func (r *SessionRepository) SaveProgress(ctx context.Context, sessionID uuid.UUID, progress verification.Progress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	query := `
		UPDATE verification_sessions
		SET state = jsonb_set(state, '{progress}', $2), updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, payload)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return nil
}

// SaveReport persists the final fraud report.
func (r *SessionRepository) SaveReport(ctx context.Context, sessionID uuid.UUID, report *verification.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// The report lives inside the state document; there is no separate
	// report column.
	query := `
		UPDATE verification_sessions
		SET state = jsonb_set(state, '{report}', $2), updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, payload)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return nil
}

// LoadSession retrieves a session by id.
func (r *SessionRepository) LoadSession(ctx context.Context, sessionID uuid.UUID) (*verification.Session, error) {
	query := `SELECT state FROM verification_sessions WHERE id = $1`

	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session verification.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

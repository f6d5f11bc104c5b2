package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kmajors/hotstreak/internal/models"
)

// DB defines what the repository needs from the database layer. *pgxpool.Pool
// satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements session data access operations
type Repository struct {
	db DB
}

// NewRepository creates a new session repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `
	id, duration_seconds, started_at, ended_at,
	is_paused, paused_at, total_paused_ms, current_game_id,
	high_score, total_games, total_points, created_at, updated_at`

// CreateSession inserts a new session row.
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (
			id, duration_seconds, started_at, ended_at,
			is_paused, paused_at, total_paused_ms, current_game_id,
			high_score, total_games, total_points, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		s.ID, s.DurationSeconds, s.StartedAt, s.EndedAt,
		s.IsPaused, s.PausedAt, s.TotalPausedMs, s.CurrentGameID,
		s.HighScore, s.TotalGames, s.TotalPoints, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT`+sessionColumns+` FROM sessions WHERE id = $1`, id)

	var s models.Session
	err := row.Scan(
		&s.ID, &s.DurationSeconds, &s.StartedAt, &s.EndedAt,
		&s.IsPaused, &s.PausedAt, &s.TotalPausedMs, &s.CurrentGameID,
		&s.HighScore, &s.TotalGames, &s.TotalPoints, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// UpdateSession replaces every mutable session field. Reconciliation relies on
// full replacement, not merges, so the most recent write is authoritative.
func (r *Repository) UpdateSession(ctx context.Context, s *models.Session) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET
			ended_at = $2,
			is_paused = $3,
			paused_at = $4,
			total_paused_ms = $5,
			current_game_id = $6,
			high_score = $7,
			total_games = $8,
			total_points = $9,
			updated_at = now()
		WHERE id = $1`,
		s.ID, s.EndedAt,
		s.IsPaused, s.PausedAt, s.TotalPausedMs, s.CurrentGameID,
		s.HighScore, s.TotalGames, s.TotalPoints,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession deletes a session and, via cascade, its games and events.
func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

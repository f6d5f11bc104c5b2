package game

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

// Repository implements game data access operations
type Repository struct {
	db DB
}

// NewRepository creates a new game repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const gameColumns = `
	id, session_id,
	current_score, current_mode, current_multiplier,
	multiplier_shots_remaining, misses_remaining, freebies_remaining,
	is_active, final_score, high_multiplier, total_makes, total_misses,
	duration_seconds, end_reason, started_at, ended_at, created_at, updated_at`

// CreateGame inserts a new game row.
func (r *Repository) CreateGame(ctx context.Context, g *models.Game) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO games (
			id, session_id,
			current_score, current_mode, current_multiplier,
			multiplier_shots_remaining, misses_remaining, freebies_remaining,
			is_active, final_score, high_multiplier, total_makes, total_misses,
			duration_seconds, end_reason, started_at, ended_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		g.ID, g.SessionID,
		g.CurrentScore, g.CurrentMode, g.CurrentMultiplier,
		g.MultiplierShotsRemaining, g.MissesRemaining, g.FreebiesRemaining,
		g.IsActive, g.FinalScore, g.HighMultiplier, g.TotalMakes, g.TotalMisses,
		g.DurationSeconds, g.EndReason, g.StartedAt, g.EndedAt, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// GetGame retrieves a game by ID.
func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	row := r.db.QueryRow(ctx, `SELECT`+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

// ListGamesBySession returns a session's games ordered by start time, the
// replay order reconciliation depends on.
func (r *Repository) ListGamesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Game, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+gameColumns+` FROM games WHERE session_id = $1 ORDER BY started_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// UpdateGame replaces every mutable game field. Full replacement keeps the
// most recent reconciliation authoritative.
func (r *Repository) UpdateGame(ctx context.Context, g *models.Game) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE games SET
			current_score = $2,
			current_mode = $3,
			current_multiplier = $4,
			multiplier_shots_remaining = $5,
			misses_remaining = $6,
			freebies_remaining = $7,
			is_active = $8,
			final_score = $9,
			high_multiplier = $10,
			total_makes = $11,
			total_misses = $12,
			duration_seconds = $13,
			end_reason = $14,
			ended_at = $15,
			updated_at = now()
		WHERE id = $1`,
		g.ID,
		g.CurrentScore, g.CurrentMode, g.CurrentMultiplier,
		g.MultiplierShotsRemaining, g.MissesRemaining, g.FreebiesRemaining,
		g.IsActive, g.FinalScore, g.HighMultiplier, g.TotalMakes, g.TotalMisses,
		g.DurationSeconds, g.EndReason, g.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// DeleteGame deletes a game and, via cascade, its events.
func (r *Repository) DeleteGame(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(
		&g.ID, &g.SessionID,
		&g.CurrentScore, &g.CurrentMode, &g.CurrentMultiplier,
		&g.MultiplierShotsRemaining, &g.MissesRemaining, &g.FreebiesRemaining,
		&g.IsActive, &g.FinalScore, &g.HighMultiplier, &g.TotalMakes, &g.TotalMisses,
		&g.DurationSeconds, &g.EndReason, &g.StartedAt, &g.EndedAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

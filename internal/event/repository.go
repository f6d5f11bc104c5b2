package event

import (
	"context"
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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository implements event data access operations. Events are immutable:
// there is insert and read, never update.
type Repository struct {
	db DB
}

// NewRepository creates a new event repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `
	id, game_id, event_type,
	score, multiplier, multiplier_shots_remaining, misses_remaining,
	freebies_remaining, mode,
	points_earned, previous_mode, new_mode, used_freebie, is_tip_in,
	occurred_at, sequence_number`

// InsertEvents appends a batch of events. The insert is keyed on
// (game_id, sequence_number): redelivered duplicates are dropped, which is
// what makes at-least-once delivery from producers safe.
func (r *Repository) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO events (
				id, game_id, event_type,
				score, multiplier, multiplier_shots_remaining, misses_remaining,
				freebies_remaining, mode,
				points_earned, previous_mode, new_mode, used_freebie, is_tip_in,
				occurred_at, sequence_number
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (game_id, sequence_number) DO NOTHING`,
			e.ID, e.GameID, e.EventType,
			e.Score, e.Multiplier, e.MultiplierShotsRemaining, e.MissesRemaining,
			e.FreebiesRemaining, e.Mode,
			e.PointsEarned, e.PreviousMode, e.NewMode, e.UsedFreebie, e.IsTipIn,
			e.OccurredAt, e.SequenceNumber,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert events: %w", err)
		}
	}
	return nil
}

// ListEventsByGame returns a game's full log ordered by sequence number, the
// sole authoritative ordering key.
func (r *Repository) ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+eventColumns+` FROM events WHERE game_id = $1 ORDER BY sequence_number`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		err := rows.Scan(
			&e.ID, &e.GameID, &e.EventType,
			&e.Score, &e.Multiplier, &e.MultiplierShotsRemaining, &e.MissesRemaining,
			&e.FreebiesRemaining, &e.Mode,
			&e.PointsEarned, &e.PreviousMode, &e.NewMode, &e.UsedFreebie, &e.IsTipIn,
			&e.OccurredAt, &e.SequenceNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

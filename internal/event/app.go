package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
)

// EventRepository defines what the app layer needs from the repository
type EventRepository interface {
	InsertEvents(ctx context.Context, events []models.Event) error
	ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Event, error)
}

// GameResolver resolves a game's owning session for the publish envelope.
type GameResolver interface {
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
}

// EventPublisher fans accepted events out to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID string, event models.Event) error
}

// App handles event log business logic
type App struct {
	repo      EventRepository
	games     GameResolver
	publisher EventPublisher
}

// NewApp creates a new event App. publisher may be nil when no downstream
// consumers are configured.
func NewApp(repo EventRepository, games GameResolver, publisher EventPublisher) *App {
	return &App{repo: repo, games: games, publisher: publisher}
}

// AppendBatch durably appends a batch of events for one game. The append is
// idempotent on (game_id, sequence_number), so producers may redeliver.
// Publishing to downstream consumers is fire and forget: its failure never
// fails the append.
func (a *App) AppendBatch(ctx context.Context, gameID uuid.UUID, events []models.Event) error {
	if gameID == uuid.Nil {
		return fmt.Errorf("%w: game_id is required", ErrInvalidBatch)
	}
	for _, e := range events {
		if e.GameID != gameID {
			return fmt.Errorf("%w: event %s does not belong to game %s", ErrInvalidBatch, e.ID, gameID)
		}
		if e.SequenceNumber < 0 {
			return fmt.Errorf("%w: event %s has negative sequence number", ErrInvalidBatch, e.ID)
		}
	}

	if err := a.repo.InsertEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}

	log.Debug().
		Str("game_id", gameID.String()).
		Int("count", len(events)).
		Msg("event batch appended")

	if a.publisher != nil && len(events) > 0 {
		a.publishAsync(gameID, events)
	}
	return nil
}

// ListEventsByGame returns a game's full event log in sequence order.
func (a *App) ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Event, error) {
	return a.repo.ListEventsByGame(ctx, gameID)
}

func (a *App) publishAsync(gameID uuid.UUID, events []models.Event) {
	go func() {
		ctx := context.Background()

		g, err := a.games.GetGame(ctx, gameID)
		if err != nil {
			log.Warn().Err(err).Str("game_id", gameID.String()).Msg("skipping event publish, game lookup failed")
			return
		}
		sessionID := g.SessionID.String()

		for _, e := range events {
			if err := a.publisher.Publish(ctx, sessionID, e); err != nil {
				log.Warn().
					Err(err).
					Str("event_id", e.ID.String()).
					Msg("failed to publish event")
			}
		}
	}()
}

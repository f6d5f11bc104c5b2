package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
)

// SessionStore defines what the app layer needs for session rows
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error
}

// GameStore defines what the app layer needs for game rows
type GameStore interface {
	ListGamesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Game, error)
	UpdateGame(ctx context.Context, g *models.Game) error
}

// EventStore defines what the app layer needs from the event log
type EventStore interface {
	ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Event, error)
}

// App orchestrates a reconciliation run: fetch everything, compute in memory,
// then write games before the session. No partial-write visibility is
// promised beyond that ordering; concurrent runs converge because the
// computation is a pure function of an immutable log.
type App struct {
	sessions SessionStore
	games    GameStore
	events   EventStore
	clock    clockwork.Clock
}

// NewApp creates a new reconcile App
func NewApp(sessions SessionStore, games GameStore, events EventStore, clock clockwork.Clock) *App {
	return &App{sessions: sessions, games: games, events: events, clock: clock}
}

// Reconcile rebuilds one session's aggregates from its event logs and
// persists them as a full replacement.
func (a *App) Reconcile(ctx context.Context, sessionID uuid.UUID) (*Outcome, error) {
	session, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	games, err := a.games.ListGamesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	eventsByGame := make(map[uuid.UUID][]models.Event, len(games))
	for _, g := range games {
		events, err := a.events.ListEventsByGame(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list events for game %s: %w", g.ID, err)
		}
		eventsByGame[g.ID] = events
	}

	// The clock is read exactly once; the expiry decision must not observe
	// two different nows within one run.
	now := a.clock.Now()
	outcome := Replay(*session, games, eventsByGame, now)

	for i := range outcome.Games {
		if err := a.games.UpdateGame(ctx, &outcome.Games[i]); err != nil {
			return nil, fmt.Errorf("failed to update game %s: %w", outcome.Games[i].ID, err)
		}
	}
	if err := a.sessions.UpdateSession(ctx, &outcome.Session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("games_processed", outcome.Summary.GamesProcessed).
		Int("total_points", outcome.Summary.TotalPoints).
		Int("high_score", outcome.Summary.HighScore).
		Bool("session_ended", outcome.Summary.SessionEnded).
		Msg("session reconciled")

	return &outcome, nil
}

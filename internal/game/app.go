package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
)

// GameRepository defines what the app layer needs from the repository
type GameRepository interface {
	CreateGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ListGamesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Game, error)
	UpdateGame(ctx context.Context, g *models.Game) error
	DeleteGame(ctx context.Context, id uuid.UUID) error
}

// App handles game business logic
type App struct {
	repo  GameRepository
	clock clockwork.Clock
}

// NewApp creates a new game App
func NewApp(repo GameRepository, clock clockwork.Clock) *App {
	return &App{repo: repo, clock: clock}
}

// CreateGame creates a fresh active game for a session.
func (a *App) CreateGame(ctx context.Context, sessionID uuid.UUID) (*models.Game, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("session_id is required")
	}

	now := a.clock.Now()
	g := &models.Game{
		ID:                uuid.New(),
		SessionID:         sessionID,
		CurrentMode:       models.ModeMultiplier,
		CurrentMultiplier: 1,
		MissesRemaining:   3,
		IsActive:          true,
		StartedAt:         now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := a.repo.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	log.Info().
		Str("game_id", g.ID.String()).
		Str("session_id", sessionID.String()).
		Msg("game created")

	return g, nil
}

// GetGame retrieves a game by ID.
func (a *App) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return a.repo.GetGame(ctx, id)
}

// ListGamesBySession returns a session's games ordered by start time.
func (a *App) ListGamesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Game, error) {
	return a.repo.ListGamesBySession(ctx, sessionID)
}

// UpdateGame persists a full game replacement.
func (a *App) UpdateGame(ctx context.Context, g *models.Game) error {
	return a.repo.UpdateGame(ctx, g)
}

// DeleteGame deletes a game by ID.
func (a *App) DeleteGame(ctx context.Context, id uuid.UUID) error {
	return a.repo.DeleteGame(ctx, id)
}

package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/sessionclock"
)

// SessionRepository defines what the app layer needs from the repository
type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// App handles session business logic
type App struct {
	repo  SessionRepository
	clock clockwork.Clock
}

// NewApp creates a new session App
func NewApp(repo SessionRepository, clock clockwork.Clock) *App {
	return &App{repo: repo, clock: clock}
}

// CreateSession starts a new timed session with the given play budget.
func (a *App) CreateSession(ctx context.Context, durationSeconds int) (*models.Session, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("duration_seconds must be positive")
	}

	now := a.clock.Now()
	s := &models.Session{
		ID:              uuid.New(),
		DurationSeconds: durationSeconds,
		StartedAt:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Int("duration_seconds", durationSeconds).
		Msg("session created")

	return s, nil
}

// GetSession fetches a session and lazily applies timer expiry: a session
// left idle past its deadline while the client was offline gets its endedAt
// back-filled here, with the reproducible deadline formula rather than now.
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.EndedAt == nil && !s.IsPaused && sessionclock.Expired(s, a.clock.Now()) {
		endedAt := sessionclock.BackfillEndedAt(s, nil)
		s.EndedAt = &endedAt
		if err := a.repo.UpdateSession(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to back-fill session end: %w", err)
		}
		log.Info().
			Str("session_id", s.ID.String()).
			Time("ended_at", endedAt).
			Msg("session discovered expired on read")
	}

	return s, nil
}

// PauseSession records the pause instant.
func (a *App) PauseSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	sessionclock.Pause(s, a.clock.Now())
	if err := a.repo.UpdateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to pause session: %w", err)
	}
	return s, nil
}

// ResumeSession folds the completed pause into the paused-time total.
func (a *App) ResumeSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	sessionclock.Resume(s, a.clock.Now())
	if err := a.repo.UpdateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}
	return s, nil
}

// UpdateSession persists a full session replacement.
func (a *App) UpdateSession(ctx context.Context, s *models.Session) error {
	return a.repo.UpdateSession(ctx, s)
}

// DeleteSession deletes a session by ID.
func (a *App) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return a.repo.DeleteSession(ctx, id)
}

package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/kmajors/hotstreak/internal/event"
	"github.com/kmajors/hotstreak/internal/eventlog"
	"github.com/kmajors/hotstreak/internal/game"
	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/play"
	"github.com/kmajors/hotstreak/internal/reconcile"
	"github.com/kmajors/hotstreak/internal/session"
	"github.com/kmajors/hotstreak/internal/voice"
)

type Services struct {
	Sessions  *session.Service
	Games     *game.Service
	Events    *event.Service
	Reconcile *reconcile.Service
	Play      *play.Service
}

// batchSender bridges the in-memory event queue to the durable append API.
// A flushed batch may span a game boundary (game_end followed by the next
// game_start), so it is split per game before appending.
type batchSender struct {
	app *event.App
}

func (s *batchSender) SendBatch(ctx context.Context, events []models.Event) error {
	var (
		gameID uuid.UUID
		start  int
	)
	for i, e := range events {
		if i == 0 {
			gameID = e.GameID
			continue
		}
		if e.GameID != gameID {
			if err := s.app.AppendBatch(ctx, gameID, events[start:i]); err != nil {
				return err
			}
			gameID = e.GameID
			start = i
		}
	}
	if len(events) > 0 {
		return s.app.AppendBatch(ctx, gameID, events[start:])
	}
	return nil
}

func setupServices(pool *pgxpool.Pool, publisher event.EventPublisher, classifier play.IntentClassifier) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	// Sessions
	sessionRepo := session.NewRepository(pool)
	sessionApp := session.NewApp(sessionRepo, clock)
	sessionService := session.NewService(sessionApp, clock)

	// Games
	gameRepo := game.NewRepository(pool)
	gameApp := game.NewApp(gameRepo, clock)
	gameService := game.NewService(gameApp)

	// Events
	eventRepo := event.NewRepository(pool)
	eventApp := event.NewApp(eventRepo, gameApp, publisher)
	eventService := event.NewService(eventApp)

	// Reconcile
	reconcileApp := reconcile.NewApp(sessionApp, gameApp, eventApp, clock)
	reconcileService := reconcile.NewService(reconcileApp)

	// Live play
	queue := eventlog.NewQueue(&batchSender{app: eventApp})
	coordinator := play.NewCoordinator(sessionApp, gameApp, eventApp, queue, clock)
	playService := play.NewService(coordinator, classifier)

	return &Services{
		Sessions:  sessionService,
		Games:     gameService,
		Events:    eventService,
		Reconcile: reconcileService,
		Play:      playService,
	}
}

func setupClassifier(config *Config) play.IntentClassifier {
	url := getEnv("VOICE_CLASSIFIER_URL", config.Voice.ClassifierURL)
	if url == "" {
		return nil
	}
	return voice.NewClient(url)
}

// Package play runs live sessions. Every user or voice action becomes a
// self-contained scoring.Command dispatched through a single synchronous
// handler per session, so scoring state is never mutated from two paths.
// Event recording and cached-state sync are asynchronous fire-and-forget on
// top of the synchronous reducer; their failure never blocks gameplay.
package play

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/eventlog"
	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/scoring"
	"github.com/kmajors/hotstreak/internal/sessionclock"
	"github.com/kmajors/hotstreak/internal/statesync"
)

// ErrNoLiveSession is returned when a command targets a session with no live
// runtime and none could be rebuilt from storage.
var ErrNoLiveSession = errors.New("no live session")

// SessionApp defines what the coordinator needs from the session layer
type SessionApp interface {
	CreateSession(ctx context.Context, durationSeconds int) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error
}

// GameApp defines what the coordinator needs from the game layer
type GameApp interface {
	CreateGame(ctx context.Context, sessionID uuid.UUID) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	UpdateGame(ctx context.Context, g *models.Game) error
}

// EventReader is used to rebuild a live runtime after a restart.
type EventReader interface {
	ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Event, error)
}

// View is what a dispatched command returns to the caller.
type View struct {
	Session          *models.Session `json:"session"`
	Game             *models.Game    `json:"game,omitempty"`
	State            scoring.State   `json:"state"`
	Applied          bool            `json:"applied"`
	RemainingSeconds int             `json:"remaining_seconds"`
	InGraceWindow    bool            `json:"in_grace_window"`
}

// Coordinator owns the live runtimes, one per session.
type Coordinator struct {
	sessions  SessionApp
	games     GameApp
	events    EventReader
	queue     *eventlog.Queue
	clock     clockwork.Clock
	syncDelay time.Duration

	mu   sync.Mutex
	live map[uuid.UUID]*runtime
}

// runtime is the in-memory state of one live session. Its mutex serializes
// commands: each runs to completion before the next is accepted.
type runtime struct {
	mu             sync.Mutex
	engine         *scoring.Engine
	recorder       *eventlog.Recorder
	syncer         *statesync.Debouncer
	session        *models.Session
	game           *models.Game
	highMultiplier int
	makes          int
	misses         int
}

// NewCoordinator creates a coordinator delivering events through queue.
func NewCoordinator(sessions SessionApp, games GameApp, events EventReader, queue *eventlog.Queue, clock clockwork.Clock) *Coordinator {
	return &Coordinator{
		sessions:  sessions,
		games:     games,
		events:    events,
		queue:     queue,
		clock:     clock,
		syncDelay: statesync.DefaultDelay,
		live:      make(map[uuid.UUID]*runtime),
	}
}

// StartSession creates a session, its first game, and a live runtime.
func (c *Coordinator) StartSession(ctx context.Context, durationSeconds int) (*View, error) {
	sess, err := c.sessions.CreateSession(ctx, durationSeconds)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		engine:   scoring.NewEngine(),
		recorder: eventlog.NewRecorder(c.queue, c.clock),
		syncer:   statesync.NewDebouncer(c.clock, c.syncDelay),
		session:  sess,
	}
	res := rt.engine.Apply(scoring.Command{Type: scoring.CommandStartSession})
	if err := c.openGame(ctx, rt, res); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.live[sess.ID] = rt
	c.mu.Unlock()

	return c.view(rt, res), nil
}

// Apply dispatches one command against a live session. Disallowed commands
// are silent no-ops, matching the permissive UI/voice input model.
func (c *Coordinator) Apply(ctx context.Context, sessionID uuid.UUID, cmd scoring.Command) (*View, error) {
	rt, err := c.runtime(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	// Refresh the session row so pause state and lazy expiry are current.
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rt.session = sess

	now := c.clock.Now()
	c.checkExpiry(ctx, rt, now)

	switch cmd.Type {
	case scoring.CommandStartSession:
		// Sessions are started through StartSession, never mid-session.
		return c.noop(rt), nil
	case scoring.CommandFinalMake, scoring.CommandFinalMiss:
		return c.applyFinalShot(ctx, rt, cmd, now)
	}

	if rt.session.EndedAt != nil && rt.engine.State().Phase == scoring.PhaseSessionEnded {
		return c.noop(rt), nil
	}

	res := rt.engine.Apply(cmd)
	if !res.Applied {
		return c.view(rt, res), nil
	}

	switch cmd.Type {
	case scoring.CommandStartGame:
		if err := c.openGame(ctx, rt, res); err != nil {
			return nil, err
		}
	case scoring.CommandEndGame:
		c.record(ctx, rt, res)
		c.finalizeGame(ctx, rt, models.GameEndReasonManualEnd, now)
	case scoring.CommandEndSession:
		c.endSession(ctx, rt, now)
	default:
		c.record(ctx, rt, res)
		if res.State.Phase == scoring.PhaseGameOver && rt.game != nil && rt.game.IsActive {
			c.finalizeGame(ctx, rt, models.GameEndReasonOutOfMisses, now)
		}
	}

	c.scheduleSync(ctx, rt, res.State)
	return c.view(rt, res), nil
}

// applyFinalShot handles the one-shot post-expiry correction. The grace
// window may close between the caller deciding to shoot and the command
// arriving; that is a quiet no-op, not an error.
func (c *Coordinator) applyFinalShot(ctx context.Context, rt *runtime, cmd scoring.Command, now time.Time) (*View, error) {
	if !sessionclock.InGraceWindow(rt.session, now) {
		return c.noop(rt), nil
	}

	res := rt.engine.Apply(cmd)
	if !res.Applied {
		return c.view(rt, res), nil
	}

	c.record(ctx, rt, res)
	// The session is read-only after this, so do not leave the event queued.
	c.queue.Flush(ctx)

	if rt.game != nil {
		rt.game.FinalScore = res.State.Score
		rt.game.CurrentScore = res.State.Score
		rt.game.TotalMakes = rt.makes
		rt.game.TotalMisses = rt.misses
		if err := c.games.UpdateGame(ctx, rt.game); err != nil {
			log.Warn().Err(err).Str("game_id", rt.game.ID.String()).Msg("failed to sync final shot")
		}
	}
	if res.State.HighScore > rt.session.HighScore {
		rt.session.HighScore = res.State.HighScore
		if err := c.sessions.UpdateSession(ctx, rt.session); err != nil {
			log.Warn().Err(err).Str("session_id", rt.session.ID.String()).Msg("failed to sync session high score")
		}
	}

	return c.view(rt, res), nil
}

// openGame persists a fresh game row for an engine-side game start and points
// the recorder's sequence numbering at it.
func (c *Coordinator) openGame(ctx context.Context, rt *runtime, res scoring.Result) error {
	g, err := c.games.CreateGame(ctx, rt.session.ID)
	if err != nil {
		return err
	}
	rt.game = g
	rt.highMultiplier = res.State.Multiplier
	rt.makes = 0
	rt.misses = 0
	rt.recorder.BeginGame(g.ID)

	rt.session.CurrentGameID = &g.ID
	if err := c.sessions.UpdateSession(ctx, rt.session); err != nil {
		return err
	}

	c.record(ctx, rt, res)
	return nil
}

// record appends the command's event draft to the log and keeps the live
// per-game counters current.
func (c *Coordinator) record(ctx context.Context, rt *runtime, res scoring.Result) {
	if res.Event == nil {
		return
	}
	event := rt.recorder.Record(ctx, *res.Event)

	if event.Multiplier > rt.highMultiplier {
		rt.highMultiplier = event.Multiplier
	}
	switch event.EventType {
	case models.EventTypeMake:
		rt.makes++
	case models.EventTypeMiss:
		rt.misses++
	}
}

// checkExpiry applies lazy timer expiry: a session found past its deadline
// gets its active game closed and endedAt back-filled with the reproducible
// deadline, never wall-clock now.
func (c *Coordinator) checkExpiry(ctx context.Context, rt *runtime, now time.Time) {
	if rt.session.EndedAt != nil || rt.session.IsPaused || !sessionclock.Expired(rt.session, now) {
		return
	}

	if rt.engine.State().Phase == scoring.PhaseGameActive {
		rt.engine.Apply(scoring.Command{Type: scoring.CommandEndSession})
		c.finalizeGame(ctx, rt, models.GameEndReasonSessionEnded, now)
	} else {
		rt.engine.Apply(scoring.Command{Type: scoring.CommandEndSession})
	}

	endedAt := sessionclock.BackfillEndedAt(rt.session, nil)
	rt.session.EndedAt = &endedAt
	if err := c.sessions.UpdateSession(ctx, rt.session); err != nil {
		log.Warn().Err(err).Str("session_id", rt.session.ID.String()).Msg("failed to persist session expiry")
	}
	c.queue.Flush(ctx)

	log.Info().
		Str("session_id", rt.session.ID.String()).
		Time("ended_at", endedAt).
		Msg("session expired during play")
}

// endSession handles the explicit end command: the engine has already folded
// any active game, so close the row and stop the clock at now.
func (c *Coordinator) endSession(ctx context.Context, rt *runtime, now time.Time) {
	if rt.game != nil && rt.game.IsActive {
		c.finalizeGame(ctx, rt, models.GameEndReasonSessionEnded, now)
	}

	endedAt := now
	rt.session.EndedAt = &endedAt
	if err := c.sessions.UpdateSession(ctx, rt.session); err != nil {
		log.Warn().Err(err).Str("session_id", rt.session.ID.String()).Msg("failed to persist session end")
	}
	c.queue.Flush(ctx)
}

// finalizeGame freezes the game row's terminal fields and folds its score
// into the session aggregates.
func (c *Coordinator) finalizeGame(ctx context.Context, rt *runtime, reason models.GameEndReason, now time.Time) {
	if rt.game == nil || !rt.game.IsActive {
		return
	}
	st := rt.engine.State()
	g := rt.game

	g.IsActive = false
	g.EndReason = &reason
	endedAt := now
	g.EndedAt = &endedAt
	g.DurationSeconds = int(endedAt.Sub(g.StartedAt) / time.Second)
	g.FinalScore = st.Score
	g.HighMultiplier = rt.highMultiplier
	g.TotalMakes = rt.makes
	g.TotalMisses = rt.misses
	c.mirrorState(g, st)

	if err := c.games.UpdateGame(ctx, g); err != nil {
		log.Warn().Err(err).Str("game_id", g.ID.String()).Msg("failed to finalize game")
	}

	rt.session.TotalGames++
	rt.session.TotalPoints += st.Score
	if st.HighScore > rt.session.HighScore {
		rt.session.HighScore = st.HighScore
	}
	if err := c.sessions.UpdateSession(ctx, rt.session); err != nil {
		log.Warn().Err(err).Str("session_id", rt.session.ID.String()).Msg("failed to sync session aggregates")
	}
	c.queue.Flush(ctx)
}

// scheduleSync queues a debounced cached-state write. Purely an optimization;
// the event log is what reconciliation trusts. The callback fires on the
// debounce timer goroutine after the request has returned, so it works on
// private row copies snapshot here under the runtime lock, against a context
// detached from the request's cancellation.
func (c *Coordinator) scheduleSync(ctx context.Context, rt *runtime, st scoring.State) {
	if rt.game == nil {
		return
	}
	syncCtx := context.WithoutCancel(ctx)

	game := *rt.game
	c.mirrorState(&game, st)
	game.TotalMakes = rt.makes
	game.TotalMisses = rt.misses
	game.HighMultiplier = rt.highMultiplier

	var sess *models.Session
	if st.HighScore > rt.session.HighScore {
		copied := *rt.session
		copied.HighScore = st.HighScore
		sess = &copied
	}

	rt.syncer.Trigger(func() {
		if err := c.games.UpdateGame(syncCtx, &game); err != nil {
			log.Warn().Err(err).Str("game_id", game.ID.String()).Msg("state sync failed")
		}
		if sess != nil {
			if err := c.sessions.UpdateSession(syncCtx, sess); err != nil {
				log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("state sync failed")
			}
		}
	})
}

func (c *Coordinator) mirrorState(g *models.Game, st scoring.State) {
	g.CurrentScore = st.Score
	g.CurrentMode = st.Mode
	g.CurrentMultiplier = st.Multiplier
	g.MultiplierShotsRemaining = st.MultiplierShotsRemaining
	g.MissesRemaining = st.MissesRemaining
	g.FreebiesRemaining = st.FreebiesRemaining
}

// runtime returns the live runtime for a session, rebuilding it from storage
// after a restart; scoring state is reconstructable from persisted rows.
func (c *Coordinator) runtime(ctx context.Context, sessionID uuid.UUID) (*runtime, error) {
	c.mu.Lock()
	rt, ok := c.live[sessionID]
	c.mu.Unlock()
	if ok {
		return rt, nil
	}
	return c.restore(ctx, sessionID)
}

func (c *Coordinator) restore(ctx context.Context, sessionID uuid.UUID) (*runtime, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CurrentGameID == nil {
		return nil, ErrNoLiveSession
	}
	g, err := c.games.GetGame(ctx, *sess.CurrentGameID)
	if err != nil {
		return nil, ErrNoLiveSession
	}
	events, err := c.events.ListEventsByGame(ctx, g.ID)
	if err != nil {
		return nil, ErrNoLiveSession
	}

	phase := scoring.PhaseGameOver
	if g.IsActive && sess.EndedAt == nil {
		phase = scoring.PhaseGameActive
	} else if sess.EndedAt != nil {
		phase = scoring.PhaseSessionEnded
	}

	// A correction shot shows up as a trailing event after the game closed.
	finalShotUsed := false
	if g.EndedAt != nil && len(events) > 0 {
		last := events[len(events)-1]
		finalShotUsed = last.OccurredAt.After(*g.EndedAt) &&
			(last.EventType == models.EventTypeMake || last.EventType == models.EventTypeMiss)
	}

	// The switch window is not a persisted column; it is open exactly when the
	// last logged action was a tier-crossing make in point mode. Declining the
	// window via continue_point_mode is not logged, so a restart may reopen a
	// window the player already waved off; re-offering it is harmless.
	canEnterMultiplier := false
	if g.IsActive && sess.EndedAt == nil && g.CurrentMode == models.ModePoint && len(events) > 0 {
		last := events[len(events)-1]
		if last.EventType == models.EventTypeMake && last.PointsEarned != nil {
			canEnterMultiplier = last.Score/10 > (last.Score-*last.PointsEarned)/10
		}
	}

	rt := &runtime{
		engine:   scoring.NewEngine(),
		recorder: eventlog.NewRecorder(c.queue, c.clock),
		syncer:   statesync.NewDebouncer(c.clock, c.syncDelay),
		session:  sess,
		game:     g,
	}
	rt.engine.Restore(scoring.State{
		Phase:                    phase,
		Mode:                     g.CurrentMode,
		Score:                    g.CurrentScore,
		Multiplier:               g.CurrentMultiplier,
		MultiplierShotsRemaining: g.MultiplierShotsRemaining,
		MissesRemaining:          g.MissesRemaining,
		FreebiesRemaining:        g.FreebiesRemaining,
		CanEnterMultiplierMode:   canEnterMultiplier,
		TenThreshold:             (g.CurrentScore / 10) * 10,
		HighScore:                sess.HighScore,
		FinalShotUsed:            finalShotUsed,
	})
	rt.recorder.BeginGame(g.ID)
	rt.recorder.SkipTo(len(events))
	rt.highMultiplier = g.HighMultiplier
	rt.makes = g.TotalMakes
	rt.misses = g.TotalMisses

	c.mu.Lock()
	c.live[sessionID] = rt
	c.mu.Unlock()

	log.Info().
		Str("session_id", sessionID.String()).
		Str("game_id", g.ID.String()).
		Int("events", len(events)).
		Msg("live session rebuilt from storage")

	return rt, nil
}

func (c *Coordinator) noop(rt *runtime) *View {
	return c.view(rt, scoring.Result{State: rt.engine.State(), Applied: false})
}

func (c *Coordinator) view(rt *runtime, res scoring.Result) *View {
	now := c.clock.Now()
	return &View{
		Session:          rt.session,
		Game:             rt.game,
		State:            res.State,
		Applied:          res.Applied,
		RemainingSeconds: sessionclock.RemainingSeconds(rt.session, now),
		InGraceWindow:    sessionclock.InGraceWindow(rt.session, now),
	}
}

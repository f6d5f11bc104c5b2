package scoring

import (
	"github.com/kmajors/hotstreak/internal/models"
)

// Phase defines where the engine is in the session lifecycle.
type Phase string

const (
	PhaseNoSession    Phase = "no_session"
	PhaseNoGame       Phase = "no_game"
	PhaseGameActive   Phase = "game_active"
	PhaseGameOver     Phase = "game_over"
	PhaseSessionEnded Phase = "session_ended"
)

// State is the full scoring state of the current game plus the session high
// score. It is a plain value so snapshots copy cheaply into the undo ring.
type State struct {
	Phase                    Phase       `json:"phase"`
	Mode                     models.Mode `json:"mode"`
	Score                    int         `json:"score"`
	Multiplier               int         `json:"multiplier"`
	MultiplierShotsRemaining int         `json:"multiplier_shots_remaining"`
	MissesRemaining          int         `json:"misses_remaining"`
	FreebiesRemaining        int         `json:"freebies_remaining"`
	CanEnterMultiplierMode   bool        `json:"can_enter_multiplier_mode"`
	TenThreshold             int         `json:"ten_threshold"`
	HighScore                int         `json:"high_score"`
	FinalShotUsed            bool        `json:"final_shot_used"`
}

// EventDraft describes the log entry an applied command produced. The recorder
// turns drafts into persisted events by attaching ids, timestamps and sequence
// numbers.
type EventDraft struct {
	Type         models.EventType
	PointsEarned *int
	PreviousMode *models.Mode
	NewMode      *models.Mode
	UsedFreebie  *bool
	IsTipIn      *bool
	Snapshot     State
}

// Result is the outcome of applying one command. Disallowed commands return
// Applied=false with the state unchanged; they are never errors because input
// is UI and voice driven and must stay permissive.
type Result struct {
	State   State
	Applied bool
	Event   *EventDraft
}

// Engine is the synchronous reducer over one session's scoring state. It is
// single threaded: each command runs to completion before the next is
// accepted.
type Engine struct {
	state   State
	history history
}

// NewEngine creates an engine with no active session.
func NewEngine() *Engine {
	return &Engine{state: State{Phase: PhaseNoSession}}
}

// State returns the current scoring state.
func (e *Engine) State() State {
	return e.state
}

// Restore overwrites the engine state, used when rebuilding a live session
// from persisted game state.
func (e *Engine) Restore(s State) {
	e.state = s
	e.history.clear()
}

// Apply dispatches a single command against the current state.
func (e *Engine) Apply(cmd Command) Result {
	switch cmd.Type {
	case CommandStartSession:
		return e.startSession()
	case CommandStartGame:
		return e.startGame()
	case CommandMakeShot:
		return e.makeShot(cmd)
	case CommandMissShot:
		return e.missShot()
	case CommandEnterPointMode:
		return e.enterPointMode()
	case CommandEnterMultiplierMode:
		return e.enterMultiplierMode()
	case CommandContinuePointMode:
		return e.continuePointMode()
	case CommandUndo:
		return e.undo()
	case CommandFinalMake:
		return e.finalMake(cmd)
	case CommandFinalMiss:
		return e.finalMiss()
	case CommandEndGame:
		return e.endGame()
	case CommandEndSession:
		return e.endSession()
	default:
		return e.noop()
	}
}

func (e *Engine) noop() Result {
	return Result{State: e.state, Applied: false}
}

func (e *Engine) applied(draft *EventDraft) Result {
	if draft != nil {
		draft.Snapshot = e.state
	}
	return Result{State: e.state, Applied: true, Event: draft}
}

func (e *Engine) startSession() Result {
	e.state = State{Phase: PhaseNoGame}
	e.history.clear()
	// A new session immediately starts its first game.
	return e.startGame()
}

func (e *Engine) startGame() Result {
	if e.state.Phase != PhaseNoGame && e.state.Phase != PhaseGameOver {
		return e.noop()
	}
	e.state = State{
		Phase:                  PhaseGameActive,
		Mode:                   models.ModeMultiplier,
		Multiplier:             1,
		MissesRemaining:        3,
		CanEnterMultiplierMode: true,
		HighScore:              e.state.HighScore,
	}
	e.history.clear()
	return e.applied(&EventDraft{Type: models.EventTypeGameStart})
}

func (e *Engine) makeShot(cmd Command) Result {
	if e.state.Phase != PhaseGameActive {
		return e.noop()
	}
	e.history.push(e.state)

	tipIn := cmd.IsTipIn
	if e.state.Mode == models.ModeMultiplier {
		e.state.Multiplier++
		points := 0
		return e.applied(&EventDraft{
			Type:         models.EventTypeMake,
			PointsEarned: &points,
			IsTipIn:      &tipIn,
		})
	}

	points := e.applyPointModeMake()
	return e.applied(&EventDraft{
		Type:         models.EventTypeMake,
		PointsEarned: &points,
		IsTipIn:      &tipIn,
	})
}

// applyPointModeMake runs point-mode make arithmetic on the current state and
// returns the points earned. Shared by MakeShot and the final-shot correction.
func (e *Engine) applyPointModeMake() int {
	s := &e.state

	points := 1
	if s.MultiplierShotsRemaining > 0 {
		points = s.Multiplier
	}
	oldScore := s.Score
	s.Score += points

	if s.MultiplierShotsRemaining > 0 {
		s.MultiplierShotsRemaining--
		if s.MultiplierShotsRemaining == 0 {
			s.Multiplier = 1
		}
	}

	// One life per ten-multiple crossed. The general formula is kept even
	// though a single make cannot currently cross more than one tier.
	tiersCrossed := s.Score/10 - oldScore/10
	if tiersCrossed > 0 {
		s.MissesRemaining += tiersCrossed
		s.FreebiesRemaining = 3
		s.CanEnterMultiplierMode = true
		s.TenThreshold = (s.Score / 10) * 10
	} else {
		// A non-crossing make cancels any pending grace or switch window.
		s.FreebiesRemaining = 0
		s.CanEnterMultiplierMode = false
	}
	return points
}

func (e *Engine) missShot() Result {
	if e.state.Phase != PhaseGameActive {
		return e.noop()
	}
	e.history.push(e.state)

	used := e.applyMiss()
	return e.applied(&EventDraft{
		Type:        models.EventTypeMiss,
		UsedFreebie: &used,
	})
}

// applyMiss runs miss arithmetic for the current mode and reports whether a
// freebie absorbed the miss.
func (e *Engine) applyMiss() bool {
	s := &e.state

	if s.Mode == models.ModeMultiplier {
		s.MissesRemaining--
		if s.MissesRemaining <= 0 {
			e.gameOver()
		}
		return false
	}

	// Multiplier shots burn down on misses too, independent of freebies.
	if s.MultiplierShotsRemaining > 0 {
		s.MultiplierShotsRemaining--
		if s.MultiplierShotsRemaining == 0 {
			s.Multiplier = 1
		}
	}

	if s.FreebiesRemaining > 0 {
		s.FreebiesRemaining--
		// Shooting through the grace period forfeits the switch window.
		s.CanEnterMultiplierMode = false
		return true
	}

	s.MissesRemaining--
	if s.MissesRemaining <= 0 {
		e.gameOver()
	}
	return false
}

func (e *Engine) enterPointMode() Result {
	if e.state.Phase != PhaseGameActive || e.state.Mode != models.ModeMultiplier {
		return e.noop()
	}
	e.history.push(e.state)

	s := &e.state
	prev := s.Mode
	s.Mode = models.ModePoint
	if s.Multiplier > 1 {
		s.MultiplierShotsRemaining = 5
	}
	s.CanEnterMultiplierMode = false
	s.FreebiesRemaining = 3

	next := s.Mode
	return e.applied(&EventDraft{
		Type:         models.EventTypeModeChange,
		PreviousMode: &prev,
		NewMode:      &next,
	})
}

func (e *Engine) enterMultiplierMode() Result {
	if e.state.Phase != PhaseGameActive || e.state.Mode != models.ModePoint || !e.state.CanEnterMultiplierMode {
		return e.noop()
	}
	e.history.push(e.state)

	s := &e.state
	prev := s.Mode
	s.Mode = models.ModeMultiplier
	s.Multiplier = 1
	s.FreebiesRemaining = 0

	next := s.Mode
	return e.applied(&EventDraft{
		Type:         models.EventTypeModeChange,
		PreviousMode: &prev,
		NewMode:      &next,
	})
}

func (e *Engine) continuePointMode() Result {
	if e.state.Phase != PhaseGameActive || e.state.Mode != models.ModePoint || !e.state.CanEnterMultiplierMode {
		return e.noop()
	}
	e.history.push(e.state)
	e.state.CanEnterMultiplierMode = false
	// Explicit forfeiture of the switch window; nothing for the log.
	return e.applied(nil)
}

func (e *Engine) undo() Result {
	prev, ok := e.history.pop()
	if !ok {
		return e.noop()
	}
	e.state = prev
	return e.applied(nil)
}

// finalShotAllowed reports whether a one-shot correction may still land. The
// engine only checks phase and single use; the coordinator owns the clock
// window.
func (e *Engine) finalShotAllowed() bool {
	if e.state.FinalShotUsed {
		return false
	}
	return e.state.Phase == PhaseGameOver || e.state.Phase == PhaseSessionEnded
}

func (e *Engine) finalMake(cmd Command) Result {
	if !e.finalShotAllowed() {
		return e.noop()
	}
	tipIn := cmd.IsTipIn
	points := e.applyPointModeMake()
	e.state.FinalShotUsed = true
	if e.state.Score > e.state.HighScore {
		e.state.HighScore = e.state.Score
	}
	return e.applied(&EventDraft{
		Type:         models.EventTypeMake,
		PointsEarned: &points,
		IsTipIn:      &tipIn,
	})
}

func (e *Engine) finalMiss() Result {
	if !e.finalShotAllowed() {
		return e.noop()
	}
	s := &e.state
	if s.MultiplierShotsRemaining > 0 {
		s.MultiplierShotsRemaining--
		if s.MultiplierShotsRemaining == 0 {
			s.Multiplier = 1
		}
	}
	used := false
	if s.FreebiesRemaining > 0 {
		s.FreebiesRemaining--
		used = true
	} else if s.MissesRemaining > 0 {
		s.MissesRemaining--
	}
	s.FinalShotUsed = true
	return e.applied(&EventDraft{
		Type:        models.EventTypeMiss,
		UsedFreebie: &used,
	})
}

func (e *Engine) endGame() Result {
	if e.state.Phase != PhaseGameActive {
		return e.noop()
	}
	e.gameOver()
	return e.applied(&EventDraft{Type: models.EventTypeGameEnd})
}

func (e *Engine) endSession() Result {
	switch e.state.Phase {
	case PhaseNoGame, PhaseGameActive, PhaseGameOver:
	default:
		return e.noop()
	}
	if e.state.Phase == PhaseGameActive {
		e.gameOver()
	}
	e.state.Phase = PhaseSessionEnded
	return e.applied(nil)
}

// gameOver marks the current game finished and folds its score into the
// session high score. It does not emit the game_end event itself; running out
// of misses ends a game with only the final miss event in the log.
func (e *Engine) gameOver() {
	e.state.Phase = PhaseGameOver
	if e.state.Score > e.state.HighScore {
		e.state.HighScore = e.state.Score
	}
}

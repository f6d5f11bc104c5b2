package scoring

import (
	"testing"

	"github.com/kmajors/hotstreak/internal/models"
)

func newActiveEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	res := e.Apply(Command{Type: CommandStartSession})
	if !res.Applied {
		t.Fatal("start_session was not applied")
	}
	return e
}

func TestStartSessionStartsFirstGame(t *testing.T) {
	e := NewEngine()
	res := e.Apply(Command{Type: CommandStartSession})

	if !res.Applied {
		t.Fatal("start_session was not applied")
	}
	if res.Event == nil || res.Event.Type != models.EventTypeGameStart {
		t.Fatalf("event = %+v, want game_start", res.Event)
	}

	s := res.State
	if s.Phase != PhaseGameActive {
		t.Fatalf("phase = %s, want %s", s.Phase, PhaseGameActive)
	}
	if s.Mode != models.ModeMultiplier {
		t.Fatalf("mode = %s, want %s", s.Mode, models.ModeMultiplier)
	}
	if s.Multiplier != 1 {
		t.Fatalf("multiplier = %d, want 1", s.Multiplier)
	}
	if s.MissesRemaining != 3 {
		t.Fatalf("misses remaining = %d, want 3", s.MissesRemaining)
	}
	if !s.CanEnterMultiplierMode {
		t.Fatal("expected multiplier mode to be available at game start")
	}
}

func TestMakeShotMultiplierModeBuildsMultiplier(t *testing.T) {
	e := newActiveEngine(t)

	res := e.Apply(Command{Type: CommandMakeShot})
	if !res.Applied {
		t.Fatal("make_shot was not applied")
	}
	if res.State.Multiplier != 2 {
		t.Fatalf("multiplier = %d, want 2", res.State.Multiplier)
	}
	if res.State.Score != 0 {
		t.Fatalf("score = %d, want 0 (multiplier mode makes do not score)", res.State.Score)
	}
	if res.Event == nil || res.Event.PointsEarned == nil || *res.Event.PointsEarned != 0 {
		t.Fatalf("event points = %+v, want 0", res.Event)
	}

	res = e.Apply(Command{Type: CommandMissShot})
	if res.State.MissesRemaining != 2 {
		t.Fatalf("misses remaining = %d, want 2", res.State.MissesRemaining)
	}
}

func TestMakeShotPointModeNoTierCross(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:             PhaseGameActive,
		Mode:              models.ModePoint,
		Score:             8,
		Multiplier:        1,
		MissesRemaining:   3,
		FreebiesRemaining: 3,
	})

	res := e.Apply(Command{Type: CommandMakeShot})

	s := res.State
	if s.Score != 9 {
		t.Fatalf("score = %d, want 9", s.Score)
	}
	if s.FreebiesRemaining != 0 {
		t.Fatalf("freebies = %d, want 0 after a non-crossing make", s.FreebiesRemaining)
	}
	if s.CanEnterMultiplierMode {
		t.Fatal("switch window should close on a non-crossing make")
	}
	if s.MissesRemaining != 3 {
		t.Fatalf("misses remaining = %d, want 3", s.MissesRemaining)
	}
}

func TestMakeShotPointModeTierCross(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:           PhaseGameActive,
		Mode:            models.ModePoint,
		Score:           9,
		Multiplier:      1,
		MissesRemaining: 2,
	})

	res := e.Apply(Command{Type: CommandMakeShot})

	s := res.State
	if s.Score != 10 {
		t.Fatalf("score = %d, want 10", s.Score)
	}
	if s.MissesRemaining != 3 {
		t.Fatalf("misses remaining = %d, want 3 (one life earned)", s.MissesRemaining)
	}
	if s.FreebiesRemaining != 3 {
		t.Fatalf("freebies = %d, want 3", s.FreebiesRemaining)
	}
	if !s.CanEnterMultiplierMode {
		t.Fatal("crossing a ten-multiple should open the switch window")
	}
	if s.TenThreshold != 10 {
		t.Fatalf("ten threshold = %d, want 10", s.TenThreshold)
	}
}

func TestMakeShotPointModeBankedMultiplier(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:                    PhaseGameActive,
		Mode:                     models.ModePoint,
		Multiplier:               4,
		MultiplierShotsRemaining: 2,
		MissesRemaining:          3,
	})

	res := e.Apply(Command{Type: CommandMakeShot})
	if res.State.Score != 4 {
		t.Fatalf("score = %d, want 4 (banked multiplier applies)", res.State.Score)
	}
	if res.Event.PointsEarned == nil || *res.Event.PointsEarned != 4 {
		t.Fatalf("points earned = %v, want 4", res.Event.PointsEarned)
	}
	if res.State.MultiplierShotsRemaining != 1 {
		t.Fatalf("multiplier shots = %d, want 1", res.State.MultiplierShotsRemaining)
	}

	res = e.Apply(Command{Type: CommandMakeShot})
	if res.State.Score != 8 {
		t.Fatalf("score = %d, want 8", res.State.Score)
	}
	if res.State.MultiplierShotsRemaining != 0 {
		t.Fatalf("multiplier shots = %d, want 0", res.State.MultiplierShotsRemaining)
	}
	if res.State.Multiplier != 1 {
		t.Fatalf("multiplier = %d, want 1 after the bank runs out", res.State.Multiplier)
	}

	res = e.Apply(Command{Type: CommandMakeShot})
	if res.State.Score != 9 {
		t.Fatalf("score = %d, want 9 (single point once bank is spent)", res.State.Score)
	}
}

func TestMissShotPointModeConsumesFreebieFirst(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:                    PhaseGameActive,
		Mode:                     models.ModePoint,
		Multiplier:               3,
		MultiplierShotsRemaining: 2,
		MissesRemaining:          3,
		FreebiesRemaining:        2,
		CanEnterMultiplierMode:   true,
	})

	res := e.Apply(Command{Type: CommandMissShot})

	s := res.State
	if s.FreebiesRemaining != 1 {
		t.Fatalf("freebies = %d, want 1", s.FreebiesRemaining)
	}
	if s.MissesRemaining != 3 {
		t.Fatalf("misses remaining = %d, want 3 (freebie absorbed the miss)", s.MissesRemaining)
	}
	if s.CanEnterMultiplierMode {
		t.Fatal("shooting through the grace period must forfeit the switch window")
	}
	if s.MultiplierShotsRemaining != 1 {
		t.Fatalf("multiplier shots = %d, want 1 (bank burns down on misses too)", s.MultiplierShotsRemaining)
	}
	if res.Event.UsedFreebie == nil || !*res.Event.UsedFreebie {
		t.Fatalf("used freebie = %v, want true", res.Event.UsedFreebie)
	}
}

func TestMissShotPointModeWithoutFreebies(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:           PhaseGameActive,
		Mode:            models.ModePoint,
		Multiplier:      1,
		MissesRemaining: 2,
	})

	res := e.Apply(Command{Type: CommandMissShot})
	if res.State.MissesRemaining != 1 {
		t.Fatalf("misses remaining = %d, want 1", res.State.MissesRemaining)
	}
	if res.Event.UsedFreebie == nil || *res.Event.UsedFreebie {
		t.Fatalf("used freebie = %v, want false", res.Event.UsedFreebie)
	}
}

func TestOutOfMissesEndsGameWithoutGameEndEvent(t *testing.T) {
	e := newActiveEngine(t)

	var last Result
	for i := 0; i < 3; i++ {
		last = e.Apply(Command{Type: CommandMissShot})
	}

	if last.State.Phase != PhaseGameOver {
		t.Fatalf("phase = %s, want %s", last.State.Phase, PhaseGameOver)
	}
	if last.Event == nil || last.Event.Type != models.EventTypeMiss {
		t.Fatalf("final event = %+v, want a plain miss", last.Event)
	}
	if last.State.MissesRemaining != 0 {
		t.Fatalf("misses remaining = %d, want 0", last.State.MissesRemaining)
	}
}

func TestGameOverFoldsHighScore(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:           PhaseGameActive,
		Mode:            models.ModePoint,
		Score:           27,
		Multiplier:      1,
		MissesRemaining: 1,
		HighScore:       15,
	})

	res := e.Apply(Command{Type: CommandMissShot})
	if res.State.Phase != PhaseGameOver {
		t.Fatalf("phase = %s, want %s", res.State.Phase, PhaseGameOver)
	}
	if res.State.HighScore != 27 {
		t.Fatalf("high score = %d, want 27", res.State.HighScore)
	}
}

func TestEnterPointModeBanksMultiplier(t *testing.T) {
	e := newActiveEngine(t)
	e.Apply(Command{Type: CommandMakeShot})
	e.Apply(Command{Type: CommandMakeShot})

	res := e.Apply(Command{Type: CommandEnterPointMode})
	if !res.Applied {
		t.Fatal("enter_point_mode was not applied")
	}

	s := res.State
	if s.Mode != models.ModePoint {
		t.Fatalf("mode = %s, want %s", s.Mode, models.ModePoint)
	}
	if s.MultiplierShotsRemaining != 5 {
		t.Fatalf("multiplier shots = %d, want 5", s.MultiplierShotsRemaining)
	}
	if s.FreebiesRemaining != 3 {
		t.Fatalf("freebies = %d, want 3", s.FreebiesRemaining)
	}
	if s.CanEnterMultiplierMode {
		t.Fatal("switch window should be closed on entering point mode")
	}
	if res.Event == nil || res.Event.Type != models.EventTypeModeChange {
		t.Fatalf("event = %+v, want mode_change", res.Event)
	}
	if *res.Event.PreviousMode != models.ModeMultiplier || *res.Event.NewMode != models.ModePoint {
		t.Fatalf("mode change %s -> %s, want multiplier -> point", *res.Event.PreviousMode, *res.Event.NewMode)
	}
}

func TestEnterPointModeWithBaseMultiplierBanksNothing(t *testing.T) {
	e := newActiveEngine(t)

	res := e.Apply(Command{Type: CommandEnterPointMode})
	if res.State.MultiplierShotsRemaining != 0 {
		t.Fatalf("multiplier shots = %d, want 0 when multiplier is 1", res.State.MultiplierShotsRemaining)
	}
}

func TestEnterMultiplierModeRequiresOpenWindow(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:           PhaseGameActive,
		Mode:            models.ModePoint,
		Score:           12,
		Multiplier:      1,
		MissesRemaining: 3,
	})

	res := e.Apply(Command{Type: CommandEnterMultiplierMode})
	if res.Applied {
		t.Fatal("enter_multiplier_mode should be a no-op without an open window")
	}

	e.Restore(State{
		Phase:                  PhaseGameActive,
		Mode:                   models.ModePoint,
		Score:                  10,
		Multiplier:             1,
		MissesRemaining:        4,
		FreebiesRemaining:      3,
		CanEnterMultiplierMode: true,
	})

	res = e.Apply(Command{Type: CommandEnterMultiplierMode})
	if !res.Applied {
		t.Fatal("enter_multiplier_mode was not applied")
	}
	if res.State.Mode != models.ModeMultiplier {
		t.Fatalf("mode = %s, want %s", res.State.Mode, models.ModeMultiplier)
	}
	if res.State.Multiplier != 1 {
		t.Fatalf("multiplier = %d, want 1", res.State.Multiplier)
	}
	if res.State.FreebiesRemaining != 0 {
		t.Fatalf("freebies = %d, want 0", res.State.FreebiesRemaining)
	}
	if res.State.Score != 10 {
		t.Fatalf("score = %d, want 10 (score carries across the switch)", res.State.Score)
	}
}

func TestContinuePointModeClosesWindowSilently(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:                  PhaseGameActive,
		Mode:                   models.ModePoint,
		Score:                  10,
		Multiplier:             1,
		MissesRemaining:        4,
		FreebiesRemaining:      3,
		CanEnterMultiplierMode: true,
	})

	res := e.Apply(Command{Type: CommandContinuePointMode})
	if !res.Applied {
		t.Fatal("continue_point_mode was not applied")
	}
	if res.State.CanEnterMultiplierMode {
		t.Fatal("switch window should be closed")
	}
	if res.Event != nil {
		t.Fatalf("event = %+v, want none", res.Event)
	}
	if res.State.FreebiesRemaining != 3 {
		t.Fatalf("freebies = %d, want 3 (continuing keeps the grace period)", res.State.FreebiesRemaining)
	}
}

func TestUndoRestoresExactPriorState(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:                  PhaseGameActive,
		Mode:                   models.ModePoint,
		Score:                  9,
		Multiplier:             1,
		MissesRemaining:        2,
		FreebiesRemaining:      1,
		CanEnterMultiplierMode: false,
		TenThreshold:           0,
		HighScore:              9,
	})
	before := e.State()

	e.Apply(Command{Type: CommandMakeShot})
	res := e.Apply(Command{Type: CommandUndo})

	if !res.Applied {
		t.Fatal("undo was not applied")
	}
	if res.State != before {
		t.Fatalf("state after undo = %+v, want %+v", res.State, before)
	}
	if res.Event != nil {
		t.Fatalf("undo event = %+v, want none", res.Event)
	}
}

func TestUndoOnEmptyHistoryIsNoop(t *testing.T) {
	e := newActiveEngine(t)
	before := e.State()

	res := e.Apply(Command{Type: CommandUndo})
	if res.Applied {
		t.Fatal("undo with no history should be a no-op")
	}
	if res.State != before {
		t.Fatalf("state changed on no-op undo: %+v", res.State)
	}
}

func TestUndoDepthIsBounded(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:           PhaseGameActive,
		Mode:            models.ModePoint,
		Multiplier:      1,
		MissesRemaining: 3,
	})

	for i := 0; i < historyCapacity+5; i++ {
		e.Apply(Command{Type: CommandMakeShot})
	}

	undone := 0
	for e.Apply(Command{Type: CommandUndo}).Applied {
		undone++
	}
	if undone != historyCapacity {
		t.Fatalf("undo depth = %d, want %d", undone, historyCapacity)
	}
}

func TestFinalMakeIsSingleUse(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:      PhaseGameOver,
		Mode:       models.ModePoint,
		Score:      19,
		Multiplier: 1,
		HighScore:  19,
	})

	res := e.Apply(Command{Type: CommandFinalMake})
	if !res.Applied {
		t.Fatal("final_make was not applied")
	}
	if res.State.Score != 20 {
		t.Fatalf("score = %d, want 20", res.State.Score)
	}
	if res.State.HighScore != 20 {
		t.Fatalf("high score = %d, want 20", res.State.HighScore)
	}
	if !res.State.FinalShotUsed {
		t.Fatal("final shot should be marked used")
	}
	if res.Event == nil || res.Event.Type != models.EventTypeMake {
		t.Fatalf("event = %+v, want make", res.Event)
	}

	res = e.Apply(Command{Type: CommandFinalMake})
	if res.Applied {
		t.Fatal("second final_make should be a no-op")
	}
}

func TestFinalMakeNotUndoable(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:      PhaseGameOver,
		Mode:       models.ModePoint,
		Score:      19,
		Multiplier: 1,
	})

	e.Apply(Command{Type: CommandFinalMake})
	res := e.Apply(Command{Type: CommandUndo})
	if res.Applied {
		t.Fatal("a final shot must not be undoable")
	}
}

func TestFinalShotAllowedAfterSessionEnd(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:      PhaseSessionEnded,
		Mode:       models.ModePoint,
		Score:      9,
		Multiplier: 1,
		HighScore:  9,
	})

	res := e.Apply(Command{Type: CommandFinalMake})
	if !res.Applied {
		t.Fatal("final_make should apply after the session clock ended the game")
	}
	if res.State.Score != 10 {
		t.Fatalf("score = %d, want 10", res.State.Score)
	}
	if res.State.HighScore != 10 {
		t.Fatalf("high score = %d, want 10", res.State.HighScore)
	}
}

func TestFinalMissIsSingleUse(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:             PhaseGameOver,
		Mode:              models.ModePoint,
		Score:             12,
		Multiplier:        1,
		FreebiesRemaining: 1,
	})

	res := e.Apply(Command{Type: CommandFinalMiss})
	if !res.Applied {
		t.Fatal("final_miss was not applied")
	}
	if res.Event.UsedFreebie == nil || !*res.Event.UsedFreebie {
		t.Fatalf("used freebie = %v, want true", res.Event.UsedFreebie)
	}
	if !res.State.FinalShotUsed {
		t.Fatal("final shot should be marked used")
	}

	res = e.Apply(Command{Type: CommandFinalMiss})
	if res.Applied {
		t.Fatal("second final_miss should be a no-op")
	}
}

func TestEndGameEmitsGameEnd(t *testing.T) {
	e := newActiveEngine(t)

	res := e.Apply(Command{Type: CommandEndGame})
	if !res.Applied {
		t.Fatal("end_game was not applied")
	}
	if res.State.Phase != PhaseGameOver {
		t.Fatalf("phase = %s, want %s", res.State.Phase, PhaseGameOver)
	}
	if res.Event == nil || res.Event.Type != models.EventTypeGameEnd {
		t.Fatalf("event = %+v, want game_end", res.Event)
	}
}

func TestEndSessionFoldsActiveGame(t *testing.T) {
	e := newActiveEngine(t)
	e.Restore(State{
		Phase:           PhaseGameActive,
		Mode:            models.ModePoint,
		Score:           14,
		Multiplier:      1,
		MissesRemaining: 3,
		HighScore:       8,
	})

	res := e.Apply(Command{Type: CommandEndSession})
	if !res.Applied {
		t.Fatal("end_session was not applied")
	}
	if res.State.Phase != PhaseSessionEnded {
		t.Fatalf("phase = %s, want %s", res.State.Phase, PhaseSessionEnded)
	}
	if res.State.HighScore != 14 {
		t.Fatalf("high score = %d, want 14", res.State.HighScore)
	}
}

func TestDisallowedCommandsAreStrictNoops(t *testing.T) {
	tests := []struct {
		name  string
		state State
		cmd   CommandType
	}{
		{"make before session", State{Phase: PhaseNoSession}, CommandMakeShot},
		{"miss before session", State{Phase: PhaseNoSession}, CommandMissShot},
		{"make after game over", State{Phase: PhaseGameOver, Mode: models.ModePoint}, CommandMakeShot},
		{"miss after session end", State{Phase: PhaseSessionEnded}, CommandMissShot},
		{"enter point mode from point mode", State{Phase: PhaseGameActive, Mode: models.ModePoint}, CommandEnterPointMode},
		{"enter multiplier mode from multiplier mode", State{Phase: PhaseGameActive, Mode: models.ModeMultiplier, CanEnterMultiplierMode: true}, CommandEnterMultiplierMode},
		{"continue point mode without window", State{Phase: PhaseGameActive, Mode: models.ModePoint}, CommandContinuePointMode},
		{"final make while active", State{Phase: PhaseGameActive, Mode: models.ModePoint}, CommandFinalMake},
		{"final miss already used", State{Phase: PhaseGameOver, FinalShotUsed: true}, CommandFinalMiss},
		{"end game before game", State{Phase: PhaseNoGame}, CommandEndGame},
		{"end session twice", State{Phase: PhaseSessionEnded}, CommandEndSession},
		{"unknown command", State{Phase: PhaseGameActive, Mode: models.ModePoint}, CommandType("jump_shot")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			e.Restore(tt.state)

			res := e.Apply(Command{Type: tt.cmd})
			if res.Applied {
				t.Fatalf("%s should not be applied in %+v", tt.cmd, tt.state)
			}
			if res.State != tt.state {
				t.Fatalf("state mutated by rejected command: %+v", res.State)
			}
			if res.Event != nil {
				t.Fatalf("rejected command produced event %+v", res.Event)
			}
		})
	}
}

func TestStateBoundsHoldThroughPlay(t *testing.T) {
	e := newActiveEngine(t)
	script := []CommandType{
		CommandMakeShot, CommandMakeShot, CommandEnterPointMode,
		CommandMakeShot, CommandMissShot, CommandMakeShot, CommandMakeShot,
		CommandMissShot, CommandMissShot, CommandMakeShot, CommandUndo,
		CommandMakeShot, CommandMissShot, CommandMissShot, CommandMissShot,
	}

	for i, cmd := range script {
		res := e.Apply(Command{Type: cmd})
		s := res.State
		if s.Score < 0 {
			t.Fatalf("step %d (%s): score = %d", i, cmd, s.Score)
		}
		if s.Multiplier < 1 {
			t.Fatalf("step %d (%s): multiplier = %d", i, cmd, s.Multiplier)
		}
		if s.MultiplierShotsRemaining < 0 {
			t.Fatalf("step %d (%s): multiplier shots = %d", i, cmd, s.MultiplierShotsRemaining)
		}
		if s.MissesRemaining < 0 {
			t.Fatalf("step %d (%s): misses remaining = %d", i, cmd, s.MissesRemaining)
		}
		if s.FreebiesRemaining < 0 || s.FreebiesRemaining > 3 {
			t.Fatalf("step %d (%s): freebies = %d", i, cmd, s.FreebiesRemaining)
		}
		if s.HighScore < s.Score && s.Phase == PhaseGameOver {
			t.Fatalf("step %d (%s): high score %d below score %d after game over", i, cmd, s.HighScore, s.Score)
		}
	}
}

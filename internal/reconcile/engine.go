// Package reconcile rebuilds denormalized game and session aggregates by
// replaying the append-only event log. The log is the source of truth; the
// cached aggregates are disposable and may have drifted through lost or
// out-of-order network writes. Replay is a pure function of the log content:
// identical logs produce identical aggregates regardless of identifiers, and
// reapplying it to an already consistent state changes nothing.
package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/sessionclock"
)

// Summary reports what a reconciliation run computed.
type Summary struct {
	GamesProcessed int  `json:"gamesProcessed"`
	TotalGames     int  `json:"totalGames"`
	TotalPoints    int  `json:"totalPoints"`
	HighScore      int  `json:"highScore"`
	SessionEnded   bool `json:"sessionEnded"`
}

// Outcome is the full result of replaying one session's logs. Games holds the
// recomputed non-skipped games in replay order.
type Outcome struct {
	Session models.Session
	Games   []models.Game
	Summary Summary
}

// Replay recomputes all aggregates for a session from its event logs. games
// must be ordered by start time and each game's events by sequence number.
// now is sampled exactly once per reconciliation call by the caller; the
// expiry decision must not re-read the clock mid-computation.
func Replay(session models.Session, games []models.Game, eventsByGame map[uuid.UUID][]models.Event, now time.Time) Outcome {
	out := Outcome{Session: session}

	var lastEventAt *time.Time
	var lastGameID, lastActiveGameID *uuid.UUID

	for i := range games {
		events := eventsByGame[games[i].ID]
		if len(events) == 0 {
			// Abandoned before the first event ever landed; not a game.
			continue
		}

		g := replayGame(games[i], events)
		out.Games = append(out.Games, g)

		out.Summary.GamesProcessed++
		out.Summary.TotalGames++
		out.Summary.TotalPoints += g.FinalScore
		if g.FinalScore > out.Summary.HighScore {
			out.Summary.HighScore = g.FinalScore
		}

		id := g.ID
		lastGameID = &id
		if g.IsActive {
			lastActiveGameID = &id
		}

		at := events[len(events)-1].OccurredAt
		if lastEventAt == nil || at.After(*lastEventAt) {
			lastEventAt = &at
		}
	}

	out.Session.TotalGames = out.Summary.TotalGames
	out.Session.TotalPoints = out.Summary.TotalPoints
	out.Session.HighScore = out.Summary.HighScore

	// Point at the active game if one exists, else keep the last game
	// visible rather than nulling the reference.
	if lastActiveGameID != nil {
		out.Session.CurrentGameID = lastActiveGameID
	} else if lastGameID != nil {
		out.Session.CurrentGameID = lastGameID
	}

	if out.Session.EndedAt == nil && sessionclock.Expired(&out.Session, now) {
		endedAt := sessionclock.BackfillEndedAt(&out.Session, lastEventAt)
		out.Session.EndedAt = &endedAt
	}
	out.Summary.SessionEnded = out.Session.EndedAt != nil

	return out
}

// replayGame recomputes one game's aggregates from its ordered event log.
func replayGame(game models.Game, events []models.Event) models.Game {
	g := game
	last := events[len(events)-1]

	g.FinalScore = last.Score
	g.HighMultiplier = 0
	g.TotalMakes = 0
	g.TotalMisses = 0

	var gameEndAt *time.Time
	for i := range events {
		e := &events[i]
		if e.Multiplier > g.HighMultiplier {
			g.HighMultiplier = e.Multiplier
		}
		switch e.EventType {
		case models.EventTypeMake:
			g.TotalMakes++
		case models.EventTypeMiss:
			g.TotalMisses++
		case models.EventTypeGameEnd:
			at := e.OccurredAt
			gameEndAt = &at
		}
	}

	outOfMisses := last.EventType == models.EventTypeMiss &&
		last.MissesRemaining <= 0 &&
		!lastMissUsedFreebie(events)

	ended := gameEndAt != nil || game.EndReason != nil || outOfMisses

	if ended {
		endedAt := last.OccurredAt
		if gameEndAt != nil {
			endedAt = *gameEndAt
		}
		g.EndedAt = &endedAt
		g.DurationSeconds = int(endedAt.Sub(g.StartedAt) / time.Second)

		if g.EndReason == nil {
			reason := models.GameEndReasonSessionEnded
			if outOfMisses {
				reason = models.GameEndReasonOutOfMisses
			}
			g.EndReason = &reason
		}
	}
	g.IsActive = !ended

	// Live fields mirror the last snapshot whether or not the game ended.
	g.CurrentScore = last.Score
	g.CurrentMode = last.Mode
	g.CurrentMultiplier = last.Multiplier
	g.MultiplierShotsRemaining = last.MultiplierShotsRemaining
	g.MissesRemaining = last.MissesRemaining
	g.FreebiesRemaining = last.FreebiesRemaining

	return g
}

// lastMissUsedFreebie decides whether the final event's miss was absorbed by
// a freebie. The event's stored flag wins when present; the state-delta
// heuristic against the preceding snapshot is the fallback, and a mismatch
// between the two is logged rather than silently resolved.
func lastMissUsedFreebie(events []models.Event) bool {
	last := events[len(events)-1]

	heuristic := false
	if len(events) >= 2 {
		prev := events[len(events)-2]
		heuristic = prev.FreebiesRemaining > last.FreebiesRemaining &&
			prev.MissesRemaining == last.MissesRemaining
	}

	if last.UsedFreebie == nil {
		return heuristic
	}
	if *last.UsedFreebie != heuristic {
		log.Warn().
			Str("game_id", last.GameID.String()).
			Int("sequence_number", last.SequenceNumber).
			Bool("stored", *last.UsedFreebie).
			Bool("heuristic", heuristic).
			Msg("used_freebie flag disagrees with state delta, trusting stored flag")
	}
	return *last.UsedFreebie
}

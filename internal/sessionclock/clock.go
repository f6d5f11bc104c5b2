// Package sessionclock holds the pure time arithmetic for sessions: elapsed
// and remaining play time, pause bookkeeping, lazy expiry detection and the
// post-expiry final-shot grace window. There is no background timer; expiry is
// discovered on read, so a session can be found expired on first access after
// the client was offline.
package sessionclock

import (
	"time"

	"github.com/kmajors/hotstreak/internal/models"
)

// GraceWindow is how long after timer expiry a single corrective final shot
// is still permitted.
const GraceWindow = 60 * time.Second

// Elapsed returns play time consumed so far, excluding paused time. While
// paused, the pause instant substitutes for now so elapsed time stops moving.
func Elapsed(s *models.Session, now time.Time) time.Duration {
	ref := now
	if s.IsPaused && s.PausedAt != nil {
		ref = *s.PausedAt
	}
	return ref.Sub(s.StartedAt) - time.Duration(s.TotalPausedMs)*time.Millisecond
}

// RemainingSeconds returns whole seconds of play time left, floored, never
// negative.
func RemainingSeconds(s *models.Session, now time.Time) int {
	budget := time.Duration(s.DurationSeconds) * time.Second
	left := budget - Elapsed(s, now)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// Expired reports whether the session's play time budget is used up.
func Expired(s *models.Session, now time.Time) bool {
	return Elapsed(s, now) >= time.Duration(s.DurationSeconds)*time.Second
}

// ExpiryDeadline is the reproducible instant the timer ran out:
// startedAt + duration + total paused time. Never derived from wall-clock now,
// so reconciliation can back-fill the same value on every run.
func ExpiryDeadline(s *models.Session) time.Time {
	return s.StartedAt.
		Add(time.Duration(s.DurationSeconds) * time.Second).
		Add(time.Duration(s.TotalPausedMs) * time.Millisecond)
}

// BackfillEndedAt computes the endedAt value to persist when a session is
// discovered expired. For a paused session the pause instant (or the last
// event timestamp) stands in, since the deadline formula assumes the clock
// kept running.
func BackfillEndedAt(s *models.Session, lastEventAt *time.Time) time.Time {
	if s.IsPaused {
		if s.PausedAt != nil {
			return *s.PausedAt
		}
		if lastEventAt != nil {
			return *lastEventAt
		}
	}
	return ExpiryDeadline(s)
}

// InGraceWindow reports whether now falls inside the one-shot final-shot
// window that opens at timer expiry.
func InGraceWindow(s *models.Session, now time.Time) bool {
	if s.IsPaused || !Expired(s, now) {
		return false
	}
	return now.Before(ExpiryDeadline(s).Add(GraceWindow))
}

// Pause records the pause instant. Pausing an already paused session changes
// nothing.
func Pause(s *models.Session, now time.Time) {
	if s.IsPaused {
		return
	}
	s.IsPaused = true
	s.PausedAt = &now
}

// Resume folds the completed pause into TotalPausedMs and clears the pause
// marker. Resuming a running session changes nothing.
func Resume(s *models.Session, now time.Time) {
	if !s.IsPaused {
		return
	}
	if s.PausedAt != nil {
		s.TotalPausedMs += now.Sub(*s.PausedAt).Milliseconds()
	}
	s.IsPaused = false
	s.PausedAt = nil
}

package eventlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/scoring"
)

// Recorder turns engine event drafts into persisted events. It owns sequence
// number assignment: strictly increasing from 0, gapless, per game. Sequence
// numbers, not timestamps, order the log; occurredAt is advisory because
// batching and network delay reorder arrival.
type Recorder struct {
	queue   *Queue
	clock   clockwork.Clock
	gameID  uuid.UUID
	nextSeq int
}

// NewRecorder creates a recorder delivering through queue.
func NewRecorder(queue *Queue, clock clockwork.Clock) *Recorder {
	return &Recorder{queue: queue, clock: clock}
}

// BeginGame resets sequence numbering for a new game's log.
func (r *Recorder) BeginGame(gameID uuid.UUID) {
	r.gameID = gameID
	r.nextSeq = 0
}

// Record materializes a draft into an event and enqueues it. Returns the
// recorded event so callers can mirror its snapshot.
func (r *Recorder) Record(ctx context.Context, draft scoring.EventDraft) models.Event {
	event := models.Event{
		ID:        uuid.New(),
		GameID:    r.gameID,
		EventType: draft.Type,

		Score:                    draft.Snapshot.Score,
		Multiplier:               draft.Snapshot.Multiplier,
		MultiplierShotsRemaining: draft.Snapshot.MultiplierShotsRemaining,
		MissesRemaining:          draft.Snapshot.MissesRemaining,
		FreebiesRemaining:        draft.Snapshot.FreebiesRemaining,
		Mode:                     draft.Snapshot.Mode,

		PointsEarned: draft.PointsEarned,
		PreviousMode: draft.PreviousMode,
		NewMode:      draft.NewMode,
		UsedFreebie:  draft.UsedFreebie,
		IsTipIn:      draft.IsTipIn,

		OccurredAt:     r.clock.Now(),
		SequenceNumber: r.nextSeq,
	}
	r.nextSeq++
	r.queue.Enqueue(ctx, event)
	return event
}

// SkipTo fast-forwards sequence numbering when resuming an existing log.
func (r *Recorder) SkipTo(next int) {
	r.nextSeq = next
}

// NextSequence returns the sequence number the next recorded event will get.
func (r *Recorder) NextSequence() int {
	return r.nextSeq
}

package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kmajors/hotstreak/internal/models"
	"github.com/kmajors/hotstreak/internal/scoring"
)

type stubSender struct {
	batches [][]models.Event
	failN   int
}

func (s *stubSender) SendBatch(ctx context.Context, events []models.Event) error {
	if s.failN > 0 {
		s.failN--
		return errors.New("send failed")
	}
	batch := make([]models.Event, len(events))
	copy(batch, events)
	s.batches = append(s.batches, batch)
	return nil
}

func makeEvent(seq int, eventType models.EventType) models.Event {
	return models.Event{
		ID:             uuid.New(),
		GameID:         uuid.New(),
		EventType:      eventType,
		SequenceNumber: seq,
	}
}

func TestQueueFlushesAtThreshold(t *testing.T) {
	ctx := context.Background()
	sender := &stubSender{}
	q := NewQueue(sender)

	for i := 0; i < FlushThreshold-1; i++ {
		q.Enqueue(ctx, makeEvent(i, models.EventTypeMake))
	}
	if len(sender.batches) != 0 {
		t.Fatalf("sent %d batches before threshold, want 0", len(sender.batches))
	}
	if q.PendingCount() != FlushThreshold-1 {
		t.Fatalf("pending = %d, want %d", q.PendingCount(), FlushThreshold-1)
	}

	q.Enqueue(ctx, makeEvent(FlushThreshold-1, models.EventTypeMiss))
	if len(sender.batches) != 1 {
		t.Fatalf("sent %d batches at threshold, want 1", len(sender.batches))
	}
	if len(sender.batches[0]) != FlushThreshold {
		t.Fatalf("batch size = %d, want %d", len(sender.batches[0]), FlushThreshold)
	}
	if q.PendingCount() != 0 {
		t.Fatalf("pending = %d after flush, want 0", q.PendingCount())
	}
}

func TestQueueFlushesLifecycleEventsImmediately(t *testing.T) {
	ctx := context.Background()
	for _, eventType := range []models.EventType{
		models.EventTypeGameStart,
		models.EventTypeGameEnd,
		models.EventTypeModeChange,
	} {
		sender := &stubSender{}
		q := NewQueue(sender)

		q.Enqueue(ctx, makeEvent(0, eventType))
		if len(sender.batches) != 1 {
			t.Fatalf("%s: sent %d batches, want immediate flush", eventType, len(sender.batches))
		}
	}
}

func TestQueueRequeuesFailedBatchAtHead(t *testing.T) {
	ctx := context.Background()
	sender := &stubSender{failN: 1}
	q := NewQueue(sender)

	q.Enqueue(ctx, makeEvent(0, models.EventTypeMake))
	q.Enqueue(ctx, makeEvent(1, models.EventTypeGameEnd))

	// The immediate flush failed; both events stay pending in order.
	if len(sender.batches) != 0 {
		t.Fatalf("sent %d batches after failure, want 0", len(sender.batches))
	}
	if q.PendingCount() != 2 {
		t.Fatalf("pending = %d after failed flush, want 2", q.PendingCount())
	}

	q.Enqueue(ctx, makeEvent(2, models.EventTypeMiss))
	q.Flush(ctx)

	if len(sender.batches) != 1 {
		t.Fatalf("sent %d batches after retry, want 1", len(sender.batches))
	}
	got := sender.batches[0]
	if len(got) != 3 {
		t.Fatalf("retry batch size = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.SequenceNumber != i {
			t.Fatalf("retry batch out of order: position %d has seq %d", i, e.SequenceNumber)
		}
	}
}

func TestQueueFlushOnEmptyIsNoop(t *testing.T) {
	sender := &stubSender{}
	q := NewQueue(sender)

	q.Flush(context.Background())
	if len(sender.batches) != 0 {
		t.Fatalf("sent %d batches from empty queue, want 0", len(sender.batches))
	}
}

func TestRecorderAssignsGaplessSequences(t *testing.T) {
	ctx := context.Background()
	sender := &stubSender{}
	q := NewQueue(sender)
	clock := clockwork.NewFakeClock()
	r := NewRecorder(q, clock)

	gameID := uuid.New()
	r.BeginGame(gameID)

	points := 1
	for i := 0; i < 3; i++ {
		e := r.Record(ctx, scoring.EventDraft{
			Type:         models.EventTypeMake,
			PointsEarned: &points,
			Snapshot:     scoring.State{Score: i + 1, Multiplier: 1, Mode: models.ModePoint},
		})
		if e.SequenceNumber != i {
			t.Fatalf("sequence = %d, want %d", e.SequenceNumber, i)
		}
		if e.GameID != gameID {
			t.Fatalf("game id = %s, want %s", e.GameID, gameID)
		}
		if e.Score != i+1 {
			t.Fatalf("snapshot score = %d, want %d", e.Score, i+1)
		}
		if !e.OccurredAt.Equal(clock.Now()) {
			t.Fatalf("occurredAt = %s, want fake clock now", e.OccurredAt)
		}
	}
	if r.NextSequence() != 3 {
		t.Fatalf("next sequence = %d, want 3", r.NextSequence())
	}
}

func TestRecorderResetsSequenceOnNewGame(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(&stubSender{})
	r := NewRecorder(q, clockwork.NewFakeClock())

	r.BeginGame(uuid.New())
	r.Record(ctx, scoring.EventDraft{Type: models.EventTypeMake})
	r.Record(ctx, scoring.EventDraft{Type: models.EventTypeMiss})

	r.BeginGame(uuid.New())
	e := r.Record(ctx, scoring.EventDraft{Type: models.EventTypeMake})
	if e.SequenceNumber != 0 {
		t.Fatalf("sequence = %d after new game, want 0", e.SequenceNumber)
	}
}

func TestRecorderSkipToResumesNumbering(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(&stubSender{})
	r := NewRecorder(q, clockwork.NewFakeClock())

	r.BeginGame(uuid.New())
	r.SkipTo(7)

	e := r.Record(ctx, scoring.EventDraft{Type: models.EventTypeMiss})
	if e.SequenceNumber != 7 {
		t.Fatalf("sequence = %d, want 7", e.SequenceNumber)
	}
}

// Package eventlog implements the producer side of the append-only event log:
// sequence number assignment and an at-least-once outbound batch queue.
//
// Delivery is at-least-once by construction: a failed batch goes back to the
// head of the pending queue in order and is retried on the next flush trigger.
// Consumers stay correct because events are keyed by (game_id, sequence
// number), so duplicate delivery is absorbed by an idempotent append.
package eventlog

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kmajors/hotstreak/internal/models"
)

// FlushThreshold is how many queued events force a batch send.
const FlushThreshold = 5

// Sender delivers a batch of events to durable storage.
type Sender interface {
	SendBatch(ctx context.Context, events []models.Event) error
}

// immediateFlush lists event types that must not wait for a full batch.
var immediateFlush = map[models.EventType]bool{
	models.EventTypeGameStart:  true,
	models.EventTypeGameEnd:    true,
	models.EventTypeModeChange: true,
}

// Queue buffers pending events and flushes them in order. Send failures are
// never fatal: the batch is requeued at the head and gameplay continues.
type Queue struct {
	sender Sender

	mu      sync.Mutex
	pending []models.Event
}

// NewQueue creates a queue delivering through sender.
func NewQueue(sender Sender) *Queue {
	return &Queue{sender: sender}
}

// Enqueue appends an event and flushes when the batch threshold is reached or
// the event type requires immediate delivery.
func (q *Queue) Enqueue(ctx context.Context, event models.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, event)
	shouldFlush := len(q.pending) >= FlushThreshold || immediateFlush[event.EventType]
	q.mu.Unlock()

	if shouldFlush {
		q.Flush(ctx)
	}
}

// Flush attempts to deliver everything pending. On failure the batch is put
// back at the head, preserving order for the next attempt.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	if err := q.sender.SendBatch(ctx, batch); err != nil {
		q.mu.Lock()
		q.pending = append(batch, q.pending...)
		q.mu.Unlock()
		log.Warn().
			Err(err).
			Int("batch_size", len(batch)).
			Msg("event batch send failed, requeued for retry")
		return
	}

	log.Debug().
		Int("batch_size", len(batch)).
		Msg("event batch delivered")
}

// PendingCount returns how many events await delivery.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Mode defines the scoring mode a game is in.
type Mode string

const (
	ModeMultiplier Mode = "multiplier"
	ModePoint      Mode = "point"
)

// EventType defines the type of a scoring event.
type EventType string

const (
	EventTypeMake       EventType = "make"
	EventTypeMiss       EventType = "miss"
	EventTypeModeChange EventType = "mode_change"
	EventTypeGameStart  EventType = "game_start"
	EventTypeGameEnd    EventType = "game_end"
)

// Event is one immutable entry in a game's append-only event log. Every event
// carries a full scoring-state snapshot taken immediately after applying the
// action. SequenceNumber is the authoritative ordering key; OccurredAt is
// advisory only and must never be trusted for ordering.
type Event struct {
	ID        uuid.UUID `json:"id"`
	GameID    uuid.UUID `json:"game_id"`
	EventType EventType `json:"event_type"`

	Score                    int  `json:"score"`
	Multiplier               int  `json:"multiplier"`
	MultiplierShotsRemaining int  `json:"multiplier_shots_remaining"`
	MissesRemaining          int  `json:"misses_remaining"`
	FreebiesRemaining        int  `json:"freebies_remaining"`
	Mode                     Mode `json:"mode"`

	PointsEarned *int  `json:"points_earned,omitempty"`
	PreviousMode *Mode `json:"previous_mode,omitempty"`
	NewMode      *Mode `json:"new_mode,omitempty"`
	UsedFreebie  *bool `json:"used_freebie,omitempty"`
	IsTipIn      *bool `json:"is_tip_in,omitempty"`

	OccurredAt     time.Time `json:"occurred_at"`
	SequenceNumber int       `json:"sequence_number"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// GameEndReason defines why a game ended.
type GameEndReason string

const (
	GameEndReasonOutOfMisses  GameEndReason = "out_of_misses"
	GameEndReasonSessionEnded GameEndReason = "session_ended"
	GameEndReasonManualEnd    GameEndReason = "manual_end"
)

// Game represents one game within a session. The Current* fields mirror the
// live scoring state; the terminal fields are fixed once IsActive flips false.
type Game struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`

	CurrentScore             int  `json:"current_score"`
	CurrentMode              Mode `json:"current_mode"`
	CurrentMultiplier        int  `json:"current_multiplier"`
	MultiplierShotsRemaining int  `json:"multiplier_shots_remaining"`
	MissesRemaining          int  `json:"misses_remaining"`
	FreebiesRemaining        int  `json:"freebies_remaining"`

	IsActive        bool           `json:"is_active"`
	FinalScore      int            `json:"final_score"`
	HighMultiplier  int            `json:"high_multiplier"`
	TotalMakes      int            `json:"total_makes"`
	TotalMisses     int            `json:"total_misses"`
	DurationSeconds int            `json:"duration_seconds"`
	EndReason       *GameEndReason `json:"end_reason,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

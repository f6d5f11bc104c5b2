package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one timed shooting session composed of sequential games.
type Session struct {
	ID              uuid.UUID  `json:"id"`
	DurationSeconds int        `json:"duration_seconds"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	IsPaused        bool       `json:"is_paused"`
	PausedAt        *time.Time `json:"paused_at,omitempty"`
	TotalPausedMs   int64      `json:"total_paused_ms"`
	CurrentGameID   *uuid.UUID `json:"current_game_id,omitempty"`
	HighScore       int        `json:"high_score"`
	TotalGames      int        `json:"total_games"`
	TotalPoints     int        `json:"total_points"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

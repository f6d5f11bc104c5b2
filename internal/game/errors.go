package game

import "errors"

// ErrGameNotFound is returned when a game id is unknown
var ErrGameNotFound = errors.New("game not found")

package event

import "errors"

// ErrInvalidBatch marks append requests rejected before touching storage.
var ErrInvalidBatch = errors.New("invalid event batch")

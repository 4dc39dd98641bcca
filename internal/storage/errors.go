package storage

import "errors"

// ErrNotFound is returned when a strategy ID has no saved record
var ErrNotFound = errors.New("strategy not found")

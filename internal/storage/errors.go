package storage

import "errors"

// ErrNotFound is returned when a requested match or stage record does not exist.
var ErrNotFound = errors.New("not found")

package eventlog

import "errors"

var (
	// ErrRoster is returned when a log does not describe exactly ten distinct slots.
	ErrRoster = errors.New("invalid roster")
	// ErrNoMatchID is returned when no match header line carries an id.
	ErrNoMatchID = errors.New("missing match id")
)

package timeline

import "errors"

// ErrOpen is returned when the match length is read before ingestion completed.
var ErrOpen = errors.New("timeline still open")

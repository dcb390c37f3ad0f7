package pipeline

import "errors"

var (
	// ErrStageFailed is returned when a barrier stage still fails after its
	// compensating retries. The failed stage is persisted for resume.
	ErrStageFailed = errors.New("stage failed")

	// ErrNothingToResume is returned by Resume when the league has no
	// unfinished run.
	ErrNothingToResume = errors.New("nothing to resume")
)

package recalculation

import "errors"

// Recalculation domain errors
var (
	ErrInvalidDateRange = errors.New("invalid recalculation date range")
	ErrRunInProgress    = errors.New("a recalculation is already running")
	ErrProgressNotFound = errors.New("recalculation progress not found")
	ErrRunnerStopped    = errors.New("recalculation runner is stopped")
	// ErrCheckpointScopeMismatch rejects reusing a resumable process id for a
	// different range, filter or force mode
	ErrCheckpointScopeMismatch = errors.New("recalculation checkpoint covers a different scope")
)

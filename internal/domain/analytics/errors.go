package analytics

import "errors"

// Analytics domain errors
var (
	ErrInvalidDate        = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidHeadcount   = errors.New("headcount must be a non-negative integer")
	ErrWeekdayUnavailable = errors.New("weekday profile unavailable")
)

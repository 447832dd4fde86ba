package attendance

import "errors"

// Attendance domain errors
var (
	ErrRecordStoreUnavailable = errors.New("attendance record store unavailable")
	ErrMalformedRecord        = errors.New("malformed attendance record")
)

package attendance

import (
	"context"
	"time"
)

// Repository reads the external attendance record store. Implementations must
// be safe for concurrent use; the reporting path calls them in parallel.
type Repository interface {
	// ListByDate returns every record for the calendar day, joined with the
	// employee directory for department and designation
	ListByDate(ctx context.Context, date time.Time, filter Filter) ([]Record, error)

	// ListCheckInsBetween returns non-null check-ins in [from, to)
	ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]CheckIn, error)

	// CountActiveByDepartment returns the active headcount per department
	CountActiveByDepartment(ctx context.Context) (map[string]int, error)
}

package metrics

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
)

// Repository persists unified metrics. Dates are calendar days; from and to
// are inclusive.
type Repository interface {
	// EnsureSchema creates the metrics table when it does not exist yet
	EnsureSchema(ctx context.Context) error

	// Upsert inserts the row or overwrites every field of the existing
	// (date, employee_code) row and bumps updated_at
	Upsert(ctx context.Context, metric UnifiedMetric) error

	// DeleteRange removes rows in [from, to] matching the filter
	DeleteRange(ctx context.Context, from, to time.Time, filter attendance.Filter) (int64, error)

	// ListRange returns rows in [from, to] matching the filter ordered by date, employee_code
	ListRange(ctx context.Context, from, to time.Time, filter attendance.Filter) ([]UnifiedMetric, error)
}

package analytics

import (
	"context"
	"time"
)

// Service is the formula library. Every method is read-only over the
// attendance record store and safe to call concurrently with a recalculation.
type Service interface {
	CalculateTEEMetrics(ctx context.Context) (TEEMetrics, error)
	GetTEEForDate(ctx context.Context, date time.Time) (TEEResult, error)
	CalculateAttendanceRate(present, totalExpected int) AttendanceRateResult
	CalculateAbsentees(ctx context.Context, date time.Time, actualUniqueCheckIns int) (AbsenteeResult, error)
	CalculateLateArrivals(ctx context.Context, date time.Time) (LateArrivalResult, error)
	CalculateMissedPunchouts(ctx context.Context, date time.Time) (MissedPunchoutResult, error)
	CalculateWorkingHours(ctx context.Context, date time.Time) (WorkingHoursResult, error)
	CalculateDepartmentAnalytics(ctx context.Context, date time.Time) (DepartmentAnalyticsResult, error)

	// GetComprehensiveAnalytics defaults to today in the operating timezone when date is nil
	GetComprehensiveAnalytics(ctx context.Context, date *time.Time) (ComprehensiveReport, error)

	// Location is the operating timezone every date boundary resolves in
	Location() *time.Location
}

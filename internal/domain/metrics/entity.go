package metrics

import (
	"time"
)

type Status string

const (
	StatusPresent    Status = "present"
	StatusAbsent     Status = "absent"
	StatusIncomplete Status = "incomplete"
)

// DayMetrics is the Day Metrics Calculator's output for one record.
type DayMetrics struct {
	Status            Status
	TotalHours        float64
	RegularHours      float64
	OvertimeHours     float64
	IsLate            bool
	IsEarlyDeparture  bool
	BreakDuration     float64
	ProductivityScore float64
}

// UnifiedMetric is the denormalized per-employee-per-day row keyed by
// (Date, EmployeeCode).
type UnifiedMetric struct {
	Date         time.Time
	EmployeeCode string
	Department   string
	CheckIn      *time.Time
	CheckOut     *time.Time
	DayMetrics
	CreatedAt time.Time
	UpdatedAt time.Time
}

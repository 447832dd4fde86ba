package analytics

import (
	"time"
)

// WeekdayStat is the average (AA) and maximum (MA) unique check-in count for
// one weekday over the lookback window.
type WeekdayStat struct {
	Weekday     string `json:"weekday"`
	Index       int    `json:"index"` // 1 = Monday .. 7 = Sunday
	Average     int    `json:"average"`
	Maximum     int    `json:"maximum"`
	SampledDays int    `json:"sampled_days"`
}

// TEEMetrics is the day-of-week profile behind Total Expected Employees.
type TEEMetrics struct {
	WindowStart string        `json:"window_start"`
	WindowEnd   string        `json:"window_end"`
	Weekdays    []WeekdayStat `json:"weekdays"` // Monday first
	Formula     string        `json:"formula"`
}

// ByIndex returns the stat for weekday index 1..7.
func (m TEEMetrics) ByIndex(index int) (WeekdayStat, bool) {
	for _, w := range m.Weekdays {
		if w.Index == index {
			return w, true
		}
	}
	return WeekdayStat{}, false
}

type TEEResult struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	TEE      int    `json:"tee"`
	Fallback bool   `json:"fallback"`
	Formula  string `json:"formula"`
}

type AttendanceRateResult struct {
	Present       int    `json:"present"`
	TotalExpected int    `json:"total_expected"`
	Rate          int    `json:"rate"`
	Formula       string `json:"formula"`
}

type AbsenteeResult struct {
	Date                 string `json:"date"`
	TEE                  int    `json:"tee"`
	ActualUniqueCheckIns int    `json:"actual_unique_check_ins"`
	Absentees            int    `json:"absentees"`
	Formula              string `json:"formula"`
}

type LateArrivalResult struct {
	Date                   string `json:"date"`
	LateCount              int    `json:"late_count"`
	GraceViolations        int    `json:"grace_violations"`
	LateCutoff             string `json:"late_cutoff"`
	GraceViolationCutoff   string `json:"grace_violation_cutoff"`
	Formula                string `json:"formula"`
	GraceViolationsFormula string `json:"grace_violations_formula"`
}

type MissedPunchoutResult struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Formula string `json:"formula"`
}

type WorkingHoursResult struct {
	Date            string  `json:"date"`
	TotalHours      float64 `json:"total_hours"`
	CompletedShifts int     `json:"completed_shifts"`
	OvertimeHours   float64 `json:"overtime_hours"`
	AverageHours    float64 `json:"average_hours"`
	Formula         string  `json:"formula"`
}

type DepartmentStat struct {
	Department     string `json:"department"`
	TotalEmployees int    `json:"total_employees"`
	Present        int    `json:"present"`
	Rate           int    `json:"rate"`
}

type DepartmentAnalyticsResult struct {
	Date        string           `json:"date"`
	Departments []DepartmentStat `json:"departments"`
	Formula     string           `json:"formula"`
}

// ComprehensiveReport bundles every formula for one date.
type ComprehensiveReport struct {
	Date            string                    `json:"date"`
	Timezone        string                    `json:"timezone"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	TEE             TEEResult                 `json:"tee"`
	TEEProfile      TEEMetrics                `json:"tee_profile"`
	UniqueCheckIns  int                       `json:"unique_check_ins"`
	AttendanceRate  AttendanceRateResult      `json:"attendance_rate"`
	Absentees       AbsenteeResult            `json:"absentees"`
	LateArrivals    LateArrivalResult         `json:"late_arrivals"`
	MissedPunchouts MissedPunchoutResult      `json:"missed_punchouts"`
	WorkingHours    WorkingHoursResult        `json:"working_hours"`
	Departments     DepartmentAnalyticsResult `json:"departments"`
}

package recalculation

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
)

type Status string

const (
	StatusInitializing Status = "initializing"
	StatusInProgress   Status = "in_progress"
	StatusResuming     Status = "resuming"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusPaused       Status = "paused"
)

// Resumable reports whether a checkpoint in this status may be picked up by a new run.
func (s Status) Resumable() bool {
	return s == StatusInProgress || s == StatusPaused || s == StatusResuming
}

// Stats are the running counters of a run, carried across resumes.
type Stats struct {
	AttendanceRecordsProcessed int `json:"attendance_records_processed"`
	MetricsRecalculated        int `json:"metrics_recalculated"`
	EmployeesProcessed         int `json:"employees_processed"`
	DaysProcessed              int `json:"days_processed"`
}

type ErrorScope string

const (
	ScopeRecord ErrorScope = "record"
	ScopeDay    ErrorScope = "day"
	ScopeMonth  ErrorScope = "month"
	ScopeRun    ErrorScope = "run"
)

// RunError is a non-fatal failure recorded against a record, day or month.
type RunError struct {
	Scope        ErrorScope `json:"scope"`
	Month        string     `json:"month,omitempty"`
	Date         string     `json:"date,omitempty"`
	EmployeeCode string     `json:"employee_code,omitempty"`
	Message      string     `json:"message"`
	At           time.Time  `json:"at"`
}

// Progress is the durable checkpoint of one recalculation run. It is never
// deleted automatically.
type Progress struct {
	ProcessID          string            `json:"process_id"`
	Status             Status            `json:"status"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	Filter             attendance.Filter `json:"filter"`
	ForceRecalculation bool              `json:"force_recalculation"`

	Months          []string `json:"months"`
	CompletedMonths []string `json:"completed_months"`
	CurrentMonth    string   `json:"current_month,omitempty"`
	// LastCompletedDate is the last fully processed day of CurrentMonth
	LastCompletedDate string `json:"last_completed_date,omitempty"`
	TotalDays         int    `json:"total_days"`

	Stats     Stats      `json:"stats"`
	Employees []string   `json:"employees,omitempty"`
	Errors    []RunError `json:"errors,omitempty"`

	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
}

func (p *Progress) IsMonthCompleted(month string) bool {
	return slices.Contains(p.CompletedMonths, month)
}

// MarkMonthCompleted records month as done and clears the mid-month cursor.
func (p *Progress) MarkMonthCompleted(month string) {
	if !p.IsMonthCompleted(month) {
		p.CompletedMonths = append(p.CompletedMonths, month)
	}
	if p.CurrentMonth == month {
		p.CurrentMonth = ""
		p.LastCompletedDate = ""
	}
}

// AddEmployee tracks a distinct employee and keeps EmployeesProcessed in sync.
func (p *Progress) AddEmployee(code string) {
	if i, found := slices.BinarySearch(p.Employees, code); !found {
		p.Employees = slices.Insert(p.Employees, i, code)
	}
	p.Stats.EmployeesProcessed = len(p.Employees)
}

// SameScope reports whether the checkpoint covers exactly the plan's range,
// filters and force mode.
func (p *Progress) SameScope(plan Plan) bool {
	return p.ForceRecalculation == plan.Force &&
		p.StartDate == plan.StartDate() &&
		p.EndDate == plan.EndDate() &&
		sameSet(p.Filter.EmployeeCodes, plan.Filter.EmployeeCodes) &&
		sameSet(p.Filter.Departments, plan.Filter.Departments)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

// Plan is a validated request with defaults resolved.
type Plan struct {
	ProcessID string
	Start     time.Time
	End       time.Time
	Location  *time.Location
	Filter    attendance.Filter
	Force     bool
}

func (p Plan) StartDate() string {
	return p.Start.In(p.Location).Format("2006-01-02")
}

func (p Plan) EndDate() string {
	return p.End.In(p.Location).Format("2006-01-02")
}

// Summary is what a run reports to its caller. Success is completed with zero errors.
type Summary struct {
	ProcessID       string     `json:"process_id"`
	Success         bool       `json:"success"`
	Status          Status     `json:"status"`
	Resumed         bool       `json:"resumed"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	CurrentMonth    string     `json:"current_month,omitempty"`
	Stats           Stats      `json:"stats"`
	MonthsCompleted int        `json:"months_completed"`
	MonthsTotal     int        `json:"months_total"`
	DaysTotal       int        `json:"days_total"`
	Errors          int        `json:"errors"`
	ErrorSamples    []RunError `json:"error_samples,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	Duration        int64      `json:"duration"` // milliseconds
}

// SummaryErrorSamples caps the excerpts a summary carries.
const SummaryErrorSamples = 5

// SummaryOf builds the caller-facing summary of a checkpoint.
func SummaryOf(p *Progress, resumed bool) Summary {
	s := Summary{
		ProcessID:       p.ProcessID,
		Success:         p.Status == StatusCompleted && len(p.Errors) == 0,
		Status:          p.Status,
		Resumed:         resumed,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		CurrentMonth:    p.CurrentMonth,
		Stats:           p.Stats,
		MonthsCompleted: len(p.CompletedMonths),
		MonthsTotal:     len(p.Months),
		DaysTotal:       p.TotalDays,
		Errors:          len(p.Errors),
		ErrorMessage:    p.ErrorMessage,
		Duration:        p.DurationMs,
	}
	if len(p.Errors) > 0 {
		s.ErrorSamples = slices.Clone(p.Errors[:min(len(p.Errors), SummaryErrorSamples)])
	}
	return s
}

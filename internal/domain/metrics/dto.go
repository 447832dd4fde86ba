package metrics

import (
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/validator"
)

type ListMetricsRequest struct {
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	EmployeeCode []string `json:"employee_code,omitempty"`
	Department   []string `json:"department,omitempty"`
}

func (r *ListMetricsRequest) Validate() error {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}
	if startOK && endOK && end.Sub(start).Hours() > 24*92 {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "range must not exceed 92 days",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UnifiedMetricResponse struct {
	Date              string  `json:"date"`
	EmployeeCode      string  `json:"employee_code"`
	Department        string  `json:"department"`
	CheckIn           *string `json:"check_in,omitempty"`
	CheckOut          *string `json:"check_out,omitempty"`
	TotalHours        float64 `json:"total_hours"`
	RegularHours      float64 `json:"regular_hours"`
	OvertimeHours     float64 `json:"overtime_hours"`
	Status            string  `json:"status"`
	IsLate            bool    `json:"is_late"`
	IsEarlyDeparture  bool    `json:"is_early_departure"`
	BreakDuration     float64 `json:"break_duration"`
	ProductivityScore float64 `json:"productivity_score"`
	UpdatedAt         string  `json:"updated_at"`
}

type ListMetricsResponse struct {
	TotalCount int                     `json:"total_count"`
	Metrics    []UnifiedMetricResponse `json:"metrics"`
}

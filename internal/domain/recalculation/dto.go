package recalculation

import (
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/validator"
)

// MaxRangeDays bounds one run to roughly a year.
const MaxRangeDays = 366

type Request struct {
	ProcessID          string   `json:"process_id,omitempty"`
	StartDate          string   `json:"start_date,omitempty"`
	EndDate            string   `json:"end_date,omitempty"`
	EmployeeFilter     []string `json:"employee_filter,omitempty"`
	DepartmentFilter   []string `json:"department_filter,omitempty"`
	ForceRecalculation *bool    `json:"force_recalculation,omitempty"`
}

// Force defaults to true.
func (r *Request) Force() bool {
	return r.ForceRecalculation == nil || *r.ForceRecalculation
}

func (r *Request) Validate() error {
	var errs validator.ValidationErrors

	if len(r.ProcessID) > 64 {
		errs = append(errs, validator.ValidationError{
			Field:   "process_id",
			Message: "process_id must not exceed 64 characters",
		})
	}

	// Date range, both or neither
	hasStart, hasEnd := !validator.IsEmpty(r.StartDate), !validator.IsEmpty(r.EndDate)
	if hasStart != hasEnd {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "start_date and end_date must be provided together",
		})
	}
	if hasStart && hasEnd {
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
		if startOK && endOK && int(end.Sub(start).Hours()/24)+1 > MaxRangeDays {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "range must not exceed 366 days",
			})
		}
	}

	// Filters
	for _, code := range r.EmployeeFilter {
		if !validator.IsValidEmployeeCode(code) {
			errs = append(errs, validator.ValidationError{
				Field:   "employee_filter",
				Message: "employee codes must be 1-32 letters, digits, '-' or '_'",
			})
			break
		}
	}
	for _, dept := range r.DepartmentFilter {
		if validator.IsEmpty(dept) {
			errs = append(errs, validator.ValidationError{
				Field:   "department_filter",
				Message: "department names must not be empty",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StartResponse is returned when a run is accepted in the background.
type StartResponse struct {
	ProcessID          string            `json:"process_id"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	Filter             attendance.Filter `json:"filter"`
	ForceRecalculation bool              `json:"force_recalculation"`
}

func NewStartResponse(plan Plan) StartResponse {
	return StartResponse{
		ProcessID:          plan.ProcessID,
		StartDate:          plan.StartDate(),
		EndDate:            plan.EndDate(),
		Filter:             plan.Filter,
		ForceRecalculation: plan.Force,
	}
}

type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

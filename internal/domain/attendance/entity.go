package attendance

import (
	"time"
)

// Record is one employee's attendance for one work-day. The record store owns
// it; this module never writes it.
type Record struct {
	EmployeeCode string
	EmployeeName string
	Date         time.Time
	CheckIn      *time.Time
	CheckOut     *time.Time
	Department   string
	Designation  string

	// Precomputed upstream, nil when the ingestion pipeline did not fill them
	TotalHours    *float64
	RegularHours  *float64
	OvertimeHours *float64
	BreakHours    *float64
}

// HasCheckIn reports whether the employee punched in.
func (r Record) HasCheckIn() bool {
	return r.CheckIn != nil
}

// IsCompleted reports whether both punches are present.
func (r Record) IsCompleted() bool {
	return r.CheckIn != nil && r.CheckOut != nil
}

// CheckIn is a single punch-in used for headcount formulas.
type CheckIn struct {
	EmployeeCode string
	CheckIn      time.Time
}

// Filter narrows record queries. Empty slices mean no restriction.
type Filter struct {
	EmployeeCodes []string `json:"employee_codes,omitempty"`
	Departments   []string `json:"departments,omitempty"`
}

// IsEmpty reports whether the filter restricts nothing.
func (f Filter) IsEmpty() bool {
	return len(f.EmployeeCodes) == 0 && len(f.Departments) == 0
}

// Matches applies the filter to one employee.
func (f Filter) Matches(employeeCode, department string) bool {
	if len(f.EmployeeCodes) > 0 && !contains(f.EmployeeCodes, employeeCode) {
		return false
	}
	if len(f.Departments) > 0 && !contains(f.Departments, department) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

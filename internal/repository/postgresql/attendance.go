package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewAttendanceRepository reads the HRIS attendances table. Calendar dates
// resolve in loc.
func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.Repository {
	return &attendanceRepository{db: db, loc: loc}
}

// filterClause restricts e.employee_code and e.department; empty arrays match everything.
const filterClause = `
		  AND (COALESCE(cardinality($2::text[]), 0) = 0 OR e.employee_code = ANY($2::text[]))
		  AND (COALESCE(cardinality($3::text[]), 0) = 0 OR e.department = ANY($3::text[]))`

// ListByDate implements attendance.Repository.
func (a *attendanceRepository) ListByDate(ctx context.Context, date time.Time, filter attendance.Filter) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT e.employee_code, e.full_name, a.date,
			   a.clock_in, a.clock_out,
			   COALESCE(e.department, ''), COALESCE(p.name, ''),
			   a.work_hours_in_minutes, a.overtime_minutes
		FROM attendances a
		JOIN employees e ON e.id = a.employee_id
		LEFT JOIN positions p ON p.id = e.position_id
		WHERE a.date = $1::date` + filterClause + `
		ORDER BY e.employee_code
	`

	rows, err := q.Query(ctx, query, timeutil.FormatDate(date, a.loc), filter.EmployeeCodes, filter.Departments)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances by date: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var (
			r                         attendance.Record
			day                       time.Time
			workMinutes, overtimeMins *int
		)
		if err := rows.Scan(
			&r.EmployeeCode, &r.EmployeeName, &day,
			&r.CheckIn, &r.CheckOut,
			&r.Department, &r.Designation,
			&workMinutes, &overtimeMins,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		r.Date = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, a.loc)
		r.TotalHours, r.RegularHours, r.OvertimeHours = precomputedHours(workMinutes, overtimeMins)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return records, nil
}

// precomputedHours converts the minute columns filled at clock-out. Regular
// hours are only known when both columns are present.
func precomputedHours(workMinutes, overtimeMinutes *int) (total, regular, overtime *float64) {
	if workMinutes != nil {
		t := float64(*workMinutes) / 60
		total = &t
	}
	if overtimeMinutes != nil {
		o := float64(*overtimeMinutes) / 60
		overtime = &o
	}
	if total != nil && overtime != nil {
		r := max(*total-*overtime, 0)
		regular = &r
	}
	return total, regular, overtime
}

// ListCheckInsBetween implements attendance.Repository.
func (a *attendanceRepository) ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]attendance.CheckIn, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT e.employee_code, a.clock_in
		FROM attendances a
		JOIN employees e ON e.id = a.employee_id
		WHERE a.clock_in IS NOT NULL
		  AND a.clock_in >= $1
		  AND a.clock_in < $2
	`

	rows, err := q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}

	checkIns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (attendance.CheckIn, error) {
		var c attendance.CheckIn
		err := row.Scan(&c.EmployeeCode, &c.CheckIn)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan check-ins: %w", err)
	}

	return checkIns, nil
}

// CountActiveByDepartment implements attendance.Repository.
func (a *attendanceRepository) CountActiveByDepartment(ctx context.Context) (map[string]int, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT COALESCE(department, ''), COUNT(*)
		FROM employees
		WHERE deleted_at IS NULL
		  AND employment_status = 'active'
		GROUP BY COALESCE(department, '')
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count active employees: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			dept  string
			count int
		)
		if err := rows.Scan(&dept, &count); err != nil {
			return nil, fmt.Errorf("failed to scan department count: %w", err)
		}
		counts[dept] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate department counts: %w", err)
	}

	return counts, nil
}

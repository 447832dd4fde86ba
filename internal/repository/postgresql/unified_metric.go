package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
)

type unifiedMetricRepository struct {
	db  *database.DB
	loc *time.Location
}

func NewUnifiedMetricRepository(db *database.DB, loc *time.Location) metrics.Repository {
	return &unifiedMetricRepository{db: db, loc: loc}
}

const unifiedMetricsSchema = `
	CREATE TABLE IF NOT EXISTS unified_attendance_metrics (
		date               DATE         NOT NULL,
		employee_code      TEXT         NOT NULL,
		department         TEXT         NOT NULL DEFAULT '',
		check_in           TIMESTAMPTZ,
		check_out          TIMESTAMPTZ,
		total_hours        NUMERIC(6,2) NOT NULL DEFAULT 0,
		regular_hours      NUMERIC(6,2) NOT NULL DEFAULT 0,
		overtime_hours     NUMERIC(6,2) NOT NULL DEFAULT 0,
		status             TEXT         NOT NULL CHECK (status IN ('present', 'absent', 'incomplete')),
		is_late            BOOLEAN      NOT NULL DEFAULT FALSE,
		is_early_departure BOOLEAN      NOT NULL DEFAULT FALSE,
		break_duration     NUMERIC(6,2) NOT NULL DEFAULT 0,
		productivity_score NUMERIC(3,2) NOT NULL CHECK (productivity_score BETWEEN 0 AND 1),
		created_at         TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		PRIMARY KEY (date, employee_code)
	);
	CREATE INDEX IF NOT EXISTS idx_unified_attendance_metrics_department_date
		ON unified_attendance_metrics (department, date);
`

// metricFilterClause applies attendance.Filter to the metrics row itself.
const metricFilterClause = `
		  AND (COALESCE(cardinality($3::text[]), 0) = 0 OR employee_code = ANY($3::text[]))
		  AND (COALESCE(cardinality($4::text[]), 0) = 0 OR department = ANY($4::text[]))`

// EnsureSchema implements metrics.Repository.
func (r *unifiedMetricRepository) EnsureSchema(ctx context.Context) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, unifiedMetricsSchema); err != nil {
		return fmt.Errorf("failed to create unified_attendance_metrics: %w", err)
	}
	return nil
}

// Upsert implements metrics.Repository.
func (r *unifiedMetricRepository) Upsert(ctx context.Context, m metrics.UnifiedMetric) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO unified_attendance_metrics (
			date, employee_code, department, check_in, check_out,
			total_hours, regular_hours, overtime_hours, status,
			is_late, is_early_departure, break_duration, productivity_score
		) VALUES (
			$1::date, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (date, employee_code) DO UPDATE SET
			department         = EXCLUDED.department,
			check_in           = EXCLUDED.check_in,
			check_out          = EXCLUDED.check_out,
			total_hours        = EXCLUDED.total_hours,
			regular_hours      = EXCLUDED.regular_hours,
			overtime_hours     = EXCLUDED.overtime_hours,
			status             = EXCLUDED.status,
			is_late            = EXCLUDED.is_late,
			is_early_departure = EXCLUDED.is_early_departure,
			break_duration     = EXCLUDED.break_duration,
			productivity_score = EXCLUDED.productivity_score,
			updated_at         = NOW()
	`

	_, err := q.Exec(ctx, query,
		timeutil.FormatDate(m.Date, r.loc),
		m.EmployeeCode,
		m.Department,
		m.CheckIn,
		m.CheckOut,
		m.TotalHours,
		m.RegularHours,
		m.OvertimeHours,
		string(m.Status),
		m.IsLate,
		m.IsEarlyDeparture,
		m.BreakDuration,
		m.ProductivityScore,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert unified metric %s/%s: %w", timeutil.FormatDate(m.Date, r.loc), m.EmployeeCode, err)
	}
	return nil
}

// DeleteRange implements metrics.Repository.
func (r *unifiedMetricRepository) DeleteRange(ctx context.Context, from, to time.Time, filter attendance.Filter) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		DELETE FROM unified_attendance_metrics
		WHERE date BETWEEN $1::date AND $2::date` + metricFilterClause

	tag, err := q.Exec(ctx, query,
		timeutil.FormatDate(from, r.loc),
		timeutil.FormatDate(to, r.loc),
		filter.EmployeeCodes,
		filter.Departments,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unified metrics: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListRange implements metrics.Repository.
func (r *unifiedMetricRepository) ListRange(ctx context.Context, from, to time.Time, filter attendance.Filter) ([]metrics.UnifiedMetric, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT date, employee_code, department, check_in, check_out,
			   total_hours, regular_hours, overtime_hours, status,
			   is_late, is_early_departure, break_duration, productivity_score,
			   created_at, updated_at
		FROM unified_attendance_metrics
		WHERE date BETWEEN $1::date AND $2::date` + metricFilterClause + `
		ORDER BY date, employee_code
	`

	rows, err := q.Query(ctx, query,
		timeutil.FormatDate(from, r.loc),
		timeutil.FormatDate(to, r.loc),
		filter.EmployeeCodes,
		filter.Departments,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unified metrics: %w", err)
	}
	defer rows.Close()

	var result []metrics.UnifiedMetric
	for rows.Next() {
		var (
			m      metrics.UnifiedMetric
			day    time.Time
			status string
		)
		if err := rows.Scan(
			&day, &m.EmployeeCode, &m.Department, &m.CheckIn, &m.CheckOut,
			&m.TotalHours, &m.RegularHours, &m.OvertimeHours, &status,
			&m.IsLate, &m.IsEarlyDeparture, &m.BreakDuration, &m.ProductivityScore,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unified metric: %w", err)
		}
		m.Date = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
		m.Status = metrics.Status(status)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unified metrics: %w", err)
	}

	return result, nil
}

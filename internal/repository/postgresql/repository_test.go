package postgresql

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = "attendance_metrics_test"

var loc = time.FixedZone("UTC+5", 5*60*60)

// setupTestDB connects to TEST_DATABASE_URL inside a scratch schema holding a
// minimal copy of the HRIS tables.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{})
	require.NoError(t, err)
	_, err = admin.Exec(ctx, `DROP SCHEMA IF EXISTS `+testSchema+` CASCADE; CREATE SCHEMA `+testSchema)
	require.NoError(t, err)
	admin.Close()

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := database.NewPostgreSQLDB(ctx, dsn+sep+"search_path="+testSchema, database.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, `
		CREATE TABLE positions (id TEXT PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE employees (
			id TEXT PRIMARY KEY,
			employee_code TEXT NOT NULL,
			full_name TEXT NOT NULL,
			department TEXT,
			position_id TEXT REFERENCES positions(id),
			employment_status TEXT NOT NULL DEFAULT 'active',
			deleted_at TIMESTAMPTZ
		);
		CREATE TABLE attendances (
			id SERIAL PRIMARY KEY,
			employee_id TEXT NOT NULL REFERENCES employees(id),
			date DATE NOT NULL,
			clock_in TIMESTAMPTZ,
			clock_out TIMESTAMPTZ,
			work_hours_in_minutes INT,
			overtime_minutes INT
		);
		INSERT INTO positions VALUES ('p1', 'Engineer');
		INSERT INTO employees (id, employee_code, full_name, department, position_id, employment_status) VALUES
			('e1', 'EMP001', 'Ayesha Khan', 'Engineering', 'p1', 'active'),
			('e2', 'EMP002', 'Bilal Ahmed', 'Engineering', NULL, 'active'),
			('e3', 'EMP003', 'Sara Malik', 'Finance', NULL, 'active'),
			('e4', 'EMP004', 'Omar Farooq', 'Finance', NULL, 'resigned');
		INSERT INTO attendances (employee_id, date, clock_in, clock_out, work_hours_in_minutes, overtime_minutes) VALUES
			('e1', '2024-06-10', '2024-06-10 09:00+05', '2024-06-10 18:30+05', 570, 90),
			('e2', '2024-06-10', '2024-06-10 09:45+05', NULL, NULL, NULL),
			('e3', '2024-06-10', NULL, NULL, NULL, NULL),
			('e1', '2024-06-03', '2024-06-03 08:55+05', '2024-06-03 18:00+05', NULL, NULL);
	`)
	require.NoError(t, err)
	return db
}

func TestAttendanceRepository_ListByDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db, loc)
	ctx := context.Background()
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)

	records, err := repo.ListByDate(ctx, date, attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "EMP001", first.EmployeeCode)
	assert.Equal(t, "Engineer", first.Designation)
	assert.Equal(t, "Engineering", first.Department)
	require.NotNil(t, first.TotalHours)
	assert.Equal(t, 9.5, *first.TotalHours)
	assert.Equal(t, 8.0, *first.RegularHours)
	assert.Equal(t, 1.5, *first.OvertimeHours)
	assert.True(t, first.Date.Equal(date))

	assert.Nil(t, records[1].CheckOut)
	assert.Nil(t, records[1].TotalHours)
	assert.Nil(t, records[2].CheckIn)

	filtered, err := repo.ListByDate(ctx, date, attendance.Filter{Departments: []string{"Finance"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "EMP003", filtered[0].EmployeeCode)

	filtered, err = repo.ListByDate(ctx, date, attendance.Filter{EmployeeCodes: []string{"EMP002"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
}

func TestAttendanceRepository_ListCheckInsBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db, loc)

	got, err := repo.ListCheckInsBetween(context.Background(),
		time.Date(2024, 6, 10, 0, 0, 0, 0, loc),
		time.Date(2024, 6, 11, 0, 0, 0, 0, loc),
	)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAttendanceRepository_CountActiveByDepartment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db, loc)

	got, err := repo.CountActiveByDepartment(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Engineering": 2, "Finance": 1}, got)
}

func TestUnifiedMetricRepository_UpsertDeleteList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUnifiedMetricRepository(db, loc)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation is repeatable")

	june10 := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	metric := metrics.UnifiedMetric{
		Date:         june10,
		EmployeeCode: "EMP001",
		Department:   "Engineering",
		DayMetrics: metrics.DayMetrics{
			Status:            metrics.StatusPresent,
			TotalHours:        9.5,
			RegularHours:      8,
			OvertimeHours:     1.5,
			ProductivityScore: 1,
		},
	}
	require.NoError(t, repo.Upsert(ctx, metric))

	metric.IsLate = true
	metric.ProductivityScore = 0.9
	require.NoError(t, repo.Upsert(ctx, metric))

	other := metric
	other.EmployeeCode = "EMP003"
	other.Department = "Finance"
	require.NoError(t, repo.Upsert(ctx, other))

	rows, err := repo.ListRange(ctx, june10, june10, attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2, "one row per (date, employee_code)")
	assert.Equal(t, "EMP001", rows[0].EmployeeCode)
	assert.True(t, rows[0].IsLate)
	assert.Equal(t, 0.9, rows[0].ProductivityScore)
	assert.True(t, rows[0].Date.Equal(june10))
	assert.False(t, rows[0].UpdatedAt.Before(rows[0].CreatedAt))

	deleted, err := repo.DeleteRange(ctx, june10, june10, attendance.Filter{EmployeeCodes: []string{"EMP001"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err = repo.ListRange(ctx, june10, june10, attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EMP003", rows[0].EmployeeCode)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUnifiedMetricRepository(db, loc)
	tx := NewTransactor(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	june10 := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	require.NoError(t, repo.Upsert(ctx, metrics.UnifiedMetric{
		Date: june10, EmployeeCode: "EMP001",
		DayMetrics: metrics.DayMetrics{Status: metrics.StatusPresent, ProductivityScore: 1},
	}))

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.DeleteRange(ctx, june10, june10, attendance.Filter{}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	rows, err := repo.ListRange(ctx, june10, june10, attendance.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecalculationProgressRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecalculationProgressRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, recalculation.ErrProgressNotFound)

	at := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	progress := &recalculation.Progress{
		ProcessID: "run-1",
		Status:    recalculation.StatusInProgress,
		StartDate: "2024-06-01",
		EndDate:   "2024-06-30",
		Months:    []string{"2024-06"},
		UpdatedAt: at,
	}
	require.NoError(t, repo.Save(ctx, progress))
	progress.Status = recalculation.StatusCompleted
	progress.UpdatedAt = at.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, progress))
	require.NoError(t, repo.Save(ctx, &recalculation.Progress{
		ProcessID: "run-0", StartDate: "2024-05-01", EndDate: "2024-05-31", UpdatedAt: at,
	}))

	got, err := repo.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, recalculation.StatusCompleted, got.Status)
	assert.Equal(t, []string{"2024-06"}, got.Months)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest.ProcessID)

	_, err = repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, recalculation.ErrProgressNotFound)
}

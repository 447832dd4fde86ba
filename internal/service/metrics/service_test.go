package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("UTC+5", 5*60*60)

type fakeRepo struct {
	rows       []metrics.UnifiedMetric
	err        error
	gotFrom    time.Time
	gotTo      time.Time
	gotFilter  attendance.Filter
	listCalled bool
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeRepo) Upsert(ctx context.Context, m metrics.UnifiedMetric) error { return nil }

func (f *fakeRepo) DeleteRange(ctx context.Context, from, to time.Time, filter attendance.Filter) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) ListRange(ctx context.Context, from, to time.Time, filter attendance.Filter) ([]metrics.UnifiedMetric, error) {
	f.listCalled = true
	f.gotFrom, f.gotTo, f.gotFilter = from, to, filter
	return f.rows, f.err
}

func TestList(t *testing.T) {
	in := time.Date(2024, 6, 10, 4, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []metrics.UnifiedMetric{{
		Date:         time.Date(2024, 6, 10, 0, 0, 0, 0, loc),
		EmployeeCode: "EMP001",
		Department:   "Engineering",
		CheckIn:      &in,
		DayMetrics:   metrics.DayMetrics{Status: metrics.StatusIncomplete, ProductivityScore: 0.8},
		UpdatedAt:    in,
	}}}
	svc := NewMetricsService(repo, loc)

	got, err := svc.List(context.Background(), metrics.ListMetricsRequest{
		StartDate:  "2024-06-01",
		EndDate:    "2024-06-30",
		Department: []string{"Engineering"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalCount)
	assert.Equal(t, "2024-06-10", got.Metrics[0].Date)
	require.NotNil(t, got.Metrics[0].CheckIn)
	assert.Equal(t, "2024-06-10T09:00:00+05:00", *got.Metrics[0].CheckIn)
	assert.Nil(t, got.Metrics[0].CheckOut)
	assert.Equal(t, "incomplete", got.Metrics[0].Status)
	assert.Equal(t, []string{"Engineering"}, repo.gotFilter.Departments)
	assert.True(t, repo.gotFrom.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, loc)))
}

func TestList_ValidationFailsBeforeQuery(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewMetricsService(repo, loc)

	_, err := svc.List(context.Background(), metrics.ListMetricsRequest{StartDate: "2024-06-30", EndDate: "2024-06-01"})

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.False(t, repo.listCalled)
}

func TestList_RepositoryError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection reset")}
	svc := NewMetricsService(repo, loc)

	_, err := svc.List(context.Background(), metrics.ListMetricsRequest{StartDate: "2024-06-01", EndDate: "2024-06-02"})

	assert.ErrorContains(t, err, "connection reset")
}

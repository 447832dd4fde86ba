package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
)

type MetricsServiceImpl struct {
	repo metrics.Repository
	loc  *time.Location
}

func NewMetricsService(repo metrics.Repository, loc *time.Location) metrics.Service {
	return &MetricsServiceImpl{repo: repo, loc: loc}
}

// List implements metrics.Service.
func (s *MetricsServiceImpl) List(ctx context.Context, req metrics.ListMetricsRequest) (metrics.ListMetricsResponse, error) {
	if err := req.Validate(); err != nil {
		return metrics.ListMetricsResponse{}, err
	}

	from, err := timeutil.ParseDate(req.StartDate, s.loc)
	if err != nil {
		return metrics.ListMetricsResponse{}, err
	}
	to, err := timeutil.ParseDate(req.EndDate, s.loc)
	if err != nil {
		return metrics.ListMetricsResponse{}, err
	}

	rows, err := s.repo.ListRange(ctx, from, to, attendance.Filter{
		EmployeeCodes: req.EmployeeCode,
		Departments:   req.Department,
	})
	if err != nil {
		return metrics.ListMetricsResponse{}, fmt.Errorf("failed to list unified metrics: %w", err)
	}

	resp := metrics.ListMetricsResponse{
		TotalCount: len(rows),
		Metrics:    make([]metrics.UnifiedMetricResponse, 0, len(rows)),
	}
	for _, m := range rows {
		resp.Metrics = append(resp.Metrics, s.toResponse(m))
	}
	return resp, nil
}

func (s *MetricsServiceImpl) toResponse(m metrics.UnifiedMetric) metrics.UnifiedMetricResponse {
	return metrics.UnifiedMetricResponse{
		Date:              timeutil.FormatDate(m.Date, s.loc),
		EmployeeCode:      m.EmployeeCode,
		Department:        m.Department,
		CheckIn:           s.formatTime(m.CheckIn),
		CheckOut:          s.formatTime(m.CheckOut),
		TotalHours:        m.TotalHours,
		RegularHours:      m.RegularHours,
		OvertimeHours:     m.OvertimeHours,
		Status:            string(m.Status),
		IsLate:            m.IsLate,
		IsEarlyDeparture:  m.IsEarlyDeparture,
		BreakDuration:     m.BreakDuration,
		ProductivityScore: m.ProductivityScore,
		UpdatedAt:         m.UpdatedAt.In(s.loc).Format(time.RFC3339),
	}
}

func (s *MetricsServiceImpl) formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.In(s.loc).Format(time.RFC3339)
	return &v
}

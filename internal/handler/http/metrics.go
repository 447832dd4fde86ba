package http

import (
	"net/http"
	"strings"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/handler/http/response"
)

type MetricsHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

type metricsHandlerImpl struct {
	metricsService metrics.Service
}

func NewMetricsHandler(metricsService metrics.Service) MetricsHandler {
	return &metricsHandlerImpl{
		metricsService: metricsService,
	}
}

// getSliceQueryParam collects repeated and comma-separated values of key
func getSliceQueryParam(r *http.Request, key string) []string {
	var result []string
	for _, value := range r.URL.Query()[key] {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// List returns persisted unified metrics for a date range
func (h *metricsHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := metrics.ListMetricsRequest{
		StartDate:    query.Get("start_date"),
		EndDate:      query.Get("end_date"),
		EmployeeCode: getSliceQueryParam(r, "employee_code"),
		Department:   getSliceQueryParam(r, "department"),
	}

	result, err := h.metricsService.List(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Metrics, &response.Meta{TotalItems: int64(result.TotalCount)})
}

package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AnalyticsHandler interface {
	Comprehensive(w http.ResponseWriter, r *http.Request)
	TEEProfile(w http.ResponseWriter, r *http.Request)
	TEEForDate(w http.ResponseWriter, r *http.Request)
	AttendanceRate(w http.ResponseWriter, r *http.Request)
	Absentees(w http.ResponseWriter, r *http.Request)
	LateArrivals(w http.ResponseWriter, r *http.Request)
	MissedPunchouts(w http.ResponseWriter, r *http.Request)
	WorkingHours(w http.ResponseWriter, r *http.Request)
	Departments(w http.ResponseWriter, r *http.Request)
}

type analyticsHandlerImpl struct {
	analyticsService analytics.Service
	now              func() time.Time
}

func NewAnalyticsHandler(analyticsService analytics.Service) AnalyticsHandler {
	return &analyticsHandlerImpl{
		analyticsService: analyticsService,
		now:              time.Now,
	}
}

// dateParam resolves the "date" query parameter, defaulting to today in the
// operating timezone
func (h *analyticsHandlerImpl) dateParam(r *http.Request) (time.Time, error) {
	loc := h.analyticsService.Location()
	value := r.URL.Query().Get("date")
	if value == "" {
		return timeutil.Today(h.now(), loc), nil
	}
	return parseDateParam("date", value, loc)
}

func parseDateParam(field, value string, loc *time.Location) (time.Time, error) {
	date, err := timeutil.ParseDate(value, loc)
	if err != nil {
		return time.Time{}, validator.ValidationErrors{{
			Field:   field,
			Message: field + " must be in YYYY-MM-DD format",
		}}
	}
	return date, nil
}

func intParam(r *http.Request, key string) (int, error) {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0, validator.ValidationErrors{{
			Field:   key,
			Message: key + " must be an integer",
		}}
	}
	return value, nil
}

// Comprehensive returns every formula for one date
func (h *analyticsHandlerImpl) Comprehensive(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if r.URL.Query().Get("date") != "" {
		parsed, err := h.dateParam(r)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		date = &parsed
	}

	report, err := h.analyticsService.GetComprehensiveAnalytics(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, report)
}

func (h *analyticsHandlerImpl) TEEProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.analyticsService.CalculateTEEMetrics(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, profile)
}

func (h *analyticsHandlerImpl) TEEForDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam("date", chi.URLParam(r, "date"), h.analyticsService.Location())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.analyticsService.GetTEEForDate(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *analyticsHandlerImpl) AttendanceRate(w http.ResponseWriter, r *http.Request) {
	present, err := intParam(r, "present")
	if err != nil {
		response.HandleError(w, err)
		return
	}
	total, err := intParam(r, "total")
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, h.analyticsService.CalculateAttendanceRate(present, total))
}

func (h *analyticsHandlerImpl) Absentees(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	actual, err := intParam(r, "actual")
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.analyticsService.CalculateAbsentees(r.Context(), date, actual)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *analyticsHandlerImpl) LateArrivals(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.analyticsService.CalculateLateArrivals(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *analyticsHandlerImpl) MissedPunchouts(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.analyticsService.CalculateMissedPunchouts(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *analyticsHandlerImpl) WorkingHours(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.analyticsService.CalculateWorkingHours(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *analyticsHandlerImpl) Departments(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.analyticsService.CalculateDepartmentAnalytics(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

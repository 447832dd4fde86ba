package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalytics_ComprehensiveDefaultsToToday(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics", s.token(t, false), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, s.analytics.lastDate)
	var report analytics.ComprehensiveReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	assert.Equal(t, 310, report.TEE.TEE)
}

func TestAnalytics_ComprehensiveForDate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics?date=2024-06-03", s.token(t, false), "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, s.analytics.lastDate)
	assert.Equal(t, "2024-06-03", s.analytics.lastDate.In(testLoc).Format("2006-01-02"))
}

func TestAnalytics_InvalidDateIsValidationError(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics/late-arrivals?date=03-06-2024", s.token(t, false), "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "date")
}

func TestAnalytics_TEEForDate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics/tee/2024-06-10", s.token(t, false), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var result analytics.TEEResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, "2024-06-10", result.Date)
}

func TestAnalytics_Absentees(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics/absentees?date=2024-06-10&actual=300", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result analytics.AbsenteeResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 10, result.Absentees)

	rec = s.do(t, http.MethodGet, "/api/v1/analytics/absentees?actual=-1", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/analytics/absentees", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalytics_AttendanceRate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/analytics/attendance-rate?present=5&total=10", s.token(t, false), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var result analytics.AttendanceRateResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 5, result.Present)
	assert.Equal(t, 10, result.TotalExpected)
}

func TestMetrics_List(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/metrics?start_date=2024-06-01&end_date=2024-06-30&employee_code=E-1,E-2", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)

	rec = s.do(t, http.MethodGet, "/api/v1/metrics?start_date=2024-06-30&end_date=2024-06-01", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

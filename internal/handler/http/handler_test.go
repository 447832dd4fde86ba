package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("UTC+5", 5*60*60)

type fakeAnalytics struct {
	lastDate *time.Time
}

func (f *fakeAnalytics) CalculateTEEMetrics(ctx context.Context) (analytics.TEEMetrics, error) {
	return analytics.TEEMetrics{WindowStart: "2024-05-12", WindowEnd: "2024-06-11"}, nil
}

func (f *fakeAnalytics) GetTEEForDate(ctx context.Context, date time.Time) (analytics.TEEResult, error) {
	return analytics.TEEResult{Date: date.In(testLoc).Format("2006-01-02"), TEE: 310}, nil
}

func (f *fakeAnalytics) CalculateAttendanceRate(present, totalExpected int) analytics.AttendanceRateResult {
	return analytics.AttendanceRateResult{Present: present, TotalExpected: totalExpected, Rate: 50}
}

func (f *fakeAnalytics) CalculateAbsentees(ctx context.Context, date time.Time, actual int) (analytics.AbsenteeResult, error) {
	if actual < 0 {
		return analytics.AbsenteeResult{}, analytics.ErrInvalidHeadcount
	}
	return analytics.AbsenteeResult{TEE: 310, ActualUniqueCheckIns: actual, Absentees: 310 - actual}, nil
}

func (f *fakeAnalytics) CalculateLateArrivals(ctx context.Context, date time.Time) (analytics.LateArrivalResult, error) {
	return analytics.LateArrivalResult{LateCount: 2}, nil
}

func (f *fakeAnalytics) CalculateMissedPunchouts(ctx context.Context, date time.Time) (analytics.MissedPunchoutResult, error) {
	return analytics.MissedPunchoutResult{Count: 1}, nil
}

func (f *fakeAnalytics) CalculateWorkingHours(ctx context.Context, date time.Time) (analytics.WorkingHoursResult, error) {
	return analytics.WorkingHoursResult{TotalHours: 8}, nil
}

func (f *fakeAnalytics) CalculateDepartmentAnalytics(ctx context.Context, date time.Time) (analytics.DepartmentAnalyticsResult, error) {
	return analytics.DepartmentAnalyticsResult{}, nil
}

func (f *fakeAnalytics) GetComprehensiveAnalytics(ctx context.Context, date *time.Time) (analytics.ComprehensiveReport, error) {
	f.lastDate = date
	return analytics.ComprehensiveReport{Date: "2024-06-11", TEE: analytics.TEEResult{TEE: 310}}, nil
}

func (f *fakeAnalytics) Location() *time.Location { return testLoc }

type fakeMetricsService struct{}

func (fakeMetricsService) List(ctx context.Context, req metrics.ListMetricsRequest) (metrics.ListMetricsResponse, error) {
	if err := req.Validate(); err != nil {
		return metrics.ListMetricsResponse{}, err
	}
	return metrics.ListMetricsResponse{
		TotalCount: 1,
		Metrics:    []metrics.UnifiedMetricResponse{{Date: req.StartDate, EmployeeCode: "E-1"}},
	}, nil
}

type fakeRecalc struct {
	mu       sync.Mutex
	progress map[string]*recalculation.Progress
}

func (f *fakeRecalc) set(p *recalculation.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[p.ProcessID] = p
}

func (f *fakeRecalc) Plan(ctx context.Context, req recalculation.Request) (recalculation.Plan, error) {
	return recalculation.Plan{}, nil
}

func (f *fakeRecalc) Run(ctx context.Context, plan recalculation.Plan) recalculation.Summary {
	return recalculation.Summary{}
}

func (f *fakeRecalc) GetProgress(ctx context.Context, processID string) (*recalculation.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[processID]
	if !ok {
		return nil, recalculation.ErrProgressNotFound
	}
	return p, nil
}

func (f *fakeRecalc) GetLatestProgress(ctx context.Context) (*recalculation.Progress, error) {
	return f.GetProgress(ctx, "latest")
}

type fakeRunner struct {
	err       error
	got       recalculation.Request
	cancelled []string
}

func (f *fakeRunner) Start(ctx context.Context, req recalculation.Request) (recalculation.Plan, error) {
	f.got = req
	if f.err != nil {
		return recalculation.Plan{}, f.err
	}
	if err := req.Validate(); err != nil {
		return recalculation.Plan{}, err
	}
	return recalculation.Plan{
		ProcessID: "run-1",
		Start:     time.Date(2024, 6, 1, 0, 0, 0, 0, testLoc),
		End:       time.Date(2024, 6, 30, 0, 0, 0, 0, testLoc),
		Location:  testLoc,
		Force:     req.Force(),
	}, nil
}

func (f *fakeRunner) Cancel(processID string) bool {
	f.cancelled = append(f.cancelled, processID)
	return processID == "run-1"
}

type testServer struct {
	router    *chi.Mux
	jwt       jwt.Service
	analytics *fakeAnalytics
	recalc    *fakeRecalc
	runner    *fakeRunner
	hub       *sse.Hub
	// stream is exposed so tests can shorten the keepalive
	stream *recalculationHandlerImpl
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		jwt:       jwt.NewJWTService("test-secret-key-for-jwt", "1h"),
		analytics: &fakeAnalytics{},
		recalc:    &fakeRecalc{progress: map[string]*recalculation.Progress{}},
		runner:    &fakeRunner{},
		hub:       sse.NewHub(),
	}
	recalcHandler := NewRecalculationHandler(s.runner, s.recalc, s.hub, s.jwt).(*recalculationHandlerImpl)
	recalcHandler.keepalive = time.Hour
	s.stream = recalcHandler
	s.router = NewRouter(
		RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		s.jwt,
		NewAnalyticsHandler(s.analytics),
		NewMetricsHandler(fakeMetricsService{}),
		recalcHandler,
	)
	return s
}

func (s *testServer) token(t *testing.T, admin bool) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken("user-1", admin)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		TotalItems int64 `json:"total_items"`
	} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

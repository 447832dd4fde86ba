package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
	"golang.org/x/sync/errgroup"
)

type AnalyticsServiceImpl struct {
	repo  attendance.Repository
	rules attendance.Rules
	now   func() time.Time
}

// NewAnalyticsService builds the formula library. A nil clock uses time.Now.
func NewAnalyticsService(repo attendance.Repository, rules attendance.Rules, now func() time.Time) analytics.Service {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsServiceImpl{
		repo:  repo,
		rules: rules,
		now:   now,
	}
}

func (s *AnalyticsServiceImpl) Location() *time.Location {
	return s.rules.Location
}

func (s *AnalyticsServiceImpl) formatDate(t time.Time) string {
	return timeutil.FormatDate(t, s.rules.Location)
}

// CalculateTEEMetrics samples unique check-ins over the trailing lookback window.
func (s *AnalyticsServiceImpl) CalculateTEEMetrics(ctx context.Context) (analytics.TEEMetrics, error) {
	today := timeutil.Today(s.now(), s.rules.Location)
	from := today.AddDate(0, 0, -s.rules.LookbackDays)
	to := today.AddDate(0, 0, 1)

	checkIns, err := s.repo.ListCheckInsBetween(ctx, from, to)
	if err != nil {
		return analytics.TEEMetrics{}, fmt.Errorf("failed to list check-ins for weekday profile: %w", err)
	}

	return analytics.TEEMetrics{
		WindowStart: s.formatDate(from),
		WindowEnd:   s.formatDate(today),
		Weekdays:    BuildWeekdayProfile(checkIns, s.rules.Location),
		Formula: fmt.Sprintf(
			"AAx = round(sum of unique check-ins on weekday x / number of weekday x dates); MAx = max(unique check-ins on weekday x); window %s..%s (%d days)",
			s.formatDate(from), s.formatDate(today), s.rules.LookbackDays,
		),
	}, nil
}

// GetTEEForDate picks MA for date's weekday. Any failure or empty history
// degrades to the configured fallback headcount.
func (s *AnalyticsServiceImpl) GetTEEForDate(ctx context.Context, date time.Time) (analytics.TEEResult, error) {
	profile, err := s.CalculateTEEMetrics(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return analytics.TEEResult{}, ctxErr
		}
		slog.Warn("TEE profile unavailable, using fallback headcount",
			"date", s.formatDate(date),
			"fallback", s.rules.FallbackTotalEmployees,
			"error", err,
		)
	}
	return s.teeFromProfile(profile, date), nil
}

func (s *AnalyticsServiceImpl) teeFromProfile(profile analytics.TEEMetrics, date time.Time) analytics.TEEResult {
	local := date.In(s.rules.Location)
	idx := WeekdayIndex(local.Weekday())
	result := analytics.TEEResult{
		Date:    s.formatDate(local),
		Weekday: local.Weekday().String(),
	}

	stat, ok := profile.ByIndex(idx)
	if !ok || stat.Maximum == 0 {
		result.TEE = s.rules.FallbackTotalEmployees
		result.Fallback = true
		result.Formula = fmt.Sprintf("TEE = fallback total employees = %d (no %s history)", result.TEE, result.Weekday)
		return result
	}

	result.TEE = stat.Maximum
	result.Formula = fmt.Sprintf("TEE = MA%d (%s) = %d", idx, result.Weekday, stat.Maximum)
	return result
}

func (s *AnalyticsServiceImpl) CalculateAttendanceRate(present, totalExpected int) analytics.AttendanceRateResult {
	rate := AttendanceRate(present, totalExpected)
	return analytics.AttendanceRateResult{
		Present:       present,
		TotalExpected: totalExpected,
		Rate:          rate,
		Formula:       fmt.Sprintf("round(%d / %d x 100) = %d%%", present, totalExpected, rate),
	}
}

func (s *AnalyticsServiceImpl) CalculateAbsentees(ctx context.Context, date time.Time, actualUniqueCheckIns int) (analytics.AbsenteeResult, error) {
	if actualUniqueCheckIns < 0 {
		return analytics.AbsenteeResult{}, analytics.ErrInvalidHeadcount
	}
	tee, err := s.GetTEEForDate(ctx, date)
	if err != nil {
		return analytics.AbsenteeResult{}, err
	}
	return absenteesFromTEE(tee, actualUniqueCheckIns), nil
}

func absenteesFromTEE(tee analytics.TEEResult, actual int) analytics.AbsenteeResult {
	absentees := Absentees(tee.TEE, actual)
	return analytics.AbsenteeResult{
		Date:                 tee.Date,
		TEE:                  tee.TEE,
		ActualUniqueCheckIns: actual,
		Absentees:            absentees,
		Formula:              fmt.Sprintf("max(0, TEE %d - unique check-ins %d) = %d", tee.TEE, actual, absentees),
	}
}

func (s *AnalyticsServiceImpl) recordsFor(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	records, err := s.repo.ListByDate(ctx, s.rules.DayOf(date), attendance.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for %s: %w", s.formatDate(date), err)
	}
	return records, nil
}

func (s *AnalyticsServiceImpl) CalculateLateArrivals(ctx context.Context, date time.Time) (analytics.LateArrivalResult, error) {
	records, err := s.recordsFor(ctx, date)
	if err != nil {
		return analytics.LateArrivalResult{}, err
	}
	return s.lateArrivals(records, date), nil
}

func (s *AnalyticsServiceImpl) lateArrivals(records []attendance.Record, date time.Time) analytics.LateArrivalResult {
	day := s.rules.DayOf(date)
	lateCutoff := s.rules.LateCutoff(day).Format(timeutil.ClockLayout)
	graceCutoff := s.rules.GraceViolationCutoff(day).Format(timeutil.ClockLayout)
	late := CountCheckIns(records, day, s.rules.IsLate)
	violations := CountCheckIns(records, day, s.rules.IsGraceViolation)

	return analytics.LateArrivalResult{
		Date:                   s.formatDate(day),
		LateCount:              late,
		GraceViolations:        violations,
		LateCutoff:             lateCutoff,
		GraceViolationCutoff:   graceCutoff,
		Formula:                fmt.Sprintf("count(check_in > %s) = %d", lateCutoff, late),
		GraceViolationsFormula: fmt.Sprintf("count(check_in > %s) = %d", graceCutoff, violations),
	}
}

func (s *AnalyticsServiceImpl) CalculateMissedPunchouts(ctx context.Context, date time.Time) (analytics.MissedPunchoutResult, error) {
	records, err := s.recordsFor(ctx, date)
	if err != nil {
		return analytics.MissedPunchoutResult{}, err
	}
	return s.missedPunchouts(records, date), nil
}

func (s *AnalyticsServiceImpl) missedPunchouts(records []attendance.Record, date time.Time) analytics.MissedPunchoutResult {
	count := MissedPunchouts(records)
	return analytics.MissedPunchoutResult{
		Date:    s.formatDate(date),
		Count:   count,
		Formula: fmt.Sprintf("count(check_in IS NOT NULL AND check_out IS NULL) = %d", count),
	}
}

func (s *AnalyticsServiceImpl) CalculateWorkingHours(ctx context.Context, date time.Time) (analytics.WorkingHoursResult, error) {
	records, err := s.recordsFor(ctx, date)
	if err != nil {
		return analytics.WorkingHoursResult{}, err
	}
	return s.workingHours(records, date), nil
}

func (s *AnalyticsServiceImpl) workingHours(records []attendance.Record, date time.Time) analytics.WorkingHoursResult {
	wh := AggregateWorkingHours(records, s.rules.StandardShiftHours)
	return analytics.WorkingHoursResult{
		Date:            s.formatDate(date),
		TotalHours:      wh.Total,
		CompletedShifts: wh.Completed,
		OvertimeHours:   wh.Overtime,
		AverageHours:    wh.Average,
		Formula: fmt.Sprintf(
			"total = sum(check_out - check_in) over %d completed shifts = %.2fh; overtime = sum(max(0, hours - %g)) = %.2fh; average = total / completed = %.2fh",
			wh.Completed, wh.Total, s.rules.StandardShiftHours, wh.Overtime, wh.Average,
		),
	}
}

func (s *AnalyticsServiceImpl) CalculateDepartmentAnalytics(ctx context.Context, date time.Time) (analytics.DepartmentAnalyticsResult, error) {
	var (
		records   []attendance.Record
		headcount map[string]int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.recordsFor(gCtx, date)
		return err
	})
	g.Go(func() error {
		var err error
		headcount, err = s.repo.CountActiveByDepartment(gCtx)
		if err != nil {
			return fmt.Errorf("failed to count active employees by department: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.DepartmentAnalyticsResult{}, err
	}

	return s.departments(headcount, records, date), nil
}

func (s *AnalyticsServiceImpl) departments(headcount map[string]int, records []attendance.Record, date time.Time) analytics.DepartmentAnalyticsResult {
	return analytics.DepartmentAnalyticsResult{
		Date:        s.formatDate(date),
		Departments: DepartmentBreakdown(headcount, records),
		Formula:     "rate = round(unique check-ins in department / active employees in department x 100)",
	}
}

// GetComprehensiveAnalytics runs the three underlying reads in parallel and
// derives every formula from them.
func (s *AnalyticsServiceImpl) GetComprehensiveAnalytics(ctx context.Context, date *time.Time) (analytics.ComprehensiveReport, error) {
	day := timeutil.Today(s.now(), s.rules.Location)
	if date != nil {
		day = s.rules.DayOf(*date)
	}

	var (
		profile    analytics.TEEMetrics
		profileErr error
		records    []attendance.Record
		headcount  map[string]int
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Weekday profile; failure degrades to the fallback headcount
	g.Go(func() error {
		profile, profileErr = s.CalculateTEEMetrics(gCtx)
		return nil
	})

	// 2. Records for the day
	g.Go(func() error {
		var err error
		records, err = s.recordsFor(gCtx, day)
		return err
	})

	// 3. Active headcount per department
	g.Go(func() error {
		var err error
		headcount, err = s.repo.CountActiveByDepartment(gCtx)
		if err != nil {
			return fmt.Errorf("failed to count active employees by department: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return analytics.ComprehensiveReport{}, err
	}
	if profileErr != nil {
		slog.Warn("TEE profile unavailable, using fallback headcount",
			"date", s.formatDate(day),
			"fallback", s.rules.FallbackTotalEmployees,
			"error", profileErr,
		)
	}

	tee := s.teeFromProfile(profile, day)
	unique := UniqueCheckIns(records)

	return analytics.ComprehensiveReport{
		Date:            s.formatDate(day),
		Timezone:        s.rules.Location.String(),
		GeneratedAt:     s.now(),
		TEE:             tee,
		TEEProfile:      profile,
		UniqueCheckIns:  unique,
		AttendanceRate:  s.CalculateAttendanceRate(unique, tee.TEE),
		Absentees:       absenteesFromTEE(tee, unique),
		LateArrivals:    s.lateArrivals(records, day),
		MissedPunchouts: s.missedPunchouts(records, day),
		WorkingHours:    s.workingHours(records, day),
		Departments:     s.departments(headcount, records, day),
	}, nil
}

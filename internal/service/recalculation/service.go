package recalculation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/service/daymetrics"
	"github.com/google/uuid"
)

var _ recalculation.Service = (*RecalculationServiceImpl)(nil)

// Options tune a RecalculationServiceImpl. Zero values fall back to defaults.
type Options struct {
	// CheckpointEveryDays persists progress after this many processed days
	CheckpointEveryDays int
	// DefaultMonth (YYYY-MM) is recalculated when a request names no dates;
	// empty means the previous calendar month
	DefaultMonth string
	// OnCheckpoint observes every persisted checkpoint
	OnCheckpoint func(recalculation.Summary)
	Now          func() time.Time
	NewID        func() string
}

type RecalculationServiceImpl struct {
	attendance attendance.Repository
	metrics    metrics.Repository
	progress   recalculation.ProgressStore
	tx         recalculation.Transactor
	calculator *daymetrics.Calculator
	loc        *time.Location
	opts       Options
}

func NewRecalculationService(
	attendanceRepo attendance.Repository,
	metricsRepo metrics.Repository,
	progressStore recalculation.ProgressStore,
	tx recalculation.Transactor,
	calculator *daymetrics.Calculator,
	opts Options,
) *RecalculationServiceImpl {
	if opts.CheckpointEveryDays < 1 {
		opts.CheckpointEveryDays = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &RecalculationServiceImpl{
		attendance: attendanceRepo,
		metrics:    metricsRepo,
		progress:   progressStore,
		tx:         tx,
		calculator: calculator,
		loc:        calculator.Rules().Location,
		opts:       opts,
	}
}

func (s *RecalculationServiceImpl) Plan(ctx context.Context, req recalculation.Request) (recalculation.Plan, error) {
	if err := req.Validate(); err != nil {
		return recalculation.Plan{}, err
	}

	plan := recalculation.Plan{
		ProcessID: strings.TrimSpace(req.ProcessID),
		Location:  s.loc,
		Filter: attendance.Filter{
			EmployeeCodes: trimAll(req.EmployeeFilter),
			Departments:   trimAll(req.DepartmentFilter),
		},
		Force: req.Force(),
	}

	prior, err := s.resumable(ctx, plan.ProcessID)
	if err != nil {
		return recalculation.Plan{}, err
	}

	switch {
	case req.StartDate != "":
		start, err := timeutil.ParseDate(req.StartDate, s.loc)
		if err != nil {
			return recalculation.Plan{}, fmt.Errorf("%w: %v", recalculation.ErrInvalidDateRange, err)
		}
		end, err := timeutil.ParseDate(req.EndDate, s.loc)
		if err != nil {
			return recalculation.Plan{}, fmt.Errorf("%w: %v", recalculation.ErrInvalidDateRange, err)
		}
		plan.Start, plan.End = start, end
	case prior != nil:
		// Resume by id alone: the checkpoint supplies the omitted scope
		if err := s.adopt(&plan, prior, req); err != nil {
			return recalculation.Plan{}, err
		}
	default:
		month, err := s.defaultMonth()
		if err != nil {
			return recalculation.Plan{}, err
		}
		plan.Start, plan.End = month.First(s.loc), month.Last(s.loc)
	}

	if prior != nil {
		if req.ForceRecalculation == nil {
			plan.Force = prior.ForceRecalculation
		}
		if !prior.SameScope(plan) {
			return recalculation.Plan{}, scopeMismatch(prior)
		}
	}

	plan.ProcessID = s.resolveProcessID(ctx, plan)
	return plan, nil
}

// resumable loads the checkpoint of an explicit process id when it can still
// be resumed. A missing or finished checkpoint yields nil.
func (s *RecalculationServiceImpl) resumable(ctx context.Context, processID string) (*recalculation.Progress, error) {
	if processID == "" {
		return nil, nil
	}
	prior, err := s.progress.Load(ctx, processID)
	if errors.Is(err, recalculation.ErrProgressNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recalculation checkpoint: %w", err)
	}
	if !prior.Status.Resumable() {
		return nil, nil
	}
	return prior, nil
}

func (s *RecalculationServiceImpl) adopt(plan *recalculation.Plan, prior *recalculation.Progress, req recalculation.Request) error {
	start, err := timeutil.ParseDate(prior.StartDate, s.loc)
	if err != nil {
		return fmt.Errorf("%w: checkpoint start: %v", recalculation.ErrInvalidDateRange, err)
	}
	end, err := timeutil.ParseDate(prior.EndDate, s.loc)
	if err != nil {
		return fmt.Errorf("%w: checkpoint end: %v", recalculation.ErrInvalidDateRange, err)
	}
	plan.Start, plan.End = start, end
	if len(req.EmployeeFilter) == 0 && len(req.DepartmentFilter) == 0 {
		plan.Filter = attendance.Filter{
			EmployeeCodes: slices.Clone(prior.Filter.EmployeeCodes),
			Departments:   slices.Clone(prior.Filter.Departments),
		}
	}
	return nil
}

func scopeMismatch(prior *recalculation.Progress) error {
	return fmt.Errorf("%w: process %s is %s for %s..%s (force=%t)",
		recalculation.ErrCheckpointScopeMismatch,
		prior.ProcessID, prior.Status, prior.StartDate, prior.EndDate, prior.ForceRecalculation)
}

func (s *RecalculationServiceImpl) defaultMonth() (timeutil.Month, error) {
	if s.opts.DefaultMonth != "" {
		month, err := timeutil.ParseMonth(s.opts.DefaultMonth)
		if err != nil {
			return timeutil.Month{}, fmt.Errorf("%w: %v", recalculation.ErrInvalidDateRange, err)
		}
		return month, nil
	}
	thisMonth := timeutil.MonthOf(s.opts.Now(), s.loc)
	return timeutil.MonthOf(thisMonth.First(s.loc).AddDate(0, -1, 0), s.loc), nil
}

// resolveProcessID keeps an explicit id, otherwise adopts the latest
// resumable checkpoint of the same scope, otherwise mints a new id.
func (s *RecalculationServiceImpl) resolveProcessID(ctx context.Context, plan recalculation.Plan) string {
	if plan.ProcessID != "" {
		return plan.ProcessID
	}
	latest, err := s.progress.Latest(ctx)
	if err == nil && latest.Status.Resumable() && latest.SameScope(plan) {
		return latest.ProcessID
	}
	if err != nil && !errors.Is(err, recalculation.ErrProgressNotFound) {
		slog.Warn("Failed to look up latest recalculation checkpoint", "error", err)
	}
	return s.opts.NewID()
}

func (s *RecalculationServiceImpl) GetProgress(ctx context.Context, processID string) (*recalculation.Progress, error) {
	progress, err := s.progress.Load(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recalculation progress: %w", err)
	}
	return progress, nil
}

func (s *RecalculationServiceImpl) GetLatestProgress(ctx context.Context) (*recalculation.Progress, error) {
	progress, err := s.progress.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest recalculation progress: %w", err)
	}
	return progress, nil
}

// run carries the mutable state of one invocation.
type run struct {
	plan            recalculation.Plan
	progress        *recalculation.Progress
	resumed         bool
	startedAt       time.Time
	sinceCheckpoint int
}

// Run recalculates plan's range month by month and day by day. Failures are
// recorded in the returned summary, never returned or panicked.
func (s *RecalculationServiceImpl) Run(ctx context.Context, plan recalculation.Plan) (summary recalculation.Summary) {
	if plan.Location == nil {
		plan.Location = s.loc
	}
	plan.ProcessID = s.resolveProcessID(ctx, plan)

	r := &run{
		plan:      plan,
		startedAt: s.opts.Now(),
		progress: &recalculation.Progress{
			ProcessID: plan.ProcessID,
			Status:    recalculation.StatusInitializing,
			StartDate: plan.StartDate(),
			EndDate:   plan.EndDate(),
		},
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.fail(ctx, r, fmt.Errorf("panic: %v", rec))
			summary = recalculation.SummaryOf(r.progress, r.resumed)
		}
	}()

	if err := s.initialize(ctx, r); err != nil {
		if errors.Is(err, recalculation.ErrCheckpointScopeMismatch) {
			// The stored checkpoint belongs to another scope and stays as is
			s.finish(r, recalculation.StatusFailed)
			r.progress.ErrorMessage = err.Error()
			slog.Error("Recalculation: rejected", "process_id", plan.ProcessID, "error", err)
			return recalculation.SummaryOf(r.progress, r.resumed)
		}
		s.fail(ctx, r, err)
		return recalculation.SummaryOf(r.progress, r.resumed)
	}

	for _, month := range timeutil.MonthsBetween(plan.Start, plan.End, plan.Location) {
		if r.progress.IsMonthCompleted(month.String()) {
			slog.Info("Recalculation: skipping completed month", "process_id", plan.ProcessID, "month", month.String())
			continue
		}
		if !s.processMonth(ctx, r, month) {
			s.pause(ctx, r)
			return recalculation.SummaryOf(r.progress, r.resumed)
		}
	}

	s.complete(ctx, r)
	return recalculation.SummaryOf(r.progress, r.resumed)
}

// initialize adopts a resumable checkpoint for the plan or starts a fresh one.
func (s *RecalculationServiceImpl) initialize(ctx context.Context, r *run) error {
	prior, err := s.progress.Load(ctx, r.plan.ProcessID)
	switch {
	case err == nil && prior.Status.Resumable() && prior.SameScope(r.plan):
		r.progress = prior
		r.resumed = true
		r.progress.Status = recalculation.StatusResuming
		r.progress.EndedAt = nil
		r.progress.ErrorMessage = ""
		slog.Info("Recalculation: resuming",
			"process_id", r.plan.ProcessID,
			"completed_months", len(prior.CompletedMonths),
			"last_completed_date", prior.LastCompletedDate,
		)
		if err := s.save(ctx, r); err != nil {
			return err
		}
	case err == nil && prior.Status.Resumable():
		return scopeMismatch(prior)
	case err == nil:
		slog.Warn("Recalculation: checkpoint not resumable, starting over",
			"process_id", r.plan.ProcessID, "status", prior.Status)
		s.fresh(r)
	case errors.Is(err, recalculation.ErrProgressNotFound):
		s.fresh(r)
	default:
		return fmt.Errorf("failed to load recalculation checkpoint: %w", err)
	}

	r.progress.Status = recalculation.StatusInProgress
	slog.Info("Recalculation: started",
		"process_id", r.plan.ProcessID,
		"start_date", r.progress.StartDate,
		"end_date", r.progress.EndDate,
		"months", len(r.progress.Months),
		"force", r.plan.Force,
	)
	return s.save(ctx, r)
}

func (s *RecalculationServiceImpl) fresh(r *run) {
	months := timeutil.MonthsBetween(r.plan.Start, r.plan.End, r.plan.Location)
	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, m.String())
	}
	r.progress = &recalculation.Progress{
		ProcessID:          r.plan.ProcessID,
		Status:             recalculation.StatusInitializing,
		StartDate:          r.plan.StartDate(),
		EndDate:            r.plan.EndDate(),
		Filter:             r.plan.Filter,
		ForceRecalculation: r.plan.Force,
		Months:             names,
		CompletedMonths:    []string{},
		TotalDays:          len(timeutil.Days(r.plan.Start, r.plan.End, r.plan.Location)),
		StartedAt:          r.startedAt,
	}
}

// processMonth returns false when ctx was cancelled before the month finished.
func (s *RecalculationServiceImpl) processMonth(ctx context.Context, r *run, month timeutil.Month) bool {
	loc := r.plan.Location
	name := month.String()
	from, to := month.Clamp(r.plan.Start, r.plan.End, loc)

	// Resume after the last checkpointed day of a partially processed month
	if r.progress.CurrentMonth == name && r.progress.LastCompletedDate != "" {
		if last, err := timeutil.ParseDate(r.progress.LastCompletedDate, loc); err == nil {
			from = last.AddDate(0, 0, 1)
		}
	}
	r.progress.CurrentMonth = name

	slog.Info("Recalculation: month started",
		"process_id", r.plan.ProcessID,
		"month", name,
		"from", timeutil.FormatDate(from, loc),
		"to", timeutil.FormatDate(to, loc),
	)

	if from.After(to) {
		r.progress.MarkMonthCompleted(name)
		s.checkpoint(ctx, r)
		return true
	}

	if err := s.prepareMonth(ctx, r, from, to); err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Error("Recalculation: month skipped", "process_id", r.plan.ProcessID, "month", name, "error", err)
		s.recordError(r, recalculation.RunError{Scope: recalculation.ScopeMonth, Month: name, Message: err.Error()})
		r.progress.CurrentMonth = ""
		r.progress.LastCompletedDate = ""
		s.checkpoint(ctx, r)
		return true
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return false
		}
		stats, errCount := r.progress.Stats, len(r.progress.Errors)
		employees := slices.Clone(r.progress.Employees)
		s.processDay(ctx, r, day)
		if ctx.Err() != nil {
			// The interrupted day is redone on resume
			r.progress.Stats, r.progress.Errors = stats, r.progress.Errors[:errCount]
			r.progress.Employees = employees
			return false
		}

		r.progress.LastCompletedDate = timeutil.FormatDate(day, loc)
		r.progress.Stats.DaysProcessed++
		r.sinceCheckpoint++
		if r.sinceCheckpoint >= s.opts.CheckpointEveryDays {
			s.checkpoint(ctx, r)
		}
	}

	r.progress.MarkMonthCompleted(name)
	s.checkpoint(ctx, r)
	slog.Info("Recalculation: month completed",
		"process_id", r.plan.ProcessID,
		"month", name,
		"days_processed", r.progress.Stats.DaysProcessed,
		"errors", len(r.progress.Errors),
	)
	return true
}

// prepareMonth creates the metrics table when missing and, when forced,
// clears the remaining days of the month in one transaction.
func (s *RecalculationServiceImpl) prepareMonth(ctx context.Context, r *run, from, to time.Time) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.metrics.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure metrics schema: %w", err)
		}
		if !r.plan.Force {
			return nil
		}
		deleted, err := s.metrics.DeleteRange(ctx, from, to, r.plan.Filter)
		if err != nil {
			return fmt.Errorf("failed to clear metrics: %w", err)
		}
		slog.Debug("Recalculation: cleared metrics",
			"process_id", r.plan.ProcessID,
			"from", timeutil.FormatDate(from, r.plan.Location),
			"to", timeutil.FormatDate(to, r.plan.Location),
			"deleted", deleted,
		)
		return nil
	})
}

func (s *RecalculationServiceImpl) processDay(ctx context.Context, r *run, day time.Time) {
	date := timeutil.FormatDate(day, r.plan.Location)

	records, err := s.attendance.ListByDate(ctx, day, r.plan.Filter)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Recalculation: failed to read day", "process_id", r.plan.ProcessID, "date", date, "error", err)
		s.recordError(r, recalculation.RunError{Scope: recalculation.ScopeDay, Date: date, Message: err.Error()})
		return
	}

	for _, record := range records {
		r.progress.Stats.AttendanceRecordsProcessed++
		if record.EmployeeCode != "" {
			r.progress.AddEmployee(record.EmployeeCode)
		}

		dm, err := s.calculator.Calculate(record)
		if err != nil {
			slog.Error("Recalculation: failed to calculate record",
				"process_id", r.plan.ProcessID, "date", date, "employee_code", record.EmployeeCode, "error", err)
			s.recordError(r, recalculation.RunError{
				Scope: recalculation.ScopeRecord, Date: date, EmployeeCode: record.EmployeeCode, Message: err.Error(),
			})
			continue
		}

		metric := metrics.UnifiedMetric{
			Date:         timeutil.StartOfDay(day, r.plan.Location),
			EmployeeCode: record.EmployeeCode,
			Department:   record.Department,
			CheckIn:      record.CheckIn,
			CheckOut:     record.CheckOut,
			DayMetrics:   dm,
		}
		if err := s.metrics.Upsert(ctx, metric); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Recalculation: failed to upsert metric",
				"process_id", r.plan.ProcessID, "date", date, "employee_code", record.EmployeeCode, "error", err)
			s.recordError(r, recalculation.RunError{
				Scope: recalculation.ScopeRecord, Date: date, EmployeeCode: record.EmployeeCode, Message: err.Error(),
			})
			continue
		}
		r.progress.Stats.MetricsRecalculated++
	}
}

func (s *RecalculationServiceImpl) recordError(r *run, e recalculation.RunError) {
	e.At = s.opts.Now()
	r.progress.Errors = append(r.progress.Errors, e)
}

// checkpoint persists progress; a failed write is logged and the run goes on.
func (s *RecalculationServiceImpl) checkpoint(ctx context.Context, r *run) {
	if err := s.save(ctx, r); err != nil {
		slog.Error("Recalculation: failed to persist checkpoint", "process_id", r.plan.ProcessID, "error", err)
	}
}

func (s *RecalculationServiceImpl) save(ctx context.Context, r *run) error {
	now := s.opts.Now()
	r.progress.UpdatedAt = now
	r.progress.DurationMs = now.Sub(r.startedAt).Milliseconds()

	// Checkpoints written after cancellation must still land
	if err := s.progress.Save(context.WithoutCancel(ctx), r.progress); err != nil {
		return fmt.Errorf("failed to save recalculation checkpoint: %w", err)
	}
	r.sinceCheckpoint = 0
	if s.opts.OnCheckpoint != nil {
		s.opts.OnCheckpoint(recalculation.SummaryOf(r.progress, r.resumed))
	}
	return nil
}

func (s *RecalculationServiceImpl) finish(r *run, status recalculation.Status) {
	ended := s.opts.Now()
	r.progress.Status = status
	r.progress.EndedAt = &ended
}

func (s *RecalculationServiceImpl) complete(ctx context.Context, r *run) {
	s.finish(r, recalculation.StatusCompleted)
	s.checkpoint(ctx, r)
	slog.Info("Recalculation: completed",
		"process_id", r.plan.ProcessID,
		"records", r.progress.Stats.AttendanceRecordsProcessed,
		"metrics", r.progress.Stats.MetricsRecalculated,
		"employees", r.progress.Stats.EmployeesProcessed,
		"days", r.progress.Stats.DaysProcessed,
		"errors", len(r.progress.Errors),
		"duration_ms", r.progress.DurationMs,
	)
}

func (s *RecalculationServiceImpl) pause(ctx context.Context, r *run) {
	r.progress.Status = recalculation.StatusPaused
	s.checkpoint(ctx, r)
	slog.Warn("Recalculation: paused",
		"process_id", r.plan.ProcessID,
		"month", r.progress.CurrentMonth,
		"last_completed_date", r.progress.LastCompletedDate,
	)
}

func (s *RecalculationServiceImpl) fail(ctx context.Context, r *run, err error) {
	s.finish(r, recalculation.StatusFailed)
	r.progress.ErrorMessage = err.Error()
	s.recordError(r, recalculation.RunError{Scope: recalculation.ScopeRun, Message: err.Error()})
	s.checkpoint(ctx, r)
	slog.Error("Recalculation: failed", "process_id", r.plan.ProcessID, "error", err)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

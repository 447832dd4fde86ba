package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/timeutil"
)

// RecalculationRunner runs one recalculation to completion.
type RecalculationRunner interface {
	RunSync(ctx context.Context, req recalculation.Request) (recalculation.Summary, error)
}

type RecalculationJobs struct {
	runner       RecalculationRunner
	loc          *time.Location
	lookbackDays int
	now          func() time.Time
}

func NewRecalculationJobs(runner RecalculationRunner, loc *time.Location, lookbackDays int) *RecalculationJobs {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	return &RecalculationJobs{
		runner:       runner,
		loc:          loc,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

func (j *RecalculationJobs) RegisterJobs(scheduler *Scheduler, expr string) error {
	return scheduler.AddCron("recalculate_trailing_days", expr, j.RecalculateTrailingDays)
}

// RecalculateTrailingDays rebuilds the unified metrics of the last lookbackDays
// complete days, ending yesterday in the operating timezone.
func (j *RecalculationJobs) RecalculateTrailingDays(ctx context.Context) error {
	end := timeutil.Today(j.now(), j.loc).AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(j.lookbackDays - 1))
	req := recalculation.Request{
		StartDate: timeutil.FormatDate(start, j.loc),
		EndDate:   timeutil.FormatDate(end, j.loc),
	}

	slog.Info("Cron: Starting trailing recalculation", "start_date", req.StartDate, "end_date", req.EndDate)

	summary, err := j.runner.RunSync(ctx, req)
	if err != nil {
		if errors.Is(err, recalculation.ErrRunInProgress) {
			slog.Info("Cron: Recalculation already running, skipping")
			return nil
		}
		return fmt.Errorf("failed to start trailing recalculation: %w", err)
	}
	if !summary.Success {
		return fmt.Errorf("recalculation %s finished %s with %d errors", summary.ProcessID, summary.Status, summary.Errors)
	}

	slog.Info("Cron: Trailing recalculation completed",
		"process_id", summary.ProcessID,
		"days", summary.Stats.DaysProcessed,
		"metrics", summary.Stats.MetricsRecalculated,
		"duration_ms", summary.Duration,
	)
	return nil
}

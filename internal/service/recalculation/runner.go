package recalculation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
)

// Runner owns the recalculations of one process. At most one run is active
// at a time; API, cron and CLI callers share it.
type Runner struct {
	svc recalculation.Service

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewRunner(svc recalculation.Service) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		svc:        svc,
		active:     make(map[string]context.CancelFunc),
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

func (r *Runner) register(processID string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.baseCtx.Err() != nil {
		return recalculation.ErrRunnerStopped
	}
	if len(r.active) > 0 {
		return recalculation.ErrRunInProgress
	}
	r.active[processID] = cancel
	r.wg.Add(1)
	return nil
}

func (r *Runner) unregister(processID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, processID)
	r.wg.Done()
}

// Start plans req and runs it in the background, returning the plan so the
// caller can follow the process id.
func (r *Runner) Start(ctx context.Context, req recalculation.Request) (recalculation.Plan, error) {
	plan, err := r.svc.Plan(ctx, req)
	if err != nil {
		return recalculation.Plan{}, err
	}

	runCtx, cancel := context.WithCancel(r.baseCtx)
	if err := r.register(plan.ProcessID, cancel); err != nil {
		cancel()
		return recalculation.Plan{}, err
	}

	go func() {
		defer r.unregister(plan.ProcessID)
		defer cancel()

		summary := r.svc.Run(runCtx, plan)
		slog.Info("Recalculation finished",
			"process_id", summary.ProcessID,
			"status", summary.Status,
			"success", summary.Success,
			"errors", summary.Errors,
		)
	}()

	return plan, nil
}

// RunSync plans and runs req on the caller's goroutine. The run pauses when
// either ctx or the runner is shut down.
func (r *Runner) RunSync(ctx context.Context, req recalculation.Request) (recalculation.Summary, error) {
	plan, err := r.svc.Plan(ctx, req)
	if err != nil {
		return recalculation.Summary{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := r.register(plan.ProcessID, cancel); err != nil {
		return recalculation.Summary{}, err
	}
	defer r.unregister(plan.ProcessID)
	stop := context.AfterFunc(r.baseCtx, cancel)
	defer stop()

	return r.svc.Run(runCtx, plan), nil
}

// Cancel pauses the run with processID. It reports whether such a run was active.
func (r *Runner) Cancel(processID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.active[processID]
	if ok {
		cancel()
	}
	return ok
}

// Active lists the process ids currently running.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown pauses every registered run, background or synchronous, and waits
// for their checkpoints.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.cancelBase()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

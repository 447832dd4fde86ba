package recalculation

import "context"

// Service runs one recalculation synchronously. Run never fails; callers
// inspect Summary.Success and Summary.Status.
type Service interface {
	// Plan validates req, resolves default dates and assigns the process id,
	// adopting a resumable checkpoint of the same scope when req has none
	Plan(ctx context.Context, req Request) (Plan, error)
	Run(ctx context.Context, plan Plan) Summary
	GetProgress(ctx context.Context, processID string) (*Progress, error)
	GetLatestProgress(ctx context.Context) (*Progress, error)
}

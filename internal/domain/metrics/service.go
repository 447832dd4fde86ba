package metrics

import "context"

// Service exposes persisted unified metrics to the read API
type Service interface {
	List(ctx context.Context, req ListMetricsRequest) (ListMetricsResponse, error)
}

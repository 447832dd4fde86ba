package recalculation

import (
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/sse"
)

// PublishProgress forwards every checkpoint to SSE subscribers of its process
// id. The event name is the run status.
func PublishProgress(hub *sse.Hub) func(recalculation.Summary) {
	return func(summary recalculation.Summary) {
		hub.Publish(summary.ProcessID, sse.Event{
			Event: string(summary.Status),
			Data:  summary,
		})
	}
}

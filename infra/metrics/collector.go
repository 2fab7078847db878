package metrics

import (
	"context"

	"github.com/kilianp07/gridmerit/core/events"
	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

// EventName maps a bus event to the name it is counted under, or "" for
// events that are not counted.
func EventName(ev eventbus.Event) string {
	switch e := ev.(type) {
	case events.DeploymentRanked:
		return "deployment_ranked"
	case events.AssetDispatched:
		return "asset_dispatched"
	case events.DispatchCompleted:
		if e.Err != nil {
			return "dispatch_failed"
		}
		return "dispatch_completed"
	default:
		return ""
	}
}

// StartEventCollector subscribes to the event bus and counts events on sinks
// implementing EventRecorder. It stops when the context is canceled or the
// bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.EventRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if name := EventName(ev); name != "" {
					_ = rec.RecordEvent(name)
				}
			}
		}
	}()
}

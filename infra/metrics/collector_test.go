package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/gridmerit/core/events"
	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

type eventSink struct {
	coremetrics.NopSink
	mu    sync.Mutex
	names []string
}

func (s *eventSink) RecordEvent(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return nil
}

func (s *eventSink) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "deployment_ranked", EventName(events.DeploymentRanked{}))
	assert.Equal(t, "asset_dispatched", EventName(events.AssetDispatched{}))
	assert.Equal(t, "dispatch_completed", EventName(events.DispatchCompleted{}))
	assert.Equal(t, "dispatch_failed", EventName(events.DispatchCompleted{Err: errors.New("x")}))
	assert.Equal(t, "", EventName("other"))
}

func TestStartEventCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := eventbus.New()
	defer bus.Close()
	sink := &eventSink{}
	StartEventCollector(ctx, bus, sink)

	bus.Publish(events.AssetDispatched{Asset: "a"})
	bus.Publish("ignored")
	bus.Publish(events.DispatchCompleted{})

	assert.Eventually(t, func() bool { return len(sink.recorded()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"asset_dispatched", "dispatch_completed"}, sink.recorded())
}

func TestStartEventCollector_NoRecorder(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	StartEventCollector(context.Background(), bus, summaryOnlySink{})
	StartEventCollector(context.Background(), nil, &eventSink{})
}

type summaryOnlySink struct{}

func (summaryOnlySink) RecordDispatchSummary(coremetrics.DispatchSummary) error { return nil }

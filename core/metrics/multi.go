package metrics

import "errors"

// MultiSink fans out records to several sinks. Optional recorder interfaces
// are forwarded to the sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatchSummary forwards to every sink and joins their errors.
func (m *MultiSink) RecordDispatchSummary(s DispatchSummary) error {
	var errs []error
	for _, sink := range m.Sinks {
		if err := sink.RecordDispatchSummary(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDeployment forwards to sinks implementing DeploymentRecorder.
func (m *MultiSink) RecordDeployment(records []DeploymentRecord) error {
	var errs []error
	for _, sink := range m.Sinks {
		if r, ok := sink.(DeploymentRecorder); ok {
			if err := r.RecordDeployment(records); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordIteration forwards to sinks implementing IterationRecorder.
func (m *MultiSink) RecordIteration(iteration int, totalCost float64) error {
	var errs []error
	for _, sink := range m.Sinks {
		if r, ok := sink.(IterationRecorder); ok {
			if err := r.RecordIteration(iteration, totalCost); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordEvent forwards to sinks implementing EventRecorder.
func (m *MultiSink) RecordEvent(name string) error {
	var errs []error
	for _, sink := range m.Sinks {
		if r, ok := sink.(EventRecorder); ok {
			if err := r.RecordEvent(name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

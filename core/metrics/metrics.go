package metrics

import "time"

// AssetResult is the outcome of one asset in a dispatch run.
type AssetResult struct {
	Asset          string
	Kind           string
	Group          string
	Rank           int
	Capacity       float64
	Energy         float64
	CapacityFactor float64
	AnnualCost     float64
	// LevelizedCost is meaningful only when LevelizedDefined is true.
	LevelizedCost    float64
	LevelizedDefined bool
}

// DispatchSummary is recorded once per dispatch run.
type DispatchSummary struct {
	RunID          string
	Scenario       string
	Time           time.Time
	Periods        int
	DemandEnergy   float64
	PeakDemand     float64
	MeanDemand     float64
	UnservedEnergy float64
	PeakResidual   float64
	TotalCost      float64
	Assets         []AssetResult
}

// MetricsSink records dispatch summaries for observability purposes.
type MetricsSink interface {
	RecordDispatchSummary(s DispatchSummary) error
}

// DeploymentRecord is one rank of an optimised deployment.
type DeploymentRecord struct {
	RunID    string    `json:"run_id"`
	Group    string    `json:"group"`
	Asset    string    `json:"asset"`
	Rank     int       `json:"rank"`
	DeployAt float64   `json:"deploy_at"`
	Capacity float64   `json:"capacity"`
	Time     time.Time `json:"time"`
}

// DeploymentRecorder records ranked deployments.
type DeploymentRecorder interface {
	RecordDeployment(records []DeploymentRecord) error
}

// IterationRecorder records the system cost of Monte-Carlo iterations.
type IterationRecorder interface {
	RecordIteration(iteration int, totalCost float64) error
}

// EventRecorder counts bus events by name.
type EventRecorder interface {
	RecordEvent(name string) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatchSummary(DispatchSummary) error { return nil }
func (NopSink) RecordDeployment([]DeploymentRecord) error   { return nil }
func (NopSink) RecordIteration(int, float64) error          { return nil }
func (NopSink) RecordEvent(string) error                    { return nil }

package events

import "time"

// DeploymentRanked is published when a planner ranks a portfolio.
type DeploymentRanked struct {
	Planner string
	Groups  int
	Assets  int
}

// AssetDispatched is published after each asset of a run is dispatched.
type AssetDispatched struct {
	RunID  string
	Group  string
	Asset  string
	Rank   int
	Energy float64
}

// DispatchCompleted is published when a dispatch run ends, successfully or
// not.
type DispatchCompleted struct {
	RunID          string
	Assets         int
	UnservedEnergy float64
	TotalCost      float64
	Duration       time.Duration
	Err            error
}

// IterationCompleted is published by the Monte-Carlo runner.
type IterationCompleted struct {
	Iteration int
	TotalCost float64
	Err       error
}

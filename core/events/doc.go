// Package events defines the events emitted on the event bus while planning
// and dispatching.
//
// Available event types:
//   - DeploymentRanked: a planner produced a deployment
//   - AssetDispatched: one asset of a run was dispatched
//   - DispatchCompleted: a dispatch run finished
//   - IterationCompleted: a Monte-Carlo iteration finished
package events

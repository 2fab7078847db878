// Package logging persists one record per dispatch run so that runs can be
// compared after the fact.
package logging

import (
	"context"
	"time"
)

// RunRecord captures the outcome of one dispatch run.
type RunRecord struct {
	RunID        string             `json:"run_id"`
	Timestamp    time.Time          `json:"timestamp"`
	Scenario     string             `json:"scenario,omitempty"`
	Order        []string           `json:"order"`
	Energy       map[string]float64 `json:"energy"`
	AnnualCost   map[string]float64 `json:"annual_cost,omitempty"`
	TotalCost    float64            `json:"total_cost"`
	Unserved     float64            `json:"unserved"`
	PeakResidual float64            `json:"peak_residual"`
	Error        string             `json:"error,omitempty"`
}

// RunQuery defines filters for retrieving records.
type RunQuery struct {
	Start    time.Time
	End      time.Time
	Asset    string
	Scenario string
}

// Match reports whether r passes the filters of q.
func (q RunQuery) Match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Scenario != "" && r.Scenario != q.Scenario {
		return false
	}
	if q.Asset != "" {
		if _, ok := r.Energy[q.Asset]; !ok {
			return false
		}
	}
	return true
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error              { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }

package dispatch

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/logger"
)

// solveLP runs the simplex algorithm to minimise the dispatch cost subject to
// 0 <= x <= caps and sum(x) = target.
func solveLP(costs, caps []float64, target float64) ([]float64, error) {
	n := len(caps)
	g := mat.NewDense(2*n, n, nil)
	h := make([]float64, 2*n)
	for i, cap := range caps {
		g.Set(i, i, 1)
		h[i] = cap
		g.Set(n+i, i, -1)
	}

	A := mat.NewDense(1, n, nil)
	for i := range caps {
		A.Set(0, i, 1)
	}
	b := []float64{target}

	cStd, AStd, bStd := lp.Convert(costs, g, h, A, b)
	_, sol, err := lp.Simplex(cStd, AStd, bStd, 1e-10, nil)
	if err != nil {
		return nil, err
	}
	// Convert splits each free variable into a positive and a negative part.
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	return x, nil
}

// lpSolve points to the function used to solve the LP. It can be overridden in
// tests to simulate solver failures.
var lpSolve = solveLP

// ErrInfeasible indicates the LP had no feasible solution meeting the target.
var ErrInfeasible = errors.New("lp infeasible")

// LPDispatcher solves hourly economic dispatch of capacity-limited
// generators as a linear programme.
type LPDispatcher struct {
	Logger logger.Logger
}

// NewLPDispatcher returns an LP dispatcher logging to l.
func NewLPDispatcher(l logger.Logger) *LPDispatcher {
	return &LPDispatcher{Logger: logger.OrNop(l)}
}

// DispatchStrict solves the LP and returns an error if the solver fails or the
// demand cannot be met. No fallback to merit-order clipping is applied.
func (d *LPDispatcher) DispatchStrict(costs, caps []float64, demand float64) ([]float64, error) {
	out := make([]float64, len(caps))
	if len(caps) == 0 || demand <= 0 {
		return out, nil
	}
	if demand > floats.Sum(caps)+1e-9 {
		return nil, ErrInfeasible
	}

	sol, err := lpSolve(costs, caps, demand)
	if err != nil {
		return nil, err
	}

	var sum float64
	for i := range out {
		out[i] = math.Min(math.Max(sol[i], 0), caps[i])
		sum += out[i]
	}
	if math.Abs(sum-demand) > 1e-6 {
		return out, ErrInfeasible
	}
	return out, nil
}

// Dispatch serves as much of demand as capacity allows at least cost. Any
// solver error falls back to filling capacity in ascending cost order.
func (d *LPDispatcher) Dispatch(costs, caps []float64, demand float64) []float64 {
	target := math.Min(math.Max(demand, 0), floats.Sum(caps))
	out, err := d.DispatchStrict(costs, caps, target)
	if err == nil {
		return out
	}
	logger.OrNop(d.Logger).Warnf("lp dispatch failed, using merit order: %v", err)
	lpFallback.Inc()
	return meritOrderFill(costs, caps, target)
}

// DispatchGenerators dispatches gens together against every hour of residual
// and returns one column per generator.
func (d *LPDispatcher) DispatchGenerators(gens []*asset.Generator, residual demand.Series) [][]float64 {
	costs := make([]float64, len(gens))
	caps := make([]float64, len(gens))
	cols := make([][]float64, len(gens))
	for i, g := range gens {
		costs[i] = g.MarginalCost()
		caps[i] = g.Capacity()
		cols[i] = make([]float64, residual.Len())
	}
	for t, v := range residual.Values {
		hour := d.Dispatch(costs, caps, v)
		for i := range gens {
			cols[i][t] = hour[i]
		}
	}
	return cols
}

// meritOrderFill loads units in ascending cost order until demand is met.
func meritOrderFill(costs, caps []float64, demand float64) []float64 {
	idx := make([]int, len(costs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return costs[idx[a]] < costs[idx[b]] })
	out := make([]float64, len(caps))
	remaining := demand
	for _, i := range idx {
		if remaining <= 0 {
			break
		}
		out[i] = math.Min(caps[i], remaining)
		remaining -= out[i]
	}
	return out
}

// Package scenario drives repeated planning and dispatch of a portfolio:
// refreshing stochastic inputs, re-ranking, capping and dispatching.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/capacity"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/dispatch"
	"github.com/kilianp07/gridmerit/core/events"
	"github.com/kilianp07/gridmerit/core/logger"
	"github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/core/optimiser"
	"github.com/kilianp07/gridmerit/core/technology"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

// ErrUnknownAsset is returned when a capacity update names an asset that is
// not in the portfolio.
var ErrUnknownAsset = errors.New("unknown asset")

// Manager owns one scenario. It is not safe for concurrent use; Monte-Carlo
// iterations each build their own.
type Manager struct {
	Name      string
	Year      int
	Demand    *demand.Demand
	Portfolio *optimiser.Portfolio
	Optimiser optimiser.Planner
	Engine    *dispatch.Engine
	Markets   technology.Markets
	// Refreshers are redrawn by RefreshAll, in order.
	Refreshers []demand.Refresher
	// Capper and CapLimit cap the installed fleet before dispatch when
	// CapLimit is positive.
	Capper   *capacity.Capper
	CapLimit float64
	Options  dispatch.Options
	Logger   logger.Logger
	Bus      eventbus.EventBus
	// Recorder receives every planned deployment when set.
	Recorder metrics.DeploymentRecorder
	Now      func() time.Time

	groups optimiser.DeploymentGroup
}

// Groups returns the last planned deployment.
func (m *Manager) Groups() optimiser.DeploymentGroup { return m.groups }

// RefreshAll redraws market prices and every registered refresher.
func (m *Manager) RefreshAll() {
	m.Markets.Refresh()
	for _, r := range m.Refreshers {
		r.Refresh()
	}
}

// RefreshMarkets redraws market prices only, re-planning when reoptimise is
// set since generator costs have moved.
func (m *Manager) RefreshMarkets(reoptimise bool) error {
	m.Markets.Refresh()
	if !reoptimise {
		return nil
	}
	_, err := m.Optimise()
	return err
}

// Optimise plans the portfolio against the current demand.
func (m *Manager) Optimise() (optimiser.DeploymentGroup, error) {
	if m.Optimiser == nil {
		return nil, errors.New("scenario has no optimiser")
	}
	p := optimiser.Portfolio{Demand: *m.Demand}
	if m.Portfolio != nil {
		p.Technologies = m.Portfolio.Technologies
		p.Assets = m.Portfolio.Assets
	}
	groups, err := m.Optimiser.Plan(p)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", m.label(), err)
	}
	m.groups = groups
	if m.Recorder != nil {
		if err := m.Recorder.RecordDeployment(m.deploymentRecords(groups)); err != nil {
			logger.OrNop(m.Logger).Errorf("metrics error: %v", err)
		}
	}
	if m.Bus != nil {
		m.Bus.Publish(events.DeploymentRanked{Planner: fmt.Sprintf("%T", m.Optimiser), Groups: len(groups), Assets: len(groups.Assets())})
	}
	return groups, nil
}

// UpdateCapacities sets installed capacities by asset name. Nothing is
// changed when any name is unknown.
func (m *Manager) UpdateCapacities(caps map[string]float64) error {
	byName := make(map[string]asset.Asset)
	if m.Portfolio != nil {
		for _, a := range m.Portfolio.Assets {
			if _, dup := byName[a.Name()]; dup {
				return fmt.Errorf("%q names more than one asset", a.Name())
			}
			byName[a.Name()] = a
		}
	}
	for name, c := range caps {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("%q: %w", name, ErrUnknownAsset)
		}
		if c < 0 {
			return fmt.Errorf("%q: negative capacity %v", name, c)
		}
	}
	for name, c := range caps {
		byName[name].SetCapacity(c)
	}
	return nil
}

// ApplyCap displaces fleet capacity above CapLimit and returns what could not
// be displaced.
func (m *Manager) ApplyCap() float64 {
	if m.Capper == nil || m.CapLimit <= 0 {
		return 0
	}
	ex := capacity.Exceedance(m.Capper.Assets, m.CapLimit)
	left := m.Capper.Cap(ex)
	if left > 0 {
		logger.OrNop(m.Logger).Warnf("%s: %.3f above capacity limit could not be displaced", m.label(), left)
	}
	return left
}

// Run refreshes every input, plans, caps and dispatches into a fresh log.
func (m *Manager) Run(ctx context.Context) (dispatch.Result, *dispatch.Log, error) {
	if err := ctx.Err(); err != nil {
		return dispatch.Result{}, nil, err
	}
	m.RefreshAll()
	m.ApplyCap()
	if m.Portfolio != nil {
		for _, a := range m.Portfolio.Assets {
			if r, ok := a.(interface{ Reset() }); ok {
				r.Reset()
			}
		}
	}
	groups, err := m.Optimise()
	if err != nil {
		return dispatch.Result{}, nil, err
	}
	log := dispatch.NewLog(m.Demand)
	eng := m.Engine
	if eng == nil {
		eng = dispatch.NewEngine(m.Logger, nil, m.Bus, nil)
	}
	opts := m.Options
	if opts.Scenario == "" {
		opts.Scenario = m.label()
	}
	res, err := eng.DispatchGroup(ctx, groups, log, opts)
	return res, log, err
}

func (m *Manager) label() string {
	if m.Name != "" {
		return m.Name
	}
	if m.Year != 0 {
		return strconv.Itoa(m.Year)
	}
	return "scenario"
}

func (m *Manager) deploymentRecords(groups optimiser.DeploymentGroup) []metrics.DeploymentRecord {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	at := now()
	var recs []metrics.DeploymentRecord
	for _, g := range groups {
		for _, r := range g.Deployment {
			recs = append(recs, metrics.DeploymentRecord{
				RunID:    m.label(),
				Group:    g.Name,
				Asset:    r.Asset.Name(),
				Rank:     r.Rank,
				DeployAt: r.DeployAt,
				Capacity: r.Asset.Capacity(),
				Time:     at,
			})
		}
	}
	return recs
}

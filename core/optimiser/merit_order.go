package optimiser

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/logger"
	"github.com/kilianp07/gridmerit/core/technology"
)

var (
	// ErrEnvelopeTraversal signals a fault while walking the break-even
	// envelope: too many ranks or a technology reached twice.
	ErrEnvelopeTraversal = errors.New("break-even envelope traversal failed")
	// ErrNoTechnologies is returned when there is nothing to rank.
	ErrNoTechnologies = errors.New("no technologies to rank")
	// ErrDuplicateName is returned when two planned assets share a name.
	ErrDuplicateName = errors.New("duplicate asset name")
)

// MeritOrder ranks generator technologies by walking the lower envelope of
// their screening curves from the longest duration down.
type MeritOrder struct {
	Logger logger.Logger
}

type candidate struct {
	tech       *technology.GeneratorTechnology
	crossings  []technology.Crossing
	periodCost float64
	ranked     bool
	rank       int
	deployAt   float64
	capacity   float64
}

// Optimise returns capacitated generators in rank order. Capacities are in
// demand units and sum to the demand peak.
func (m MeritOrder) Optimise(techs []*technology.GeneratorTechnology, d demand.Demand) (Deployment, error) {
	if len(techs) == 0 {
		return nil, ErrNoTechnologies
	}
	log := logger.OrNop(m.Logger)
	ldc := d.LDC()
	periods := float64(d.Periods)

	cands := make([]*candidate, len(techs))
	byTech := make(map[*technology.GeneratorTechnology]*candidate, len(techs))
	for i, t := range techs {
		crossings := t.InterceptDurations(techs)
		sort.SliceStable(crossings, func(a, b int) bool { return crossings[a].X > crossings[b].X })
		c := &candidate{tech: t, crossings: crossings, periodCost: t.PeriodCost(periods)}
		cands[i] = c
		byTech[t] = c
	}
	order := make([]*candidate, len(cands))
	copy(order, cands)
	sort.SliceStable(order, func(a, b int) bool { return order[a].periodCost < order[b].periodCost })

	leader := order[0]
	leader.ranked, leader.rank, leader.deployAt = true, 1, 0
	ranked := []*candidate{leader}
	upper := periods

	for {
		next, ok := nextCrossing(leader.crossings, upper)
		if !ok {
			break
		}
		y := ldc.FindYAtX(next.X)
		leader.capacity = y - leader.deployAt

		c := byTech[next.With]
		if c.ranked {
			return nil, fmt.Errorf("%s reached twice at x=%v: %w", c.tech.Name, next.X, ErrEnvelopeTraversal)
		}
		if len(ranked)+1 > len(techs)+1 {
			return nil, fmt.Errorf("rank %d exceeds %d technologies: %w", len(ranked)+1, len(techs), ErrEnvelopeTraversal)
		}
		c.ranked, c.rank, c.deployAt = true, len(ranked)+1, y
		log.Debugw("merit order crossing", map[string]any{
			"from": leader.tech.Name, "to": c.tech.Name, "x": next.X, "deploy_at": y,
		})
		ranked = append(ranked, c)
		leader = c
		upper = next.X
	}
	leader.capacity = d.Peak() - leader.deployAt

	out := make(Deployment, len(ranked))
	for i, c := range ranked {
		out[i] = Ranked{
			Asset:    asset.NewGenerator(c.tech.Name, c.tech, c.capacity),
			Rank:     c.rank,
			DeployAt: c.deployAt,
			Capacity: c.capacity,
		}
	}
	log.Infow("merit order ranked", map[string]any{"technologies": len(techs), "ranks": len(out)})
	return out, nil
}

// crossingTol is the relative tolerance under which two break-even
// durations count as the same point.
const crossingTol = 1e-9

func sameX(a, b float64) bool {
	return math.Abs(a-b) <= crossingTol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// nextCrossing is the crossing with the largest duration strictly inside
// (0, upper). crossings must be sorted descending. When several curves meet
// the leader at that duration the steepest one wins: it is the cheapest just
// below the crossing.
func nextCrossing(crossings []technology.Crossing, upper float64) (technology.Crossing, bool) {
	for i, c := range crossings {
		if c.X <= 0 || c.X >= upper || sameX(c.X, upper) {
			continue
		}
		best := c
		for _, o := range crossings[i+1:] {
			if !sameX(o.X, c.X) {
				break
			}
			if o.With.TotalVariableCost() > best.With.TotalVariableCost() {
				best = o
			}
		}
		return best, true
	}
	return technology.Crossing{}, false
}

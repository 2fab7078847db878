package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/infra/logger"
)

// InfluxSink writes dispatch runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordDispatchSummary writes one dispatch_run point and one asset_dispatch
// point per asset in a single request.
func (s *InfluxSink) RecordDispatchSummary(sum coremetrics.DispatchSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(sum.Assets)+1)
	points = append(points, runPoint(sum))
	for _, a := range sum.Assets {
		p := write.NewPointWithMeasurement("asset_dispatch").
			AddTag("run_id", sum.RunID).
			AddTag("asset", a.Asset).
			AddTag("kind", a.Kind)
		if a.Group != "" {
			p = p.AddTag("group", a.Group)
		}
		p = p.AddField("rank", a.Rank).
			AddField("capacity", round3(a.Capacity)).
			AddField("energy", round3(a.Energy)).
			AddField("capacity_factor", round3(a.CapacityFactor)).
			AddField("annual_cost", round3(a.AnnualCost))
		if a.LevelizedDefined {
			p = p.AddField("levelized_cost", round3(a.LevelizedCost))
		}
		points = append(points, p.SetTime(sum.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func runPoint(sum coremetrics.DispatchSummary) *write.Point {
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", sum.RunID)
	if sum.Scenario != "" {
		p = p.AddTag("scenario", sum.Scenario)
	}
	return p.AddField("periods", sum.Periods).
		AddField("demand_energy", round3(sum.DemandEnergy)).
		AddField("peak_demand", round3(sum.PeakDemand)).
		AddField("unserved_energy", round3(sum.UnservedEnergy)).
		AddField("peak_residual", round3(sum.PeakResidual)).
		AddField("total_cost", round3(sum.TotalCost)).
		SetTime(sum.Time)
}

// RecordDeployment writes one point per ranked asset.
func (s *InfluxSink) RecordDeployment(recs []coremetrics.DeploymentRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	points := make([]*write.Point, len(recs))
	for i, r := range recs {
		points[i] = write.NewPointWithMeasurement("deployment").
			AddTag("run_id", r.RunID).
			AddTag("group", r.Group).
			AddTag("asset", r.Asset).
			AddTag("rank", strconv.Itoa(r.Rank)).
			AddField("deploy_at", round3(r.DeployAt)).
			AddField("capacity", round3(r.Capacity)).
			SetTime(r.Time)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordIteration writes the cost of a Monte-Carlo iteration.
func (s *InfluxSink) RecordIteration(iteration int, totalCost float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("montecarlo_iteration").
		AddTag("component", "montecarlo").
		AddField("iteration", iteration).
		AddField("total_cost", round3(totalCost)).
		SetTime(s.now())
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

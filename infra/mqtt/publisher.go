package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gridmerit/core/factory"
	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/infra/logger"
)

// AssetMessage is the per-asset part of a RunMessage.
type AssetMessage struct {
	Asset          string  `json:"asset"`
	Kind           string  `json:"kind"`
	Rank           int     `json:"rank"`
	Energy         float64 `json:"energy"`
	CapacityFactor float64 `json:"capacity_factor"`
	AnnualCost     float64 `json:"annual_cost"`
}

// RunMessage is published once per dispatch run.
type RunMessage struct {
	MessageID    string         `json:"message_id"`
	RunID        string         `json:"run_id"`
	Scenario     string         `json:"scenario,omitempty"`
	Timestamp    int64          `json:"timestamp"`
	TotalCost    float64        `json:"total_cost"`
	Unserved     float64        `json:"unserved"`
	PeakResidual float64        `json:"peak_residual"`
	Assets       []AssetMessage `json:"assets"`
}

// IterationMessage reports Monte-Carlo progress.
type IterationMessage struct {
	MessageID string  `json:"message_id"`
	Iteration int     `json:"iteration"`
	TotalCost float64 `json:"total_cost"`
	Timestamp int64   `json:"timestamp"`
}

// DeploymentMessage carries a ranked deployment.
type DeploymentMessage struct {
	MessageID string                         `json:"message_id"`
	Ranks     []coremetrics.DeploymentRecord `json:"ranks"`
}

// PahoPublisher is a metrics sink publishing JSON messages under TopicRoot:
// runs/<scenario>, deployments and montecarlo.
type PahoPublisher struct {
	conn   *connection
	root   string
	qos    byte
	retain bool
	now    func() time.Time
}

// NewPahoPublisher connects to the broker.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := connect(cfg, logger.New("mqtt_publisher"))
	if err != nil {
		return nil, err
	}
	return &PahoPublisher{conn: conn, root: cfg.TopicRoot, qos: cfg.QoS, retain: cfg.Retain, now: time.Now}, nil
}

// RunTopic is the topic run summaries of scenario are published on.
func (p *PahoPublisher) RunTopic(scenario string) string {
	if scenario == "" {
		scenario = "default"
	}
	return p.root + "/runs/" + scenario
}

// RecordDispatchSummary publishes the run summary.
func (p *PahoPublisher) RecordDispatchSummary(s coremetrics.DispatchSummary) error {
	msg := RunMessage{
		MessageID:    uuid.NewString(),
		RunID:        s.RunID,
		Scenario:     s.Scenario,
		Timestamp:    s.Time.UnixMilli(),
		TotalCost:    s.TotalCost,
		Unserved:     s.UnservedEnergy,
		PeakResidual: s.PeakResidual,
		Assets:       make([]AssetMessage, len(s.Assets)),
	}
	for i, a := range s.Assets {
		msg.Assets[i] = AssetMessage{
			Asset:          a.Asset,
			Kind:           a.Kind,
			Rank:           a.Rank,
			Energy:         a.Energy,
			CapacityFactor: a.CapacityFactor,
			AnnualCost:     a.AnnualCost,
		}
	}
	return p.send(p.RunTopic(s.Scenario), msg)
}

// RecordDeployment publishes a ranked deployment.
func (p *PahoPublisher) RecordDeployment(recs []coremetrics.DeploymentRecord) error {
	return p.send(p.root+"/deployments", DeploymentMessage{MessageID: uuid.NewString(), Ranks: recs})
}

// RecordIteration publishes Monte-Carlo progress.
func (p *PahoPublisher) RecordIteration(iteration int, totalCost float64) error {
	return p.send(p.root+"/montecarlo", IterationMessage{
		MessageID: uuid.NewString(),
		Iteration: iteration,
		TotalCost: totalCost,
		Timestamp: p.now().UnixMilli(),
	})
}

// Subscribe calls fn for every message on topic.
func (p *PahoPublisher) Subscribe(topic string, fn func(topic string, payload []byte)) error {
	return p.conn.subscribe(topic, p.qos, fn)
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoPublisher) Disconnect() { p.conn.disconnect() }

func (p *PahoPublisher) send(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.publish(topic, p.qos, p.retain, payload)
}

func init() {
	_ = coremetrics.RegisterMetricsSink("mqtt", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPahoPublisher(c)
	})
}

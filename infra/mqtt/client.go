// Package mqtt publishes dispatch run summaries, deployments and Monte-Carlo
// progress to an MQTT broker using Eclipse Paho.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/gridmerit/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string      `json:"broker" koanf:"broker"`
	ClientID   string      `json:"client_id" koanf:"client_id"`
	Username   string      `json:"username" koanf:"username"`
	Password   string      `json:"password" koanf:"password"`
	TopicRoot  string      `json:"topic_root" koanf:"topic_root"`
	UseTLS     bool        `json:"use_tls" koanf:"use_tls"`
	ClientCert string      `json:"client_cert" koanf:"client_cert"`
	ClientKey  string      `json:"client_key" koanf:"client_key"`
	CABundle   string      `json:"ca_bundle" koanf:"ca_bundle"`
	AuthMethod string      `json:"auth_method" koanf:"auth_method"`
	QoS        byte        `json:"qos" koanf:"qos"`
	Retain     bool        `json:"retain" koanf:"retain"`
	LWTTopic   string      `json:"lwt_topic" koanf:"lwt_topic"`
	LWTPayload string      `json:"lwt_payload" koanf:"lwt_payload"`
	LWTQoS     byte        `json:"lwt_qos" koanf:"lwt_qos"`
	LWTRetain  bool        `json:"lwt_retain" koanf:"lwt_retain"`
	MaxRetries int         `json:"max_retries" koanf:"max_retries"`
	BackoffMS  int         `json:"backoff_ms" koanf:"backoff_ms"`
	TLSConfig  *tls.Config `json:"-" koanf:"-"`
}

// SetDefaults fills unset retry and topic settings.
func (c *Config) SetDefaults() {
	if c.TopicRoot == "" {
		c.TopicRoot = "gridmerit"
	}
	if c.ClientID == "" {
		c.ClientID = "gridmerit"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the broker URL and QoS levels.
func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt broker is required")
	}
	if c.QoS > 2 || c.LWTQoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	if strings.ContainsAny(c.TopicRoot, "+#") {
		return fmt.Errorf("mqtt topic root %q contains wildcards", c.TopicRoot)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// connection wraps a connected paho client with retrying publishes.
type connection struct {
	cli        pahoClient
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
	mu         sync.Mutex
}

func connect(cfg Config, log logger.Logger) (*connection, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &connection{
		cli:        c,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}, nil
}

// publish sends payload, retrying with exponential backoff.
func (c *connection) publish(topic string, qos byte, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var publishErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		token := c.cli.Publish(topic, qos, retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			c.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		c.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < c.maxRetries {
			time.Sleep(c.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

func (c *connection) subscribe(topic string, qos byte, fn func(topic string, payload []byte)) error {
	token := c.cli.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		fn(m.Topic(), m.Payload())
	})
	token.Wait()
	return token.Error()
}

func (c *connection) disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}

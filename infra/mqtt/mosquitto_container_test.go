//go:build !no_containers

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		_ = cont.Terminate(ctx)
		t.Skipf("mosquitto not ready at %s: %v", broker, err)
	}
	return cont, broker
}

func TestPahoPublisherWithMosquitto(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(context.Background()) }()

	sub, err := NewPahoPublisher(Config{Broker: broker, ClientID: "sub", QoS: 1})
	require.NoError(t, err)
	defer sub.Disconnect()
	got := make(chan RunMessage, 1)
	require.NoError(t, sub.Subscribe("gridmerit/runs/#", func(_ string, payload []byte) {
		var m RunMessage
		if json.Unmarshal(payload, &m) == nil {
			got <- m
		}
	}))

	pub, err := NewPahoPublisher(Config{Broker: broker, ClientID: "pub", QoS: 1})
	require.NoError(t, err)
	defer pub.Disconnect()
	require.NoError(t, pub.RecordDispatchSummary(coremetrics.DispatchSummary{RunID: "run-42", Scenario: "base", Time: time.Now(), TotalCost: 10}))

	select {
	case m := <-got:
		assert.Equal(t, "run-42", m.RunID)
		assert.Equal(t, 10.0, m.TotalCost)
	case <-time.After(10 * time.Second):
		t.Fatal("run summary not received")
	}
}

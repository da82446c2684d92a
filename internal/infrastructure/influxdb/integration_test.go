//go:build integration

package influxdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lanlight/internal/infrastructure/config"
	"github.com/nerrad567/lanlight/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for the local dev InfluxDB.
// These values match docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "lanlight-dev-token",
		Org:           "lanlight",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnect(t *testing.T) {
	client, err := influxdb.Connect(testConfig(), "integration")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg, "integration"); err == nil {
		t.Fatal("Connect() should return error for invalid URL")
	}
}

func TestWriteLightTelemetry(t *testing.T) {
	client, err := influxdb.Connect(testConfig(), "integration")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteLightPresence("d073d5000001", "Integration", true)
	client.WriteLightPower("d073d5000001", "Integration", 32768)
	client.WriteRegistrySize(1, 0)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

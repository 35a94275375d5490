package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ringclient-core/internal/infrastructure/config"
	"github.com/nerrad567/ringclient-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/ringclient-core/internal/video"
)

// sessionBucket is the dev bucket for video session telemetry.
func sessionBucket() config.InfluxDBConfig {
	url := os.Getenv("RINGCLIENT_INFLUXDB_URL")
	if url == "" {
		url = "http://127.0.0.1:8086"
	}
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "ringclient-dev-token",
		Org:           "ringclient",
		Bucket:        "sessions",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// connectOrSkip returns a live client, or skips when no server answers.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(sessionBucket())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Close never fails
	return client
}

// errorLog collects asynchronous write failures.
type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorLog) record(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *errorLog) snapshot() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}

func TestConnect_Refused(t *testing.T) {
	disabled := sessionBucket()
	disabled.Enabled = false
	if _, err := influxdb.Connect(disabled); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect(disabled) error = %v, want ErrDisabled", err)
	}

	unreachable := sessionBucket()
	unreachable.URL = "http://127.0.0.1:59999"
	if _, err := influxdb.Connect(unreachable); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect(unreachable) error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_ZeroValue(t *testing.T) {
	var client influxdb.Client

	// A recorder over an unconnected client drops sessions quietly.
	rec := influxdb.NewSessionRecorder(&client, "desk")
	rec.SessionStarted(video.PreviewKey, "/shm/local", video.Resolution{Width: 640, Height: 480})
	rec.SessionEnded(video.PreviewKey, video.Resolution{}, 0)
	client.Flush()

	if client.IsConnected() {
		t.Error("IsConnected() = true for a zero client")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestClient_RecordsSessions(t *testing.T) {
	client := connectOrSkip(t)
	var log errorLog
	client.SetOnError(log.record)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	rec := influxdb.NewSessionRecorder(client, "integration")
	vga := video.Resolution{Width: 640, Height: 480}

	tests := []struct {
		name string
		run  func()
	}{
		{"preview start", func() { rec.SessionStarted(video.PreviewKey, "/shm/local", vga) }},
		{"preview end", func() { rec.SessionEnded(video.PreviewKey, vga, 2*time.Second) }},
		{"call start without resolution", func() { rec.SessionStarted("call-1", "", video.Resolution{}) }},
		{"call end with zero duration", func() { rec.SessionEnded("call-1", video.Resolution{}, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run()
			client.Flush()
			time.Sleep(50 * time.Millisecond)
			if errs := log.snapshot(); len(errs) != 0 {
				t.Errorf("write errors = %v", errs)
			}
		})
	}
}

func TestClient_WriteAfterClose(t *testing.T) {
	client := connectOrSkip(t)

	client.WriteSession(influxdb.Session{
		ClientID: "close-test",
		Kind:     influxdb.KindCall,
		Event:    influxdb.EventEnded,
		Key:      "call-2",
		Duration: time.Second,
	})
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Dropped, not queued on a closed write API.
	client.WriteSession(influxdb.Session{ClientID: "close-test", Kind: influxdb.KindCall, Event: influxdb.EventStarted})
	client.Flush()
}

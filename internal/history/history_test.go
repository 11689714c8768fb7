package history

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/micro-ha/korea-connect/internal/config"
	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

type staticClient struct{}

func (staticClient) Login(ctx context.Context) error { return nil }

func (staticClient) Fetch(ctx context.Context) (model.Record, error) {
	return model.Record{Data: []byte(`{"usage": 120, "label": "text"}`)}, nil
}

func newProjection(t *testing.T) *entity.Projection {
	t.Helper()
	session, err := integration.NewSession(integration.SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	coordinator := integration.NewCoordinator(integration.CoordinatorOptions{
		Service:  "kepco",
		Instance: "inst-1",
		Client:   staticClient{},
		Session:  session,
		Interval: time.Minute,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(coordinator.Close)
	if outcome := coordinator.Refresh(context.Background()); outcome.State != integration.StateHealthy {
		t.Fatalf("refresh did not land healthy: %+v", outcome)
	}
	return entity.New(coordinator, []entity.Sensor{
		{Key: "power_usage", Name: "Power Usage", Path: "usage", Type: entity.TypeFloat, Unit: "kWh"},
		{Key: "label", Name: "Label", Path: "label", Type: entity.TypeString},
	})
}

func TestPublishWritesOnlyNumericValuesOfHealthyOutcomes(t *testing.T) {
	var (
		mu     sync.Mutex
		writes []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/ping") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		writes = append(writes, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	writer, err := Connect(config.HistoryConfig{URL: server.URL, Token: "t", Org: "home", Bucket: "korea"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	instance := model.Instance{ID: "inst-1", Service: "kepco", Name: "Home Power"}
	projection := newProjection(t)

	// Failed refreshes write nothing.
	writer.Publish(instance, projection, integration.Outcome{State: integration.StateDegraded})
	writer.Publish(instance, projection, integration.Outcome{State: integration.StateHealthy, StaleAvailable: true})
	writer.Close()

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(writes, "\n")
	if !strings.Contains(joined, "korea_sensor") {
		t.Fatalf("no points written: %q", joined)
	}
	if !strings.Contains(joined, "sensor=power_usage") {
		t.Fatalf("numeric sensor missing from write: %q", joined)
	}
	if strings.Contains(joined, "sensor=label") {
		t.Fatalf("string sensor must not be written: %q", joined)
	}
	if strings.Count(joined, "power_usage") != 1 {
		t.Fatalf("degraded outcome must not produce a point: %q", joined)
	}
}

func TestConnectRejectsUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := Connect(config.HistoryConfig{URL: server.URL, Token: "t", Org: "home", Bucket: "korea"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatalf("expected connect failure")
	}
}

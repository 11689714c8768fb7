// Package history writes numeric sensor values to InfluxDB. Write-only:
// the hub never reads history back, so a down sink costs nothing but
// missing points.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/micro-ha/korea-connect/internal/config"
	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	connectTimeout = 10 * time.Second
	measurement    = "korea_sensor"
)

// Writer is the optional InfluxDB sink. Writes are batched and
// asynchronous; errors drain through a logging goroutine.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *slog.Logger
}

// Connect verifies connectivity with a ping and sets up the batching
// write API.
func Connect(cfg config.HistoryConfig, logger *slog.Logger) (*Writer, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb not healthy")
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	w := &Writer{client: client, writeAPI: writeAPI, logger: logger}
	go w.drainErrors(writeAPI.Errors())
	return w, nil
}

func (w *Writer) drainErrors(errCh <-chan error) {
	for err := range errCh {
		w.logger.Warn("history write failed", "err", err)
	}
}

// Close flushes pending points and shuts the client down.
func (w *Writer) Close() {
	if w.client == nil {
		return
	}
	w.writeAPI.Flush()
	w.client.Close()
}

// Publish implements the hub sink: one point per known numeric value of
// a settled refresh. Failed refreshes write nothing.
func (w *Writer) Publish(instance model.Instance, projection *entity.Projection, outcome integration.Outcome) {
	if outcome.State != integration.StateHealthy {
		return
	}
	now := time.Now()
	for _, value := range projection.Values() {
		if value.Type != entity.TypeFloat || !value.Known {
			continue
		}
		point := influxdb2.NewPoint(
			measurement,
			map[string]string{
				"service":  instance.Service,
				"instance": instance.ID,
				"sensor":   value.Key,
			},
			map[string]any{"value": value.Float},
			now,
		)
		w.writeAPI.WritePoint(point)
	}
}

// Package ha talks to the Home Assistant core API: it pushes sensor
// states over REST after every settled refresh and watches the event bus
// for manual refresh requests.
package ha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

// Pusher publishes projection values as Home Assistant entity states.
// It implements the hub sink contract; push failures are logged, never
// propagated into coordinator state.
type Pusher struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewPusher(baseURL, token string, logger *slog.Logger) *Pusher {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://supervisor/core"
	}
	return &Pusher{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type stateBody struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Publish posts one state per sensor. While degraded the last known
// values keep flowing with a staleness attribute; a failed instance
// reports every entity as unavailable.
func (p *Pusher) Publish(instance model.Instance, projection *entity.Projection, outcome integration.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	available := projection.Available()
	for _, value := range projection.Values() {
		state := value.State
		if !available || !value.Known {
			state = entity.Unknown
		}
		attributes := map[string]any{
			"friendly_name": instance.Name + " " + value.Name,
			"service":       instance.Service,
			"instance_id":   instance.ID,
		}
		if value.Unit != "" {
			attributes["unit_of_measurement"] = value.Unit
		}
		if outcome.State == integration.StateDegraded {
			attributes["stale"] = true
			attributes["last_error"] = outcome.Message
		}

		if err := p.setState(ctx, EntityID(instance, value.Key), stateBody{State: state, Attributes: attributes}); err != nil {
			p.logger.Warn("state push failed", "instance", instance.ID, "sensor", value.Key, "err", err)
			return
		}
	}
}

func (p *Pusher) setState(ctx context.Context, entityID string, body stateBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/states/"+entityID, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("state push status %d: %s", resp.StatusCode, string(excerpt))
	}
	return nil
}

// EntityID derives the stable Home Assistant entity id for one sensor
// of one instance.
func EntityID(instance model.Instance, sensorKey string) string {
	id := instance.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "sensor.korea_" + instance.Service + "_" + strings.ReplaceAll(id, "-", "") + "_" + sensorKey
}

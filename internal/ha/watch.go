package ha

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// RefreshEvent is the event type an automation fires to request an
// out-of-cycle refresh; event data names the instance by id.
const RefreshEvent = "korea_connect_refresh"

const readDeadline = 120 * time.Second

// Watcher subscribes to the Home Assistant event bus and invokes the
// callback for every refresh-request event. Reconnects with capped
// backoff until the context ends.
type Watcher struct {
	baseURL string
	token   string
	logger  *slog.Logger
}

func NewWatcher(baseURL, token string, logger *slog.Logger) *Watcher {
	return &Watcher{baseURL: strings.TrimSuffix(baseURL, "/"), token: token, logger: logger}
}

func (w *Watcher) Run(ctx context.Context, onRefresh func(instanceID string)) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := w.runSession(ctx, onRefresh)
		if err != nil && ctx.Err() == nil {
			w.logger.Warn("event watcher disconnected", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 20*time.Second {
			backoff *= 2
		}
	}
}

func (w *Watcher) runSession(ctx context.Context, onRefresh func(instanceID string)) error {
	wsURL, err := toWebsocketURL(w.baseURL + "/api/websocket")
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	if !strings.Contains(string(msg), "auth_required") {
		return nil
	}

	if err := conn.WriteJSON(map[string]any{"type": "auth", "access_token": w.token}); err != nil {
		return err
	}
	_, msg, err = conn.ReadMessage()
	if err != nil {
		return err
	}
	if !strings.Contains(string(msg), "auth_ok") {
		return nil
	}

	subscribe := map[string]any{"id": 1, "type": "subscribe_events", "event_type": RefreshEvent}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if instanceID, ok := refreshEventInstance(msg); ok {
			onRefresh(instanceID)
		}
	}
}

// refreshEventInstance extracts the instance id from a refresh event.
// An empty instance id means "refresh everything" and is passed through.
func refreshEventInstance(body []byte) (string, bool) {
	var envelope struct {
		Type  string `json:"type"`
		Event struct {
			EventType string `json:"event_type"`
			Data      struct {
				InstanceID string `json:"instance_id"`
			} `json:"data"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	if envelope.Type != "event" || envelope.Event.EventType != RefreshEvent {
		return "", false
	}
	return envelope.Event.Data.InstanceID, true
}

func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

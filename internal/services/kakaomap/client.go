// Package kakaomap integrates the KakaoMap public-transit router. The
// route endpoint is unauthenticated, so Login is a no-op; each fetch
// requests the configured origin/destination pair for right now and
// summarizes the recommended route for the sensors.
package kakaomap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/kparse"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	ServiceID = "kakaomap"

	baseURL = "https://map.kakao.com"
)

const DefaultInterval = time.Minute

type Client struct {
	session *integration.Session
	creds   model.Credentials
	logger  *slog.Logger
	baseURL string

	nowFn func() time.Time
}

func NewClient(session *integration.Session, creds model.Credentials, logger *slog.Logger) *Client {
	return &Client{session: session, creds: creds, logger: logger, baseURL: baseURL, nowFn: func() time.Time { return time.Now().In(kparse.Seoul) }}
}

// Login validates the configured coordinates; there is no remote
// handshake.
func (c *Client) Login(ctx context.Context) error {
	_, _, _, _, err := c.routeCoords()
	if err != nil {
		return integration.SetupErr(ServiceID, err)
	}
	return nil
}

type routeResponse struct {
	InLocal struct {
		Routes []struct {
			Time struct {
				Value float64 `json:"value"`
			} `json:"time"`
			Fare struct {
				Value float64 `json:"value"`
			} `json:"fare"`
			Transfers   int  `json:"transfers"`
			Recommended bool `json:"recommended"`
		} `json:"routes"`
	} `json:"in_local"`
}

// Fetch requests the transit route and records the raw document plus a
// summary of the recommended (or first) route.
func (c *Client) Fetch(ctx context.Context) (model.Record, error) {
	sx, sy, ex, ey, err := c.routeCoords()
	if err != nil {
		return model.Record{}, integration.SetupErr(ServiceID, err)
	}

	query := url.Values{}
	query.Set("inputCoordSystem", "WCONGNAMUL")
	query.Set("outputCoordSystem", "WCONGNAMUL")
	query.Set("sX", strconv.Itoa(int(sx)))
	query.Set("sY", strconv.Itoa(int(sy)))
	query.Set("eX", strconv.Itoa(int(ex)))
	query.Set("eY", strconv.Itoa(int(ey)))
	query.Set("startAt", c.nowFn().Format("200601021504")+"0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/route/pubtrans.json?"+query.Encode(), nil)
	if err != nil {
		return model.Record{}, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return model.Record{}, err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := integration.DecodeJSON(ServiceID, resp.Body, &raw); err != nil {
		return model.Record{}, err
	}

	var parsed routeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return model.Record{}, integration.ParseErr(ServiceID, err)
	}
	routes := parsed.InLocal.Routes
	if len(routes) == 0 {
		return model.Record{}, integration.ParseErr(ServiceID, fmt.Errorf("no routes in response"))
	}

	best := routes[0]
	for _, route := range routes {
		if route.Recommended {
			best = route
			break
		}
	}

	return model.NewRecord(map[string]any{
		"route": raw,
		"summary": map[string]any{
			"duration_min": int(best.Time.Value / 60),
			"fare":         best.Fare.Value,
			"transfers":    best.Transfers,
			"route_count":  len(routes),
			"fetched_at":   c.nowFn().Format(time.RFC3339),
		},
	})
}

// routeCoords resolves the configured endpoints into WCONGNAMUL,
// projecting from WGS84 when the instance is configured that way.
func (c *Client) routeCoords() (sx, sy, ex, ey float64, err error) {
	sx, err = parseCoord(c.creds.Get("start_x"))
	if err == nil {
		sy, err = parseCoord(c.creds.Get("start_y"))
	}
	if err == nil {
		ex, err = parseCoord(c.creds.Get("end_x"))
	}
	if err == nil {
		ey, err = parseCoord(c.creds.Get("end_y"))
	}
	if err != nil {
		return 0, 0, 0, 0, err
	}

	if c.creds.Get("coord_system") == "WGS84" {
		sx, sy = WGS84ToWCongnamul(sx, sy)
		ex, ey = WGS84ToWCongnamul(ex, ey)
	}
	return sx, sy, ex, ey, nil
}

func parseCoord(raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q", raw)
	}
	return value, nil
}

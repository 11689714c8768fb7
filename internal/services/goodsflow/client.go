// Package goodsflow integrates the GoodsFlow parcel tracker. Auth is a
// long-lived cookie token; Fetch lists active shipments and summarizes
// them by delivery status, since the raw rows are what the courier app
// shows and the sensors only need counts.
package goodsflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	ServiceID = "goodsflow"

	baseURL = "https://ptk.goodsflow.com/ptk/rest"
)

const DefaultInterval = 15 * time.Minute

// Korean status strings the tracker reports per parcel.
var (
	activeStatuses    = map[string]bool{"배송중": true, "상품준비중": true, "배송준비중": true}
	deliveredStatuses = map[string]bool{"배송완료": true, "수령완료": true}
)

type Client struct {
	session *integration.Session
	creds   model.Credentials
	logger  *slog.Logger
	baseURL string
}

func NewClient(session *integration.Session, creds model.Credentials, logger *slog.Logger) *Client {
	return &Client{session: session, creds: creds, logger: logger, baseURL: baseURL}
}

type trackingResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TransList struct {
			TotalCount int               `json:"totalCount"`
			Rows       []json.RawMessage `json:"rows"`
		} `json:"transList"`
	} `json:"data"`
}

type trackingRow struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

// Login validates the cookie token with a minimal list request.
func (c *Client) Login(ctx context.Context) error {
	if c.creds.Get("token") == "" {
		return integration.AuthErr(ServiceID, fmt.Errorf("token is required"))
	}
	_, err := c.fetchList(ctx)
	return err
}

// Fetch lists shipments and records both the raw rows and the computed
// status summary the sensors project.
func (c *Client) Fetch(ctx context.Context) (model.Record, error) {
	parsed, err := c.fetchList(ctx)
	if err != nil {
		return model.Record{}, err
	}

	active, delivered := 0, 0
	latest := ""
	for _, raw := range parsed.Data.TransList.Rows {
		var row trackingRow
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		if latest == "" && row.Status != "" {
			latest = row.Status
		}
		switch {
		case activeStatuses[row.Status]:
			active++
		case deliveredStatuses[row.Status]:
			delivered++
		}
	}

	return model.NewRecord(map[string]any{
		"packages": parsed.Data.TransList.Rows,
		"summary": map[string]any{
			"total_packages":     parsed.Data.TransList.TotalCount,
			"active_packages":    active,
			"delivered_packages": delivered,
			"latest_status":      latest,
		},
	})
}

func (c *Client) fetchList(ctx context.Context) (*trackingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/trans/trace/list/v3?limit=10&start=0&type=ALL", nil)
	if err != nil {
		return nil, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Cookie", "PTK-TOKEN="+c.creds.Get("token"))

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed trackingResponse
	if err := integration.DecodeJSON(ServiceID, resp.Body, &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success {
		return nil, integration.AuthErr(ServiceID, fmt.Errorf("tracker rejected the token"))
	}
	return &parsed, nil
}

// Package gasapp integrates the GasApp city-gas service. Auth is a set
// of static headers issued to the mobile app; there is no handshake, so
// Login just proves the headers are still accepted.
package gasapp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	ServiceID = "gasapp"

	baseURL = "https://app.gasapp.co.kr/api"
)

const DefaultInterval = time.Hour

type Client struct {
	session *integration.Session
	creds   model.Credentials
	logger  *slog.Logger
	baseURL string
}

func NewClient(session *integration.Session, creds model.Credentials, logger *slog.Logger) *Client {
	return &Client{session: session, creds: creds, logger: logger, baseURL: baseURL}
}

// Login validates the static token by requesting the home document and
// discarding it. Re-validation is cheap, so repeated calls are fine.
func (c *Client) Login(ctx context.Context) error {
	if c.creds.Get("token") == "" || c.creds.Get("member_id") == "" {
		return integration.AuthErr(ServiceID, fmt.Errorf("token and member_id are required"))
	}
	_, err := c.fetchHome(ctx)
	return err
}

// Fetch pulls the home dashboard, which carries the current bill card
// and its payment history.
func (c *Client) Fetch(ctx context.Context) (model.Record, error) {
	home, err := c.fetchHome(ctx)
	if err != nil {
		return model.Record{}, err
	}
	return model.NewRecord(map[string]json.RawMessage{"home": home})
}

func (c *Client) fetchHome(ctx context.Context) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("useContractNum", c.creds.Get("use_contract_num"))
	query.Set("customerNum", "")
	query.Set("amiYn", "N")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/home?"+query.Encode(), nil)
	if err != nil {
		return nil, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("X-Token", c.creds.Get("token"))
	req.Header.Set("X-Member", c.creds.Get("member_id"))
	req.Header.Set("X-Company", "1")
	req.Header.Set("X-Version", "4.2.5.24144")

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc json.RawMessage
	if err := integration.DecodeJSON(ServiceID, resp.Body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

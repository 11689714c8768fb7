// Package arisu integrates the Seoul water-works billing lookup. The
// lookup posts the customer identification as a form and returns the
// current billing document.
package arisu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	ServiceID = "arisu"

	baseURL = "https://arisu.seoul.go.kr"
)

const DefaultInterval = 30 * time.Minute

type Client struct {
	session *integration.Session
	creds   model.Credentials
	logger  *slog.Logger
	baseURL string
}

func NewClient(session *integration.Session, creds model.Credentials, logger *slog.Logger) *Client {
	return &Client{session: session, creds: creds, logger: logger, baseURL: baseURL}
}

// Login checks the customer identification; the billing lookup carries
// it on every request instead of holding server-side session state.
func (c *Client) Login(ctx context.Context) error {
	if c.creds.Get("customer_number") == "" || c.creds.Get("customer_name") == "" {
		return integration.AuthErr(ServiceID, fmt.Errorf("customer_number and customer_name are required"))
	}
	return nil
}

// Fetch posts the billing lookup and records the returned document.
func (c *Client) Fetch(ctx context.Context) (model.Record, error) {
	form := url.Values{}
	form.Set("customer_number", c.creds.Get("customer_number"))
	form.Set("customer_name", c.creds.Get("customer_name"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/billing", strings.NewReader(form.Encode()))
	if err != nil {
		return model.Record{}, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return model.Record{}, err
	}
	defer resp.Body.Close()

	var billing json.RawMessage
	if err := integration.DecodeJSON(ServiceID, resp.Body, &billing); err != nil {
		return model.Record{}, err
	}
	return model.NewRecord(map[string]json.RawMessage{"billing": billing})
}

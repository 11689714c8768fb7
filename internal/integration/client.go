package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/micro-ha/korea-connect/internal/model"
)

// Client is the capability a service integration implements. Login performs
// the remote handshake and must be idempotent; Fetch requires a prior
// successful Login and returns one parsed record. Auth expiry mid-stream is
// reported as an auth-classified error and retried by the coordinator, never
// by the client itself.
type Client interface {
	Login(ctx context.Context) error
	Fetch(ctx context.Context) (model.Record, error)
}

const bodyExcerptLimit = 256

// CheckStatus maps an HTTP response status into the failure taxonomy.
// Returns nil for statuses below 400. The body is consumed only on failure,
// and only up to an excerpt.
func CheckStatus(service string, resp *http.Response) error {
	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return AuthErr(service, fmt.Errorf("status %d: %s", resp.StatusCode, bodyExcerpt(resp.Body)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return RateLimitedErr(service, retryAfter(resp), fmt.Errorf("status %d", resp.StatusCode))
	default:
		return ConnectionErr(service, fmt.Errorf("status %d: %s", resp.StatusCode, bodyExcerpt(resp.Body)))
	}
}

// DecodeJSON decodes a response body, classifying malformed payloads as
// parse failures.
func DecodeJSON(service string, body io.Reader, out any) error {
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return ParseErr(service, err)
	}
	return nil
}

// Do sends the request through the session and classifies transport and
// status failures. Callers own the body on success.
func Do(service string, session *Session, req *http.Request) (*http.Response, error) {
	resp, err := session.HTTPClient().Do(req)
	if err != nil {
		return nil, Classify(service, err)
	}
	if err := CheckStatus(service, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func bodyExcerpt(body io.Reader) string {
	excerpt, _ := io.ReadAll(io.LimitReader(body, bodyExcerptLimit))
	return string(excerpt)
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

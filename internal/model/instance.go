package model

import (
	"fmt"
	"strings"
	"time"
)

const minRefreshInterval = 30 * time.Second

// Credentials carries per-service auth fields keyed by the field names a
// service descriptor declares. Values are opaque to everything except the
// service client; they must never appear unmasked in logs.
type Credentials map[string]string

func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c[key])
}

// Instance is one configured connection to one external service.
type Instance struct {
	ID          string      `json:"id"`
	Service     string      `json:"service"`
	Name        string      `json:"name"`
	Credentials Credentials `json:"credentials"`
	IntervalSec int         `json:"interval_sec"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Interval returns the refresh cadence with a safety floor so a bad config
// value cannot hammer a remote service.
func (i Instance) Interval() time.Duration {
	interval := time.Duration(i.IntervalSec) * time.Second
	if interval < minRefreshInterval {
		return minRefreshInterval
	}
	return interval
}

// Validate checks the fields the store and hub rely on. Credential field
// completeness is the registry's concern, not the model's.
func (i Instance) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("instance: empty id")
	}
	if strings.TrimSpace(i.Service) == "" {
		return fmt.Errorf("instance: empty service")
	}
	return nil
}

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one successfully parsed fetch result: a JSON document whose
// fields the service's sensor definitions address by path.
type Record struct {
	Data []byte
}

// NewRecord marshals a service-shaped value into a Record document.
func NewRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}
	return Record{Data: data}, nil
}

// Snapshot is the last successfully fetched Record plus its fetch time.
// A snapshot is immutable once stored: refreshes replace it wholesale or
// leave it untouched.
type Snapshot struct {
	Data      []byte
	FetchedAt time.Time
}

func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

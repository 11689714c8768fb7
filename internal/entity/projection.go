// Package entity projects a coordinator's cached snapshot into typed
// read-only sensor values for the host's entity system. It never triggers
// a refresh; availability follows the coordinator state.
package entity

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/kparse"
	"github.com/micro-ha/korea-connect/internal/model"
)

// Type declares the value shape of one sensor. It is fixed per sensor
// definition and never changes between refreshes.
type Type string

const (
	TypeString    Type = "string"
	TypeFloat     Type = "float"
	TypeTimestamp Type = "timestamp"
	TypeState     Type = "state"
)

// Unknown is the value reported when no snapshot exists or a path does
// not resolve. Reading a missing field is never an error.
const Unknown = "unknown"

// Sensor defines one projected field: a dot path into the snapshot
// document plus the declared value type and optional unit.
type Sensor struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type Type   `json:"type"`
	Unit string `json:"unit,omitempty"`
}

// Value is one resolved sensor reading. Known is false when the snapshot
// is absent or the path yields nothing; State then holds Unknown.
type Value struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Type      Type       `json:"type"`
	Unit      string     `json:"unit,omitempty"`
	State     string     `json:"state"`
	Float     float64    `json:"float,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Known     bool       `json:"known"`
}

// Projection is a read-only view over one coordinator's snapshot.
type Projection struct {
	coord   *integration.Coordinator
	sensors []Sensor

	nowFn func() time.Time
}

func New(coord *integration.Coordinator, sensors []Sensor) *Projection {
	return &Projection{coord: coord, sensors: sensors, nowFn: time.Now}
}

// Available reports whether entities should be shown at all: true while
// the coordinator is healthy or serving stale data, false before the
// first success or after it has failed with nothing cached.
func (p *Projection) Available() bool {
	switch p.coord.State() {
	case integration.StateHealthy, integration.StateDegraded:
		return true
	default:
		return false
	}
}

// Sensors returns the sensor definitions this projection serves.
func (p *Projection) Sensors() []Sensor {
	return p.sensors
}

// Values resolves every sensor against the current snapshot. The snapshot
// is replaced wholesale by refreshes, so one call observes one document.
func (p *Projection) Values() []Value {
	snapshot := p.coord.Snapshot()
	values := make([]Value, 0, len(p.sensors))
	for _, sensor := range p.sensors {
		values = append(values, resolve(sensor, snapshot, p.nowFn()))
	}
	return values
}

// Value resolves a single sensor by key. Unknown keys resolve like
// missing paths.
func (p *Projection) Value(key string) Value {
	snapshot := p.coord.Snapshot()
	for _, sensor := range p.sensors {
		if sensor.Key == key {
			return resolve(sensor, snapshot, p.nowFn())
		}
	}
	return Value{Key: key, State: Unknown}
}

func resolve(sensor Sensor, snapshot *model.Snapshot, now time.Time) Value {
	value := Value{
		Key:   sensor.Key,
		Name:  sensor.Name,
		Type:  sensor.Type,
		Unit:  sensor.Unit,
		State: Unknown,
	}
	if snapshot == nil {
		return value
	}

	result := gjson.GetBytes(snapshot.Data, sensor.Path)
	if !result.Exists() || result.Type == gjson.Null {
		return value
	}

	switch sensor.Type {
	case TypeFloat:
		switch result.Type {
		case gjson.Number:
			value.Float = result.Num
		default:
			parsed, ok := kparse.Number(result.String())
			if !ok {
				return value
			}
			value.Float = parsed
		}
		value.State = result.String()
		value.Known = true
	case TypeTimestamp:
		ts, ok := kparse.Date(result.String(), now)
		if !ok {
			return value
		}
		value.Timestamp = &ts
		value.State = ts.Format(time.RFC3339)
		value.Known = true
	default:
		text := result.String()
		if text == "" {
			return value
		}
		value.State = text
		value.Known = true
	}
	return value
}

// Package registry holds the capability descriptors for every supported
// service. The hub, config validation and the HTTP API iterate descriptors
// generically instead of branching per service name.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

// CredentialField declares one auth field a service requires from the
// config input. Secret fields are masked in any diagnostic output.
type CredentialField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Secret   bool   `json:"secret"`
	Optional bool   `json:"optional,omitempty"`
}

// Descriptor is the capability record one service registers: credential
// schema, client constructor, sensor definitions and refresh defaults.
type Descriptor struct {
	ID               string
	Name             string
	DefaultInterval  time.Duration
	CredentialFields []CredentialField
	// LegacyTLS requests a session that tolerates the weak TLS
	// configurations some government endpoints still serve.
	LegacyTLS bool
	NewClient func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client
	Sensors   []entity.Sensor
}

// ValidateCredentials checks that every required field is present.
func (d Descriptor) ValidateCredentials(creds model.Credentials) error {
	for _, field := range d.CredentialFields {
		if field.Optional {
			continue
		}
		if creds.Get(field.Key) == "" {
			return fmt.Errorf("%s: missing credential field %q", d.ID, field.Key)
		}
	}
	return nil
}

// Registry is a concurrency-safe descriptor index.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Descriptor
}

func New() *Registry {
	return &Registry{byID: map[string]Descriptor{}}
}

// Register adds a descriptor. Duplicate or incomplete descriptors are
// rejected: every service needs an id, a client constructor and at least
// one sensor to project.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("registry: descriptor without id")
	}
	if d.NewClient == nil {
		return fmt.Errorf("registry: %s has no client constructor", d.ID)
	}
	if len(d.Sensors) == 0 {
		return fmt.Errorf("registry: %s declares no sensors", d.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[d.ID]; exists {
		return fmt.Errorf("registry: %s already registered", d.ID)
	}
	r.byID[d.ID] = d
	return nil
}

// Lookup returns the descriptor for a service id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// All returns every descriptor sorted by id.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

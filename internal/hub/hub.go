// Package hub hosts integration instances: it builds the session, client
// and coordinator for each configured instance, probes the configuration
// once synchronously, and runs the per-instance refresh loop. Failing
// instances are isolated; one stalled service never delays another.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
	"github.com/micro-ha/korea-connect/internal/registry"
)

// Sink receives every settled refresh outcome. Implementations push
// state to Home Assistant, MQTT or a history store; failures there never
// touch coordinator state.
type Sink interface {
	Publish(instance model.Instance, projection *entity.Projection, outcome integration.Outcome)
}

// Runtime is one live instance: its coordinator plus the projection the
// entity surfaces read.
type Runtime struct {
	Instance    model.Instance
	Descriptor  registry.Descriptor
	Coordinator *integration.Coordinator
	Projection  *entity.Projection

	runner *runner
	cancel context.CancelFunc
}

// TriggerRefresh requests an out-of-cycle refresh. Non-blocking;
// concurrent triggers coalesce in the coordinator.
func (rt *Runtime) TriggerRefresh() {
	rt.runner.TriggerRefresh()
}

type Hub struct {
	registry *registry.Registry
	logger   *slog.Logger
	sinks    []Sink

	mu        sync.Mutex
	instances map[string]*Runtime
}

func New(reg *registry.Registry, logger *slog.Logger, sinks ...Sink) *Hub {
	return &Hub{
		registry:  reg,
		logger:    logger,
		sinks:     sinks,
		instances: map[string]*Runtime{},
	}
}

// Setup validates and starts one instance: session, client, coordinator,
// a synchronous login+fetch probe, then the refresh loop. A failed probe
// tears everything down and reports a setup-classified error, so a bad
// configuration surfaces immediately instead of on the first cycle.
func (h *Hub) Setup(ctx context.Context, instance model.Instance) error {
	desc, ok := h.registry.Lookup(instance.Service)
	if !ok {
		return integration.SetupErr(instance.Service, fmt.Errorf("unknown service %q", instance.Service))
	}
	if err := desc.ValidateCredentials(instance.Credentials); err != nil {
		return integration.SetupErr(instance.Service, err)
	}

	h.mu.Lock()
	if _, exists := h.instances[instance.ID]; exists {
		h.mu.Unlock()
		return integration.SetupErr(instance.Service, fmt.Errorf("instance %s already running", instance.ID))
	}
	h.mu.Unlock()

	session, err := integration.NewSession(integration.SessionOptions{LegacyTLS: desc.LegacyTLS})
	if err != nil {
		return integration.SetupErr(instance.Service, err)
	}

	logger := h.logger.With("service", instance.Service, "instance", instance.ID)
	client := desc.NewClient(session, instance.Credentials, logger)
	coordinator := integration.NewCoordinator(integration.CoordinatorOptions{
		Service:  instance.Service,
		Instance: instance.ID,
		Client:   client,
		Session:  session,
		Interval: instance.Interval(),
		Logger:   logger,
	})

	if err := coordinator.Probe(ctx); err != nil {
		coordinator.Close()
		return err
	}

	projection := entity.New(coordinator, desc.Sensors)
	runCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		Instance:    instance,
		Descriptor:  desc,
		Coordinator: coordinator,
		Projection:  projection,
		cancel:      cancel,
	}
	rt.runner = newRunner(coordinator, instance.Interval(), logger, func(outcome integration.Outcome) {
		h.notify(instance, projection, outcome)
	})

	h.mu.Lock()
	h.instances[instance.ID] = rt
	h.mu.Unlock()

	// The probe already produced the first outcome; publish it so the
	// entity surfaces reflect the instance right away.
	h.notify(instance, projection, coordinator.LastOutcome())

	go rt.runner.Run(runCtx)
	logger.Info("instance started", "interval", instance.Interval().String())
	return nil
}

// Teardown stops an instance and releases its session. Idempotent:
// unknown ids are a no-op, matching teardown after a failed setup.
func (h *Hub) Teardown(id string) {
	h.mu.Lock()
	rt, ok := h.instances[id]
	if ok {
		delete(h.instances, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	rt.cancel()
	rt.Coordinator.Close()
	h.logger.Info("instance stopped", "instance", id)
}

// Instance returns the runtime for one instance id.
func (h *Hub) Instance(id string) (*Runtime, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rt, ok := h.instances[id]
	return rt, ok
}

// List returns all running instances sorted by id.
func (h *Hub) List() []*Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Runtime, 0, len(h.instances))
	for _, rt := range h.instances {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance.ID < out[j].Instance.ID })
	return out
}

// Close tears down every instance.
func (h *Hub) Close() {
	for _, rt := range h.List() {
		h.Teardown(rt.Instance.ID)
	}
}

func (h *Hub) notify(instance model.Instance, projection *entity.Projection, outcome integration.Outcome) {
	for _, sink := range h.sinks {
		sink.Publish(instance, projection, outcome)
	}
}

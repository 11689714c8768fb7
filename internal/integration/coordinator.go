package integration

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/micro-ha/korea-connect/internal/model"
)

// State is the coordinator lifecycle: uninitialized until the first
// refresh, refreshing while one is in flight, then healthy, degraded
// (last refresh failed but stale data exists) or failed (no data ever).
// No state is terminal; a later success always recovers to healthy.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRefreshing    State = "refreshing"
	StateHealthy       State = "healthy"
	StateDegraded      State = "degraded"
	StateFailed        State = "failed"
)

const (
	defaultInterval    = 5 * time.Minute
	defaultStaleFactor = 3
)

// Outcome is the uniform refresh result. The same shape is reported for
// all services so the host renders one consistent failure surface.
type Outcome struct {
	State          State  `json:"state"`
	Kind           Kind   `json:"kind,omitempty"`
	Message        string `json:"message,omitempty"`
	StaleAvailable bool   `json:"stale_available"`
}

// CoordinatorOptions configures one service coordinator.
type CoordinatorOptions struct {
	Service     string
	Instance    string
	Client      Client
	Session     *Session
	Interval    time.Duration
	StaleFactor int
	Logger      *slog.Logger
}

// Coordinator orchestrates one service instance's refresh cycle and owns
// its authoritative state and snapshot. Concurrent refresh triggers share
// one in-flight fetch; failures are classified into the closed taxonomy;
// the last good snapshot survives failed refreshes untouched.
type Coordinator struct {
	service     string
	instance    string
	client      Client
	session     *Session
	interval    time.Duration
	staleFactor int
	logger      *slog.Logger

	lifeCtx context.Context
	cancel  context.CancelFunc
	group   singleflight.Group

	mu        sync.Mutex
	state     State
	snapshot  *model.Snapshot
	outcome   Outcome
	notBefore time.Time
	loggedIn  bool
	closed    bool

	nowFn func() time.Time
}

func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	staleFactor := opts.StaleFactor
	if staleFactor <= 0 {
		staleFactor = defaultStaleFactor
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		service:     opts.Service,
		instance:    opts.Instance,
		client:      opts.Client,
		session:     opts.Session,
		interval:    interval,
		staleFactor: staleFactor,
		logger:      logger,
		lifeCtx:     ctx,
		cancel:      cancel,
		state:       StateUninitialized,
		outcome:     Outcome{State: StateUninitialized},
		nowFn:       time.Now,
	}
}

// Refresh runs one refresh cycle and returns its outcome. Triggers that
// arrive while a refresh is in flight coalesce onto it and share its
// result. Triggers inside a rate-limit window return the last outcome
// without touching the network, no matter how often the scheduler fires.
func (c *Coordinator) Refresh(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.closed {
		outcome := c.outcome
		c.mu.Unlock()
		return outcome
	}
	if !c.notBefore.IsZero() && c.nowFn().Before(c.notBefore) {
		outcome := c.outcome
		notBefore := c.notBefore
		c.mu.Unlock()
		c.logger.Debug("refresh gated by rate limit",
			"service", c.service, "instance", c.instance, "not_before", notBefore)
		return outcome
	}
	c.mu.Unlock()

	result, _, _ := c.group.Do("refresh", func() (any, error) {
		return c.doRefresh(), nil
	})
	outcome, _ := result.(Outcome)
	return outcome
}

// Probe runs one synchronous refresh and reports a setup failure unless it
// lands healthy. Used to validate configuration before an instance is
// accepted.
func (c *Coordinator) Probe(ctx context.Context) error {
	outcome := c.Refresh(ctx)
	if outcome.State != StateHealthy {
		return SetupErr(c.service, errors.New(outcome.Message))
	}
	return nil
}

func (c *Coordinator) doRefresh() Outcome {
	c.setState(StateRefreshing)

	// Network I/O runs under the coordinator's lifetime context, so
	// teardown aborts an in-flight refresh regardless of which trigger
	// started it.
	record, err := c.attempt(c.lifeCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		// Teardown raced the fetch. Discard the result: nothing is
		// written after the session is released.
		return c.outcome
	}

	now := c.nowFn()
	if err == nil {
		c.snapshot = &model.Snapshot{Data: record.Data, FetchedAt: now}
		c.state = StateHealthy
		c.notBefore = time.Time{}
		c.outcome = Outcome{State: StateHealthy, StaleAvailable: true}
		c.logger.Debug("refresh succeeded", "service", c.service, "instance", c.instance)
		return c.outcome
	}

	serviceErr := Classify(c.service, err)
	if serviceErr.Kind == KindRateLimited {
		delay := serviceErr.RetryAfter
		if delay <= 0 {
			delay = c.interval
		}
		c.notBefore = now.Add(delay)
	}

	state := StateFailed
	if c.snapshot != nil {
		state = StateDegraded
	}
	c.state = state
	c.outcome = Outcome{
		State:          state,
		Kind:           serviceErr.Kind,
		Message:        serviceErr.Error(),
		StaleAvailable: c.snapshot != nil,
	}
	c.logger.Warn("refresh failed",
		"service", c.service,
		"instance", c.instance,
		"kind", string(serviceErr.Kind),
		"error", serviceErr.Error(),
		"stale_available", c.snapshot != nil)
	return c.outcome
}

// attempt performs login-if-needed plus fetch, with exactly one re-login
// when the fetch reports expired auth. Any further failure is final for
// this cycle; the scheduler cadence is the retry mechanism.
func (c *Coordinator) attempt(ctx context.Context) (model.Record, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return model.Record{}, err
	}

	record, err := c.client.Fetch(ctx)
	if err == nil {
		return record, nil
	}
	if !IsKind(err, KindAuth) {
		return model.Record{}, err
	}

	c.setLoggedIn(false)
	if loginErr := c.ensureLogin(ctx); loginErr != nil {
		return model.Record{}, loginErr
	}
	return c.client.Fetch(ctx)
}

func (c *Coordinator) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	loggedIn := c.loggedIn
	c.mu.Unlock()
	if loggedIn {
		return nil
	}
	if err := c.client.Login(ctx); err != nil {
		return err
	}
	c.setLoggedIn(true)
	return nil
}

// State returns the current lifecycle state. A healthy snapshot older than
// interval times the stale factor reads as degraded, so healthy always
// implies fresh data.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateHealthy && c.snapshot != nil {
		if c.nowFn().Sub(c.snapshot.FetchedAt) > c.interval*time.Duration(c.staleFactor) {
			return StateDegraded
		}
	}
	return c.state
}

// Snapshot returns the last good snapshot, or nil before the first
// success. Snapshots are replaced wholesale, never mutated, so the
// returned value is stable.
func (c *Coordinator) Snapshot() *model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// LastOutcome returns the most recent settled refresh outcome.
func (c *Coordinator) LastOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

func (c *Coordinator) Service() string  { return c.service }
func (c *Coordinator) Instance() string { return c.instance }

func (c *Coordinator) Interval() time.Duration { return c.interval }

// Close cancels any in-flight refresh and releases the session. Idempotent
// and safe to call during a partially failed setup.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.session.Close()
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Coordinator) setLoggedIn(loggedIn bool) {
	c.mu.Lock()
	c.loggedIn = loggedIn
	c.mu.Unlock()
}

package entity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

type scriptedClient struct {
	records []model.Record
	errs    []error
	call    int
}

func (c *scriptedClient) Login(ctx context.Context) error { return nil }

func (c *scriptedClient) Fetch(ctx context.Context) (model.Record, error) {
	i := c.call
	c.call++
	if i < len(c.errs) && c.errs[i] != nil {
		return model.Record{}, c.errs[i]
	}
	if i >= len(c.records) {
		i = len(c.records) - 1
	}
	return c.records[i], nil
}

func newProjection(t *testing.T, client integration.Client, sensors []Sensor) (*Projection, *integration.Coordinator) {
	t.Helper()
	session, err := integration.NewSession(integration.SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	coordinator := integration.NewCoordinator(integration.CoordinatorOptions{
		Service:  "kepco",
		Instance: "test",
		Client:   client,
		Session:  session,
		Interval: time.Minute,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(coordinator.Close)
	return New(coordinator, sensors), coordinator
}

var usageSensors = []Sensor{
	{Key: "power_usage", Name: "Power Usage", Path: "recent_usage.result.F_AP_QT", Type: TypeFloat, Unit: "kWh"},
	{Key: "customer_name", Name: "Customer Name", Path: "usage_info.SESS_NAME", Type: TypeString},
	{Key: "billed_at", Name: "Billed At", Path: "usage_info.result.BILL_YM", Type: TypeTimestamp},
}

const usageDoc = `{
	"recent_usage": {"result": {"F_AP_QT": 120}},
	"usage_info": {"SESS_NAME": "홍길동", "result": {"BILL_YM": "202508"}}
}`

func TestValuesUnknownBeforeFirstSnapshot(t *testing.T) {
	projection, _ := newProjection(t, &scriptedClient{records: []model.Record{{Data: []byte(usageDoc)}}}, usageSensors)

	if projection.Available() {
		t.Fatalf("projection must be unavailable before the first refresh")
	}
	for _, value := range projection.Values() {
		if value.Known || value.State != Unknown {
			t.Fatalf("sensor %s must read unknown before data exists, got %+v", value.Key, value)
		}
	}
}

func TestValuesResolveTypedFields(t *testing.T) {
	projection, coordinator := newProjection(t, &scriptedClient{records: []model.Record{{Data: []byte(usageDoc)}}}, usageSensors)
	if outcome := coordinator.Refresh(context.Background()); outcome.State != integration.StateHealthy {
		t.Fatalf("refresh did not land healthy: %+v", outcome)
	}
	if !projection.Available() {
		t.Fatalf("projection must be available after a successful refresh")
	}

	usage := projection.Value("power_usage")
	if !usage.Known || usage.Float != 120 {
		t.Fatalf("expected power_usage 120, got %+v", usage)
	}
	if usage.Unit != "kWh" {
		t.Fatalf("unit must carry through, got %q", usage.Unit)
	}

	name := projection.Value("customer_name")
	if !name.Known || name.State != "홍길동" {
		t.Fatalf("unexpected customer_name: %+v", name)
	}

	billed := projection.Value("billed_at")
	if !billed.Known || billed.Timestamp == nil {
		t.Fatalf("expected parsed timestamp, got %+v", billed)
	}
	if billed.Timestamp.Year() != 2025 || billed.Timestamp.Month() != time.August {
		t.Fatalf("unexpected billing period: %v", billed.Timestamp)
	}
}

func TestMissingPathResolvesUnknownWithoutError(t *testing.T) {
	sensors := append(usageSensors, Sensor{Key: "absent", Name: "Absent", Path: "nowhere.at.all", Type: TypeString})
	projection, coordinator := newProjection(t, &scriptedClient{records: []model.Record{{Data: []byte(usageDoc)}}}, sensors)
	coordinator.Refresh(context.Background())

	absent := projection.Value("absent")
	if absent.Known || absent.State != Unknown {
		t.Fatalf("missing path must read unknown, got %+v", absent)
	}
	if value := projection.Value("no-such-key"); value.Known || value.State != Unknown {
		t.Fatalf("unknown key must read unknown, got %+v", value)
	}
}

func TestStaleValuesRemainReadableWhileDegraded(t *testing.T) {
	client := &scriptedClient{
		records: []model.Record{{Data: []byte(usageDoc)}},
		errs:    []error{nil, integration.ConnectionErr("kepco", errors.New("connection refused"))},
	}
	projection, coordinator := newProjection(t, client, usageSensors)

	coordinator.Refresh(context.Background())
	if outcome := coordinator.Refresh(context.Background()); outcome.State != integration.StateDegraded {
		t.Fatalf("expected degraded after the failure, got %+v", outcome)
	}

	if !projection.Available() {
		t.Fatalf("stale data must keep the projection available")
	}
	if usage := projection.Value("power_usage"); !usage.Known || usage.Float != 120 {
		t.Fatalf("stale value must still resolve, got %+v", usage)
	}
}

func TestFloatFromFormattedKoreanString(t *testing.T) {
	doc := `{"home": {"cards": {"bill": {"requestAmt": "34,120원"}}}}`
	sensors := []Sensor{{Key: "bill", Name: "Bill", Path: "home.cards.bill.requestAmt", Type: TypeFloat, Unit: "KRW"}}
	projection, coordinator := newProjection(t, &scriptedClient{records: []model.Record{{Data: []byte(doc)}}}, sensors)
	coordinator.Refresh(context.Background())

	bill := projection.Value("bill")
	if !bill.Known || bill.Float != 34120 {
		t.Fatalf("formatted amount must parse, got %+v", bill)
	}
}

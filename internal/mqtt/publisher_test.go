package mqtt

import (
	"testing"

	"github.com/micro-ha/korea-connect/internal/config"
	"github.com/micro-ha/korea-connect/internal/model"
)

func TestTopicLayout(t *testing.T) {
	cfg := config.MQTTConfig{TopicPrefix: "korea_connect", DiscoveryPrefix: "homeassistant"}
	p := &Publisher{cfg: cfg}
	instance := model.Instance{ID: "11112222-3333-4444", Service: "kepco", Name: "Home Power"}

	if got := p.instanceTopic(instance); got != "korea_connect/kepco/11112222" {
		t.Fatalf("instanceTopic = %q", got)
	}
	if got := p.stateTopic(instance, "power_usage"); got != "korea_connect/kepco/11112222/power_usage" {
		t.Fatalf("stateTopic = %q", got)
	}
	if got := availabilityTopic(cfg); got != "korea_connect/availability" {
		t.Fatalf("availabilityTopic = %q", got)
	}
}

func TestShortIDKeepsSmallIDsIntact(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("11112222-3333"); got != "11112222" {
		t.Fatalf("shortID = %q", got)
	}
}

// Package mqtt publishes Home Assistant MQTT discovery configs and
// retained sensor states. Availability rides a last-will topic so a hub
// crash marks every entity unavailable.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/micro-ha/korea-connect/internal/config"
	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher is the optional MQTT sink. Discovery configs are published
// once per instance; states follow each settled refresh.
type Publisher struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	logger *slog.Logger

	mu         sync.Mutex
	discovered map[string]bool
}

// Connect dials the broker with auto-reconnect and an offline last will
// on the availability topic.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*Publisher, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetWill(availabilityTopic(cfg), "offline", 1, true)

	p := &Publisher{cfg: cfg, logger: logger, discovered: map[string]bool{}}
	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		client.Publish(availabilityTopic(cfg), 1, true, "online")
	})

	p.client = pahomqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return p, nil
}

// Close publishes a graceful offline status and disconnects.
func (p *Publisher) Close() {
	if p.client == nil {
		return
	}
	token := p.client.Publish(availabilityTopic(p.cfg), 1, true, "offline")
	token.WaitTimeout(publishTimeout)
	p.client.Disconnect(250)
}

// Publish implements the hub sink: discovery configs on first sight of
// an instance, then retained state per sensor.
func (p *Publisher) Publish(instance model.Instance, projection *entity.Projection, outcome integration.Outcome) {
	p.mu.Lock()
	discovered := p.discovered[instance.ID]
	p.discovered[instance.ID] = true
	p.mu.Unlock()

	if !discovered {
		p.publishDiscovery(instance, projection.Sensors())
	}

	available := projection.Available()
	for _, value := range projection.Values() {
		state := value.State
		if !available || !value.Known {
			state = entity.Unknown
		}
		p.publish(p.stateTopic(instance, value.Key), state, true)
	}
	p.publish(p.instanceTopic(instance)+"/status", string(outcome.State), true)
}

func (p *Publisher) publishDiscovery(instance model.Instance, sensors []entity.Sensor) {
	for _, sensor := range sensors {
		uniqueID := fmt.Sprintf("korea_%s_%s_%s", instance.Service, shortID(instance.ID), sensor.Key)
		payload := map[string]any{
			"name":               instance.Name + " " + sensor.Name,
			"unique_id":          uniqueID,
			"state_topic":        p.stateTopic(instance, sensor.Key),
			"availability_topic": availabilityTopic(p.cfg),
			"device": map[string]any{
				"identifiers":  []string{"korea_" + shortID(instance.ID)},
				"name":         instance.Name,
				"manufacturer": "KoreaConnect",
				"model":        instance.Service,
			},
		}
		if sensor.Unit != "" {
			payload["unit_of_measurement"] = sensor.Unit
		}
		if sensor.Type == entity.TypeTimestamp {
			payload["device_class"] = "timestamp"
		}

		body, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		topic := fmt.Sprintf("%s/sensor/%s/config", p.cfg.DiscoveryPrefix, uniqueID)
		p.publish(topic, string(body), true)
	}
}

func (p *Publisher) publish(topic, payload string, retained bool) {
	token := p.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn("mqtt publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("mqtt publish failed", "topic", topic, "err", err)
	}
}

func (p *Publisher) instanceTopic(instance model.Instance) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.TopicPrefix, instance.Service, shortID(instance.ID))
}

func (p *Publisher) stateTopic(instance model.Instance, sensorKey string) string {
	return p.instanceTopic(instance) + "/" + sensorKey
}

func availabilityTopic(cfg config.MQTTConfig) string {
	return cfg.TopicPrefix + "/availability"
}

func shortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

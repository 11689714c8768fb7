package safetyalert

import (
	"log/slog"

	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
	"github.com/micro-ha/korea-connect/internal/registry"
)

func Descriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:              ServiceID,
		Name:            "Safety Alerts",
		DefaultInterval: DefaultInterval,
		LegacyTLS:       true,
		CredentialFields: []registry.CredentialField{
			{Key: "area_code", Label: "Region code"},
			{Key: "area_code2", Label: "Second region code", Optional: true},
			{Key: "area_code3", Label: "Third region code", Optional: true},
		},
		NewClient: func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client {
			return NewClient(session, creds, logger)
		},
		Sensors: []entity.Sensor{
			{Key: "alert_count", Name: "Alerts in window", Path: "summary.count", Type: entity.TypeFloat},
			{Key: "latest_alert", Name: "Latest alert", Path: "summary.latest_text", Type: entity.TypeString},
			{Key: "latest_kind", Name: "Latest alert kind", Path: "summary.latest_kind", Type: entity.TypeState},
			{Key: "latest_at", Name: "Latest alert time", Path: "summary.latest_at", Type: entity.TypeTimestamp},
		},
	}
}

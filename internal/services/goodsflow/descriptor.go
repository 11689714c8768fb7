package goodsflow

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
		Name:            "GoodsFlow Parcels",
		DefaultInterval: DefaultInterval,
		CredentialFields: []registry.CredentialField{
			{Key: "token", Label: "PTK token", Secret: true},
		},
		NewClient: func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client {
			return NewClient(session, creds, logger)
		},
		Sensors: []entity.Sensor{
			{Key: "total_packages", Name: "Total packages", Path: "summary.total_packages", Type: entity.TypeFloat},
			{Key: "active_packages", Name: "Packages in transit", Path: "summary.active_packages", Type: entity.TypeFloat},
			{Key: "delivered_packages", Name: "Packages delivered", Path: "summary.delivered_packages", Type: entity.TypeFloat},
			{Key: "latest_status", Name: "Latest status", Path: "summary.latest_status", Type: entity.TypeState},
		},
	}
}

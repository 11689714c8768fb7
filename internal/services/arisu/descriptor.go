package arisu

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
		Name:            "Arisu Water",
		DefaultInterval: DefaultInterval,
		CredentialFields: []registry.CredentialField{
			{Key: "customer_number", Label: "Customer number"},
			{Key: "customer_name", Label: "Customer name"},
		},
		NewClient: func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client {
			return NewClient(session, creds, logger)
		},
		Sensors: []entity.Sensor{
			{Key: "billing_month", Name: "Billing month", Path: "billing.billing_month", Type: entity.TypeTimestamp},
			{Key: "total_amount", Name: "Total amount", Path: "billing.total_amount", Type: entity.TypeFloat, Unit: "KRW"},
			{Key: "usage", Name: "Water usage", Path: "billing.usage_info.usage", Type: entity.TypeFloat, Unit: "m³"},
			{Key: "customer_number", Name: "Customer number", Path: "billing.customer_number", Type: entity.TypeString},
		},
	}
}

package gasapp

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
		Name:            "GasApp City Gas",
		DefaultInterval: DefaultInterval,
		CredentialFields: []registry.CredentialField{
			{Key: "token", Label: "App token", Secret: true},
			{Key: "member_id", Label: "Member id"},
			{Key: "use_contract_num", Label: "Use contract number"},
		},
		NewClient: func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client {
			return NewClient(session, creds, logger)
		},
		Sensors: []entity.Sensor{
			{Key: "bill_title", Name: "Bill title", Path: "home.cards.bill.title1", Type: entity.TypeString},
			{Key: "bill_period", Name: "Bill period", Path: "home.cards.bill.title2", Type: entity.TypeString},
			{Key: "charge", Name: "Charge", Path: "home.cards.bill.history.0.chargeAmount", Type: entity.TypeFloat, Unit: "KRW"},
			{Key: "usage", Name: "Usage", Path: "home.cards.bill.history.0.usage", Type: entity.TypeFloat, Unit: "m³"},
			{Key: "previous_charge", Name: "Previous charge", Path: "home.cards.bill.history.1.chargeAmount", Type: entity.TypeFloat, Unit: "KRW"},
			{Key: "meter_read_date", Name: "Meter read date", Path: "home.cards.bill.history.0.meterReadDate", Type: entity.TypeTimestamp},
		},
	}
}

package kepco

import (
	"log/slog"

	"github.com/micro-ha/korea-connect/internal/entity"
	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
	"github.com/micro-ha/korea-connect/internal/registry"
)

// Descriptor registers the KEPCO capability: portal credentials, the
// scraping client and the billing sensors.
func Descriptor() registry.Descriptor {
	return registry.Descriptor{
		ID:              ServiceID,
		Name:            "KEPCO Power",
		DefaultInterval: DefaultInterval,
		CredentialFields: []registry.CredentialField{
			{Key: "username", Label: "Portal username"},
			{Key: "password", Label: "Portal password", Secret: true},
		},
		NewClient: func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client {
			return NewClient(session, creds, logger)
		},
		Sensors: []entity.Sensor{
			{Key: "customer_number", Name: "Customer number", Path: "usage_info.SESS_CUSTNO", Type: entity.TypeString},
			{Key: "contract_kind", Name: "Contract kind", Path: "usage_info.SESS_CNTR_KND_NM", Type: entity.TypeString},
			{Key: "metering_start", Name: "Metering start", Path: "usage_info.SESS_MR_ST_DT", Type: entity.TypeTimestamp},
			{Key: "metering_end", Name: "Metering end", Path: "usage_info.SESS_MR_END_DT", Type: entity.TypeTimestamp},
			{Key: "power_usage", Name: "Power usage", Path: "recent_usage.result.F_AP_QT", Type: entity.TypeFloat, Unit: "kWh"},
			{Key: "usage_last_month", Name: "Usage last month", Path: "usage_info.result.KWH_LAST_MONTH", Type: entity.TypeFloat, Unit: "kWh"},
			{Key: "charge_estimate", Name: "Estimated charge", Path: "usage_info.result.PREDICT_TOTAL_CHARGE_REV", Type: entity.TypeFloat, Unit: "KRW"},
			{Key: "charge_last_month", Name: "Charge last month", Path: "usage_info.result.BILL_LAST_MONTH", Type: entity.TypeFloat, Unit: "KRW"},
			{Key: "progressive_level", Name: "Progressive level", Path: "usage_info.result.BILL_LEVEL", Type: entity.TypeState},
			{Key: "metered_at", Name: "Metered at", Path: "recent_usage.result.ST_TIME", Type: entity.TypeTimestamp},
		},
	}
}

package kakaomap

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
		Name:            "KakaoMap Transit",
		DefaultInterval: DefaultInterval,
		CredentialFields: []registry.CredentialField{
			{Key: "start_x", Label: "Start X"},
			{Key: "start_y", Label: "Start Y"},
			{Key: "end_x", Label: "End X"},
			{Key: "end_y", Label: "End Y"},
			{Key: "coord_system", Label: "Coordinate system (WCONGNAMUL or WGS84)", Optional: true},
		},
		NewClient: func(session *integration.Session, creds model.Credentials, logger *slog.Logger) integration.Client {
			return NewClient(session, creds, logger)
		},
		Sensors: []entity.Sensor{
			{Key: "duration", Name: "Trip duration", Path: "summary.duration_min", Type: entity.TypeFloat, Unit: "min"},
			{Key: "fare", Name: "Fare", Path: "summary.fare", Type: entity.TypeFloat, Unit: "KRW"},
			{Key: "transfers", Name: "Transfers", Path: "summary.transfers", Type: entity.TypeFloat},
			{Key: "route_count", Name: "Route count", Path: "summary.route_count", Type: entity.TypeFloat},
			{Key: "fetched_at", Name: "Route fetched at", Path: "summary.fetched_at", Type: entity.TypeTimestamp},
		},
	}
}

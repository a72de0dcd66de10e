package pgshipping

import (
	"context"

	"github.com/BearBump/ShipSight/internal/models"
	"github.com/pkg/errors"
)

const unknownPlace = "Unknown"

// UpsertShipment возвращает id по tracking_id, создавая запись при первом
// появлении. Повторный вызов с тем же идентификатором дубликатов не создаёт.
func (s *Storage) UpsertShipment(ctx context.Context, trackingID, origin, destination string) (uint64, error) {
	if origin == "" {
		origin = unknownPlace
	}
	if destination == "" {
		destination = unknownPlace
	}

	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO shipments (tracking_id, origin, destination)
VALUES ($1,$2,$3)
ON CONFLICT (tracking_id)
DO UPDATE SET tracking_id = EXCLUDED.tracking_id
RETURNING id
`, trackingID, origin, destination).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "upsert shipment")
	}
	return id, nil
}

// UpdateDestination — единственная разрешённая мутация после создания:
// уточнение пункта назначения из static-data сообщения.
func (s *Storage) UpdateDestination(ctx context.Context, trackingID, destination string) error {
	if destination == "" || destination == unknownPlace {
		return nil
	}
	_, err := s.db.Exec(ctx, `
UPDATE shipments SET destination = $2 WHERE tracking_id = $1
`, trackingID, destination)
	return errors.Wrap(err, "update destination")
}

func (s *Storage) GetShipmentByTrackingID(ctx context.Context, trackingID string) (*models.Shipment, error) {
	var sh models.Shipment
	err := s.db.QueryRow(ctx, `
SELECT id, tracking_id, origin, destination FROM shipments WHERE tracking_id = $1
`, trackingID).Scan(&sh.ID, &sh.TrackingID, &sh.Origin, &sh.Destination)
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	return &sh, nil
}

// AtRiskShipments — все отправления, у которых есть хотя бы одно событие
// с категорией Delayed.
func (s *Storage) AtRiskShipments(ctx context.Context) ([]*models.Shipment, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, tracking_id, origin, destination
FROM shipments
WHERE id IN (SELECT DISTINCT shipment_id FROM shipment_events WHERE ai_status = $1)
ORDER BY id
`, models.StatusDelayed)
	if err != nil {
		return nil, errors.Wrap(err, "select at risk shipments")
	}
	defer rows.Close()

	out := []*models.Shipment{}
	for rows.Next() {
		var sh models.Shipment
		if err := rows.Scan(&sh.ID, &sh.TrackingID, &sh.Origin, &sh.Destination); err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, &sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

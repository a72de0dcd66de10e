package pgshipping

import (
	"context"

	"github.com/BearBump/ShipSight/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) InsertEvent(ctx context.Context, e *models.ShipmentEvent) (uint64, error) {
	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO shipment_events (
  shipment_id, timestamp, location, raw_status_text, ai_status, ai_reason, latitude, longitude
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id
`, e.ShipmentID, e.Timestamp.UTC(), e.Location, e.RawStatusText, e.AIStatus, e.AIReason, e.Latitude, e.Longitude).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert shipment event")
	}
	return id, nil
}

// LatestEvent — последнее по времени событие отправления; nil, если их нет.
func (s *Storage) LatestEvent(ctx context.Context, shipmentID uint64) (*models.ShipmentEvent, error) {
	var e models.ShipmentEvent
	err := s.db.QueryRow(ctx, `
SELECT id, shipment_id, timestamp, location, raw_status_text, ai_status, ai_reason, latitude, longitude
FROM shipment_events
WHERE shipment_id = $1
ORDER BY timestamp DESC
LIMIT 1
`, shipmentID).Scan(
		&e.ID, &e.ShipmentID, &e.Timestamp, &e.Location, &e.RawStatusText,
		&e.AIStatus, &e.AIReason, &e.Latitude, &e.Longitude,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select latest event")
	}
	return &e, nil
}

func (s *Storage) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.ShipmentEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, shipment_id, timestamp, location, raw_status_text, ai_status, ai_reason, latitude, longitude
FROM shipment_events
WHERE shipment_id = $1
ORDER BY timestamp DESC
LIMIT $2 OFFSET $3
`, shipmentID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []*models.ShipmentEvent
	for rows.Next() {
		var e models.ShipmentEvent
		if err := rows.Scan(
			&e.ID, &e.ShipmentID, &e.Timestamp, &e.Location, &e.RawStatusText,
			&e.AIStatus, &e.AIReason, &e.Latitude, &e.Longitude,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ListUnclassified — кандидаты на keyword-бэкфилл.
func (s *Storage) ListUnclassified(ctx context.Context, limit int) ([]*models.ShipmentEvent, error) {
	return s.listForClassification(ctx, `ai_status IS NULL`, limit)
}

// ListMissingClassification — кандидаты на внешний paraphrase-проход:
// не хватает категории или причины.
func (s *Storage) ListMissingClassification(ctx context.Context, limit int) ([]*models.ShipmentEvent, error) {
	return s.listForClassification(ctx, `ai_status IS NULL OR ai_reason IS NULL`, limit)
}

func (s *Storage) listForClassification(ctx context.Context, cond string, limit int) ([]*models.ShipmentEvent, error) {
	if limit <= 0 {
		return []*models.ShipmentEvent{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT id, shipment_id, timestamp, location, raw_status_text, ai_status, ai_reason, latitude, longitude
FROM shipment_events
WHERE `+cond+`
ORDER BY id
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select events for classification")
	}
	defer rows.Close()

	var out []*models.ShipmentEvent
	for rows.Next() {
		var e models.ShipmentEvent
		if err := rows.Scan(
			&e.ID, &e.ShipmentID, &e.Timestamp, &e.Location, &e.RawStatusText,
			&e.AIStatus, &e.AIReason, &e.Latitude, &e.Longitude,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SetClassification дозаполняет пару ai_status/ai_reason. COALESCE гарантирует,
// что уже выставленное значение не перезаписывается: бэкфилл одноразовый.
func (s *Storage) SetClassification(ctx context.Context, eventID uint64, status, reason *string) error {
	_, err := s.db.Exec(ctx, `
UPDATE shipment_events
SET ai_status = COALESCE(ai_status, $2),
    ai_reason = COALESCE(ai_reason, $3)
WHERE id = $1
`, eventID, status, reason)
	return errors.Wrap(err, "set classification")
}

// DelayReasonCounts — количество Delayed-событий по причинам. NULL-причина
// отдаётся как "N/A" (так её показывает дашборд).
func (s *Storage) DelayReasonCounts(ctx context.Context) ([]models.DelayReasonCount, error) {
	rows, err := s.db.Query(ctx, `
SELECT COALESCE(ai_reason, 'N/A'), COUNT(*)
FROM shipment_events
WHERE ai_status = $1
GROUP BY 1
ORDER BY 2 DESC
`, models.StatusDelayed)
	if err != nil {
		return nil, errors.Wrap(err, "select delay reasons")
	}
	defer rows.Close()

	out := []models.DelayReasonCount{}
	for rows.Next() {
		var c models.DelayReasonCount
		if err := rows.Scan(&c.Reason, &c.Count); err != nil {
			return nil, errors.Wrap(err, "scan delay reason")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// LiveLocations — последнее событие каждого недоставленного отправления.
func (s *Storage) LiveLocations(ctx context.Context) ([]*models.LiveLocation, error) {
	rows, err := s.db.Query(ctx, `
SELECT DISTINCT ON (s.id)
  s.id, s.tracking_id, e.location, e.ai_status, e.timestamp, e.latitude, e.longitude
FROM shipments s
JOIN shipment_events e ON s.id = e.shipment_id
WHERE e.ai_status IS NULL OR e.ai_status <> $1
ORDER BY s.id, e.timestamp DESC
`, models.StatusDelivered)
	if err != nil {
		return nil, errors.Wrap(err, "select live locations")
	}
	defer rows.Close()

	out := []*models.LiveLocation{}
	for rows.Next() {
		var l models.LiveLocation
		if err := rows.Scan(
			&l.ShipmentID, &l.TrackingID, &l.Location, &l.AIStatus,
			&l.Timestamp, &l.Latitude, &l.Longitude,
		); err != nil {
			return nil, errors.Wrap(err, "scan live location")
		}
		out = append(out, &l)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

package pgshipping

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS shipments (
  id BIGSERIAL PRIMARY KEY,
  tracking_id TEXT NOT NULL UNIQUE,
  origin TEXT NOT NULL DEFAULT 'Unknown',
  destination TEXT NOT NULL DEFAULT 'Unknown'
)`,
		`
CREATE TABLE IF NOT EXISTS shipment_events (
  id BIGSERIAL PRIMARY KEY,
  shipment_id BIGINT NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
  timestamp TIMESTAMPTZ NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  raw_status_text TEXT NOT NULL DEFAULT '',
  ai_status TEXT NULL,
  ai_reason TEXT NULL,
  latitude DOUBLE PRECISION NULL,
  longitude DOUBLE PRECISION NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipment_events_shipment_id_timestamp ON shipment_events(shipment_id, timestamp DESC)`,
		// Частичный индекс под бэкфилл: выборка WHERE ai_status IS NULL.
		`CREATE INDEX IF NOT EXISTS idx_shipment_events_unclassified ON shipment_events(id) WHERE ai_status IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_shipment_events_missing_reason ON shipment_events(id) WHERE ai_reason IS NULL`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

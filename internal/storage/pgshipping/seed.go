package pgshipping

import (
	"context"

	"github.com/pkg/errors"
)

// TruncateAll очищает обе таблицы перед загрузкой корпуса.
func (s *Storage) TruncateAll(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE TABLE shipment_events, shipments RESTART IDENTITY`)
	return errors.Wrap(err, "truncate tables")
}

package feed

import (
	"context"
	"fmt"
	"time"
)

// Observation — канонический вид одного наблюдения независимо от источника.
// Отсутствующие у источника поля получают документированные дефолты:
// Destination="Unknown", Timestamp=время приёма, Speed=0.
type Observation struct {
	TrackingID  string
	Name        string
	Latitude    *float64
	Longitude   *float64
	Speed       float64 // knots
	Course      float64
	Origin      string
	Destination string
	StatusText  string
	Location    string
	Timestamp   time.Time

	// Static: metadata-only запись (ShipStaticData). Обновляет destination,
	// событием не становится.
	Static bool

	// Предразмеченная категория (mock в режиме preclassified). Пустая строка —
	// классификация отложена.
	Status string
	Reason string
}

// Source выдаёт наблюдения одного цикла инжеста. Сбой соединения — это
// "нет данных в этом цикле", а не фатальная ошибка: реализации логируют
// и возвращают пустой срез.
type Source interface {
	Fetch(ctx context.Context) ([]Observation, error)
}

// CoordsLocation строит отображаемую строку позиции, когда источник не даёт
// именованного места.
func CoordsLocation(name string, lat, lon float64) string {
	if name != "" {
		return fmt.Sprintf("%s (%.4f, %.4f)", name, lat, lon)
	}
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

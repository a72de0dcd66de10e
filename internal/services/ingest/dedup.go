package ingest

import (
	"math"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/BearBump/ShipSight/internal/models"
)

type Decision int

const (
	// Insert — обычная вставка, классификация решается позже.
	Insert Decision = iota
	// Suppress — точный повтор позиции внутри окна, событие не пишем.
	Suppress
	// InsertDelayed — судно стоит на месте дольше порога: вставка с
	// немедленной категорией Delayed / Port Congestion, что бы ни говорил
	// навигационный статус.
	InsertDelayed
)

// Deduper решает судьбу наблюдения по последнему сохранённому событию
// того же shipment.
type Deduper struct {
	Window          time.Duration // окно подавления точных повторов
	DwellSpeedKnots float64       // скорость, ниже которой судно считается стоящим
	DwellEpsilonDeg float64       // допустимый дрейф координат, градусы
	DwellStall      time.Duration // сколько нужно простоять, чтобы это стало Delayed
}

func DefaultDeduper() Deduper {
	return Deduper{
		Window:          10 * time.Minute,
		DwellSpeedKnots: 0.5,
		DwellEpsilonDeg: 0.002,
		DwellStall:      90 * time.Minute,
	}
}

// Decide сравнивает наблюдение с последним событием. prev == nil — первое
// событие shipment, всегда Insert. Наблюдения без координат не дедуплицируются
// и не участвуют в dwell-детекции.
func (d Deduper) Decide(prev *models.ShipmentEvent, obs feed.Observation, now time.Time) Decision {
	if prev == nil || obs.Latitude == nil || obs.Longitude == nil || !prev.HasCoords() {
		return Insert
	}

	sameLat := *prev.Latitude == *obs.Latitude
	sameLon := *prev.Longitude == *obs.Longitude
	if sameLat && sameLon && now.Sub(prev.Timestamp) < d.Window {
		return Suppress
	}

	if obs.Speed <= d.DwellSpeedKnots &&
		math.Abs(*prev.Latitude-*obs.Latitude) < d.DwellEpsilonDeg &&
		math.Abs(*prev.Longitude-*obs.Longitude) < d.DwellEpsilonDeg &&
		now.Sub(prev.Timestamp) >= d.DwellStall {
		return InsertDelayed
	}

	return Insert
}

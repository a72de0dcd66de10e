package ingest

import (
	"testing"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/BearBump/ShipSight/internal/models"
	"github.com/stretchr/testify/require"
)

func obsAt(lat, lon, speed float64) feed.Observation {
	return feed.Observation{
		TrackingID: "563012345",
		Latitude:   &lat,
		Longitude:  &lon,
		Speed:      speed,
	}
}

func prevAt(lat, lon float64, age time.Duration, now time.Time) *models.ShipmentEvent {
	return &models.ShipmentEvent{
		ID:        1,
		Timestamp: now.Add(-age),
		Latitude:  &lat,
		Longitude: &lon,
	}
}

func TestDeduper_FirstEventAlwaysInserts(t *testing.T) {
	d := DefaultDeduper()
	require.Equal(t, Insert, d.Decide(nil, obsAt(1.2897, 103.8501, 12), time.Now().UTC()))
}

func TestDeduper_SuppressExactRepeatWithinWindow(t *testing.T) {
	d := DefaultDeduper()
	now := time.Now().UTC()

	prev := prevAt(1.2897, 103.8501, 3*time.Minute, now)
	require.Equal(t, Suppress, d.Decide(prev, obsAt(1.2897, 103.8501, 11.9), now))

	// Та же точка, но окно истекло.
	stale := prevAt(1.2897, 103.8501, 15*time.Minute, now)
	require.Equal(t, Insert, d.Decide(stale, obsAt(1.2897, 103.8501, 11.9), now))

	// Координаты сдвинулись — повторное подавление не срабатывает.
	moved := prevAt(1.2897, 103.8501, 3*time.Minute, now)
	require.Equal(t, Insert, d.Decide(moved, obsAt(1.2991, 103.8612, 11.9), now))
}

func TestDeduper_DwellOverridesNavStatus(t *testing.T) {
	d := DefaultDeduper()
	now := time.Now().UTC()

	// Скорость почти нулевая, дрейф в пределах эпсилон, стоим два часа.
	prev := prevAt(31.2304, 121.4737, 2*time.Hour, now)
	obs := obsAt(31.2310, 121.4742, 0.2)
	obs.StatusText = "Under way using engine"
	require.Equal(t, InsertDelayed, d.Decide(prev, obs, now))

	// Стоит недостаточно долго.
	fresh := prevAt(31.2304, 121.4737, 30*time.Minute, now)
	require.Equal(t, Insert, d.Decide(fresh, obsAt(31.2310, 121.4742, 0.2), now))

	// Движется с нормальной скоростью.
	require.Equal(t, Insert, d.Decide(prev, obsAt(31.2310, 121.4742, 8.4), now))

	// Уплыло дальше эпсилон.
	require.Equal(t, Insert, d.Decide(prev, obsAt(31.2504, 121.4737, 0.2), now))
}

func TestDeduper_NoCoordsNeverSuppressed(t *testing.T) {
	d := DefaultDeduper()
	now := time.Now().UTC()

	prev := prevAt(1.2897, 103.8501, time.Minute, now)
	require.Equal(t, Insert, d.Decide(prev, feed.Observation{TrackingID: "x"}, now))

	noCoords := &models.ShipmentEvent{ID: 2, Timestamp: now.Add(-time.Minute)}
	require.Equal(t, Insert, d.Decide(noCoords, obsAt(1.2897, 103.8501, 1), now))
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BearBump/ShipSight/config"
	"github.com/BearBump/ShipSight/internal/integrations/feed/mock"
	"github.com/BearBump/ShipSight/internal/models"
	"github.com/BearBump/ShipSight/internal/storage/pgshipping"
)

// ship-seed очищает БД и заливает размеченный синтетический корпус: демо
// поднимается с непустым дашбордом, не дожидаясь циклов воркера.
func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	n := cfg.ShipSight.SeedRecords
	if n <= 0 {
		n = 800
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)
	defer st.Close()

	ctx := context.Background()

	if err := st.TruncateAll(ctx); err != nil {
		panic(fmt.Sprintf("truncate: %v", err))
	}

	corpus := mock.Corpus(n, time.Now().UnixNano())

	inserted := 0
	failed := 0
	for _, obs := range corpus {
		shipmentID, err := st.UpsertShipment(ctx, obs.TrackingID, obs.Origin, obs.Destination)
		if err != nil {
			failed++
			slog.Error("seed shipment", "tracking_id", obs.TrackingID, "error", err.Error())
			continue
		}

		ev := &models.ShipmentEvent{
			ShipmentID:    shipmentID,
			Timestamp:     obs.Timestamp,
			Location:      obs.Location,
			RawStatusText: obs.StatusText,
			Latitude:      obs.Latitude,
			Longitude:     obs.Longitude,
		}
		if obs.Status != "" {
			ev.AIStatus = &obs.Status
		}
		if obs.Reason != "" {
			ev.AIReason = &obs.Reason
		}

		if _, err := st.InsertEvent(ctx, ev); err != nil {
			failed++
			slog.Error("seed event", "tracking_id", obs.TrackingID, "error", err.Error())
			continue
		}
		inserted++
	}

	slog.Info("seed finished", "inserted", inserted, "failed", failed)
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgshipping.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshipping.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

package pgshipping

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipSight/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "shipsight_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/shipsight_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGShipping_RepoFlow(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.Ping(ctx))

	// Идемпотентность identity: один tracking_id -> один id.
	id1, err := st.UpsertShipment(ctx, "259000420", "", "")
	require.NoError(t, err)
	require.NotZero(t, id1)

	id2, err := st.UpsertShipment(ctx, "259000420", "", "")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	sh, err := st.GetShipmentByTrackingID(ctx, "259000420")
	require.NoError(t, err)
	require.Equal(t, "Unknown", sh.Origin)
	require.Equal(t, "Unknown", sh.Destination)

	// Destination — единственная мутация после создания.
	require.NoError(t, st.UpdateDestination(ctx, "259000420", "ROTTERDAM"))
	require.NoError(t, st.UpdateDestination(ctx, "259000420", "Unknown")) // no-op
	sh, err = st.GetShipmentByTrackingID(ctx, "259000420")
	require.NoError(t, err)
	require.Equal(t, "ROTTERDAM", sh.Destination)

	prev, err := st.LatestEvent(ctx, id1)
	require.NoError(t, err)
	require.Nil(t, prev)

	now := time.Now().UTC()
	lat, lon := 1.2897, 103.8501
	evID, err := st.InsertEvent(ctx, &models.ShipmentEvent{
		ShipmentID:    id1,
		Timestamp:     now,
		Location:      "Port of Singapore",
		RawStatusText: "At anchor",
		Latitude:      &lat,
		Longitude:     &lon,
	})
	require.NoError(t, err)
	require.NotZero(t, evID)

	prev, err = st.LatestEvent(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, evID, prev.ID)
	require.Nil(t, prev.AIStatus)
	require.True(t, prev.HasCoords())

	// Бэкфилл одноразовый: COALESCE не перезаписывает выставленные значения.
	delayed := models.StatusDelayed
	reason := models.ReasonPortCongestion
	require.NoError(t, st.SetClassification(ctx, evID, &delayed, &reason))

	onTime := models.StatusOnTime
	require.NoError(t, st.SetClassification(ctx, evID, &onTime, nil))

	evs, err := st.ListShipmentEvents(ctx, id1, 10, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, models.StatusDelayed, *evs[0].AIStatus)
	require.Equal(t, models.ReasonPortCongestion, *evs[0].AIReason)

	counts, err := st.DelayReasonCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, models.ReasonPortCongestion, counts[0].Reason)
	require.Equal(t, int64(1), counts[0].Count)

	atRisk, err := st.AtRiskShipments(ctx)
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	require.Equal(t, "259000420", atRisk[0].TrackingID)

	live, err := st.LiveLocations(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, id1, live[0].ShipmentID)
	require.NotNil(t, live[0].Latitude)

	// Доставленные из live-выборки уходят.
	deliveredAt := now.Add(time.Hour)
	ev2, err := st.InsertEvent(ctx, &models.ShipmentEvent{
		ShipmentID:    id1,
		Timestamp:     deliveredAt,
		Location:      "Rotterdam",
		RawStatusText: "Package delivered successfully.",
	})
	require.NoError(t, err)
	delivered := models.StatusDelivered
	require.NoError(t, st.SetClassification(ctx, ev2, &delivered, nil))

	live, err = st.LiveLocations(ctx)
	require.NoError(t, err)
	require.Empty(t, live)
}

func TestPGShipping_ClassificationBatches(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	id, err := st.UpsertShipment(ctx, "SHP000123", "Shanghai, China", "New York, USA")
	require.NoError(t, err)

	now := time.Now().UTC()
	var ids []uint64
	for i := 0; i < 3; i++ {
		evID, err := st.InsertEvent(ctx, &models.ShipmentEvent{
			ShipmentID:    id,
			Timestamp:     now.Add(time.Duration(i) * time.Minute),
			RawStatusText: "Customs hold - missing documentation",
		})
		require.NoError(t, err)
		ids = append(ids, evID)
	}

	un, err := st.ListUnclassified(ctx, 2)
	require.NoError(t, err)
	require.Len(t, un, 2)
	require.Equal(t, ids[0], un[0].ID)

	un, err = st.ListUnclassified(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, un)

	// Статус выставлен, причины нет: событие остаётся кандидатом на paraphrase.
	delayed := models.StatusDelayed
	require.NoError(t, st.SetClassification(ctx, ids[0], &delayed, nil))

	un, err = st.ListUnclassified(ctx, 10)
	require.NoError(t, err)
	require.Len(t, un, 2)

	missing, err := st.ListMissingClassification(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 3)

	require.NoError(t, st.TruncateAll(ctx))
	missing, err = st.ListMissingClassification(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, missing)
}

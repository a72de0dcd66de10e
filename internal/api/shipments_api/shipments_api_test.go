package shipments_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/ShipSight/internal/models"
	"github.com/BearBump/ShipSight/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	delayOut  []models.DelayReasonCount
	atRiskOut []*models.Shipment
	liveOut   []*models.LiveLocation
	eventsOut []*models.ShipmentEvent

	eventsID     uint64
	eventsLimit  int
	eventsOffset int

	pingErr error
}

func (f *fakeRepo) DelayReasonCounts(ctx context.Context) ([]models.DelayReasonCount, error) {
	return f.delayOut, nil
}
func (f *fakeRepo) AtRiskShipments(ctx context.Context) ([]*models.Shipment, error) {
	return f.atRiskOut, nil
}
func (f *fakeRepo) LiveLocations(ctx context.Context) ([]*models.LiveLocation, error) {
	return f.liveOut, nil
}
func (f *fakeRepo) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.ShipmentEvent, error) {
	f.eventsID = shipmentID
	f.eventsLimit = limit
	f.eventsOffset = offset
	return f.eventsOut, nil
}
func (f *fakeRepo) Ping(ctx context.Context) error { return f.pingErr }

func newTestServer(repo *fakeRepo) *httptest.Server {
	svc := shipments.New(repo, nil, 0)
	r := chi.NewRouter()
	New(svc).Routes(r)
	return httptest.NewServer(r)
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(&fakeRepo{})
	defer srv.Close()

	var body map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	require.Equal(t, "ok", body["status"])
}

func TestAPI_HealthDB(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(repo)
	defer srv.Close()

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health/db", nil))

	repo.pingErr = errors.New("connection refused")
	var body map[string]string
	require.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/health/db", &body))
	require.Contains(t, body["error"], "connection refused")
}

func TestAPI_DelayReasons(t *testing.T) {
	srv := newTestServer(&fakeRepo{delayOut: []models.DelayReasonCount{
		{Reason: "Port Congestion", Count: 12},
		{Reason: "N/A", Count: 4},
	}})
	defer srv.Close()

	var body []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/kpi/delay_reasons", &body))
	require.Len(t, body, 2)
	require.Equal(t, "Port Congestion", body[0]["ai_reason"])
	require.Equal(t, float64(12), body[0]["count"])
	require.Equal(t, "N/A", body[1]["ai_reason"])
}

func TestAPI_DelayReasons_emptyIsList(t *testing.T) {
	srv := newTestServer(&fakeRepo{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/kpi/delay_reasons")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body []models.DelayReasonCount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body)
	require.Empty(t, body)
}

func TestAPI_AtRisk(t *testing.T) {
	srv := newTestServer(&fakeRepo{atRiskOut: []*models.Shipment{
		{ID: 3, TrackingID: "563012345", Origin: "Shanghai", Destination: "Rotterdam"},
	}})
	defer srv.Close()

	var body []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/shipments/at_risk", &body))
	require.Len(t, body, 1)
	require.Equal(t, "563012345", body[0]["tracking_id"])
	require.Equal(t, "Rotterdam", body[0]["destination"])
}

func TestAPI_LiveLocations(t *testing.T) {
	lat, lon := 1.2897, 103.8501
	status := models.StatusOnTime
	srv := newTestServer(&fakeRepo{liveOut: []*models.LiveLocation{{
		ShipmentID: 5,
		TrackingID: "563012345",
		Location:   "1.2897, 103.8501",
		AIStatus:   &status,
		Timestamp:  time.Now().UTC(),
		Latitude:   &lat,
		Longitude:  &lon,
	}}})
	defer srv.Close()

	var body []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/shipments/live_locations", &body))
	require.Len(t, body, 1)
	require.Equal(t, "On Time", body[0]["ai_status"])
	require.Equal(t, 103.8501, body[0]["longitude"])
}

func TestAPI_ShipmentEvents(t *testing.T) {
	status := models.StatusDelayed
	reason := models.ReasonCustomsIssue
	repo := &fakeRepo{eventsOut: []*models.ShipmentEvent{{
		ID:            11,
		ShipmentID:    9,
		Timestamp:     time.Now().UTC(),
		Location:      "Port of Hamburg",
		RawStatusText: "Customs hold - missing documentation",
		AIStatus:      &status,
		AIReason:      &reason,
	}}}
	srv := newTestServer(repo)
	defer srv.Close()

	var body []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/shipments/9/events?limit=10&offset=5", &body))
	require.Equal(t, uint64(9), repo.eventsID)
	require.Equal(t, 10, repo.eventsLimit)
	require.Equal(t, 5, repo.eventsOffset)
	require.Len(t, body, 1)
	require.Equal(t, "Delayed", body[0]["ai_status"])
	require.Equal(t, "Customs Issue", body[0]["ai_reason"])
	require.Nil(t, body[0]["latitude"])
}

func TestAPI_ShipmentEvents_badID(t *testing.T) {
	srv := newTestServer(&fakeRepo{})
	defer srv.Close()

	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/shipments/abc/events", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/shipments/0/events", nil))
}

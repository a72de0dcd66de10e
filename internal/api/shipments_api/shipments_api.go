package shipments_api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/BearBump/ShipSight/internal/models"
	"github.com/BearBump/ShipSight/internal/services/shipments"
	"github.com/go-chi/chi/v5"
)

// ShipmentsAPI — REST-обвязка дашборда поверх read-сервиса.
type ShipmentsAPI struct {
	svc *shipments.Service
}

func New(svc *shipments.Service) *ShipmentsAPI {
	return &ShipmentsAPI{svc: svc}
}

func (a *ShipmentsAPI) Routes(r chi.Router) {
	r.Get("/health", a.health)
	r.Get("/health/db", a.healthDB)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/kpi/delay_reasons", a.delayReasons)
		r.Get("/shipments/at_risk", a.atRisk)
		r.Get("/shipments/live_locations", a.liveLocations)
		r.Get("/shipments/{id}/events", a.shipmentEvents)
	})
}

type shipmentDTO struct {
	ID          uint64 `json:"id"`
	TrackingID  string `json:"tracking_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

type eventDTO struct {
	ID            uint64    `json:"id"`
	ShipmentID    uint64    `json:"shipment_id"`
	Timestamp     time.Time `json:"timestamp"`
	Location      string    `json:"location"`
	RawStatusText string    `json:"raw_status_text"`
	AIStatus      *string   `json:"ai_status"`
	AIReason      *string   `json:"ai_reason"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
}

func (a *ShipmentsAPI) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *ShipmentsAPI) healthDB(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "reachable"})
}

func (a *ShipmentsAPI) delayReasons(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.DelayReasons(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []models.DelayReasonCount{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *ShipmentsAPI) atRisk(w http.ResponseWriter, r *http.Request) {
	ships, err := a.svc.AtRisk(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]shipmentDTO, 0, len(ships))
	for _, s := range ships {
		out = append(out, shipmentDTO{
			ID:          s.ID,
			TrackingID:  s.TrackingID,
			Origin:      s.Origin,
			Destination: s.Destination,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *ShipmentsAPI) liveLocations(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.LiveLocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []*models.LiveLocation{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *ShipmentsAPI) shipmentEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid shipment id")
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	evs, err := a.svc.ListShipmentEvents(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]eventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, eventDTO{
			ID:            e.ID,
			ShipmentID:    e.ShipmentID,
			Timestamp:     e.Timestamp,
			Location:      e.Location,
			RawStatusText: e.RawStatusText,
			AIStatus:      e.AIStatus,
			AIReason:      e.AIReason,
			Latitude:      e.Latitude,
			Longitude:     e.Longitude,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

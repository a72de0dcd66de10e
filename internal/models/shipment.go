package models

import "time"

// Категории, которые можно сохранять в БД. Retry/Error — это исходы
// классификатора, в хранилище они не попадают никогда.
const (
	StatusOnTime    = "On Time"
	StatusDelayed   = "Delayed"
	StatusDelivered = "Delivered"
)

const (
	ReasonPortCongestion = "Port Congestion"
	ReasonCustomsIssue   = "Customs Issue"
	ReasonWeatherDelay   = "Weather Delay"
)

type Shipment struct {
	ID          uint64
	TrackingID  string
	Origin      string
	Destination string
}

type ShipmentEvent struct {
	ID            uint64
	ShipmentID    uint64
	Timestamp     time.Time
	Location      string
	RawStatusText string
	AIStatus      *string
	AIReason      *string
	Latitude      *float64
	Longitude     *float64
}

// HasCoords reports whether the event carries a map-plottable position.
func (e *ShipmentEvent) HasCoords() bool {
	return e != nil && e.Latitude != nil && e.Longitude != nil
}

type DelayReasonCount struct {
	Reason string `json:"ai_reason"`
	Count  int64  `json:"count"`
}

type LiveLocation struct {
	ShipmentID uint64    `json:"shipment_id"`
	TrackingID string    `json:"tracking_id"`
	Location   string    `json:"location"`
	AIStatus   *string   `json:"ai_status"`
	Timestamp  time.Time `json:"timestamp"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
}

package messages

import "time"

// ShipmentEventRecorded публикуется воркером после вставки события.
// Потребитель (ship-api) использует его только для сброса кэшей:
// источником истины остаётся БД.
type ShipmentEventRecorded struct {
	ShipmentID uint64    `json:"shipment_id"`
	EventID    uint64    `json:"event_id"`
	TrackingID string    `json:"tracking_id"`
	Timestamp  time.Time `json:"timestamp"`

	Location  string   `json:"location,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	AIStatus *string `json:"ai_status,omitempty"`
	AIReason *string `json:"ai_reason,omitempty"`
}

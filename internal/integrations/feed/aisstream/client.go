package aisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	defaultReceiveWindow = 30 * time.Second
	unknownTypeLogCap    = 5
)

// Client читает потоковый AIS-фид: открывает websocket, шлёт подписку
// с фильтрами и собирает сообщения в пределах окна приёма.
type Client struct {
	url           string
	apiKey        string
	boxes         [][][]float64
	mmsiFilter    []string
	messageTypes  []string
	receiveWindow time.Duration
}

func New(url, apiKey string) *Client {
	return &Client{
		url:           url,
		apiKey:        apiKey,
		receiveWindow: defaultReceiveWindow,
	}
}

func (c *Client) WithFilters(boxes [][][]float64, mmsi, messageTypes []string) *Client {
	if len(boxes) > 0 {
		c.boxes = boxes
	}
	c.mmsiFilter = mmsi
	c.messageTypes = messageTypes
	return c
}

func (c *Client) WithReceiveWindow(d time.Duration) *Client {
	if d > 0 {
		c.receiveWindow = d
	}
	return c
}

type subscribeMessage struct {
	APIKey             string        `json:"APIKey"`
	BoundingBoxes      [][][]float64 `json:"BoundingBoxes"`
	FiltersShipMMSI    []string      `json:"FiltersShipMMSI,omitempty"`
	FilterMessageTypes []string      `json:"FilterMessageTypes,omitempty"`
}

type envelope struct {
	MessageType string          `json:"MessageType"`
	MetaData    metaData        `json:"MetaData"`
	Message     json.RawMessage `json:"Message"`
}

type metaData struct {
	MMSI      int64   `json:"MMSI"`
	ShipName  string  `json:"ShipName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeUTC   string  `json:"time_utc"`
}

type positionReport struct {
	Latitude           float64 `json:"Latitude"`
	Longitude          float64 `json:"Longitude"`
	Sog                float64 `json:"Sog"`
	Cog                float64 `json:"Cog"`
	NavigationalStatus int     `json:"NavigationalStatus"`
}

type shipStaticData struct {
	Name        string `json:"Name"`
	Destination string `json:"Destination"`
}

// Fetch держит соединение открытым в пределах окна приёма и возвращает всё,
// что успело прийти. Отсутствие ключа или недоступность эндпоинта — это
// "нет данных в этом цикле": логируем и отдаём пустой срез.
func (c *Client) Fetch(ctx context.Context) ([]feed.Observation, error) {
	if c.apiKey == "" {
		slog.Warn("ais stream: api key is not configured, skipping cycle")
		return nil, nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			slog.Error("ais stream dial", "status", resp.StatusCode, "error", err.Error())
		} else {
			slog.Error("ais stream dial", "error", err.Error())
		}
		return nil, nil
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	if err := c.subscribe(conn); err != nil {
		slog.Error("ais stream subscribe", "error", err.Error())
		return nil, nil
	}

	deadline := time.Now().Add(c.receiveWindow)
	_ = conn.SetReadDeadline(deadline)

	var out []feed.Observation
	unknownLogged := 0
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Окно закрылось или соединение оборвалось: отдаём собранное.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ais stream read ended", "error", err.Error())
			}
			break
		}

		obs, ok := c.parseMessage(raw, &unknownLogged)
		if !ok {
			continue
		}
		out = append(out, obs)
	}

	return out, nil
}

func (c *Client) subscribe(conn *websocket.Conn) error {
	boxes := c.boxes
	if len(boxes) == 0 {
		// Весь мир, если регион не задан.
		boxes = [][][]float64{{{-90, -180}, {90, 180}}}
	}
	msg := subscribeMessage{
		APIKey:             c.apiKey,
		BoundingBoxes:      boxes,
		FiltersShipMMSI:    c.mmsiFilter,
		FilterMessageTypes: c.messageTypes,
	}
	return errors.Wrap(conn.WriteJSON(msg), "write subscription")
}

func (c *Client) parseMessage(raw []byte, unknownLogged *int) (feed.Observation, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Warn("ais stream: malformed message skipped", "error", err.Error())
		return feed.Observation{}, false
	}

	trackingID := fmt.Sprintf("%d", env.MetaData.MMSI)
	ts := parseTimeUTC(env.MetaData.TimeUTC)

	switch env.MessageType {
	case "PositionReport":
		var body struct {
			PositionReport positionReport `json:"PositionReport"`
		}
		if err := json.Unmarshal(env.Message, &body); err != nil {
			slog.Warn("ais stream: bad position report skipped", "mmsi", trackingID, "error", err.Error())
			return feed.Observation{}, false
		}
		pr := body.PositionReport

		lat, lon := pr.Latitude, pr.Longitude
		if lat == 0 && lon == 0 {
			lat, lon = env.MetaData.Latitude, env.MetaData.Longitude
		}
		return feed.Observation{
			TrackingID:  trackingID,
			Name:        env.MetaData.ShipName,
			Latitude:    &lat,
			Longitude:   &lon,
			Speed:       pr.Sog,
			Course:      pr.Cog,
			Destination: "Unknown",
			StatusText:  navStatusText(pr.NavigationalStatus),
			Location:    feed.CoordsLocation(env.MetaData.ShipName, lat, lon),
			Timestamp:   ts,
		}, true

	case "ShipStaticData":
		var body struct {
			ShipStaticData shipStaticData `json:"ShipStaticData"`
		}
		if err := json.Unmarshal(env.Message, &body); err != nil {
			slog.Warn("ais stream: bad static data skipped", "mmsi", trackingID, "error", err.Error())
			return feed.Observation{}, false
		}
		name := body.ShipStaticData.Name
		if name == "" {
			name = env.MetaData.ShipName
		}
		return feed.Observation{
			TrackingID:  trackingID,
			Name:        name,
			Destination: body.ShipStaticData.Destination,
			Timestamp:   ts,
			Static:      true,
		}, true

	default:
		if *unknownLogged < unknownTypeLogCap {
			slog.Debug("ais stream: unrecognized message type dropped", "type", env.MessageType)
			*unknownLogged++
		}
		return feed.Observation{}, false
	}
}

// aisstream.io отдаёт time_utc вида "2026-08-29 10:12:13.123456789 +0000 UTC".
func parseTimeUTC(s string) time.Time {
	if s != "" {
		if t, err := time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// Тексты навигационных статусов ITU-R M.1371.
var navStatuses = map[int]string{
	0:  "Under way using engine",
	1:  "At anchor",
	2:  "Not under command",
	3:  "Restricted manoeuverability",
	4:  "Constrained by her draught",
	5:  "Moored",
	6:  "Aground",
	7:  "Engaged in fishing",
	8:  "Under way sailing",
	14: "AIS-SART active, search and rescue",
}

func navStatusText(code int) string {
	if s, ok := navStatuses[code]; ok {
		return s
	}
	return fmt.Sprintf("Navigational status %d", code)
}

package aispoll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/pkg/errors"
)

// Client опрашивает HTTP-фид позиций: по одному запросу на каждый
// отслеживаемый идентификатор. Один сбойный идентификатор не прерывает цикл.
type Client struct {
	urlTemplate string // содержит плейсхолдер {id}
	ids         []string
	httpc       *http.Client
}

func New(urlTemplate string, ids []string) *Client {
	return &Client{
		urlTemplate: urlTemplate,
		ids:         ids,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Fetch(ctx context.Context) ([]feed.Observation, error) {
	var out []feed.Observation
	for _, id := range c.ids {
		obs, err := c.fetchOne(ctx, id)
		if err != nil {
			slog.Warn("poll position feed", "id", id, "error", err.Error())
			continue
		}
		if obs == nil {
			slog.Info("poll position feed: no data", "id", id)
			continue
		}
		out = append(out, *obs)
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, id string) (*feed.Observation, error) {
	u := strings.ReplaceAll(c.urlTemplate, "{id}", id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("position feed http %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	item, ok := pickLatestItem(raw)
	if !ok {
		return nil, nil
	}
	return normalizeItem(id, item), nil
}

// pickLatestItem принимает голый объект, JSON-список или {"positions":[...]}
// и возвращает самый свежий элемент (источники отдают списки от новых
// к старым).
func pickLatestItem(raw json.RawMessage) (map[string]any, bool) {
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, false
		}
		return list[0], true
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	if positions, ok := obj["positions"]; ok {
		b, err := json.Marshal(positions)
		if err != nil {
			return nil, false
		}
		if err := json.Unmarshal(b, &list); err != nil || len(list) == 0 {
			return nil, false
		}
		return list[0], true
	}
	if !looksLikePosition(obj) {
		return nil, false
	}
	return obj, true
}

// Голый объект без единого знакомого поля позиции — не позиция, а служебный
// ответ провайдера (например {"error":"..."}). Такое событием не становится.
func looksLikePosition(m map[string]any) bool {
	_, hasLat := pickFloat(m, "lat", "latitude", "LAT", "LATITUDE")
	_, hasLon := pickFloat(m, "lon", "lng", "longitude", "LON", "LONGITUDE")
	if hasLat && hasLon {
		return true
	}
	return pickString(m, "status", "nav_status", "navigational_status", "status_text", "NAVSTAT") != ""
}

// normalizeItem — явная нормализация разноимённых полей фида в канонический
// Observation. Отсутствующие поля получают дефолты, а не молчаливые nil.
func normalizeItem(id string, m map[string]any) *feed.Observation {
	obs := feed.Observation{
		TrackingID:  id,
		Name:        pickString(m, "name", "shipname", "ship_name", "NAME", "SHIPNAME"),
		Destination: pickString(m, "destination", "dest", "DESTINATION"),
		StatusText:  pickString(m, "status", "nav_status", "navigational_status", "status_text", "NAVSTAT"),
		Timestamp:   pickTime(m, "timestamp", "time", "last_position_epoch", "TIMESTAMP", "TIME"),
	}
	if obs.Destination == "" {
		obs.Destination = "Unknown"
	}

	if lat, ok := pickFloat(m, "lat", "latitude", "LAT", "LATITUDE"); ok {
		if lon, ok := pickFloat(m, "lon", "lng", "longitude", "LON", "LONGITUDE"); ok {
			obs.Latitude = &lat
			obs.Longitude = &lon
			obs.Location = feed.CoordsLocation(obs.Name, lat, lon)
		}
	}
	if sog, ok := pickFloat(m, "sog", "speed", "SOG", "SPEED"); ok {
		obs.Speed = sog
	}
	if cog, ok := pickFloat(m, "cog", "course", "COG", "COURSE"); ok {
		obs.Course = cog
	}
	return &obs
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func pickFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case string:
			var f float64
			if _, err := fmt.Sscanf(t, "%g", &f); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func pickTime(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts.UTC()
				}
			}
		case float64:
			// epoch seconds
			return time.Unix(int64(t), 0).UTC()
		}
	}
	return time.Now().UTC()
}

package aisstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// тестовый сервер: проверяет подписку и отдаёт заготовленные сообщения
func newStreamServer(t *testing.T, msgs []string, gotSub *subscribeMessage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.ReadJSON(gotSub))

		for _, m := range msgs {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_Fetch_PositionAndStatic(t *testing.T) {
	msgs := []string{
		`{"MessageType":"PositionReport",
		  "MetaData":{"MMSI":259000420,"ShipName":"AUGUSTSON","latitude":62.6,"longitude":6.2,"time_utc":"2026-08-29 10:12:13.123456789 +0000 UTC"},
		  "Message":{"PositionReport":{"Latitude":62.6,"Longitude":6.2,"Sog":0.2,"Cog":115.0,"NavigationalStatus":5}}}`,
		`{"MessageType":"ShipStaticData",
		  "MetaData":{"MMSI":259000420,"ShipName":"AUGUSTSON"},
		  "Message":{"ShipStaticData":{"Name":"AUGUSTSON","Destination":"AALESUND"}}}`,
		`{"MessageType":"UnknownBlob","MetaData":{"MMSI":1},"Message":{}}`,
		`garbage not json`,
	}

	var sub subscribeMessage
	srv := newStreamServer(t, msgs, &sub)
	defer srv.Close()

	c := New(wsURL(srv), "test-key").
		WithFilters([][][]float64{{{62.0, 5.0}, {63.0, 7.0}}}, []string{"259000420"}, []string{"PositionReport", "ShipStaticData"}).
		WithReceiveWindow(2 * time.Second)

	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, "test-key", sub.APIKey)
	require.Equal(t, [][][]float64{{{62.0, 5.0}, {63.0, 7.0}}}, sub.BoundingBoxes)
	require.Equal(t, []string{"259000420"}, sub.FiltersShipMMSI)

	pos := out[0]
	require.Equal(t, "259000420", pos.TrackingID)
	require.False(t, pos.Static)
	require.Equal(t, "Moored", pos.StatusText)
	require.Equal(t, 0.2, pos.Speed)
	require.NotNil(t, pos.Latitude)
	require.Equal(t, 62.6, *pos.Latitude)
	require.Equal(t, time.Date(2026, 8, 29, 10, 12, 13, 123456789, time.UTC), pos.Timestamp)

	static := out[1]
	require.True(t, static.Static)
	require.Equal(t, "AALESUND", static.Destination)
	require.Equal(t, "AUGUSTSON", static.Name)
}

func TestClient_Fetch_NoAPIKey(t *testing.T) {
	c := New("ws://localhost:1", "")
	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestClient_Fetch_DialFailure(t *testing.T) {
	// Эндпоинт недоступен: ноль наблюдений, не ошибка цикла.
	c := New("ws://127.0.0.1:1", "key").WithReceiveWindow(time.Second)
	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestClient_Subscribe_DefaultBoundingBox(t *testing.T) {
	var sub subscribeMessage
	srv := newStreamServer(t, nil, &sub)
	defer srv.Close()

	c := New(wsURL(srv), "key").WithReceiveWindow(time.Second)
	_, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, [][][]float64{{{-90, -180}, {90, 180}}}, sub.BoundingBoxes)
}

func TestNavStatusText(t *testing.T) {
	require.Equal(t, "Under way using engine", navStatusText(0))
	require.Equal(t, "At anchor", navStatusText(1))
	require.Equal(t, "Navigational status 9", navStatusText(9))
}

func TestParseTimeUTC_Fallback(t *testing.T) {
	got := parseTimeUTC("bogus")
	require.WithinDuration(t, time.Now().UTC(), got, time.Minute)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	// формат подписки фиксирован протоколом фида
	b, err := json.Marshal(subscribeMessage{APIKey: "k", BoundingBoxes: [][][]float64{{{1, 2}, {3, 4}}}})
	require.NoError(t, err)
	require.JSONEq(t, `{"APIKey":"k","BoundingBoxes":[[[1,2],[3,4]]]}`, string(b))
}

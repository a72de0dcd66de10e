package mock

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/BearBump/ShipSight/internal/models"
)

type port struct {
	name string
	lat  float64
	lon  float64
}

var ports = []port{
	{"Shanghai, China", 31.2304, 121.4737},
	{"Singapore", 1.2897, 103.8501},
	{"Rotterdam, Netherlands", 51.9225, 4.4792},
	{"Hamburg, Germany", 53.5511, 9.9937},
	{"Los Angeles, CA", 34.0522, -118.2437},
	{"New York, USA", 40.7128, -74.0060},
	{"Newark, NJ", 40.7357, -74.1724},
	{"Chicago, IL", 41.8781, -87.6298},
	{"Busan, South Korea", 35.1796, 129.0756},
	{"Hong Kong", 22.3193, 114.1694},
	{"Dubai, UAE", 25.2048, 55.2708},
	{"Mumbai, India", 19.0760, 72.8777},
	{"Santos, Brazil", -23.9608, -46.3334},
	{"Melbourne, Australia", -37.8136, 144.9631},
	{"Antwerp, Belgium", 51.2194, 4.4025},
	{"Istanbul, Turkey", 41.0082, 28.9784},
	{"Cape Town, South Africa", -33.9249, 18.4241},
	{"Bangkok, Thailand", 13.7563, 100.5018},
	{"Jakarta, Indonesia", -6.2088, 106.8456},
	{"Manila, Philippines", 14.5995, 120.9842},
	{"Colombo, Sri Lanka", 6.9271, 79.8612},
	{"Piraeus, Greece", 37.9469, 23.6436},
	{"Genoa, Italy", 44.4056, 8.9463},
	{"Felixstowe, UK", 51.9612, 1.3511},
}

type statusLine struct {
	status string
	reason string
	raw    string
}

var statuses = []statusLine{
	{models.StatusOnTime, "", "In transit - maintaining schedule"},
	{models.StatusOnTime, "", "On time, arrived at sorting facility"},
	{models.StatusOnTime, "", "Departed origin port on schedule"},
	{models.StatusOnTime, "", "Processing at distribution center"},
	{models.StatusDelayed, models.ReasonPortCongestion, "Vessel delayed - severe port congestion at berth"},
	{models.StatusDelayed, models.ReasonPortCongestion, "Port congestion - 48hr queue for dock space"},
	{models.StatusDelayed, models.ReasonWeatherDelay, "Weather delay - Typhoon warning, vessel holding position"},
	{models.StatusDelayed, models.ReasonWeatherDelay, "Severe weather - Hurricane causing delay"},
	{models.StatusDelayed, models.ReasonCustomsIssue, "Customs hold - missing documentation, awaiting paperwork"},
	{models.StatusDelayed, models.ReasonCustomsIssue, "Customs inspection in progress"},
	{models.StatusDelivered, "", "Successfully delivered to recipient"},
	{models.StatusDelivered, "", "Package delivered, signed by customer"},
}

// Corpus генерирует синтетический корпус из n событий: маршруты между
// реальными портами, SHPNNNNNN-идентификаторы, предразмеченные статусы.
func Corpus(n int, seed int64) []feed.Observation {
	r := rand.New(rand.NewSource(seed))
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	out := make([]feed.Observation, 0, n)
	for i := 0; i < n; i++ {
		origin := ports[r.Intn(len(ports))]
		dest := origin
		for dest.name == origin.name {
			dest = ports[r.Intn(len(ports))]
		}
		loc := ports[r.Intn(len(ports))]
		st := statuses[r.Intn(len(statuses))]

		lat, lon := loc.lat, loc.lon
		ts := base.Add(time.Duration(r.Intn(28*24*60)) * time.Minute)

		out = append(out, feed.Observation{
			TrackingID:  fmt.Sprintf("SHP%06d", i+1),
			Name:        loc.name,
			Latitude:    &lat,
			Longitude:   &lon,
			Origin:      origin.name,
			Destination: dest.name,
			StatusText:  st.raw,
			Location:    loc.name,
			Timestamp:   ts,
			Status:      st.status,
			Reason:      st.reason,
		})
	}
	return out
}

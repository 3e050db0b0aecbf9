package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skycast/backend/internal/domain"
)

var groningen = domain.LocationResult{
	ID:        "groningen",
	Name:      "Groningen",
	Country:   "Netherlands",
	Admin1:    "Groningen",
	Latitude:  53.2194,
	Longitude: 6.5665,
	Timezone:  "Europe/Amsterdam",
}

var fixtureStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func hourStamp(i int) string {
	return fixtureStart.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
}

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

// forecastFixture builds an Open-Meteo style forecast payload with hours hourly
// entries and days daily entries. Hourly values encode their index so tests can
// tell which entry a field was read from.
func forecastFixture(hours, days int, currentTime string) map[string]any {
	times := make([]string, hours)
	codes := make([]int, hours)
	for i := range times {
		times[i] = hourStamp(i)
		codes[i] = i % 4
	}

	dayTimes := make([]string, days)
	sunrise := make([]string, days)
	sunset := make([]string, days)
	dayCodes := make([]int, days)
	for i := range dayTimes {
		d := fixtureStart.AddDate(0, 0, i)
		dayTimes[i] = d.Format("2006-01-02")
		sunrise[i] = d.Format("2006-01-02") + "T06:10"
		sunset[i] = d.Format("2006-01-02") + "T20:45"
		dayCodes[i] = 61
	}

	return map[string]any{
		"latitude":  53.22,
		"longitude": 6.56,
		"timezone":  "Europe/Amsterdam",
		"current": map[string]any{
			"time":                 currentTime,
			"temperature_2m":       12.3,
			"apparent_temperature": 10.9,
			"relative_humidity_2m": 81,
			"precipitation":        0.2,
			"weather_code":         3,
			"is_day":               1,
			"cloud_cover":          90,
			"pressure_msl":         1012.4,
			"surface_pressure":     1011.1,
			"wind_speed_10m":       18.5,
			"wind_direction_10m":   230,
			"wind_gusts_10m":       33.1,
			"visibility":           24140,
		},
		"hourly": map[string]any{
			"time":                      times,
			"temperature_2m":            series(hours, func(i int) float64 { return 10 + float64(i) }),
			"apparent_temperature":      series(hours, func(i int) float64 { return 9 + float64(i) }),
			"precipitation_probability": series(hours, func(i int) float64 { return float64(i % 100) }),
			"precipitation":             series(hours, func(i int) float64 { return float64(i) / 10 }),
			"weather_code":              codes,
			"uv_index":                  series(hours, func(i int) float64 { return float64(i) / 4 }),
			"relative_humidity_2m":      series(hours, func(i int) float64 { return 60 + float64(i%30) }),
			"wind_speed_10m":            series(hours, func(i int) float64 { return 5 + float64(i) }),
			"dew_point_2m":              series(hours, func(i int) float64 { return 100 + float64(i) }),
		},
		"daily": map[string]any{
			"time":                          dayTimes,
			"weather_code":                  dayCodes,
			"temperature_2m_max":            series(days, func(i int) float64 { return 15 + float64(i) }),
			"temperature_2m_min":            series(days, func(i int) float64 { return 5 + float64(i) }),
			"sunrise":                       sunrise,
			"sunset":                        sunset,
			"precipitation_probability_max": series(days, func(i int) float64 { return 40 }),
			"uv_index_max":                  series(days, func(i int) float64 { return 4.5 }),
			"moon_phase":                    series(days, func(i int) float64 { return float64(i) / 10 }),
		},
	}
}

func airQualityFixture(hours int) map[string]any {
	times := make([]string, hours)
	values := make([]any, hours)
	for i := range times {
		times[i] = hourStamp(i)
		values[i] = 40 + i
	}
	if hours > 3 {
		values[3] = nil
	}

	return map[string]any{
		"current": map[string]any{
			"us_aqi":           42,
			"pm2_5":            7.1,
			"pm10":             12.5,
			"ozone":            61.0,
			"carbon_monoxide":  190.0,
			"nitrogen_dioxide": 14.2,
		},
		"hourly": map[string]any{
			"time":   times,
			"us_aqi": values,
		},
	}
}

// providerStub serves forecast and air-quality payloads and counts requests per path.
type providerStub struct {
	forecast       any
	airQuality     any
	forecastStatus int
	airStatus      int
	forecastDelay  time.Duration

	forecastHits atomic.Int32
	airHits      atomic.Int32
	lastForecast atomic.Value // url.Values encoded
	lastAir      atomic.Value
}

func newProviderStub() *providerStub {
	return &providerStub{
		forecast:       forecastFixture(48, 10, hourStamp(5)),
		airQuality:     airQualityFixture(48),
		forecastStatus: http.StatusOK,
		airStatus:      http.StatusOK,
	}
}

func (p *providerStub) serve(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/v1/forecast"):
			p.forecastHits.Add(1)
			p.lastForecast.Store(r.URL.RawQuery)
			if p.forecastDelay > 0 {
				time.Sleep(p.forecastDelay)
			}
			writePayload(w, p.forecastStatus, p.forecast)
		case strings.HasSuffix(r.URL.Path, "/v1/air-quality"):
			p.airHits.Add(1)
			p.lastAir.Store(r.URL.RawQuery)
			writePayload(w, p.airStatus, p.airQuality)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writePayload(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if raw, ok := payload.(string); ok {
		_, _ = w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

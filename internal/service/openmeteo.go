package service

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/skycast/backend/internal/domain"
)

// ForecastResponse is the Open-Meteo forecast payload. Series are parallel arrays
// index-aligned to their Time slice.
type ForecastResponse struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Timezone  string          `json:"timezone"`
	Current   ForecastCurrent `json:"current"`
	Hourly    ForecastHourly  `json:"hourly"`
	Daily     ForecastDaily   `json:"daily"`
}

// ForecastCurrent fields are pointers so a null or absent reading can be told apart from zero.
type ForecastCurrent struct {
	Time                string   `json:"time"`
	Temperature2m       *float64 `json:"temperature_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	RelativeHumidity2m  *float64 `json:"relative_humidity_2m"`
	Precipitation       *float64 `json:"precipitation"`
	WeatherCode         *int     `json:"weather_code"`
	IsDay               *int     `json:"is_day"`
	CloudCover          *float64 `json:"cloud_cover"`
	PressureMSL         *float64 `json:"pressure_msl"`
	SurfacePressure     *float64 `json:"surface_pressure"`
	WindSpeed10m        *float64 `json:"wind_speed_10m"`
	WindDirection10m    *float64 `json:"wind_direction_10m"`
	WindGusts10m        *float64 `json:"wind_gusts_10m"`
	Visibility          *float64 `json:"visibility"`
}

// missing names the first current reading that is null or absent.
func (c ForecastCurrent) missing() string {
	readings := []struct {
		name string
		v    *float64
	}{
		{"temperature_2m", c.Temperature2m},
		{"apparent_temperature", c.ApparentTemperature},
		{"relative_humidity_2m", c.RelativeHumidity2m},
		{"precipitation", c.Precipitation},
		{"cloud_cover", c.CloudCover},
		{"pressure_msl", c.PressureMSL},
		{"surface_pressure", c.SurfacePressure},
		{"wind_speed_10m", c.WindSpeed10m},
		{"wind_direction_10m", c.WindDirection10m},
		{"wind_gusts_10m", c.WindGusts10m},
		{"visibility", c.Visibility},
	}
	for _, r := range readings {
		if r.v == nil {
			return r.name
		}
	}
	if c.WeatherCode == nil {
		return "weather_code"
	}
	if c.IsDay == nil {
		return "is_day"
	}
	return ""
}

type ForecastHourly struct {
	Time                     []string   `json:"time"`
	Temperature2m            []*float64 `json:"temperature_2m"`
	ApparentTemperature      []*float64 `json:"apparent_temperature"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	Precipitation            []*float64 `json:"precipitation"`
	WeatherCode              []*int     `json:"weather_code"`
	UVIndex                  []*float64 `json:"uv_index"`
	RelativeHumidity2m       []*float64 `json:"relative_humidity_2m"`
	WindSpeed10m             []*float64 `json:"wind_speed_10m"`
	DewPoint2m               []*float64 `json:"dew_point_2m"`
}

type ForecastDaily struct {
	Time                        []string   `json:"time"`
	WeatherCode                 []*int     `json:"weather_code"`
	Temperature2mMax            []*float64 `json:"temperature_2m_max"`
	Temperature2mMin            []*float64 `json:"temperature_2m_min"`
	Sunrise                     []string   `json:"sunrise"`
	Sunset                      []string   `json:"sunset"`
	PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	UVIndexMax                  []*float64 `json:"uv_index_max"`
	MoonPhase                   []*float64 `json:"moon_phase"`
}

// AirQualityResponse is the Open-Meteo air-quality payload. Every current field is optional.
type AirQualityResponse struct {
	Current *AirQualityCurrent `json:"current"`
	Hourly  *AirQualityHourly  `json:"hourly"`
}

type AirQualityCurrent struct {
	USAQI           *float64 `json:"us_aqi"`
	PM25            *float64 `json:"pm2_5"`
	PM10            *float64 `json:"pm10"`
	Ozone           *float64 `json:"ozone"`
	CarbonMonoxide  *float64 `json:"carbon_monoxide"`
	NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
	SulphurDioxide  *float64 `json:"sulphur_dioxide"`
}

type AirQualityHourly struct {
	Time  []string   `json:"time"`
	USAQI []*float64 `json:"us_aqi"`
}

// ParseForecast decodes and validates a forecast payload.
func ParseForecast(r io.Reader) (ForecastResponse, error) {
	var f ForecastResponse
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return ForecastResponse{}, fmt.Errorf("forecast: %w: %v", domain.ErrMalformedPayload, err)
	}
	if err := f.validate(); err != nil {
		return ForecastResponse{}, fmt.Errorf("forecast: %w: %v", domain.ErrMalformedPayload, err)
	}
	return f, nil
}

// ParseAirQuality decodes and validates an air-quality payload.
func ParseAirQuality(r io.Reader) (AirQualityResponse, error) {
	var a AirQualityResponse
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return AirQualityResponse{}, fmt.Errorf("air quality: %w: %v", domain.ErrMalformedPayload, err)
	}
	if a.Hourly == nil {
		return AirQualityResponse{}, fmt.Errorf("air quality: %w: missing hourly block", domain.ErrMalformedPayload)
	}
	return a, nil
}

func (f *ForecastResponse) validate() error {
	if f.Current.Time == "" {
		return fmt.Errorf("missing current.time")
	}
	if name := f.Current.missing(); name != "" {
		return fmt.Errorf("missing current.%s", name)
	}

	h := f.Hourly
	if len(h.Time) == 0 {
		return fmt.Errorf("missing hourly.time")
	}
	// Only the entries that make it into the bundle must be present.
	used := min(len(h.Time), domain.HourlyPoints)
	hourly := map[string][]*float64{
		"temperature_2m":            h.Temperature2m,
		"apparent_temperature":      h.ApparentTemperature,
		"precipitation_probability": h.PrecipitationProbability,
		"precipitation":             h.Precipitation,
		"uv_index":                  h.UVIndex,
		"relative_humidity_2m":      h.RelativeHumidity2m,
		"wind_speed_10m":            h.WindSpeed10m,
	}
	for name, series := range hourly {
		if err := checkSeries("hourly."+name, series, len(h.Time), used); err != nil {
			return err
		}
	}
	if err := checkCodes("hourly.weather_code", h.WeatherCode, len(h.Time), used); err != nil {
		return err
	}
	if h.DewPoint2m != nil && len(h.DewPoint2m) != len(h.Time) {
		return fmt.Errorf("hourly.dew_point_2m has %d entries, want %d", len(h.DewPoint2m), len(h.Time))
	}

	d := f.Daily
	n := len(d.Time)
	daily := map[string][]*float64{
		"temperature_2m_max": d.Temperature2mMax,
		"temperature_2m_min": d.Temperature2mMin,
	}
	for name, series := range daily {
		if err := checkSeries("daily."+name, series, n, n); err != nil {
			return err
		}
	}
	// Nullable past the reliable horizon; only the length has to match.
	sparse := map[string][]*float64{
		"precipitation_probability_max": d.PrecipitationProbabilityMax,
		"uv_index_max":                  d.UVIndexMax,
	}
	for name, series := range sparse {
		if err := checkSeries("daily."+name, series, n, 0); err != nil {
			return err
		}
	}
	if err := checkCodes("daily.weather_code", d.WeatherCode, n, n); err != nil {
		return err
	}
	if len(d.Sunrise) != n || len(d.Sunset) != n {
		return fmt.Errorf("daily sunrise/sunset length mismatch")
	}
	return nil
}

func checkSeries(name string, series []*float64, want, used int) error {
	if len(series) != want {
		return fmt.Errorf("%s has %d entries, want %d", name, len(series), want)
	}
	for i := 0; i < used; i++ {
		if series[i] == nil {
			return fmt.Errorf("%s[%d] is null", name, i)
		}
	}
	return nil
}

func checkCodes(name string, codes []*int, want, used int) error {
	if len(codes) != want {
		return fmt.Errorf("%s has %d entries, want %d", name, len(codes), want)
	}
	for i := 0; i < used; i++ {
		if codes[i] == nil {
			return fmt.Errorf("%s[%d] is null", name, i)
		}
	}
	return nil
}

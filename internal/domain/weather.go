package domain

import "fmt"

// Source tells consumers whether a bundle came from the upstream APIs or the synthesizer.
type Source string

const (
	SourceLive Source = "live"
	SourceMock Source = "mock"
)

// TemperatureUnit is the unit every temperature-bearing field of a bundle is expressed in.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

// ParseTemperatureUnit validates a unit name. An empty string means celsius.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch TemperatureUnit(s) {
	case "", Celsius:
		return Celsius, nil
	case Fahrenheit:
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// WindSpeedUnit returns the upstream wind_speed_unit matching the temperature unit.
func (u TemperatureUnit) WindSpeedUnit() string {
	if u == Fahrenheit {
		return "mph"
	}
	return "kmh"
}

// FromCelsius converts a celsius reading into u.
func (u TemperatureUnit) FromCelsius(c float64) float64 {
	if u == Fahrenheit {
		return c*1.8 + 32
	}
	return c
}

// ToCelsius is the inverse of FromCelsius.
func (u TemperatureUnit) ToCelsius(v float64) float64 {
	if u == Fahrenheit {
		return (v - 32) / 1.8
	}
	return v
}

// WeatherBundle is the source-agnostic weather and air-quality snapshot handed to presentation.
// A nil pointer field means the value is unavailable, never zero.
type WeatherBundle struct {
	Source     Source          `json:"source"`
	Location   LocationResult  `json:"location"`
	Timezone   string          `json:"timezone"`
	Unit       TemperatureUnit `json:"unit"`
	Current    CurrentWeather  `json:"current"`
	Hourly     []HourlyPoint   `json:"hourly"`
	Daily      []DailyPoint    `json:"daily"`
	AirQuality AirQuality      `json:"airQuality"`
}

// CurrentWeather is the point-in-time observation.
type CurrentWeather struct {
	Time            string   `json:"time"`
	WeatherCode     int      `json:"weatherCode"`
	IsDay           int      `json:"isDay"`
	Temp            float64  `json:"temp"`
	ApparentTemp    float64  `json:"apparentTemp"`
	Humidity        float64  `json:"humidity"`
	Precipitation   float64  `json:"precipitation"`
	CloudCover      float64  `json:"cloudCover"`
	PressureMSL     float64  `json:"pressureMsl"`
	SurfacePressure float64  `json:"surfacePressure"`
	WindSpeed       float64  `json:"windSpeed"`
	WindDirection   float64  `json:"windDirection"`
	WindGusts       float64  `json:"windGusts"`
	Visibility      float64  `json:"visibility"`
	DewPoint        *float64 `json:"dewPoint"`
	UVIndex         *float64 `json:"uvIndex"`
	PrecipChance    *float64 `json:"precipChance"`
}

// HourlyPoint is one entry of the hourly series.
type HourlyPoint struct {
	Time          string  `json:"time"`
	WeatherCode   int     `json:"weatherCode"`
	Temp          float64 `json:"temp"`
	ApparentTemp  float64 `json:"apparentTemp"`
	PrecipChance  float64 `json:"precipChance"`
	Precipitation float64 `json:"precipitation"`
	UVIndex       float64 `json:"uvIndex"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
}

// DailyPoint is one entry of the daily series. The provider leaves precipitation chance
// and UV maximum empty at the far end of the horizon, so those may be nil.
type DailyPoint struct {
	Time         string   `json:"time"`
	WeatherCode  int      `json:"weatherCode"`
	TempMax      float64  `json:"tempMax"`
	TempMin      float64  `json:"tempMin"`
	Sunrise      string   `json:"sunrise"`
	Sunset       string   `json:"sunset"`
	PrecipChance *float64 `json:"precipChance"`
	UVIndexMax   *float64 `json:"uvIndexMax"`
	MoonPhase    *float64 `json:"moonPhase"`
}

// AirQuality holds the current pollutant snapshot and the hourly AQI series.
type AirQuality struct {
	USAQI           *float64    `json:"usAqi"`
	PM25            *float64    `json:"pm25"`
	PM10            *float64    `json:"pm10"`
	Ozone           *float64    `json:"ozone"`
	CarbonMonoxide  *float64    `json:"carbonMonoxide"`
	NitrogenDioxide *float64    `json:"nitrogenDioxide"`
	SulphurDioxide  *float64    `json:"sulphurDioxide"`
	HourlyAQI       []HourlyAQI `json:"hourlyAqi"`
}

// HourlyAQI is one US AQI reading; Value is nil when the provider had none for that hour.
type HourlyAQI struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// Bundle series bounds
const (
	HourlyPoints = 36
	DailyPoints  = 10
	AQIPoints    = 24
)

// WeatherResponse wraps a bundle with metadata
type WeatherResponse struct {
	Data    WeatherBundle `json:"data"`
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
}

package service

import (
	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/pkg/utils"
)

// BuildLiveBundle merges forecast and air-quality payloads that passed ParseForecast and
// ParseAirQuality into a bundle.
// Temperatures are passed through untouched: the provider was asked for unit already.
func BuildLiveBundle(
	loc domain.LocationResult,
	unit domain.TemperatureUnit,
	f ForecastResponse,
	a AirQualityResponse,
) domain.WeatherBundle {
	idx := utils.IndexNearestTime(f.Hourly.Time, f.Current.Time)
	c := f.Current

	return domain.WeatherBundle{
		Source:   domain.SourceLive,
		Location: loc,
		Timezone: f.Timezone,
		Unit:     unit,
		Current: domain.CurrentWeather{
			Time:            c.Time,
			WeatherCode:     *c.WeatherCode,
			IsDay:           *c.IsDay,
			Temp:            *c.Temperature2m,
			ApparentTemp:    *c.ApparentTemperature,
			Humidity:        *c.RelativeHumidity2m,
			Precipitation:   *c.Precipitation,
			CloudCover:      *c.CloudCover,
			PressureMSL:     *c.PressureMSL,
			SurfacePressure: *c.SurfacePressure,
			WindSpeed:       *c.WindSpeed10m,
			WindDirection:   *c.WindDirection10m,
			WindGusts:       *c.WindGusts10m,
			Visibility:      *c.Visibility,
			DewPoint:        at(f.Hourly.DewPoint2m, idx),
			UVIndex:         at(f.Hourly.UVIndex, idx),
			PrecipChance:    at(f.Hourly.PrecipitationProbability, idx),
		},
		Hourly:     liveHourly(f.Hourly),
		Daily:      liveDaily(f.Daily),
		AirQuality: liveAirQuality(a),
	}
}

func liveHourly(h ForecastHourly) []domain.HourlyPoint {
	n := min(len(h.Time), domain.HourlyPoints)
	points := make([]domain.HourlyPoint, n)
	for i := 0; i < n; i++ {
		points[i] = domain.HourlyPoint{
			Time:          h.Time[i],
			WeatherCode:   code(h.WeatherCode, i),
			Temp:          value(h.Temperature2m, i),
			ApparentTemp:  value(h.ApparentTemperature, i),
			PrecipChance:  value(h.PrecipitationProbability, i),
			Precipitation: value(h.Precipitation, i),
			UVIndex:       value(h.UVIndex, i),
			Humidity:      value(h.RelativeHumidity2m, i),
			WindSpeed:     value(h.WindSpeed10m, i),
		}
	}
	return points
}

func liveDaily(d ForecastDaily) []domain.DailyPoint {
	points := make([]domain.DailyPoint, len(d.Time))
	for i, t := range d.Time {
		points[i] = domain.DailyPoint{
			Time:         t,
			WeatherCode:  code(d.WeatherCode, i),
			TempMax:      value(d.Temperature2mMax, i),
			TempMin:      value(d.Temperature2mMin, i),
			Sunrise:      d.Sunrise[i],
			Sunset:       d.Sunset[i],
			PrecipChance: at(d.PrecipitationProbabilityMax, i),
			UVIndexMax:   at(d.UVIndexMax, i),
			MoonPhase:    at(d.MoonPhase, i),
		}
	}
	return points
}

func liveAirQuality(a AirQualityResponse) domain.AirQuality {
	var aq domain.AirQuality
	if c := a.Current; c != nil {
		aq.USAQI = c.USAQI
		aq.PM25 = c.PM25
		aq.PM10 = c.PM10
		aq.Ozone = c.Ozone
		aq.CarbonMonoxide = c.CarbonMonoxide
		aq.NitrogenDioxide = c.NitrogenDioxide
		aq.SulphurDioxide = c.SulphurDioxide
	}

	aq.HourlyAQI = []domain.HourlyAQI{}
	if a.Hourly != nil {
		n := min(len(a.Hourly.Time), domain.AQIPoints)
		aq.HourlyAQI = make([]domain.HourlyAQI, n)
		for i := 0; i < n; i++ {
			aq.HourlyAQI[i] = domain.HourlyAQI{
				Time:  a.Hourly.Time[i],
				Value: at(a.Hourly.USAQI, i),
			}
		}
	}
	return aq
}

// at returns a copy of series[i], or nil when the entry is missing.
func at(series []*float64, i int) *float64 {
	if i < 0 || i >= len(series) || series[i] == nil {
		return nil
	}
	return utils.Float(*series[i])
}

func value(series []*float64, i int) float64 {
	if p := at(series, i); p != nil {
		return *p
	}
	return 0
}

func code(codes []*int, i int) int {
	if i < 0 || i >= len(codes) || codes[i] == nil {
		return 0
	}
	return *codes[i]
}

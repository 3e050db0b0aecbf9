package service

import (
	"math"
	"time"

	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/pkg/utils"
)

// isoMillis matches the millisecond UTC timestamps the synthesized series carry
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Fixed readings of the synthesized current observation and pollutant snapshot
const (
	mockPressureMSL     = 1013
	mockSurfacePressure = 1010
	mockWindDirection   = 245
	mockVisibility      = 12000
	mockDewPointC       = 4.1
	mockGustOffset      = 8.4
)

// BuildMockBundle synthesizes a plausible bundle from smooth periodic functions of the
// point index. The result depends only on its arguments: no randomness is involved.
func BuildMockBundle(loc domain.LocationResult, unit domain.TemperatureUnit, now time.Time) domain.WeatherBundle {
	hourly := mockHourly(unit, now)
	daily := mockDaily(unit, now, zoneOf(loc))
	aqi := mockHourlyAQI(now)

	first := hourly[0]

	return domain.WeatherBundle{
		Source:   domain.SourceMock,
		Location: loc,
		Timezone: loc.Timezone,
		Unit:     unit,
		Current: domain.CurrentWeather{
			Time:            first.Time,
			WeatherCode:     first.WeatherCode,
			IsDay:           1,
			Temp:            first.Temp,
			ApparentTemp:    first.ApparentTemp,
			Humidity:        first.Humidity,
			Precipitation:   first.Precipitation,
			CloudCover:      utils.Clamp(first.PrecipChance+12, 10, 95),
			PressureMSL:     mockPressureMSL,
			SurfacePressure: mockSurfacePressure,
			WindSpeed:       first.WindSpeed,
			WindDirection:   mockWindDirection,
			WindGusts:       utils.RoundTo(first.WindSpeed+mockGustOffset, 1),
			Visibility:      mockVisibility,
			DewPoint:        utils.Float(unit.FromCelsius(mockDewPointC)),
			UVIndex:         utils.Float(first.UVIndex),
			PrecipChance:    utils.Float(first.PrecipChance),
		},
		Hourly: hourly,
		Daily:  daily,
		AirQuality: domain.AirQuality{
			USAQI:           aqi[0].Value,
			PM25:            utils.Float(9.4),
			PM10:            utils.Float(15.8),
			Ozone:           utils.Float(72.1),
			CarbonMonoxide:  utils.Float(241.2),
			NitrogenDioxide: utils.Float(21.7),
			SulphurDioxide:  utils.Float(3.9),
			HourlyAQI:       aqi,
		},
	}
}

func mockHourly(unit domain.TemperatureUnit, now time.Time) []domain.HourlyPoint {
	points := make([]domain.HourlyPoint, domain.HourlyPoints)
	for i := range points {
		x := float64(i)
		tempC := 7.5 + math.Sin(x/3)*4.2

		burst := 0.0
		if i%8 == 0 {
			burst = 16
		}
		chance := utils.Clamp(utils.RoundHalfUp(36+math.Sin(x/2.4)*32+burst), 5, 95)

		// Rainy hours scale much more steeply than drizzle.
		rate := 0.45
		if chance > 62 {
			rate = 1.9
		}

		points[i] = domain.HourlyPoint{
			Time:          now.Add(time.Duration(i) * time.Hour).UTC().Format(isoMillis),
			WeatherCode:   mockWeatherCode(chance, 70, 45, 28),
			Temp:          unit.FromCelsius(tempC),
			ApparentTemp:  unit.FromCelsius(tempC - 1.4),
			PrecipChance:  chance,
			Precipitation: utils.RoundTo(chance/100*rate, 1),
			UVIndex:       math.Max(0, utils.RoundTo(math.Sin((x-6)/4)*3.8, 1)),
			Humidity:      utils.Clamp(utils.RoundHalfUp(73+math.Sin(x/2.3)*18), 50, 96),
			WindSpeed:     utils.RoundTo(12+math.Cos(x/5)*6, 1),
		}
	}
	return points
}

func mockDaily(unit domain.TemperatureUnit, now time.Time, zone *time.Location) []domain.DailyPoint {
	points := make([]domain.DailyPoint, domain.DailyPoints)
	for i := range points {
		x := float64(i)
		wave := math.Sin(x / 2.1)
		chance := utils.Clamp(utils.RoundHalfUp(44+math.Cos(x/1.9)*26), 12, 96)
		day := now.Add(time.Duration(i) * 24 * time.Hour)

		points[i] = domain.DailyPoint{
			Time:         day.UTC().Format(isoMillis),
			WeatherCode:  mockWeatherCode(chance, 64, 45, 30),
			TempMax:      unit.FromCelsius(10.5 + wave*3.8),
			TempMin:      unit.FromCelsius(4 + wave*2.8),
			Sunrise:      atClock(day, zone, 7, 38+i%5),
			Sunset:       atClock(day, zone, 17, 19-i%5),
			PrecipChance: utils.Float(chance),
			UVIndexMax:   utils.Float(math.Max(1.1, utils.RoundTo(3.2+math.Sin(x/3.2)*2.2, 1))),
			MoonPhase:    utils.Float(utils.RoundTo(math.Mod(0.18+x*0.09, 1), 2)),
		}
	}
	return points
}

func mockHourlyAQI(now time.Time) []domain.HourlyAQI {
	points := make([]domain.HourlyAQI, domain.AQIPoints)
	for i := range points {
		v := utils.Clamp(utils.RoundHalfUp(58+math.Sin(float64(i)/4.1)*21), 32, 110)
		points[i] = domain.HourlyAQI{
			Time:  now.Add(time.Duration(i) * time.Hour).UTC().Format(isoMillis),
			Value: utils.Float(v),
		}
	}
	return points
}

// mockWeatherCode buckets a precipitation chance into rain, overcast, partly cloudy or mainly clear.
func mockWeatherCode(chance, rain, overcast, partly float64) int {
	switch {
	case chance > rain:
		return 61
	case chance > overcast:
		return 3
	case chance > partly:
		return 2
	default:
		return 1
	}
}

// atClock places the wall-clock time hour:minute on day's calendar date in zone.
func atClock(day time.Time, zone *time.Location, hour, minute int) string {
	local := day.In(zone)
	t := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, zone)
	return t.UTC().Format(isoMillis)
}

func zoneOf(loc domain.LocationResult) *time.Location {
	if loc.Timezone != "" {
		if z, err := time.LoadLocation(loc.Timezone); err == nil {
			return z
		}
	}
	return time.UTC
}

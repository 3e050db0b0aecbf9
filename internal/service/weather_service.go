package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/skycast/backend/internal/domain"
)

// Upstream fetches the raw provider payloads for one location.
type Upstream interface {
	FetchForecastAndAirQuality(ctx context.Context, loc domain.LocationResult, unit domain.TemperatureUnit) (ForecastResponse, AirQualityResponse, error)
}

// WeatherService produces bundles, live when possible and synthesized otherwise
type WeatherService struct {
	upstream Upstream
	now      func() time.Time
	logger   *slog.Logger
}

// NewWeatherService creates a new weather service
func NewWeatherService(upstream Upstream, logger *slog.Logger) *WeatherService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherService{
		upstream: upstream,
		now:      time.Now,
		logger:   logger,
	}
}

// FetchWeatherBundle always returns a bundle. Any upstream failure is logged and replaced
// by a synthesized bundle tagged with domain.SourceMock.
func (s *WeatherService) FetchWeatherBundle(ctx context.Context, loc domain.LocationResult, unit domain.TemperatureUnit) domain.WeatherBundle {
	bundle, err := s.fetchLive(ctx, loc, unit)
	if err != nil {
		s.logger.Warn("weather: live fetch failed, using synthesized data",
			"location", loc.ID, "unit", unit, "error", err)
		return BuildMockBundle(loc, unit, s.now())
	}
	return bundle
}

func (s *WeatherService) fetchLive(ctx context.Context, loc domain.LocationResult, unit domain.TemperatureUnit) (domain.WeatherBundle, error) {
	forecast, air, err := s.upstream.FetchForecastAndAirQuality(ctx, loc, unit)
	if err != nil {
		return domain.WeatherBundle{}, err
	}
	return BuildLiveBundle(loc, unit, forecast, air), nil
}

package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/skycast/backend/internal/domain"
)

// Config holds everything the server needs at startup
type Config struct {
	Port              string
	Env               string
	LogLevel          string
	DatabaseURL       string
	GeocodingBaseURL  string
	ForecastBaseURL   string
	AirQualityBaseURL string
	HTTPTimeout       time.Duration
	DefaultUnit       domain.TemperatureUnit
	SearchDebounce    time.Duration
	GeoTimeout        time.Duration
	GeoMaxAge         time.Duration
	DefaultLocation   domain.LocationResult
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment")
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("GEOCODING_BASE_URL", "https://geocoding-api.open-meteo.com")
	v.SetDefault("FORECAST_BASE_URL", "https://api.open-meteo.com")
	v.SetDefault("AIR_QUALITY_BASE_URL", "https://air-quality-api.open-meteo.com")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("DEFAULT_UNIT", string(domain.Celsius))
	v.SetDefault("SEARCH_DEBOUNCE", 350*time.Millisecond)
	v.SetDefault("GEOLOCATION_TIMEOUT", 9*time.Second)
	v.SetDefault("GEOLOCATION_MAX_AGE", 2*time.Minute)

	v.SetDefault("DEFAULT_LOCATION_ID", "groningen")
	v.SetDefault("DEFAULT_LOCATION_NAME", "Groningen")
	v.SetDefault("DEFAULT_LOCATION_COUNTRY", "Netherlands")
	v.SetDefault("DEFAULT_LOCATION_ADMIN1", "Groningen")
	v.SetDefault("DEFAULT_LOCATION_LATITUDE", 53.2194)
	v.SetDefault("DEFAULT_LOCATION_LONGITUDE", 6.5665)
	v.SetDefault("DEFAULT_LOCATION_TIMEZONE", "Europe/Amsterdam")
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	unit, err := domain.ParseTemperatureUnit(v.GetString("DEFAULT_UNIT"))
	if err != nil {
		return nil, fmt.Errorf("config: DEFAULT_UNIT: %w", err)
	}

	cfg := &Config{
		Port:              v.GetString("PORT"),
		Env:               v.GetString("GO_ENV"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		GeocodingBaseURL:  v.GetString("GEOCODING_BASE_URL"),
		ForecastBaseURL:   v.GetString("FORECAST_BASE_URL"),
		AirQualityBaseURL: v.GetString("AIR_QUALITY_BASE_URL"),
		HTTPTimeout:       v.GetDuration("HTTP_TIMEOUT"),
		DefaultUnit:       unit,
		SearchDebounce:    v.GetDuration("SEARCH_DEBOUNCE"),
		GeoTimeout:        v.GetDuration("GEOLOCATION_TIMEOUT"),
		GeoMaxAge:         v.GetDuration("GEOLOCATION_MAX_AGE"),
		DefaultLocation: domain.LocationResult{
			ID:        v.GetString("DEFAULT_LOCATION_ID"),
			Name:      v.GetString("DEFAULT_LOCATION_NAME"),
			Country:   v.GetString("DEFAULT_LOCATION_COUNTRY"),
			Admin1:    v.GetString("DEFAULT_LOCATION_ADMIN1"),
			Latitude:  v.GetFloat64("DEFAULT_LOCATION_LATITUDE"),
			Longitude: v.GetFloat64("DEFAULT_LOCATION_LONGITUDE"),
			Timezone:  v.GetString("DEFAULT_LOCATION_TIMEZONE"),
		},
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("config: HTTP_TIMEOUT must be positive")
	}
	if cfg.GeoTimeout <= 0 {
		return nil, fmt.Errorf("config: GEOLOCATION_TIMEOUT must be positive")
	}

	return cfg, nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skycast/backend/internal/domain"
)

const (
	forecastCurrentFields = "temperature_2m,apparent_temperature,relative_humidity_2m,precipitation," +
		"weather_code,is_day,cloud_cover,pressure_msl,surface_pressure," +
		"wind_speed_10m,wind_direction_10m,wind_gusts_10m,visibility"
	forecastHourlyFields = "temperature_2m,apparent_temperature,precipitation_probability,precipitation," +
		"weather_code,uv_index,relative_humidity_2m,wind_speed_10m,dew_point_2m"
	forecastDailyFields = "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset," +
		"precipitation_probability_max,uv_index_max,moon_phase"
	airQualityCurrentFields = "us_aqi,pm2_5,pm10,ozone,carbon_monoxide,nitrogen_dioxide,sulphur_dioxide"
)

// UpstreamClient talks to the forecast and air-quality providers
type UpstreamClient struct {
	forecastBaseURL   string
	airQualityBaseURL string
	httpClient        *http.Client
}

// NewUpstreamClient creates a new upstream client
func NewUpstreamClient(forecastBaseURL, airQualityBaseURL string, timeout time.Duration) *UpstreamClient {
	return &UpstreamClient{
		forecastBaseURL:   strings.TrimRight(forecastBaseURL, "/"),
		airQualityBaseURL: strings.TrimRight(airQualityBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchForecastAndAirQuality requests both payloads concurrently. Either one failing fails the call.
func (c *UpstreamClient) FetchForecastAndAirQuality(
	ctx context.Context,
	loc domain.LocationResult,
	unit domain.TemperatureUnit,
) (ForecastResponse, AirQualityResponse, error) {
	var (
		forecast ForecastResponse
		air      AirQualityResponse
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		body, err := c.get(gctx, c.forecastURL(loc, unit))
		if err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		defer body.Close()

		forecast, err = ParseForecast(body)
		return err
	})

	g.Go(func() error {
		body, err := c.get(gctx, c.airQualityURL(loc))
		if err != nil {
			return fmt.Errorf("air quality: %w", err)
		}
		defer body.Close()

		air, err = ParseAirQuality(body)
		return err
	})

	if err := g.Wait(); err != nil {
		return ForecastResponse{}, AirQualityResponse{}, fmt.Errorf("upstream: %w", err)
	}

	return forecast, air, nil
}

func (c *UpstreamClient) forecastURL(loc domain.LocationResult, unit domain.TemperatureUnit) string {
	q := coordinates(loc.Latitude, loc.Longitude)
	q.Set("current", forecastCurrentFields)
	q.Set("hourly", forecastHourlyFields)
	q.Set("daily", forecastDailyFields)
	q.Set("forecast_days", "10")
	q.Set("temperature_unit", string(unit))
	q.Set("wind_speed_unit", unit.WindSpeedUnit())
	q.Set("timezone", "auto")
	return c.forecastBaseURL + "/v1/forecast?" + q.Encode()
}

func (c *UpstreamClient) airQualityURL(loc domain.LocationResult) string {
	q := coordinates(loc.Latitude, loc.Longitude)
	q.Set("current", airQualityCurrentFields)
	q.Set("hourly", "us_aqi")
	q.Set("timezone", "auto")
	return c.airQualityBaseURL + "/v1/air-quality?" + q.Encode()
}

// get issues a GET and hands back the body of a 2xx response. The caller closes it.
func (c *UpstreamClient) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return getBody(ctx, c.httpClient, rawURL)
}

func getBody(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: API returned status %d", domain.ErrTransport, resp.StatusCode)
	}

	return resp.Body, nil
}

func coordinates(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return q
}

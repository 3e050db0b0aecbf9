package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skycast/backend/internal/domain"
)

// LocationService resolves place names and coordinates through the geocoding provider
type LocationService struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLocationService creates a new location service
func NewLocationService(baseURL string, timeout time.Duration, logger *slog.Logger) *LocationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationService{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type geocodingResponse struct {
	Results []geocodingResult `json:"results"`
}

type geocodingResult struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

func (r geocodingResult) toLocation() domain.LocationResult {
	return domain.LocationResult{
		ID:        strconv.FormatInt(r.ID, 10),
		Name:      r.Name,
		Country:   r.Country,
		Admin1:    r.Admin1,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timezone:  r.Timezone,
	}
}

// SearchByText returns up to domain.SearchLimit candidates in provider order.
// Queries shorter than domain.MinQueryLength yield an empty slice and domain.ErrEmptyQuery
// without contacting the provider.
func (s *LocationService) SearchByText(ctx context.Context, query string) ([]domain.LocationResult, error) {
	text := strings.TrimSpace(query)
	if len([]rune(text)) < domain.MinQueryLength {
		return []domain.LocationResult{}, domain.ErrEmptyQuery
	}

	q := url.Values{}
	q.Set("name", text)
	q.Set("count", strconv.Itoa(domain.SearchLimit))
	q.Set("language", "en")
	q.Set("format", "json")

	data, err := s.geocode(ctx, "/v1/search", q)
	if err != nil {
		return nil, fmt.Errorf("location: search %q: %w", text, err)
	}

	results := make([]domain.LocationResult, 0, len(data.Results))
	for _, r := range data.Results {
		results = append(results, r.toLocation())
	}
	return results, nil
}

// ReverseGeocode returns the best match for the coordinates, or nil when there is none.
func (s *LocationService) ReverseGeocode(ctx context.Context, lat, lon float64) (*domain.LocationResult, error) {
	q := coordinates(lat, lon)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	data, err := s.geocode(ctx, "/v1/reverse", q)
	if err != nil {
		return nil, fmt.Errorf("location: reverse geocode: %w", err)
	}
	if len(data.Results) == 0 {
		return nil, nil
	}

	loc := data.Results[0].toLocation()
	return &loc, nil
}

// DetectDeviceLocation turns a device fix into a place. A missing capability yields (nil, nil);
// denial and timeout come back as domain.ErrGeolocationDenied and domain.ErrGeolocationTimeout.
// A fix the geocoder cannot name becomes a "Current Location" record in the local time zone.
func (s *LocationService) DetectDeviceLocation(ctx context.Context, locator DeviceLocator) (*domain.LocationResult, error) {
	fix, err := locator.Locate(ctx)
	if errors.Is(err, domain.ErrGeolocationUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	resolved, err := s.ReverseGeocode(ctx, fix.Latitude, fix.Longitude)
	if err != nil {
		s.logger.Warn("location: reverse geocode failed, using raw coordinates", "error", err)
	}
	if resolved != nil {
		return resolved, nil
	}

	return &domain.LocationResult{
		ID:        strconv.FormatFloat(fix.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(fix.Longitude, 'f', -1, 64),
		Name:      domain.CurrentLocationName,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timezone:  localTimezone(),
	}, nil
}

func (s *LocationService) geocode(ctx context.Context, path string, q url.Values) (geocodingResponse, error) {
	body, err := getBody(ctx, s.httpClient, s.baseURL+path+"?"+q.Encode())
	if err != nil {
		return geocodingResponse{}, err
	}
	defer body.Close()

	var data geocodingResponse
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		return geocodingResponse{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return data, nil
}

// localTimezone resolves the IANA name of the host's time zone.
func localTimezone() string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	return "UTC"
}

package http

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/internal/service"
)

// Locations is what the handlers need from the location resolver
type Locations interface {
	SearchByText(ctx context.Context, query string) ([]domain.LocationResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*domain.LocationResult, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	dashboard *service.DashboardService
	weather   service.BundleFetcher
	locations Locations
	locator   *service.LocatorCache
	repo      service.FetchLogRepository
}

// NewHandler creates a new handler
func NewHandler(
	dashboard *service.DashboardService,
	weather service.BundleFetcher,
	locations Locations,
	locator *service.LocatorCache,
	repo service.FetchLogRepository,
) *Handler {
	return &Handler{
		dashboard: dashboard,
		weather:   weather,
		locations: locations,
		locator:   locator,
		repo:      repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	storage := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		status = "degraded"
		storage = err.Error()
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"storage": storage,
		"service": "skycast-backend",
		"version": "1.0.0",
	})
}

// SearchLocations returns place suggestions. Provider failures degrade to an empty list.
func (h *Handler) SearchLocations(c *fiber.Ctx) error {
	results, err := h.locations.SearchByText(c.Context(), c.Query("q"))
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyQuery) {
			slog.Warn("location search failed", "error", err)
		}
		results = []domain.LocationResult{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
		"count":   len(results),
	})
}

// ReverseGeocode names the place at the given coordinates
func (h *Handler) ReverseGeocode(c *fiber.Ctx) error {
	lat, lon, err := coordinatesQuery(c)
	if err != nil {
		return err
	}

	loc, err := h.locations.ReverseGeocode(c.Context(), lat, lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to reach geocoding provider")
	}
	if loc == nil {
		return fiber.NewError(fiber.StatusNotFound, "No place found at these coordinates")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    loc,
	})
}

// GetWeather returns a bundle for an arbitrary location without touching the dashboard state
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	lat, lon, err := coordinatesQuery(c)
	if err != nil {
		return err
	}
	unit, err := domain.ParseTemperatureUnit(c.Query("unit"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	loc := domain.LocationResult{
		ID:        c.Query("id", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64)),
		Name:      c.Query("name", domain.CurrentLocationName),
		Country:   c.Query("country"),
		Admin1:    c.Query("admin1"),
		Latitude:  lat,
		Longitude: lon,
		Timezone:  c.Query("timezone", "UTC"),
	}

	bundle := h.weather.FetchWeatherBundle(c.Context(), loc, unit)

	return c.JSON(domain.WeatherResponse{
		Data:    bundle,
		Success: true,
		Message: sourceMessage(bundle.Source),
	})
}

// GetDashboard returns the current dashboard state
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboard.Snapshot(),
	})
}

// SetLocation selects a location and returns its bundle
func (h *Handler) SetLocation(c *fiber.Ctx) error {
	var loc domain.LocationResult
	if err := c.BodyParser(&loc); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if loc.ID == "" || loc.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "id and name are required")
	}
	if err := validCoordinates(loc.Latitude, loc.Longitude); err != nil {
		return err
	}

	bundle, applied := h.dashboard.SelectLocation(c.Context(), loc)
	return h.cycleResponse(c, bundle, applied)
}

type unitRequest struct {
	Unit string `json:"unit"`
}

// SetUnit switches the temperature unit
func (h *Handler) SetUnit(c *fiber.Ctx) error {
	var req unitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	unit, err := domain.ParseTemperatureUnit(req.Unit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	bundle, applied := h.dashboard.SetUnit(c.Context(), unit)
	return h.cycleResponse(c, bundle, applied)
}

// Refresh refetches the current location
func (h *Handler) Refresh(c *fiber.Ctx) error {
	bundle, applied := h.dashboard.Refresh(c.Context())
	return h.cycleResponse(c, bundle, applied)
}

func (h *Handler) cycleResponse(c *fiber.Ctx, bundle domain.WeatherBundle, applied bool) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    bundle,
		"applied": applied,
		"message": sourceMessage(bundle.Source),
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

// SetQuery feeds the debounced search
func (h *Handler) SetQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	h.dashboard.UpdateQuery(req.Query)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
	})
}

// GetSuggestions returns the suggestions for the latest settled query
func (h *Handler) GetSuggestions(c *fiber.Ctx) error {
	snap := h.dashboard.Snapshot()
	return c.JSON(fiber.Map{
		"success":   true,
		"query":     snap.Query,
		"searching": snap.Searching,
		"data":      snap.Suggestions,
	})
}

// clientIDHeader lets a client keep its remembered fix across addresses
const clientIDHeader = "X-Client-Id"

type detectRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
	Error     string   `json:"error"`
	Passive   bool     `json:"passive"`
}

func (r detectRequest) locator() service.DeviceLocator {
	if r.Error != "" {
		return service.ReportedLocator{Failure: r.Error}
	}
	if r.Latitude == nil || r.Longitude == nil {
		return service.ReportedLocator{}
	}

	fix := service.Fix{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  r.Accuracy,
	}
	if r.Timestamp > 0 {
		fix.Timestamp = time.UnixMilli(r.Timestamp)
	}
	return service.ReportedLocator{Fix: &fix}
}

// DetectLocation applies a device fix reported by the client
func (h *Handler) DetectLocation(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	locator := h.locator.Wrap(clientKey(c), req.locator())

	if req.Passive {
		loc := h.dashboard.AutoDetect(c.Context(), locator)
		return c.JSON(fiber.Map{
			"success": true,
			"data":    loc,
		})
	}

	loc, err := h.dashboard.UseMyLocation(c.Context(), locator)
	switch {
	case errors.Is(err, domain.ErrGeolocationDenied):
		return fiber.NewError(fiber.StatusForbidden, "Location permission was denied")
	case errors.Is(err, domain.ErrGeolocationTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, "Location request timed out")
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to detect location")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    loc,
	})
}

// GetFetchLogs returns fetch-cycle history within a time range
func (h *Handler) GetFetchLogs(c *fiber.Ctx) error {
	ctx := c.Context()

	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	data, err := h.repo.GetFetchLogs(ctx, from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch log history")
	}
	if data == nil {
		data = []domain.FetchLog{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// clientKey identifies the caller whose remembered fix may be reused.
func clientKey(c *fiber.Ctx) string {
	if id := c.Get(clientIDHeader); id != "" {
		return id
	}
	return c.IP()
}

func coordinatesQuery(c *fiber.Ctx) (float64, float64, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lon must be a number")
	}
	if err := validCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func validCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fiber.NewError(fiber.StatusBadRequest, "coordinates out of range")
	}
	return nil
}

func sourceMessage(source domain.Source) string {
	if source == domain.SourceMock {
		return "Live weather is unavailable, showing sample data"
	}
	return ""
}

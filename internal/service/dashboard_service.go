package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
)

// BundleFetcher produces a bundle for a location. It never fails.
type BundleFetcher interface {
	FetchWeatherBundle(ctx context.Context, loc domain.LocationResult, unit domain.TemperatureUnit) domain.WeatherBundle
}

// LocationResolver is the subset of LocationService the dashboard relies on.
type LocationResolver interface {
	SearchByText(ctx context.Context, query string) ([]domain.LocationResult, error)
	DetectDeviceLocation(ctx context.Context, locator DeviceLocator) (*domain.LocationResult, error)
}

// DashboardConfig holds the startup values of a dashboard
type DashboardConfig struct {
	DefaultLocation domain.LocationResult
	Unit            domain.TemperatureUnit
	SearchDebounce  time.Duration
	SearchTimeout   time.Duration
}

// DashboardSnapshot is a consistent view of the dashboard state
type DashboardSnapshot struct {
	Location    domain.LocationResult   `json:"location"`
	Unit        domain.TemperatureUnit  `json:"unit"`
	Weather     *domain.WeatherBundle   `json:"weather"`
	Loading     bool                    `json:"loading"`
	Error       string                  `json:"error,omitempty"`
	Query       string                  `json:"query"`
	Suggestions []domain.LocationResult `json:"suggestions"`
	Searching   bool                    `json:"searching"`
}

const (
	msgLocationDenied  = "Location permission was denied"
	msgLocationTimeout = "Location request timed out"
)

// DashboardService keeps the active location, unit and bundle. Every location or unit
// change starts a fetch cycle numbered by fetchGen; a cycle only publishes its bundle
// while its number is still the latest, so the last request wins regardless of the
// order in which cycles complete. Searches follow the same rule with searchGen.
type DashboardService struct {
	weather   BundleFetcher
	locations LocationResolver
	repo      FetchLogRepository
	cfg       DashboardConfig
	logger    *slog.Logger

	mu       sync.Mutex
	location domain.LocationResult
	unit     domain.TemperatureUnit
	bundle   *domain.WeatherBundle
	loading  bool
	errMsg   string
	fetchGen uint64

	query       string
	suggestions []domain.LocationResult
	searching   bool
	searchGen   uint64
	debounce    *time.Timer

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	weather BundleFetcher,
	locations LocationResolver,
	repo FetchLogRepository,
	cfg DashboardConfig,
	logger *slog.Logger,
) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Unit == "" {
		cfg.Unit = domain.Celsius
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	return &DashboardService{
		weather:   weather,
		locations: locations,
		repo:      repo,
		cfg:       cfg,
		logger:    logger,
		location:  cfg.DefaultLocation,
		unit:      cfg.Unit,
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *DashboardService) WaitBackground() {
	s.wgBg.Wait()
}

// Close stops a pending debounced search and drains background work.
func (s *DashboardService) Close() {
	s.mu.Lock()
	s.searchGen++
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.mu.Unlock()
	s.WaitBackground()
}

// Snapshot returns the current state
func (s *DashboardService) Snapshot() DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	suggestions := make([]domain.LocationResult, len(s.suggestions))
	copy(suggestions, s.suggestions)

	return DashboardSnapshot{
		Location:    s.location,
		Unit:        s.unit,
		Weather:     s.bundle,
		Loading:     s.loading,
		Error:       s.errMsg,
		Query:       s.query,
		Suggestions: suggestions,
		Searching:   s.searching,
	}
}

// Refresh runs a fetch cycle for the current location and unit.
func (s *DashboardService) Refresh(ctx context.Context) (domain.WeatherBundle, bool) {
	s.mu.Lock()
	gen, loc, unit := s.beginCycle()
	s.mu.Unlock()

	return s.runCycle(ctx, gen, loc, unit)
}

// SelectLocation switches to loc, clears the search state and fetches its weather.
// The returned flag reports whether this cycle's bundle became the active one.
func (s *DashboardService) SelectLocation(ctx context.Context, loc domain.LocationResult) (domain.WeatherBundle, bool) {
	s.mu.Lock()
	s.clearSearch()
	s.errMsg = ""
	s.mu.Unlock()

	return s.moveTo(ctx, loc)
}

// moveTo switches the active location and fetches its weather, leaving search state alone.
func (s *DashboardService) moveTo(ctx context.Context, loc domain.LocationResult) (domain.WeatherBundle, bool) {
	s.mu.Lock()
	s.location = loc
	gen, loc, unit := s.beginCycle()
	s.mu.Unlock()

	return s.runCycle(ctx, gen, loc, unit)
}

// SetUnit switches the temperature unit and refetches.
func (s *DashboardService) SetUnit(ctx context.Context, unit domain.TemperatureUnit) (domain.WeatherBundle, bool) {
	s.mu.Lock()
	s.unit = unit
	gen, loc, unit := s.beginCycle()
	s.mu.Unlock()

	return s.runCycle(ctx, gen, loc, unit)
}

// beginCycle must be called with s.mu held.
func (s *DashboardService) beginCycle() (uint64, domain.LocationResult, domain.TemperatureUnit) {
	s.fetchGen++
	s.loading = true
	return s.fetchGen, s.location, s.unit
}

func (s *DashboardService) runCycle(ctx context.Context, gen uint64, loc domain.LocationResult, unit domain.TemperatureUnit) (domain.WeatherBundle, bool) {
	bundle := s.weather.FetchWeatherBundle(ctx, loc, unit)

	s.mu.Lock()
	applied := gen == s.fetchGen
	if applied {
		s.bundle = &bundle
		s.loading = false
	}
	s.mu.Unlock()

	if !applied {
		s.logger.Debug("dashboard: discarding stale fetch cycle", "generation", gen, "location", loc.ID)
	}

	s.recordFetch(loc, unit, bundle.Source)
	return bundle, applied
}

// recordFetch persists the cycle outcome asynchronously (tracked for graceful shutdown)
func (s *DashboardService) recordFetch(loc domain.LocationResult, unit domain.TemperatureUnit, source domain.Source) {
	if s.repo == nil {
		return
	}

	entry := domain.FetchLog{
		ID:           uuid.NewString(),
		LocationID:   loc.ID,
		LocationName: loc.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Unit:         unit,
		Source:       source,
		FetchedAt:    time.Now(),
	}

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveFetchLog(bgCtx, entry); err != nil {
			s.logger.Error("dashboard: failed to save fetch log", "error", err)
		}
	}()
}

// UpdateQuery records the search text and schedules a search once input has been quiet
// for the debounce period. Short queries clear the suggestions immediately.
func (s *DashboardService) UpdateQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	s.searchGen++
	gen := s.searchGen
	if s.debounce != nil {
		s.debounce.Stop()
	}

	text := strings.TrimSpace(query)
	if len([]rune(text)) < domain.MinQueryLength {
		s.suggestions = nil
		s.searching = false
		return
	}

	s.debounce = time.AfterFunc(s.cfg.SearchDebounce, func() {
		s.runSearch(gen, text)
	})
}

func (s *DashboardService) runSearch(gen uint64, text string) {
	s.mu.Lock()
	if gen != s.searchGen {
		s.mu.Unlock()
		return
	}
	s.searching = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SearchTimeout)
	defer cancel()

	results, err := s.locations.SearchByText(ctx, text)
	if err != nil {
		s.logger.Debug("dashboard: search failed", "query", text, "error", err)
		results = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.searchGen {
		return
	}
	s.suggestions = results
	s.searching = false
}

// clearSearch must be called with s.mu held.
func (s *DashboardService) clearSearch() {
	s.query = ""
	s.suggestions = nil
	s.searching = false
	s.searchGen++
	if s.debounce != nil {
		s.debounce.Stop()
	}
}

// UseMyLocation is the explicit "use my location" action. A device without the capability
// leaves the location unchanged; denial and timeout are returned and shown to the user.
func (s *DashboardService) UseMyLocation(ctx context.Context, locator DeviceLocator) (*domain.LocationResult, error) {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()

	loc, err := s.locations.DetectDeviceLocation(ctx, locator)
	if err != nil {
		s.mu.Lock()
		switch {
		case errors.Is(err, domain.ErrGeolocationDenied):
			s.errMsg = msgLocationDenied
		case errors.Is(err, domain.ErrGeolocationTimeout):
			s.errMsg = msgLocationTimeout
		}
		s.mu.Unlock()
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}

	s.SelectLocation(ctx, *loc)
	return loc, nil
}

// AutoDetect is the passive best-effort detection run at startup. It never reports failure
// and only changes the location: a query being typed meanwhile is kept.
func (s *DashboardService) AutoDetect(ctx context.Context, locator DeviceLocator) *domain.LocationResult {
	loc, err := s.locations.DetectDeviceLocation(ctx, locator)
	if err != nil || loc == nil {
		s.logger.Debug("dashboard: auto-detect skipped", "error", err)
		return nil
	}

	s.moveTo(ctx, *loc)
	return loc
}

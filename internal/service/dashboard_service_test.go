package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/internal/repository/postgres"
)

var (
	amsterdam = domain.LocationResult{ID: "2759794", Name: "Amsterdam", Country: "Netherlands", Latitude: 52.37, Longitude: 4.89, Timezone: "Europe/Amsterdam"}
	berlin    = domain.LocationResult{ID: "2950159", Name: "Berlin", Country: "Germany", Latitude: 52.52, Longitude: 13.41, Timezone: "Europe/Berlin"}
)

// gatedFetcher returns a live-tagged bundle per call. Calls for a location with a
// gate block until the gate is closed.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	calls   atomic.Int32
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (f *gatedFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *gatedFetcher) FetchWeatherBundle(ctx context.Context, loc domain.LocationResult, unit domain.TemperatureUnit) domain.WeatherBundle {
	f.calls.Add(1)
	f.started <- loc.ID

	f.mu.Lock()
	gate := f.gates[loc.ID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	return domain.WeatherBundle{Source: domain.SourceLive, Location: loc, Timezone: loc.Timezone, Unit: unit}
}

// fakeResolver answers searches from a table, optionally slowly, and detection from fixed values.
type fakeResolver struct {
	results map[string][]domain.LocationResult
	delays  map[string]time.Duration
	err     error

	detected  *domain.LocationResult
	detectErr error

	mu      sync.Mutex
	queries []string
}

func (r *fakeResolver) SearchByText(ctx context.Context, query string) ([]domain.LocationResult, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()

	if d := r.delays[query]; d > 0 {
		time.Sleep(d)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.results[query], nil
}

func (r *fakeResolver) DetectDeviceLocation(ctx context.Context, locator DeviceLocator) (*domain.LocationResult, error) {
	return r.detected, r.detectErr
}

func (r *fakeResolver) searched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.queries))
	copy(out, r.queries)
	return out
}

func newTestDashboard(fetcher BundleFetcher, resolver LocationResolver, repo FetchLogRepository) *DashboardService {
	return NewDashboardService(fetcher, resolver, repo, DashboardConfig{
		DefaultLocation: groningen,
		Unit:            domain.Celsius,
		SearchDebounce:  40 * time.Millisecond,
		SearchTimeout:   time.Second,
	}, nil)
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDashboardInitialState(t *testing.T) {
	svc := newTestDashboard(newGatedFetcher(), &fakeResolver{}, nil)

	snap := svc.Snapshot()
	if snap.Location.ID != groningen.ID || snap.Unit != domain.Celsius {
		t.Errorf("unexpected initial state: %+v", snap)
	}
	if snap.Weather != nil || snap.Loading {
		t.Errorf("expected no bundle before the first cycle")
	}
	if snap.Suggestions == nil {
		t.Error("expected an empty, non-nil suggestion list")
	}

	bundle, applied := svc.Refresh(context.Background())
	if !applied {
		t.Error("expected an uncontested refresh to apply")
	}
	if bundle.Location.ID != groningen.ID {
		t.Errorf("refresh fetched %s", bundle.Location.ID)
	}
	snap = svc.Snapshot()
	if snap.Weather == nil || snap.Loading {
		t.Errorf("expected a settled bundle after refresh")
	}
}

func TestDashboardLatestSelectionWins(t *testing.T) {
	fetcher := newGatedFetcher()
	gateA := fetcher.gate(amsterdam.ID)
	gateB := fetcher.gate(berlin.ID)
	svc := newTestDashboard(fetcher, &fakeResolver{}, nil)

	type outcome struct {
		bundle  domain.WeatherBundle
		applied bool
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() {
		b, ok := svc.SelectLocation(context.Background(), amsterdam)
		first <- outcome{b, ok}
	}()
	<-fetcher.started

	go func() {
		b, ok := svc.SelectLocation(context.Background(), berlin)
		second <- outcome{b, ok}
	}()
	<-fetcher.started

	// The later cycle settles first.
	close(gateB)
	got := <-second
	if !got.applied {
		t.Fatal("expected the latest cycle to be applied")
	}
	if snap := svc.Snapshot(); snap.Weather == nil || snap.Weather.Location.ID != berlin.ID {
		t.Fatal("expected the latest bundle once its cycle settled")
	}

	close(gateA)
	got = <-first
	if got.applied {
		t.Error("expected the superseded cycle to be discarded")
	}

	snap := svc.Snapshot()
	if snap.Location.ID != berlin.ID {
		t.Errorf("expected location %s, got %s", berlin.ID, snap.Location.ID)
	}
	if snap.Weather == nil || snap.Weather.Location.ID != berlin.ID {
		t.Errorf("expected the bundle for %s to stay active", berlin.ID)
	}
	if snap.Loading {
		t.Error("expected loading to be cleared")
	}
}

func TestDashboardDebouncedSearch(t *testing.T) {
	resolver := &fakeResolver{
		results: map[string][]domain.LocationResult{
			"Groningen": {groningen},
		},
	}
	svc := newTestDashboard(newGatedFetcher(), resolver, nil)
	defer svc.Close()

	svc.UpdateQuery("Gr")
	svc.UpdateQuery("Gron")
	svc.UpdateQuery("Groningen")

	eventually(t, func() bool { return len(svc.Snapshot().Suggestions) == 1 }, "suggestions never arrived")

	if got := resolver.searched(); len(got) != 1 || got[0] != "Groningen" {
		t.Errorf("expected a single search for the final text, got %v", got)
	}
	snap := svc.Snapshot()
	if snap.Query != "Groningen" || snap.Searching {
		t.Errorf("unexpected search state: %+v", snap)
	}

	svc.UpdateQuery("G")
	if snap := svc.Snapshot(); len(snap.Suggestions) != 0 || snap.Searching {
		t.Errorf("expected a short query to clear suggestions, got %+v", snap.Suggestions)
	}

	time.Sleep(100 * time.Millisecond)
	if n := len(resolver.searched()); n != 1 {
		t.Errorf("expected no search for a short query, got %d searches", n)
	}
}

func TestDashboardSearchDiscardsStaleResults(t *testing.T) {
	resolver := &fakeResolver{
		results: map[string][]domain.LocationResult{
			"Amsterdam": {amsterdam},
			"Berlin":    {berlin},
		},
		delays: map[string]time.Duration{"Amsterdam": 200 * time.Millisecond},
	}
	svc := newTestDashboard(newGatedFetcher(), resolver, nil)
	defer svc.Close()

	svc.UpdateQuery("Amsterdam")
	eventually(t, func() bool { return len(resolver.searched()) == 1 }, "first search never started")

	svc.UpdateQuery("Berlin")
	eventually(t, func() bool {
		s := svc.Snapshot().Suggestions
		return len(s) == 1 && s[0].ID == berlin.ID
	}, "latest search never settled")

	time.Sleep(300 * time.Millisecond)
	s := svc.Snapshot().Suggestions
	if len(s) != 1 || s[0].ID != berlin.ID {
		t.Errorf("stale search overwrote suggestions: %+v", s)
	}
}

func TestDashboardSearchFailureClearsSuggestions(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("provider down")}
	svc := newTestDashboard(newGatedFetcher(), resolver, nil)
	defer svc.Close()

	svc.UpdateQuery("Utrecht")
	eventually(t, func() bool {
		return len(resolver.searched()) == 1 && !svc.Snapshot().Searching
	}, "search never completed")

	if s := svc.Snapshot().Suggestions; len(s) != 0 {
		t.Errorf("expected no suggestions after a failure, got %+v", s)
	}
}

func TestDashboardSelectLocationClearsSearch(t *testing.T) {
	resolver := &fakeResolver{}
	svc := newTestDashboard(newGatedFetcher(), resolver, nil)
	defer svc.Close()

	svc.UpdateQuery("Amster")
	svc.SelectLocation(context.Background(), amsterdam)

	snap := svc.Snapshot()
	if snap.Query != "" || len(snap.Suggestions) != 0 || snap.Searching {
		t.Errorf("expected search state cleared, got %+v", snap)
	}

	time.Sleep(100 * time.Millisecond)
	if n := len(resolver.searched()); n != 0 {
		t.Errorf("expected the pending search to be cancelled, got %d searches", n)
	}
}

func TestDashboardUseMyLocation(t *testing.T) {
	tests := []struct {
		name      string
		detected  *domain.LocationResult
		detectErr error
		wantLoc   string
		wantMsg   string
		wantFetch bool
	}{
		{
			name:      "resolved",
			detected:  &amsterdam,
			wantLoc:   amsterdam.ID,
			wantFetch: true,
		},
		{
			name:    "capability missing",
			wantLoc: groningen.ID,
		},
		{
			name:      "denied",
			detectErr: domain.ErrGeolocationDenied,
			wantLoc:   groningen.ID,
			wantMsg:   "Location permission was denied",
		},
		{
			name:      "timed out",
			detectErr: domain.ErrGeolocationTimeout,
			wantLoc:   groningen.ID,
			wantMsg:   "Location request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newGatedFetcher()
			resolver := &fakeResolver{detected: tt.detected, detectErr: tt.detectErr}
			svc := newTestDashboard(fetcher, resolver, nil)

			loc, err := svc.UseMyLocation(context.Background(), ReportedLocator{})
			if !errors.Is(err, tt.detectErr) {
				t.Fatalf("expected error %v, got %v", tt.detectErr, err)
			}
			if (loc != nil) != tt.wantFetch {
				t.Errorf("unexpected returned location: %+v", loc)
			}

			snap := svc.Snapshot()
			if snap.Location.ID != tt.wantLoc {
				t.Errorf("expected location %s, got %s", tt.wantLoc, snap.Location.ID)
			}
			if snap.Error != tt.wantMsg {
				t.Errorf("expected error message %q, got %q", tt.wantMsg, snap.Error)
			}
			if got := fetcher.calls.Load() > 0; got != tt.wantFetch {
				t.Errorf("fetch performed = %v, want %v", got, tt.wantFetch)
			}
		})
	}
}

func TestDashboardAutoDetectIsSilent(t *testing.T) {
	fetcher := newGatedFetcher()
	resolver := &fakeResolver{detectErr: domain.ErrGeolocationDenied}
	svc := newTestDashboard(fetcher, resolver, nil)

	if loc := svc.AutoDetect(context.Background(), ReportedLocator{}); loc != nil {
		t.Errorf("expected no location, got %+v", loc)
	}
	if snap := svc.Snapshot(); snap.Error != "" || snap.Location.ID != groningen.ID {
		t.Errorf("expected a silent failure, got %+v", snap)
	}

	resolver.detectErr = nil
	resolver.detected = &berlin
	if loc := svc.AutoDetect(context.Background(), ReportedLocator{}); loc == nil || loc.ID != berlin.ID {
		t.Fatalf("expected berlin, got %+v", loc)
	}
	if snap := svc.Snapshot(); snap.Location.ID != berlin.ID || snap.Weather == nil {
		t.Errorf("expected berlin to be active, got %+v", snap.Location)
	}
}

func TestDashboardRecordsFetchLogs(t *testing.T) {
	repo := postgres.NewMockRepository()
	svc := newTestDashboard(newGatedFetcher(), &fakeResolver{}, repo)

	svc.SelectLocation(context.Background(), amsterdam)
	svc.SetUnit(context.Background(), domain.Fahrenheit)
	svc.WaitBackground()

	logs, err := repo.GetFetchLogs(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 fetch logs, got %d", len(logs))
	}
	for _, l := range logs {
		if l.LocationID != amsterdam.ID || l.Source != domain.SourceLive || l.ID == "" {
			t.Errorf("unexpected log entry: %+v", l)
		}
	}
}

func TestDashboardRefreshSupersededBySelection(t *testing.T) {
	fetcher := newGatedFetcher()
	gate := fetcher.gate(groningen.ID)
	svc := newTestDashboard(fetcher, &fakeResolver{}, nil)

	done := make(chan bool, 1)
	go func() {
		_, applied := svc.Refresh(context.Background())
		done <- applied
	}()
	<-fetcher.started

	if _, applied := svc.SelectLocation(context.Background(), berlin); !applied {
		t.Fatal("expected the selection to apply")
	}
	<-fetcher.started

	close(gate)
	if <-done {
		t.Error("expected the superseded refresh to report applied=false")
	}
	if snap := svc.Snapshot(); snap.Weather == nil || snap.Weather.Location.ID != berlin.ID {
		t.Errorf("expected berlin to stay active")
	}
}

func TestDashboardAutoDetectKeepsQuery(t *testing.T) {
	resolver := &fakeResolver{
		detected: &berlin,
		results:  map[string][]domain.LocationResult{"Amster": {amsterdam}},
	}
	svc := newTestDashboard(newGatedFetcher(), resolver, nil)
	defer svc.Close()

	svc.UpdateQuery("Amster")
	if loc := svc.AutoDetect(context.Background(), ReportedLocator{}); loc == nil || loc.ID != berlin.ID {
		t.Fatalf("expected berlin, got %+v", loc)
	}

	if snap := svc.Snapshot(); snap.Query != "Amster" || snap.Location.ID != berlin.ID {
		t.Errorf("expected query kept and location switched, got query=%q location=%s", snap.Query, snap.Location.ID)
	}
	eventually(t, func() bool {
		s := svc.Snapshot().Suggestions
		return len(s) == 1 && s[0].ID == amsterdam.ID
	}, "pending search was cancelled by auto-detect")
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/skycast/backend/internal/domain"
)

// Fix is a device position
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceLocator is the device geolocation capability. Implementations fail with
// domain.ErrGeolocationUnavailable, domain.ErrGeolocationDenied or domain.ErrGeolocationTimeout.
type DeviceLocator interface {
	Locate(ctx context.Context) (Fix, error)
}

// LocatorFunc adapts a function to DeviceLocator
type LocatorFunc func(ctx context.Context) (Fix, error)

func (f LocatorFunc) Locate(ctx context.Context) (Fix, error) { return f(ctx) }

// ErrNoReading is returned by a ReportedLocator that carries neither a fix nor a failure.
var ErrNoReading = fmt.Errorf("%w: no reading reported", domain.ErrGeolocationUnavailable)

// ReportedLocator replays what a client reported about its own device:
// either a fix or a failure code ("denied", "timeout", "unavailable").
type ReportedLocator struct {
	Fix     *Fix
	Failure string
}

func (r ReportedLocator) Locate(ctx context.Context) (Fix, error) {
	if r.Failure != "" {
		return Fix{}, GeolocationFailure(r.Failure)
	}
	if r.Fix == nil {
		return Fix{}, ErrNoReading
	}
	return *r.Fix, nil
}

// GeolocationFailure maps a client failure code onto the geolocation error taxonomy.
func GeolocationFailure(code string) error {
	switch code {
	case "denied", "permission_denied":
		return domain.ErrGeolocationDenied
	case "timeout":
		return domain.ErrGeolocationTimeout
	case "unavailable", "position_unavailable":
		return domain.ErrGeolocationUnavailable
	default:
		return fmt.Errorf("%w: unknown failure %q", domain.ErrGeolocationUnavailable, code)
	}
}

// LocatorCache bounds how long a fix may take and remembers each client's last fix.
// A source's own answer always wins; the remembered fix is only handed out, while it
// is at most maxAge old, when the source reports no reading at all.
type LocatorCache struct {
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time

	mu    sync.Mutex
	fixes map[string]Fix
}

// NewLocatorCache creates a cache waiting at most timeout for a fix and
// reusing fixes up to maxAge old.
func NewLocatorCache(timeout, maxAge time.Duration) *LocatorCache {
	return &LocatorCache{
		timeout: timeout,
		maxAge:  maxAge,
		now:     time.Now,
		fixes:   make(map[string]Fix),
	}
}

// Wrap returns a locator for client that asks src through the cache.
func (c *LocatorCache) Wrap(client string, src DeviceLocator) DeviceLocator {
	return LocatorFunc(func(ctx context.Context) (Fix, error) {
		return c.Locate(ctx, client, src)
	})
}

// Locate asks src for a fix, waiting at most the configured timeout.
func (c *LocatorCache) Locate(ctx context.Context, client string, src DeviceLocator) (Fix, error) {
	fix, err := c.ask(ctx, src)
	if errors.Is(err, ErrNoReading) {
		if cached, ok := c.recent(client); ok {
			return cached, nil
		}
		return Fix{}, err
	}
	if err != nil {
		return Fix{}, err
	}

	if fix.Timestamp.IsZero() {
		fix.Timestamp = c.now()
	}
	c.remember(client, fix)
	return fix, nil
}

func (c *LocatorCache) ask(ctx context.Context, src DeviceLocator) (Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		fix Fix
		err error
	}
	ch := make(chan result, 1)
	go func() {
		fix, err := src.Locate(ctx)
		ch <- result{fix: fix, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Fix{}, domain.ErrGeolocationTimeout
		}
		return Fix{}, ctx.Err()
	case r := <-ch:
		return r.fix, r.err
	}
}

func (c *LocatorCache) recent(client string) (Fix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fix, ok := c.fixes[client]
	if !ok || c.now().Sub(fix.Timestamp) > c.maxAge {
		return Fix{}, false
	}
	return fix, true
}

// remember stores fix for client and drops every entry that has aged out.
func (c *LocatorCache) remember(client string, fix Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, f := range c.fixes {
		if now.Sub(f.Timestamp) > c.maxAge {
			delete(c.fixes, k)
		}
	}
	if now.Sub(fix.Timestamp) <= c.maxAge {
		c.fixes[client] = fix
	}
}

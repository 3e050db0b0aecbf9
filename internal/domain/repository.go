package domain

import (
	"context"
	"time"
)

// FetchLog records which source served one fetch cycle. It never holds the fetched data.
type FetchLog struct {
	ID           string          `json:"id"`
	LocationID   string          `json:"location_id"`
	LocationName string          `json:"location_name"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Unit         TemperatureUnit `json:"unit"`
	Source       Source          `json:"source"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// FetchLogRepository defines the interface for fetch-cycle bookkeeping
type FetchLogRepository interface {
	// SaveFetchLog persists one fetch cycle outcome
	SaveFetchLog(ctx context.Context, log FetchLog) error

	// GetFetchLogs retrieves cycles recorded between from and to, newest first
	GetFetchLogs(ctx context.Context, from, to time.Time) ([]FetchLog, error)

	// Health checks storage connectivity
	Health(ctx context.Context) error
}

package postgres

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skycast/backend/internal/domain"
)

// maxMemoryLogs bounds the in-memory history
const maxMemoryLogs = 1000

// MockRepository implements domain.FetchLogRepository in memory for demo mode and tests
type MockRepository struct {
	mu   sync.RWMutex
	logs []domain.FetchLog
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveFetchLog keeps the entry in memory, dropping the oldest beyond maxMemoryLogs
func (r *MockRepository) SaveFetchLog(ctx context.Context, log domain.FetchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, log)
	if len(r.logs) > maxMemoryLogs {
		r.logs = r.logs[len(r.logs)-maxMemoryLogs:]
	}
	return nil
}

// GetFetchLogs returns the kept entries within the range, newest first
func (r *MockRepository) GetFetchLogs(ctx context.Context, from, to time.Time) ([]domain.FetchLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.FetchLog
	for _, l := range r.logs {
		if l.FetchedAt.Before(from) || l.FetchedAt.After(to) {
			continue
		}
		results = append(results, l)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FetchedAt.After(results[j].FetchedAt)
	})
	if len(results) > 100 {
		results = results[:100]
	}
	return results, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

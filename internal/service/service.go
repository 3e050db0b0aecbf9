package service

import (
	"github.com/skycast/backend/internal/domain"
)

// FetchLogRepository is re-exported from domain for convenience
type FetchLogRepository = domain.FetchLogRepository

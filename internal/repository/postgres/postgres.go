package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skycast/backend/internal/domain"
)

// PostgresRepository implements domain.FetchLogRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const schema = `
	CREATE TABLE IF NOT EXISTS fetch_logs (
		id            TEXT PRIMARY KEY,
		location_id   TEXT NOT NULL,
		location_name TEXT NOT NULL,
		latitude      DOUBLE PRECISION NOT NULL,
		longitude     DOUBLE PRECISION NOT NULL,
		unit          TEXT NOT NULL,
		source        TEXT NOT NULL,
		fetched_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS fetch_logs_fetched_at_idx ON fetch_logs (fetched_at DESC);
`

// Migrate creates the fetch_logs table if it does not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to migrate: %w", err)
	}
	return nil
}

// SaveFetchLog persists a fetch cycle outcome to PostgreSQL
func (r *PostgresRepository) SaveFetchLog(ctx context.Context, log domain.FetchLog) error {
	query := `
		INSERT INTO fetch_logs (
			id, location_id, location_name, latitude, longitude, unit, source, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID, log.LocationID, log.LocationName, log.Latitude, log.Longitude,
		string(log.Unit), string(log.Source), log.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save fetch log: %w", err)
	}

	return nil
}

// GetFetchLogs retrieves fetch cycles from PostgreSQL
func (r *PostgresRepository) GetFetchLogs(ctx context.Context, from, to time.Time) ([]domain.FetchLog, error) {
	query := `
		SELECT id, location_id, location_name, latitude, longitude, unit, source, fetched_at
		FROM fetch_logs
		WHERE fetched_at BETWEEN $1 AND $2
		ORDER BY fetched_at DESC
		LIMIT 100
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query fetch logs: %w", err)
	}
	defer rows.Close()

	var results []domain.FetchLog
	for rows.Next() {
		var (
			l      domain.FetchLog
			unit   string
			source string
		)
		err := rows.Scan(
			&l.ID, &l.LocationID, &l.LocationName, &l.Latitude, &l.Longitude, &unit, &source, &l.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan fetch log row: %w", err)
		}
		l.Unit = domain.TemperatureUnit(unit)
		l.Source = domain.Source(source)
		results = append(results, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read fetch logs: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

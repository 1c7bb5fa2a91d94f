// internal/cache/postgres.go
package cache

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"repo-notion-sync/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// queryTimeout bounds every statement; Store methods carry no context.
const queryTimeout = 10 * time.Second

const upsertRepository = `
INSERT INTO repositories (url, seq, name, description, language, stars, forks, last_updated, last_scraped)
VALUES ($1, nextval('repositories_seq'), $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (url) DO UPDATE SET
    seq          = EXCLUDED.seq,
    name         = EXCLUDED.name,
    description  = EXCLUDED.description,
    language     = EXCLUDED.language,
    stars        = EXCLUDED.stars,
    forks        = EXCLUDED.forks,
    last_updated = EXCLUDED.last_updated,
    last_scraped = EXCLUDED.last_scraped`

const selectRepositories = `
SELECT name, description, language, url, stars, forks, last_updated, last_scraped
FROM repositories
ORDER BY seq`

// Migrate applies the embedded schema migrations to the database at dbURL.
func Migrate(dbURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// PostgresStore keeps the cache in a Postgres table so several machines can
// share it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dbURL. The schema must already be migrated.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to cache database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Reset truncates the repositories table.
func (p *PostgresStore) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := p.pool.Exec(ctx, `TRUNCATE repositories`); err != nil {
		return fmt.Errorf("reset cache: %w", err)
	}
	return nil
}

// Upsert inserts rec, or replaces the row with the same URL and moves it to
// the end of the load order.
func (p *PostgresStore) Upsert(rec model.Repository) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.pool.Exec(ctx, upsertRepository,
		rec.URL, rec.Name, rec.Description, rec.Language, rec.Stars, rec.Forks,
		nullTime(rec.LastUpdated), nullTime(rec.LastScraped))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.URL, err)
	}
	return nil
}

// Load returns every row in insertion order. Zero timestamps come back for
// NULL columns.
func (p *PostgresStore) Load() ([]model.Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, selectRepositories)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	defer rows.Close()

	records := []model.Repository{}
	for rows.Next() {
		var (
			r                        model.Repository
			lastUpdated, lastScraped *time.Time
		)
		if err := rows.Scan(&r.Name, &r.Description, &r.Language, &r.URL, &r.Stars, &r.Forks, &lastUpdated, &lastScraped); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		if lastUpdated != nil {
			r.LastUpdated = lastUpdated.UTC()
		}
		if lastScraped != nil {
			r.LastScraped = lastScraped.UTC()
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	return records, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

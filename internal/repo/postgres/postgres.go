// Package postgres is the pgx-backed catalog adapter.
//
// Expected schema:
//
//	CREATE TABLE regions (
//	    id         TEXT PRIMARY KEY,
//	    name       TEXT NOT NULL UNIQUE,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE websites (
//	    id         TEXT PRIMARY KEY,
//	    url        TEXT NOT NULL,
//	    owner_id   TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    UNIQUE (owner_id, url)
//	);
//	CREATE TABLE ticks (
//	    id               TEXT PRIMARY KEY,
//	    website_id       TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
//	    region_id        TEXT NOT NULL REFERENCES regions(id) ON DELETE RESTRICT,
//	    status           TEXT NOT NULL,
//	    response_time_ms INTEGER NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/domain"
	"github.com/upwatch/dispatch/internal/repo"
)

var (
	_ repo.WebsiteStore = (*Store)(nil)
	_ repo.RegionStore  = (*Store)(nil)
	_ repo.TickStore    = (*Store)(nil)
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- WebsiteStore ----

func (s *Store) AddWebsite(ctx context.Context, w *domain.Website) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO websites (id, url, owner_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		w.ID, w.URL, w.OwnerID, w.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repo.ErrDuplicateWebsite
	}
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

func (s *Store) WebsiteByID(ctx context.Context, id string) (*domain.Website, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, owner_id, created_at FROM websites WHERE id = $1`, id)
	var w domain.Website
	if err := row.Scan(&w.ID, &w.URL, &w.OwnerID, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("get website: %w", err)
	}
	return &w, nil
}

func (s *Store) WebsitesByOwner(ctx context.Context, ownerID string) ([]*domain.Website, error) {
	return s.queryWebsites(ctx,
		`SELECT id, url, owner_id, created_at
		   FROM websites
		  WHERE owner_id = $1
		  ORDER BY created_at, id`, ownerID)
}

func (s *Store) UncheckedByOwner(ctx context.Context, ownerID string) ([]*domain.Website, error) {
	return s.queryWebsites(ctx,
		`SELECT w.id, w.url, w.owner_id, w.created_at
		   FROM websites w
		  WHERE w.owner_id = $1
		    AND NOT EXISTS (SELECT 1 FROM ticks t WHERE t.website_id = w.id)
		  ORDER BY w.created_at, w.id`, ownerID)
}

func (s *Store) queryWebsites(ctx context.Context, q string, args ...any) ([]*domain.Website, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []*domain.Website
	for rows.Next() {
		var w domain.Website
		if err := rows.Scan(&w.ID, &w.URL, &w.OwnerID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM websites WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count websites: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteWebsite(ctx context.Context, id string) error {
	// ticks go with it via ON DELETE CASCADE
	tag, err := s.pool.Exec(ctx, `DELETE FROM websites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- RegionStore ----

func (s *Store) AddRegion(ctx context.Context, r *domain.Region) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO regions (id, name, created_at) VALUES ($1, $2, $3)`,
		r.ID, r.Name, r.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repo.ErrDuplicateRegion
	}
	if err != nil {
		return fmt.Errorf("insert region: %w", err)
	}
	return nil
}

func (s *Store) RegionByID(ctx context.Context, id string) (*domain.Region, error) {
	return s.scanRegion(s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM regions WHERE id = $1`, id))
}

func (s *Store) RegionByName(ctx context.Context, name string) (*domain.Region, error) {
	return s.scanRegion(s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM regions WHERE name = $1`, name))
}

func (s *Store) scanRegion(row pgx.Row) (*domain.Region, error) {
	var r domain.Region
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("get region: %w", err)
	}
	return &r, nil
}

func (s *Store) Regions(ctx context.Context) ([]*domain.Region, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Region
	for rows.Next() {
		var r domain.Region
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM regions WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		// ticks still reference this region; deletion is blocked
		return repo.ErrRegionInUse
	}
	if err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- TickStore ----

func (s *Store) AppendTick(ctx context.Context, t *domain.Tick) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ticks (id, website_id, region_id, status, response_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.WebsiteID, t.RegionID, string(t.Status), t.ResponseTimeMS, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

func (s *Store) LatestTick(ctx context.Context, websiteID string) (*domain.Tick, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, website_id, region_id, status, response_time_ms, created_at
		   FROM ticks
		  WHERE website_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT 1`, websiteID)
	var t domain.Tick
	var status string
	if err := row.Scan(&t.ID, &t.WebsiteID, &t.RegionID, &status, &t.ResponseTimeMS, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("latest tick: %w", err)
	}
	t.Status = domain.TickStatus(status)
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

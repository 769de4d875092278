package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	portcoord "github.com/alanyang/build-mesh/internal/port/coordinator"
)

var _ portcoord.Repository = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Register(ctx context.Context, c domaincoord.Coordinator) error {
	query := `
		INSERT INTO coordinators (id, name, active, last_seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, active = EXCLUDED.active, last_seen_at = EXCLUDED.last_seen_at`

	if _, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Active, c.LastSeenAt); err != nil {
		return fmt.Errorf("registering coordinator: %w", err)
	}
	return nil
}

func (r *Repository) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE coordinators SET last_seen_at = $2, active = TRUE WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("coordinator heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coordinator %s not found", id)
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE coordinators SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("updating coordinator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coordinator %s not found", id)
	}
	return nil
}

func (r *Repository) ListStale(ctx context.Context, cutoff time.Time) ([]domaincoord.Coordinator, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, active, last_seen_at FROM coordinators WHERE active AND last_seen_at < $1 ORDER BY last_seen_at`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale coordinators: %w", err)
	}
	coords, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domaincoord.Coordinator])
	if err != nil {
		return nil, fmt.Errorf("scanning coordinators: %w", err)
	}
	return coords, nil
}

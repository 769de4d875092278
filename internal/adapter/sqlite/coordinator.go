package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	portcoord "github.com/alanyang/build-mesh/internal/port/coordinator"
)

var _ portcoord.Repository = (*CoordinatorRepository)(nil)

type CoordinatorRepository struct {
	d *DB
}

func NewCoordinatorRepository(d *DB) *CoordinatorRepository {
	return &CoordinatorRepository{d: d}
}

func (r *CoordinatorRepository) Register(ctx context.Context, c domaincoord.Coordinator) error {
	_, err := r.d.db.ExecContext(ctx, `
		INSERT INTO coordinators (id, name, active, last_seen_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, active = excluded.active, last_seen_at = excluded.last_seen_at`,
		c.ID.String(), c.Name, c.Active, unixNano(c.LastSeenAt))
	if err != nil {
		return fmt.Errorf("register coordinator: %w", err)
	}
	return nil
}

func (r *CoordinatorRepository) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	out, err := r.d.db.ExecContext(ctx,
		`UPDATE coordinators SET last_seen_at = ?, active = 1 WHERE id = ?`, unixNano(at), id.String())
	if err != nil {
		return fmt.Errorf("coordinator heartbeat: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("coordinator %s not found", id)
	}
	return nil
}

func (r *CoordinatorRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	out, err := r.d.db.ExecContext(ctx, `UPDATE coordinators SET active = ? WHERE id = ?`, active, id.String())
	if err != nil {
		return fmt.Errorf("update coordinator: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("coordinator %s not found", id)
	}
	return nil
}

func (r *CoordinatorRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domaincoord.Coordinator, error) {
	rows, err := r.d.db.QueryContext(ctx,
		`SELECT id, name, active, last_seen_at FROM coordinators WHERE active = 1 AND last_seen_at < ? ORDER BY last_seen_at`,
		unixNano(cutoff))
	if err != nil {
		return nil, fmt.Errorf("query stale coordinators: %w", err)
	}
	defer rows.Close()

	var out []domaincoord.Coordinator
	for rows.Next() {
		var (
			c        domaincoord.Coordinator
			id       string
			lastSeen int64
		)
		if err := rows.Scan(&id, &c.Name, &c.Active, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan coordinator: %w", err)
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse coordinator id: %w", err)
		}
		c.LastSeenAt = fromUnixNano(lastSeen)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coordinators: %w", err)
	}
	return out, nil
}

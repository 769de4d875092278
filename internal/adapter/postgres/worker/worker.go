package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

var _ portworker.Repository = (*Repository)(nil)

const columns = `id, name, builders, tags, status, max_builds, running_builds, last_heartbeat_at, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AvailableWorkers implements port/worker.WorkerPool. The refs are snapshots; the slot
// reservation in ReserveSlot is what finally decides whether a worker can take a build.
func (r *Repository) AvailableWorkers(ctx context.Context, builder string) ([]portworker.WorkerRef, error) {
	query := `
		SELECT ` + columns + `
		FROM workers
		WHERE $1 = ANY(builders)
		  AND status IN ('idle', 'building')
		  AND running_builds < max_builds
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query, builder)
	if err != nil {
		return nil, fmt.Errorf("listing available workers: %w", err)
	}
	defer rows.Close()

	workers, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	refs := make([]portworker.WorkerRef, len(workers))
	for i, w := range workers {
		refs[i] = w
	}
	return refs, nil
}

// Upsert registers a worker by name. A reconnecting worker keeps its id and running
// count; its status is derived from the running count.
func (r *Repository) Upsert(ctx context.Context, w domainworker.Worker) (domainworker.Worker, error) {
	query := `
		INSERT INTO workers (id, name, builders, tags, status, max_builds, running_builds, last_heartbeat_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			builders          = EXCLUDED.builders,
			tags              = EXCLUDED.tags,
			max_builds        = EXCLUDED.max_builds,
			last_heartbeat_at = EXCLUDED.last_heartbeat_at,
			status            = CASE WHEN workers.running_builds > 0 THEN 'building' ELSE 'idle' END
		RETURNING ` + columns

	got, err := scanOne(r.pool.QueryRow(ctx, query,
		w.ID, w.Name, w.Builders, w.Tags, string(w.Status), w.MaxBuilds, w.LastHeartbeatAt, w.CreatedAt,
	))
	if err != nil {
		return domainworker.Worker{}, fmt.Errorf("upserting worker: %w", err)
	}
	return got, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainworker.Worker, error) {
	w, err := scanOne(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM workers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainworker.Worker{}, fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
		}
		return domainworker.Worker{}, fmt.Errorf("getting worker: %w", err)
	}
	return w, nil
}

func (r *Repository) List(ctx context.Context, filters domainworker.ListFilters) ([]domainworker.Worker, error) {
	query := `SELECT ` + columns + ` FROM workers WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.Builder != nil {
		query += fmt.Sprintf(" AND $%d = ANY(builders)", argIdx)
		args = append(args, *filters.Builder)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*filters.Status))
		argIdx++
	}

	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing workers: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domainworker.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE workers SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating worker status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
	}
	return nil
}

func (r *Repository) Heartbeat(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE workers SET last_heartbeat_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("updating worker heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
	}
	return nil
}

// ReserveSlot takes one build slot with a compare-and-swap on the running count.
func (r *Repository) ReserveSlot(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE workers
		SET running_builds = running_builds + 1, status = 'building'
		WHERE id = $1
		  AND status IN ('idle', 'building')
		  AND running_builds < max_builds`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reserving worker slot: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domainworker.ErrNoSlot
}

func (r *Repository) FreeSlot(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE workers
		SET running_builds = GREATEST(running_builds - 1, 0),
		    status = CASE
		        WHEN status NOT IN ('idle', 'building') THEN status
		        WHEN running_builds - 1 > 0 THEN 'building'
		        ELSE 'idle'
		    END
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("freeing worker slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
	}
	return nil
}

func scanOne(row pgx.Row) (domainworker.Worker, error) {
	var w domainworker.Worker
	var status string
	err := row.Scan(
		&w.ID, &w.Name, &w.Builders, &w.Tags, &status, &w.MaxBuilds, &w.RunningBuilds,
		&w.LastHeartbeatAt, &w.CreatedAt,
	)
	if err != nil {
		return domainworker.Worker{}, err
	}
	w.Status = domainworker.Status(status)
	return w, nil
}

func scanAll(rows pgx.Rows) ([]domainworker.Worker, error) {
	var out []domainworker.Worker
	for rows.Next() {
		w, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning worker: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workers: %w", err)
	}
	return out, nil
}

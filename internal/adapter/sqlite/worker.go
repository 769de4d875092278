package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

var _ portworker.Repository = (*WorkerRepository)(nil)

const workerColumns = `id, name, builders, tags, status, max_builds, running_builds, last_heartbeat_at, created_at`

type WorkerRepository struct {
	d *DB
}

func NewWorkerRepository(d *DB) *WorkerRepository {
	return &WorkerRepository{d: d}
}

// AvailableWorkers returns snapshot refs; ReserveSlot decides the race.
func (r *WorkerRepository) AvailableWorkers(ctx context.Context, builder string) ([]portworker.WorkerRef, error) {
	rows, err := r.d.db.QueryContext(ctx, `SELECT `+workerColumns+`
		FROM workers
		WHERE EXISTS (SELECT 1 FROM json_each(workers.builders) WHERE json_each.value = ?)
		  AND status IN ('idle', 'building')
		  AND running_builds < max_builds
		ORDER BY name`, builder)
	if err != nil {
		return nil, fmt.Errorf("query available workers: %w", err)
	}
	defer rows.Close()

	workers, err := scanWorkers(rows)
	if err != nil {
		return nil, err
	}
	refs := make([]portworker.WorkerRef, len(workers))
	for i, w := range workers {
		refs[i] = w
	}
	return refs, nil
}

func (r *WorkerRepository) Upsert(ctx context.Context, w domainworker.Worker) (domainworker.Worker, error) {
	builders, err := encodeList(w.Builders)
	if err != nil {
		return domainworker.Worker{}, err
	}
	tags, err := encodeList(w.Tags)
	if err != nil {
		return domainworker.Worker{}, err
	}

	_, err = r.d.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, builders, tags, status, max_builds, running_builds, last_heartbeat_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			builders          = excluded.builders,
			tags              = excluded.tags,
			max_builds        = excluded.max_builds,
			last_heartbeat_at = excluded.last_heartbeat_at,
			status            = CASE WHEN workers.running_builds > 0 THEN 'building' ELSE 'idle' END`,
		w.ID.String(), w.Name, builders, tags, string(w.Status), w.MaxBuilds,
		nullUnixNano(w.LastHeartbeatAt), unixNano(w.CreatedAt),
	)
	if err != nil {
		return domainworker.Worker{}, fmt.Errorf("upsert worker: %w", err)
	}

	row := r.d.db.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE name = ?`, w.Name)
	got, err := scanWorker(row)
	if err != nil {
		return domainworker.Worker{}, fmt.Errorf("read upserted worker: %w", err)
	}
	return got, nil
}

func (r *WorkerRepository) GetByID(ctx context.Context, id uuid.UUID) (domainworker.Worker, error) {
	row := r.d.db.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = ?`, id.String())
	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainworker.Worker{}, fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
		}
		return domainworker.Worker{}, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

func (r *WorkerRepository) List(ctx context.Context, filters domainworker.ListFilters) ([]domainworker.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE 1=1`
	var args []any

	if filters.Builder != nil {
		query += " AND EXISTS (SELECT 1 FROM json_each(workers.builders) WHERE json_each.value = ?)"
		args = append(args, *filters.Builder)
	}
	if filters.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filters.Status))
	}
	query += " ORDER BY name"

	rows, err := r.d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()
	return scanWorkers(rows)
}

func (r *WorkerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domainworker.Status) error {
	return r.exec(ctx, "update worker status", id,
		`UPDATE workers SET status = ? WHERE id = ?`, string(status), id.String())
}

func (r *WorkerRepository) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "update worker heartbeat", id,
		`UPDATE workers SET last_heartbeat_at = ? WHERE id = ?`, unixNano(time.Now()), id.String())
}

func (r *WorkerRepository) ReserveSlot(ctx context.Context, id uuid.UUID) error {
	out, err := r.d.db.ExecContext(ctx, `
		UPDATE workers
		SET running_builds = running_builds + 1, status = 'building'
		WHERE id = ?
		  AND status IN ('idle', 'building')
		  AND running_builds < max_builds`, id.String())
	if err != nil {
		return fmt.Errorf("reserve worker slot: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domainworker.ErrNoSlot
}

func (r *WorkerRepository) FreeSlot(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "free worker slot", id, `
		UPDATE workers
		SET running_builds = MAX(running_builds - 1, 0),
		    status = CASE
		        WHEN status NOT IN ('idle', 'building') THEN status
		        WHEN running_builds - 1 > 0 THEN 'building'
		        ELSE 'idle'
		    END
		WHERE id = ?`, id.String())
}

// exec runs a single-row update and maps "no row" to ErrNotFound.
func (r *WorkerRepository) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	out, err := r.d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("worker %s: %w", id, domainworker.ErrNotFound)
	}
	return nil
}

func scanWorker(row rowScanner) (domainworker.Worker, error) {
	var (
		w         domainworker.Worker
		id        string
		builders  string
		tags      string
		status    string
		heartbeat sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&id, &w.Name, &builders, &tags, &status, &w.MaxBuilds, &w.RunningBuilds,
		&heartbeat, &createdAt); err != nil {
		return domainworker.Worker{}, err
	}

	var err error
	if w.ID, err = uuid.Parse(id); err != nil {
		return domainworker.Worker{}, fmt.Errorf("parse worker id: %w", err)
	}
	if w.Builders, err = decodeList(builders); err != nil {
		return domainworker.Worker{}, err
	}
	if w.Tags, err = decodeList(tags); err != nil {
		return domainworker.Worker{}, err
	}
	w.Status = domainworker.Status(status)
	w.LastHeartbeatAt = fromNullUnixNano(heartbeat)
	w.CreatedAt = fromUnixNano(createdAt)
	return w, nil
}

func scanWorkers(rows *sql.Rows) ([]domainworker.Worker, error) {
	var out []domainworker.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return out, nil
}

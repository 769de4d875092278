package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
)

var _ portbuild.Repository = (*BuildRepository)(nil)

const buildColumns = `id, request_id, builder, worker_id, coordinator_id, started_at, finished_at, results`

type BuildRepository struct {
	d *DB
}

func NewBuildRepository(d *DB) *BuildRepository {
	return &BuildRepository{d: d}
}

func (r *BuildRepository) Create(ctx context.Context, b domainbuild.Build) (domainbuild.Build, error) {
	_, err := r.d.db.ExecContext(ctx, `
		INSERT INTO builds (id, request_id, builder, worker_id, coordinator_id, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.RequestID, b.Builder, b.WorkerID.String(), b.CoordinatorID.String(), unixNano(b.StartedAt))
	if err != nil {
		return domainbuild.Build{}, fmt.Errorf("insert build: %w", err)
	}
	return r.GetByID(ctx, b.ID)
}

func (r *BuildRepository) GetByID(ctx context.Context, id uuid.UUID) (domainbuild.Build, error) {
	row := r.d.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id.String())
	b, err := scanBuild(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainbuild.Build{}, fmt.Errorf("build %s: %w", id, domainbuild.ErrNotFound)
		}
		return domainbuild.Build{}, fmt.Errorf("get build: %w", err)
	}
	return b, nil
}

func (r *BuildRepository) Finish(ctx context.Context, id uuid.UUID, result domainbr.Result) error {
	out, err := r.d.db.ExecContext(ctx,
		`UPDATE builds SET finished_at = ?, results = ? WHERE id = ? AND finished_at IS NULL`,
		unixNano(time.Now()), string(result), id.String())
	if err != nil {
		return fmt.Errorf("finish build: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("build %s: %w", id, domainbuild.ErrAlreadyFinished)
}

func (r *BuildRepository) ListRunningByWorker(ctx context.Context, workerID uuid.UUID) ([]domainbuild.Build, error) {
	rows, err := r.d.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE worker_id = ? AND finished_at IS NULL ORDER BY started_at`,
		workerID.String())
	if err != nil {
		return nil, fmt.Errorf("query running builds: %w", err)
	}
	defer rows.Close()

	var out []domainbuild.Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return out, nil
}

func scanBuild(row rowScanner) (domainbuild.Build, error) {
	var (
		b                         domainbuild.Build
		id, workerID, coordinator string
		startedAt                 int64
		finishedAt                sql.NullInt64
		results                   sql.NullString
	)
	if err := row.Scan(&id, &b.RequestID, &b.Builder, &workerID, &coordinator, &startedAt, &finishedAt, &results); err != nil {
		return domainbuild.Build{}, err
	}

	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return domainbuild.Build{}, fmt.Errorf("parse build id: %w", err)
	}
	if b.WorkerID, err = uuid.Parse(workerID); err != nil {
		return domainbuild.Build{}, fmt.Errorf("parse worker id: %w", err)
	}
	if b.CoordinatorID, err = uuid.Parse(coordinator); err != nil {
		return domainbuild.Build{}, fmt.Errorf("parse coordinator id: %w", err)
	}
	b.StartedAt = fromUnixNano(startedAt)
	b.FinishedAt = fromNullUnixNano(finishedAt)
	if results.Valid {
		res := domainbr.Result(results.String)
		b.Results = &res
	}
	return b, nil
}

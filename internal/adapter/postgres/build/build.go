package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbuild "github.com/alanyang/build-mesh/internal/port/build"
)

var _ portbuild.Repository = (*Repository)(nil)

const columns = `id, request_id, builder, worker_id, coordinator_id, started_at, finished_at, results`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, b domainbuild.Build) (domainbuild.Build, error) {
	query := `
		INSERT INTO builds (id, request_id, builder, worker_id, coordinator_id, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + columns

	created, err := scanOne(r.pool.QueryRow(ctx, query,
		b.ID, b.RequestID, b.Builder, b.WorkerID, b.CoordinatorID, b.StartedAt,
	))
	if err != nil {
		return domainbuild.Build{}, fmt.Errorf("inserting build: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainbuild.Build, error) {
	b, err := scanOne(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM builds WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainbuild.Build{}, fmt.Errorf("build %s: %w", id, domainbuild.ErrNotFound)
		}
		return domainbuild.Build{}, fmt.Errorf("getting build: %w", err)
	}
	return b, nil
}

// Finish sets the result once; a second finish reports ErrAlreadyFinished.
func (r *Repository) Finish(ctx context.Context, id uuid.UUID, result domainbr.Result) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE builds SET finished_at = NOW(), results = $2 WHERE id = $1 AND finished_at IS NULL`,
		id, string(result))
	if err != nil {
		return fmt.Errorf("finishing build: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("build %s: %w", id, domainbuild.ErrAlreadyFinished)
}

func (r *Repository) ListRunningByWorker(ctx context.Context, workerID uuid.UUID) ([]domainbuild.Build, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM builds WHERE worker_id = $1 AND finished_at IS NULL ORDER BY started_at`,
		workerID)
	if err != nil {
		return nil, fmt.Errorf("listing running builds: %w", err)
	}
	defer rows.Close()

	var out []domainbuild.Build
	for rows.Next() {
		b, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}
	return out, nil
}

func scanOne(row pgx.Row) (domainbuild.Build, error) {
	var b domainbuild.Build
	var results *string
	if err := row.Scan(
		&b.ID, &b.RequestID, &b.Builder, &b.WorkerID, &b.CoordinatorID, &b.StartedAt, &b.FinishedAt, &results,
	); err != nil {
		return domainbuild.Build{}, err
	}
	if results != nil {
		res := domainbr.Result(*results)
		b.Results = &res
	}
	return b, nil
}

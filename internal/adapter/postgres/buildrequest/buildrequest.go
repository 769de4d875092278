package buildrequest

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
)

var _ portbr.Repository = (*Repository)(nil)

const columns = `br.id, br.builder, br.priority, br.required_tags, br.reason, br.submitted_at,
	br.complete, br.results, br.completed_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, req domainbr.BuildRequest) (domainbr.BuildRequest, error) {
	query := `
		INSERT INTO build_requests AS br (builder, priority, required_tags, reason, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns

	created, err := scanOne(r.pool.QueryRow(ctx, query,
		req.Builder, req.Priority, req.RequiredTags, req.Reason, req.SubmittedAt,
	))
	if err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("inserting build request: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domainbr.BuildRequest, error) {
	query := `SELECT ` + columns + ` FROM build_requests br WHERE br.id = $1`

	req, err := scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainbr.BuildRequest{}, fmt.Errorf("build request %d: %w", id, domainbr.ErrNotFound)
		}
		return domainbr.BuildRequest{}, fmt.Errorf("getting build request: %w", err)
	}
	return req, nil
}

func (r *Repository) List(ctx context.Context, filters domainbr.ListFilters) ([]domainbr.BuildRequest, error) {
	query := `
		SELECT ` + columns + `
		FROM build_requests br
		LEFT JOIN buildrequest_claims c ON c.request_id = br.id
		WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.Builder != nil {
		query += fmt.Sprintf(" AND br.builder = $%d", argIdx)
		args = append(args, *filters.Builder)
		argIdx++
	}
	if filters.Claimed != nil {
		if *filters.Claimed {
			query += " AND c.request_id IS NOT NULL"
		} else {
			query += " AND c.request_id IS NULL"
		}
	}
	if filters.Complete != nil {
		query += fmt.Sprintf(" AND br.complete = $%d", argIdx)
		args = append(args, *filters.Complete)
		argIdx++
	}
	if filters.ClaimedBy != nil {
		query += fmt.Sprintf(" AND c.coordinator_id = $%d", argIdx)
		args = append(args, *filters.ClaimedBy)
		argIdx++
	}

	query += " ORDER BY br.submitted_at, br.id"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing build requests: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// ListUnclaimed implements port/buildrequest.ClaimStore.
func (r *Repository) ListUnclaimed(ctx context.Context, builder string) ([]domainbr.BuildRequest, error) {
	query := `
		SELECT ` + columns + `
		FROM build_requests br
		WHERE br.builder = $1
		  AND NOT br.complete
		  AND NOT EXISTS (SELECT 1 FROM buildrequest_claims c WHERE c.request_id = br.id)
		ORDER BY br.submitted_at, br.id`

	rows, err := r.pool.Query(ctx, query, builder)
	if err != nil {
		return nil, fmt.Errorf("listing unclaimed build requests: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Claim implements port/buildrequest.ClaimStore. The claims primary key makes the
// insert the compare-and-swap: a row that already exists is skipped and reported as
// conflicted.
func (r *Repository) Claim(ctx context.Context, ids []int64, coordinatorID uuid.UUID) (domainbr.ClaimResult, error) {
	if len(ids) == 0 {
		return domainbr.ClaimResult{}, nil
	}

	query := `
		INSERT INTO buildrequest_claims (request_id, coordinator_id, claimed_at)
		SELECT br.id, $2::uuid, NOW()
		FROM build_requests br
		WHERE br.id = ANY($1) AND NOT br.complete
		ON CONFLICT (request_id) DO NOTHING
		RETURNING request_id`

	rows, err := r.pool.Query(ctx, query, ids, coordinatorID)
	if err != nil {
		return domainbr.ClaimResult{}, fmt.Errorf("claiming build requests: %w", err)
	}
	claimed, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return domainbr.ClaimResult{}, fmt.Errorf("claiming build requests: %w", err)
	}

	var res domainbr.ClaimResult
	for _, id := range ids {
		if slices.Contains(claimed, id) {
			res.Claimed = append(res.Claimed, id)
		} else {
			res.Conflicted = append(res.Conflicted, id)
		}
	}
	return res, nil
}

// Release implements port/buildrequest.ClaimStore. Claims on complete requests stay.
func (r *Repository) Release(ctx context.Context, ids []int64, coordinatorID uuid.UUID) error {
	query := `
		DELETE FROM buildrequest_claims c
		USING build_requests br
		WHERE c.request_id = ANY($1) AND c.coordinator_id = $2::uuid
		  AND br.id = c.request_id AND NOT br.complete`

	if _, err := r.pool.Exec(ctx, query, ids, coordinatorID); err != nil {
		return fmt.Errorf("releasing build requests: %w", err)
	}
	return nil
}

func (r *Repository) Complete(ctx context.Context, ids []int64, result domainbr.Result) error {
	query := `
		UPDATE build_requests
		SET complete = TRUE, results = $2, completed_at = NOW()
		WHERE id = ANY($1) AND NOT complete`

	if _, err := r.pool.Exec(ctx, query, ids, string(result)); err != nil {
		return fmt.Errorf("completing build requests: %w", err)
	}
	return nil
}

// CompleteUnclaimed completes a request only while nobody holds a claim on it.
func (r *Repository) CompleteUnclaimed(ctx context.Context, id int64, result domainbr.Result) error {
	query := `
		UPDATE build_requests br
		SET complete = TRUE, results = $2, completed_at = NOW()
		WHERE br.id = $1
		  AND NOT br.complete
		  AND NOT EXISTS (SELECT 1 FROM buildrequest_claims c WHERE c.request_id = br.id)`

	tag, err := r.pool.Exec(ctx, query, id, string(result))
	if err != nil {
		return fmt.Errorf("completing build request: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	req, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.Complete {
		return fmt.Errorf("build request %d: %w", id, domainbr.ErrAlreadyComplete)
	}
	return fmt.Errorf("build request %d: %w", id, domainbr.ErrClaimed)
}

// ReleaseByCoordinator drops the coordinator's claims on incomplete requests that have
// no running build, returning the released requests.
func (r *Repository) ReleaseByCoordinator(ctx context.Context, coordinatorID uuid.UUID) ([]domainbr.BuildRequest, error) {
	query := `
		DELETE FROM buildrequest_claims c
		USING build_requests br
		WHERE c.coordinator_id = $1
		  AND br.id = c.request_id
		  AND NOT br.complete
		  AND NOT EXISTS (
			SELECT 1 FROM builds b WHERE b.request_id = c.request_id AND b.finished_at IS NULL
		  )
		RETURNING ` + columns

	rows, err := r.pool.Query(ctx, query, coordinatorID)
	if err != nil {
		return nil, fmt.Errorf("releasing claims of coordinator %s: %w", coordinatorID, err)
	}
	defer rows.Close()

	released, err := scanAll(rows)
	if err != nil {
		return nil, err
	}
	domainbr.SortOldestFirst(released)
	return released, nil
}

func scanOne(row pgx.Row) (domainbr.BuildRequest, error) {
	var req domainbr.BuildRequest
	var results *string
	err := row.Scan(
		&req.ID, &req.Builder, &req.Priority, &req.RequiredTags, &req.Reason, &req.SubmittedAt,
		&req.Complete, &results, &req.CompletedAt,
	)
	if err != nil {
		return domainbr.BuildRequest{}, err
	}
	if results != nil {
		res := domainbr.Result(*results)
		req.Results = &res
	}
	if req.RequiredTags == nil {
		req.RequiredTags = []string{}
	}
	return req, nil
}

func scanAll(rows pgx.Rows) ([]domainbr.BuildRequest, error) {
	var out []domainbr.BuildRequest
	for rows.Next() {
		req, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning build request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating build requests: %w", err)
	}
	return out, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
)

var _ portbr.Repository = (*BuildRequestRepository)(nil)

const requestColumns = `br.id, br.builder, br.priority, br.required_tags, br.reason, br.submitted_at,
	br.complete, br.results, br.completed_at`

type BuildRequestRepository struct {
	d *DB
}

func NewBuildRequestRepository(d *DB) *BuildRequestRepository {
	return &BuildRequestRepository{d: d}
}

func (r *BuildRequestRepository) Create(ctx context.Context, req domainbr.BuildRequest) (domainbr.BuildRequest, error) {
	tags, err := encodeList(req.RequiredTags)
	if err != nil {
		return domainbr.BuildRequest{}, err
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}

	res, err := r.d.db.ExecContext(ctx,
		`INSERT INTO build_requests (builder, priority, required_tags, reason, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		req.Builder, req.Priority, tags, req.Reason, unixNano(req.SubmittedAt),
	)
	if err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("insert build request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domainbr.BuildRequest{}, fmt.Errorf("insert build request: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *BuildRequestRepository) GetByID(ctx context.Context, id int64) (domainbr.BuildRequest, error) {
	row := r.d.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM build_requests br WHERE br.id = ?`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainbr.BuildRequest{}, fmt.Errorf("build request %d: %w", id, domainbr.ErrNotFound)
		}
		return domainbr.BuildRequest{}, fmt.Errorf("get build request: %w", err)
	}
	return req, nil
}

func (r *BuildRequestRepository) List(ctx context.Context, filters domainbr.ListFilters) ([]domainbr.BuildRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM build_requests br
		LEFT JOIN buildrequest_claims c ON c.request_id = br.id
		WHERE 1=1`
	var args []any

	if filters.Builder != nil {
		query += " AND br.builder = ?"
		args = append(args, *filters.Builder)
	}
	if filters.Claimed != nil {
		if *filters.Claimed {
			query += " AND c.request_id IS NOT NULL"
		} else {
			query += " AND c.request_id IS NULL"
		}
	}
	if filters.Complete != nil {
		query += " AND br.complete = ?"
		args = append(args, *filters.Complete)
	}
	if filters.ClaimedBy != nil {
		query += " AND c.coordinator_id = ?"
		args = append(args, filters.ClaimedBy.String())
	}
	query += " ORDER BY br.submitted_at, br.id"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query build requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *BuildRequestRepository) ListUnclaimed(ctx context.Context, builder string) ([]domainbr.BuildRequest, error) {
	rows, err := r.d.db.QueryContext(ctx, `SELECT `+requestColumns+`
		FROM build_requests br
		WHERE br.builder = ?
		  AND br.complete = 0
		  AND NOT EXISTS (SELECT 1 FROM buildrequest_claims c WHERE c.request_id = br.id)
		ORDER BY br.submitted_at, br.id`, builder)
	if err != nil {
		return nil, fmt.Errorf("query unclaimed build requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Claim inserts one claim row per id inside a transaction. The claims primary key turns
// an existing claim into a skipped insert, which is reported as a conflict.
func (r *BuildRequestRepository) Claim(ctx context.Context, ids []int64, coordinatorID uuid.UUID) (domainbr.ClaimResult, error) {
	var res domainbr.ClaimResult
	if len(ids) == 0 {
		return res, nil
	}

	now := unixNano(time.Now())
	err := r.d.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			out, err := tx.ExecContext(ctx, `
				INSERT INTO buildrequest_claims (request_id, coordinator_id, claimed_at)
				SELECT id, ?, ? FROM build_requests WHERE id = ? AND complete = 0
				ON CONFLICT (request_id) DO NOTHING`,
				coordinatorID.String(), now, id)
			if err != nil {
				return fmt.Errorf("claim build request %d: %w", id, err)
			}
			n, err := out.RowsAffected()
			if err != nil {
				return fmt.Errorf("claim build request %d: %w", id, err)
			}
			if n == 1 {
				res.Claimed = append(res.Claimed, id)
			} else {
				res.Conflicted = append(res.Conflicted, id)
			}
		}
		return nil
	})
	if err != nil {
		return domainbr.ClaimResult{}, err
	}
	return res, nil
}

func (r *BuildRequestRepository) Release(ctx context.Context, ids []int64, coordinatorID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	args = append(args, coordinatorID.String())
	_, err := r.d.db.ExecContext(ctx, `
		DELETE FROM buildrequest_claims
		WHERE request_id IN (`+in+`)
		  AND coordinator_id = ?
		  AND request_id IN (SELECT id FROM build_requests WHERE complete = 0)`, args...)
	if err != nil {
		return fmt.Errorf("release build requests: %w", err)
	}
	return nil
}

func (r *BuildRequestRepository) Complete(ctx context.Context, ids []int64, result domainbr.Result) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	args = append([]any{string(result), unixNano(time.Now())}, args...)
	_, err := r.d.db.ExecContext(ctx, `
		UPDATE build_requests SET complete = 1, results = ?, completed_at = ?
		WHERE complete = 0 AND id IN (`+in+`)`, args...)
	if err != nil {
		return fmt.Errorf("complete build requests: %w", err)
	}
	return nil
}

func (r *BuildRequestRepository) CompleteUnclaimed(ctx context.Context, id int64, result domainbr.Result) error {
	out, err := r.d.db.ExecContext(ctx, `
		UPDATE build_requests SET complete = 1, results = ?, completed_at = ?
		WHERE id = ?
		  AND complete = 0
		  AND NOT EXISTS (SELECT 1 FROM buildrequest_claims c WHERE c.request_id = build_requests.id)`,
		string(result), unixNano(time.Now()), id)
	if err != nil {
		return fmt.Errorf("complete build request: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 1 {
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

func (r *BuildRequestRepository) ReleaseByCoordinator(ctx context.Context, coordinatorID uuid.UUID) ([]domainbr.BuildRequest, error) {
	var released []domainbr.BuildRequest
	err := r.d.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+requestColumns+`
			FROM build_requests br
			JOIN buildrequest_claims c ON c.request_id = br.id
			WHERE c.coordinator_id = ?
			  AND br.complete = 0
			  AND NOT EXISTS (SELECT 1 FROM builds b WHERE b.request_id = br.id AND b.finished_at IS NULL)
			ORDER BY br.submitted_at, br.id`, coordinatorID.String())
		if err != nil {
			return fmt.Errorf("query claims of coordinator %s: %w", coordinatorID, err)
		}
		released, err = scanRequests(rows)
		rows.Close()
		if err != nil {
			return err
		}

		for _, req := range released {
			if _, err := tx.ExecContext(ctx, `DELETE FROM buildrequest_claims WHERE request_id = ?`, req.ID); err != nil {
				return fmt.Errorf("release build request %d: %w", req.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (domainbr.BuildRequest, error) {
	var (
		req         domainbr.BuildRequest
		tags        string
		submittedAt int64
		results     sql.NullString
		completedAt sql.NullInt64
	)
	if err := row.Scan(&req.ID, &req.Builder, &req.Priority, &tags, &req.Reason, &submittedAt,
		&req.Complete, &results, &completedAt); err != nil {
		return domainbr.BuildRequest{}, err
	}

	var err error
	if req.RequiredTags, err = decodeList(tags); err != nil {
		return domainbr.BuildRequest{}, err
	}
	req.SubmittedAt = fromUnixNano(submittedAt)
	req.CompletedAt = fromNullUnixNano(completedAt)
	if results.Valid {
		res := domainbr.Result(results.String)
		req.Results = &res
	}
	return req, nil
}

func scanRequests(rows *sql.Rows) ([]domainbr.BuildRequest, error) {
	var out []domainbr.BuildRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build requests: %w", err)
	}
	return out, nil
}

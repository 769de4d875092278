package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portidem "github.com/alanyang/build-mesh/internal/port/idempotency"
)

var _ portidem.Store = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Check looks up an existing idempotency key. Returns the stored response body,
// whether the key exists, and any error.
func (r *Repository) Check(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT result_jsonb FROM processed_operations WHERE idempotency_key = $1`

	var result []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("checking idempotency key: %w", err)
	}
	return result, true, nil
}

// Store records a processed operation. The first writer for a key wins.
func (r *Repository) Store(ctx context.Context, key, operation string, result []byte) error {
	query := `
		INSERT INTO processed_operations (idempotency_key, operation_type, result_jsonb, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, key, operation, result); err != nil {
		return fmt.Errorf("storing idempotency key: %w", err)
	}
	return nil
}

// Prune deletes operations recorded before the cutoff.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM processed_operations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

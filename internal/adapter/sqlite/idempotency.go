package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	portidem "github.com/alanyang/build-mesh/internal/port/idempotency"
)

var _ portidem.Store = (*IdempotencyStore)(nil)

type IdempotencyStore struct {
	d *DB
}

func NewIdempotencyStore(d *DB) *IdempotencyStore {
	return &IdempotencyStore{d: d}
}

func (s *IdempotencyStore) Check(ctx context.Context, key string) ([]byte, bool, error) {
	var result []byte
	err := s.d.db.QueryRowContext(ctx,
		`SELECT result FROM processed_operations WHERE idempotency_key = ?`, key).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}
	return result, true, nil
}

func (s *IdempotencyStore) Store(ctx context.Context, key, operation string, result []byte) error {
	_, err := s.d.db.ExecContext(ctx, `
		INSERT INTO processed_operations (idempotency_key, operation_type, result, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		key, operation, result, unixNano(time.Now()))
	if err != nil {
		return fmt.Errorf("store idempotency key: %w", err)
	}
	return nil
}

// Prune deletes operations recorded before the cutoff.
func (s *IdempotencyStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	out, err := s.d.db.ExecContext(ctx, `DELETE FROM processed_operations WHERE created_at < ?`, unixNano(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune idempotency keys: %w", err)
	}
	return out.RowsAffected()
}

// Package store defines the record source the service reads snapshots from.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/insurtree/internal/engine"
)

// Store holds the flat insurance table. Implementations are safe for concurrent use.
type Store interface {
	// Snapshot returns every record. The caller owns the returned slice.
	Snapshot(ctx context.Context) ([]engine.Record, error)
	// Upsert inserts or overwrites records by id.
	Upsert(ctx context.Context, records []engine.Record) error
	// Replace swaps the whole table for records.
	Replace(ctx context.Context, records []engine.Record) error
	// Delete removes one record. Children keep their parent id.
	Delete(ctx context.Context, id int64) error
	Close() error
}

var (
	ErrNotFound = errors.New("record not found")
	ErrReadOnly = errors.New("store is read-only")
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (%s): %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

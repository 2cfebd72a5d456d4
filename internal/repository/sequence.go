package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/instrument-relay/internal/sqlerr"
	"github.com/jackc/pgx/v5"
)

// Querier is the part of a pgx pool the repositories use.
// *pgxpool.Pool and pgxmock.PgxPoolIface both satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SequenceRepository reads table maxima and rewrites sequence counters through
// the get_max_id / reset_sequence functions installed by the migrations.
//
// Identifier quoting happens inside those functions (format('%I')), so table
// and column names are passed as plain parameters here.
type SequenceRepository struct {
	db Querier
}

// NewSequenceRepository wraps a pool.
func NewSequenceRepository(db Querier) *SequenceRepository {
	return &SequenceRepository{db: db}
}

const maxIdentifierQuery = `
SELECT max_id IS NOT NULL, COALESCE(max_id, 0)
FROM get_max_id($1, $2) AS max_id`

// MaxIdentifier returns MAX(idColumnName) of tableName. ok is false when the
// table has no rows.
func (r *SequenceRepository) MaxIdentifier(ctx context.Context, tableName, idColumnName string) (int64, bool, error) {
	var (
		hasRows bool
		maxID   int64
	)
	err := r.db.QueryRow(ctx, maxIdentifierQuery, tableName, idColumnName).Scan(&hasRows, &maxID)
	if err != nil {
		return 0, false, fmt.Errorf("get_max_id(%s, %s): %w", tableName, idColumnName, sqlerr.Wrap(err))
	}
	return maxID, hasRows, nil
}

const resetSequenceQuery = `SELECT reset_sequence($1, $2)`

// ResetSequenceCounter overwrites the counter so the next nextval() returns
// value+1. A value of 0 rewinds the sequence to its first value.
func (r *SequenceRepository) ResetSequenceCounter(ctx context.Context, sequenceName string, value int64) error {
	if value < 0 {
		return fmt.Errorf("reset_sequence(%s): negative value %d", sequenceName, value)
	}

	var written int64
	if err := r.db.QueryRow(ctx, resetSequenceQuery, sequenceName, value).Scan(&written); err != nil {
		return fmt.Errorf("reset_sequence(%s, %d): %w", sequenceName, value, sqlerr.Wrap(err))
	}
	if written != value {
		return fmt.Errorf("reset_sequence(%s, %d): store reported %d", sequenceName, value, written)
	}
	return nil
}

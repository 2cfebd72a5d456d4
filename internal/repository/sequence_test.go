package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/deppfellow/instrument-relay/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	maxIDPattern = `SELECT max_id IS NOT NULL, COALESCE\(max_id, 0\) FROM get_max_id\(\$1, \$2\) AS max_id`
	resetPattern = `SELECT reset_sequence\(\$1, \$2\)`
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestSequenceRepository_MaxIdentifier(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSequenceRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(maxIDPattern).
		WithArgs("thai_instrument", "thaiinstrument_id").
		WillReturnRows(pgxmock.NewRows([]string{"has_rows", "max_id"}).AddRow(true, int64(42)))

	v, ok, err := repo.MaxIdentifier(ctx, "thai_instrument", "thaiinstrument_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestSequenceRepository_MaxIdentifier_EmptyTable(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSequenceRepository(mock)

	mock.ExpectQuery(maxIDPattern).
		WithArgs("user", "user_id").
		WillReturnRows(pgxmock.NewRows([]string{"has_rows", "max_id"}).AddRow(false, int64(0)))

	v, ok, err := repo.MaxIdentifier(context.Background(), "user", "user_id")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), v)
}

func TestSequenceRepository_MaxIdentifier_UndefinedTable(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSequenceRepository(mock)

	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "ghost" does not exist`}
	mock.ExpectQuery(maxIDPattern).
		WithArgs("ghost", "ghost_id").
		WillReturnError(pgErr)

	_, _, err := repo.MaxIdentifier(context.Background(), "ghost", "ghost_id")
	require.Error(t, err)

	var got *pgconn.PgError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "42P01", got.Code)
	assert.Contains(t, err.Error(), "get_max_id(ghost, ghost_id)")
	assert.Contains(t, err.Error(), "undefined table")
	assert.Equal(t, sqlerr.UndefinedTable, sqlerr.ErrCode(err))
}

func TestSequenceRepository_ResetSequenceCounter(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSequenceRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(resetPattern).
		WithArgs("quizz_instrument_quizz_id_seq", int64(17)).
		WillReturnRows(pgxmock.NewRows([]string{"reset_sequence"}).AddRow(int64(17)))
	require.NoError(t, repo.ResetSequenceCounter(ctx, "quizz_instrument_quizz_id_seq", 17))

	mock.ExpectQuery(resetPattern).
		WithArgs("quizz_instrument_quizz_id_seq", int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"reset_sequence"}).AddRow(int64(0)))
	require.NoError(t, repo.ResetSequenceCounter(ctx, "quizz_instrument_quizz_id_seq", 0))
}

func TestSequenceRepository_ResetSequenceCounter_Errors(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSequenceRepository(mock)
	ctx := context.Background()

	err := repo.ResetSequenceCounter(ctx, "user_user_id_seq", -1)
	assert.Error(t, err)

	mock.ExpectQuery(resetPattern).
		WithArgs("user_user_id_seq", int64(3)).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for sequence user_user_id_seq"})
	err = repo.ResetSequenceCounter(ctx, "user_user_id_seq", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	mock.ExpectQuery(resetPattern).
		WithArgs("user_user_id_seq", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"reset_sequence"}).AddRow(int64(2)))
	err = repo.ResetSequenceCounter(ctx, "user_user_id_seq", 3)
	assert.ErrorContains(t, err, "store reported 2")
}

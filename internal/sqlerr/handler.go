package sqlerr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/deppfellow/instrument-relay/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrCode reports the Code of the first *Error or *pgconn.PgError in err's
// chain, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return MapCode(pgErr.Code)
	}
	return Other
}

// ConvertPgError converts a raw Postgres error into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// Wrap replaces a *pgconn.PgError at the top of err with its *Error form so
// the message names the failure category. Other errors pass through, and
// errors.As(..., **pgconn.PgError) keeps working on the result.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := err.(*pgconn.PgError); ok {
		return ConvertPgError(pgErr)
	}
	return err
}

// humanizeText converts snake_case into Title Case: "quizz_instrument" -> "Quizz Instrument".
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// Describe returns an operator-facing sentence for err. It is used for
// outcome details and alert emails, never for client responses to
// anonymous callers.
func Describe(err error) string {
	var sqlErr *Error
	if !errors.As(err, &sqlErr) {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			return err.Error()
		}
		sqlErr = ConvertPgError(pgErr)
	}

	switch sqlErr.Code {
	case UndefinedTable:
		return fmt.Sprintf("Table or sequence does not exist: %s", sqlErr.Message)
	case UndefinedColumn:
		if sqlErr.ColumnName != "" {
			return fmt.Sprintf("Column %s does not exist", humanizeText(sqlErr.ColumnName))
		}
		return fmt.Sprintf("Column does not exist: %s", sqlErr.Message)
	case UndefinedFunction:
		return "Database functions are missing, run the migrations"
	case InsufficientPrivilege:
		return fmt.Sprintf("Permission denied: %s", sqlErr.Message)
	case ValueOutOfRange:
		return fmt.Sprintf("Value outside the sequence bounds: %s", sqlErr.Message)
	case ConnectionFailure:
		return "Database connection failed"
	default:
		return sqlErr.Error()
	}
}

// HandleError converts a low-level database error into an *errs.HTTPError.
//
//   - *errs.HTTPError: returned unchanged
//   - connection failures: 503
//   - canceled or timed out queries: 503 with a retry hint
//   - no rows: 404
//   - everything else: a generic 500; details stay in the logs
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		e := errs.NewServiceUnavailableError("The database did not answer in time")
		e.Action = &errs.Action{Type: errs.ActionTypeRetry, Message: "Retry the request later"}
		return e
	}

	switch ErrCode(err) {
	case ConnectionFailure:
		return errs.NewServiceUnavailableError("The database is unavailable")
	case QueryCanceled:
		e := errs.NewServiceUnavailableError("The database did not answer in time")
		e.Action = &errs.Action{Type: errs.ActionTypeRetry, Message: "Retry the request later"}
		return e
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.NewServiceUnavailableError("The database is unavailable")
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}

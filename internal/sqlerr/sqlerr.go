// Package sqlerr specifically handles database driver errors.
//
// It turns raw pgconn.PgError values into an *Error with a stable Code, so
// the reconciler can report "undefined table" or "permission denied" instead
// of a bare SQLSTATE, and the HTTP layer can decide on a status without
// leaking driver internals.
package sqlerr

import (
	"fmt"
	"strings"
)

// Code is the normalized category of a database error.
type Code string

const (
	Other                 Code = "other"
	UndefinedTable        Code = "undefined_table"
	UndefinedColumn       Code = "undefined_column"
	UndefinedFunction     Code = "undefined_function"
	InsufficientPrivilege Code = "insufficient_privilege"
	InvalidParameterValue Code = "invalid_parameter_value"
	ValueOutOfRange       Code = "value_out_of_range"
	QueryCanceled         Code = "query_canceled"
	ConnectionFailure     Code = "connection_failure"
)

// MapCode maps a SQLSTATE onto a Code.
//
// https://www.postgresql.org/docs/current/errcodes-appendix.html
func MapCode(sqlState string) Code {
	switch sqlState {
	case "42P01":
		return UndefinedTable
	case "42703":
		return UndefinedColumn
	case "42883":
		return UndefinedFunction
	case "42501":
		return InsufficientPrivilege
	case "22023":
		return InvalidParameterValue
	case "22003", "2200H":
		// 2200H: sequence_generator_limit_exceeded (value above the sequence maximum).
		return ValueOutOfRange
	case "57014":
		return QueryCanceled
	case "57P01", "57P02", "57P03":
		return ConnectionFailure
	}

	// Class 08: connection exceptions.
	if strings.HasPrefix(sqlState, "08") {
		return ConnectionFailure
	}
	return Other
}

// Severity is the PostgreSQL message severity.
type Severity string

const (
	SeverityUnknown Severity = ""
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// MapSeverity normalizes the severity string sent by the server.
func MapSeverity(severity string) Severity {
	switch s := Severity(strings.ToUpper(severity)); s {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning,
		SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return s
	default:
		return SeverityUnknown
	}
}

// Error is a normalized database error. It unwraps to the driver error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", strings.ReplaceAll(string(e.Code), "_", " "), e.Message, e.DatabaseCode)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

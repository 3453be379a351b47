package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrorKind categorizes store failures.
type ErrorKind string

const (
	// KindConstraintViolation indicates a uniqueness or check constraint failed.
	KindConstraintViolation ErrorKind = "ConstraintViolation"

	// KindReferenceViolation indicates a foreign key points at a missing row.
	KindReferenceViolation ErrorKind = "ReferenceViolation"

	// KindNotFound indicates a row required by the operation does not exist.
	KindNotFound ErrorKind = "NotFound"

	// KindStoreUnavailable indicates the database or pool could not serve the call.
	KindStoreUnavailable ErrorKind = "StoreUnavailable"

	// KindInternal covers anything the driver reported that fits no other kind.
	KindInternal ErrorKind = "Internal"
)

var errNotOpen = errors.New("store is not open")

// Error is returned by every Access Layer method that fails.
//
// Op names the operation ("create user", "save message", ...) and Err
// carries the driver error when there is one.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err.
// Returns KindInternal for non-store errors and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsConstraintViolation returns true if err is a uniqueness/check failure.
func IsConstraintViolation(err error) bool {
	return KindOf(err) == KindConstraintViolation
}

// IsReferenceViolation returns true if err is a dangling foreign key.
func IsReferenceViolation(err error) bool {
	return KindOf(err) == KindReferenceViolation
}

// IsNotFound returns true if err reports a missing row.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsStoreUnavailable returns true if err reports a connection or pool failure.
func IsStoreUnavailable(err error) bool {
	return KindOf(err) == KindStoreUnavailable
}

func notFound(op string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: sql.ErrNoRows}
}

// classify maps a driver error onto the store taxonomy.
// Errors that are already *Error pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return &Error{Kind: KindStoreUnavailable, Op: op, Err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return &Error{Kind: kindForSQLite(sqliteErr), Op: op, Err: err}
	}

	return &Error{Kind: KindInternal, Op: op, Err: err}
}

func kindForSQLite(e sqlite3.Error) ErrorKind {
	switch e.Code {
	case sqlite3.ErrConstraint:
		if e.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return KindReferenceViolation
		}
		return KindConstraintViolation
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen,
		sqlite3.ErrIoErr, sqlite3.ErrReadonly, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

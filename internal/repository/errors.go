// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// looking at driver errors.
package repository

import (
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

// ErrMovieNotFound is returned when a movie id does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrConstraint is returned when a write transaction violated a database
// constraint (uniqueness, check or foreign key).  Handlers translate it
// into HTTP 422 without exposing the driver message.
var ErrConstraint = errors.New("database constraint violated")

// ErrEmailExists and ErrUsernameExists report registration conflicts.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrTokenInvalid is returned when a session token row is missing or expired.
var ErrTokenInvalid = errors.New("session token invalid")

// Commit maps the outcome of a write transaction.  gorm has already rolled
// the transaction back when err is non-nil; constraint violations are
// logged and collapsed into ErrConstraint, everything else is returned as is.
func Commit(err error) error {
	if err == nil {
		return nil
	}
	if IsConstraintError(err) {
		slog.Error("constraint violation during commit", "err", err)
		return ErrConstraint
	}
	return err
}

// IsConstraintError reports whether err is a statement-level constraint
// violation.  Translated gorm errors are checked first; the message check
// covers drivers that do not translate CHECK violations.
func IsConstraintError(err error) bool {
	if errors.Is(err, ErrConstraint) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "duplicate entry")
}

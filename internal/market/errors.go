package market

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kinds of failure a handler distinguishes. Anything else is a store failure.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error carries a user-facing message for one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Invalid returns an ErrValidation with msg as its text.
func Invalid(msg string) error { return newError(ErrValidation, msg) }

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNumericOutOfRange   = "22003"
	pgInvalidText         = "22P02"
)

// classify maps driver errors onto the kinds above; unknown errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return newError(ErrNotFound, "not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return newError(ErrConflict, "already exists")
		case pgForeignKeyViolation:
			return newError(ErrValidation, "product does not exist")
		case pgCheckViolation, pgNumericOutOfRange:
			return newError(ErrValidation, "value out of range")
		case pgInvalidText:
			return newError(ErrNotFound, "not found")
		}
	}
	return err
}

// Package service holds the consistency core of the fleet backend: the
// fuel ledger, the assignment registry, the daily report guard and the
// Fleet facade composing them. Every write runs in one database
// transaction spanning read, validation and write.
//
// Failures are returned as typed errors and never logged here; the HTTP
// layer decides how they are presented.
package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrUnsupported       = errors.New("unsupported")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ErrConcurrentUpdate is returned when the database aborted the transaction
// because of a concurrent writer. Nothing was written; the caller may retry.
var ErrConcurrentUpdate = &Error{Kind: ErrConflict, Msg: "concurrent update, please retry"}

// Error is a failure of one of the kinds above with a caller-facing message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrValidation) and friends work.
func (e *Error) Is(target error) bool { return target == e.Kind }

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func unsupportedf(format string, args ...any) error {
	return &Error{Kind: ErrUnsupported, Msg: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a dispensing larger than the balance.
type InsufficientStockError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

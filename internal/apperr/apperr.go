// Package apperr defines the error taxonomy shared by the stock and order
// services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes an application error.
type Kind string

const (
	KindValidation                 Kind = "VALIDATION_ERROR"
	KindNotFound                   Kind = "NOT_FOUND"
	KindInsufficientStock          Kind = "INSUFFICIENT_STOCK"
	KindInsufficientAvailableStock Kind = "INSUFFICIENT_AVAILABLE_STOCK"
	KindConflict                   Kind = "CONFLICT"
	KindStorage                    Kind = "STORAGE_ERROR"
)

// Error carries a Kind, a human readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindStorage {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is comparisons, e.g. errors.Is(err, apperr.ErrNotFound).
var (
	ErrValidation                 = &Error{Kind: KindValidation}
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrInsufficientStock          = &Error{Kind: KindInsufficientStock}
	ErrInsufficientAvailableStock = &Error{Kind: KindInsufficientAvailableStock}
	ErrConflict                   = &Error{Kind: KindConflict}
	ErrStorage                    = &Error{Kind: KindStorage}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func InsufficientAvailableStock(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientAvailableStock, Message: fmt.Sprintf(format, args...)}
}

func Conflict(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Storage wraps a datastore failure. The message shown to callers stays opaque.
func Storage(cause error) *Error {
	return &Error{Kind: KindStorage, Message: "internal storage error", Err: cause}
}

// KindOf returns the Kind of err, treating unknown errors as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Wrap returns err unchanged when it already carries a Kind, otherwise it is
// treated as a storage failure.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Storage(err)
}

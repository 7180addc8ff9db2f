// Package apperr defines the error kinds surfaced by the core. Handlers
// translate kinds into HTTP status codes; the core never formats HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindStock             Kind = "insufficient_stock"
	KindConflict          Kind = "conflict"
	KindAuthorization     Kind = "authorization"
	KindInvalidTransition Kind = "invalid_transition"
)

// Error carries a kind and a human-readable message. Stock errors
// additionally carry the offending product and the quantity actually
// available, so callers can report a precise shortfall.
type Error struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	ProductID string `json:"product_id,omitempty"`
	Available int    `json:"available"`
}

func (e *Error) Error() string { return e.Message }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Authorizationf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransitionf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock reports that a requested quantity exceeds what the
// catalog currently holds for a product.
func InsufficientStock(productID, name string, requested, available int) *Error {
	return &Error{
		Kind:      KindStock,
		Message:   fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, requested, available),
		ProductID: productID,
		Available: available,
	}
}

// KindOf returns the kind of err, or the empty Kind if err is not an
// apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an apperr.Error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// AsError unwraps err into an *Error if possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

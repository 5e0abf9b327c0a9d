// Package apperr defines the error taxonomy shared by services and handlers.
// Services return these values (optionally wrapped with %w); the HTTP boundary
// maps them to status codes without leaking storage detail.
package apperr

import (
	"errors"
	"fmt"
)

// Validation
var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidStatus   = errors.New("unrecognized order status")
	ErrInvalidInput    = errors.New("invalid input")
)

// Authorization
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted for this role")
)

// Not found
var ErrNotFound = errors.New("not found")

// Business rules
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrNotCancellable     = errors.New("order not found or not cancellable")
	ErrInvalidTransition  = errors.New("illegal order status transition")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrBadCredentials     = errors.New("invalid email or password")
)

// Storage wraps any persistence failure behind a generic message.
var ErrStorage = errors.New("storage failure")

// Storage tags err as a persistence failure. The cause stays in the message
// for logs but the boundary only ever reports ErrStorage.
func Storage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// IsBusiness reports whether err is a business-rule violation, as opposed to
// bad input, missing auth, or an infrastructure failure.
func IsBusiness(err error) bool {
	for _, target := range []error{
		ErrEmptyCart, ErrProductUnavailable, ErrInsufficientStock,
		ErrNotCancellable, ErrInvalidTransition, ErrEmailTaken, ErrBadCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers and the checkout service to distinguish between different
// failure scenarios.  Line-specific failures (a missing book, not enough
// stock) are returned as typed errors carrying the offending book so the
// client can adjust its cart; they still match the sentinels through
// errors.Is.
package repository

import (
    "errors"
    "fmt"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.  Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrBookNotFound matches any *BookNotFoundError.
var ErrBookNotFound = errors.New("book not found")

// ErrInsufficientStock matches any *InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidQuantity is returned for zero or negative quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrOrderNotFound is returned when an order does not exist or is not
// visible to the caller.
var ErrOrderNotFound = errors.New("order not found")

// ErrCartLineNotFound is returned when a cart line does not exist.
var ErrCartLineNotFound = errors.New("cart item not found")

// ErrInvalidStatus is returned when an order status or payment status
// is not one of the known values.
var ErrInvalidStatus = errors.New("invalid status")

// BookNotFoundError reports a reference to a book that no longer exists.
type BookNotFoundError struct {
    BookID uint64
}

func (e *BookNotFoundError) Error() string {
    return fmt.Sprintf("book %d not found", e.BookID)
}

// Is lets errors.Is(err, ErrBookNotFound) match.
func (e *BookNotFoundError) Is(target error) bool { return target == ErrBookNotFound }

// InsufficientStockError reports that a reservation could not be made
// because fewer copies are left than requested.  Available is the
// stock observed when the reservation failed.
type InsufficientStockError struct {
    BookID    uint64
    Title     string
    Requested int
    Available int
}

func (e *InsufficientStockError) Error() string {
    if e.Title != "" {
        return fmt.Sprintf("book %q (id %d) has only %d left in stock", e.Title, e.BookID, e.Available)
    }
    return fmt.Sprintf("book %d has only %d left in stock", e.BookID, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

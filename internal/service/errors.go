package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAccountInactive     = errors.New("account is not active")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmptySearch         = errors.New("enter a search term")
	ErrProductNotAvailable = errors.New("product is not available")
	ErrIllegalTransition   = errors.New("illegal transition of cart status")
	ErrEmptyCart           = errors.New("cart is empty, nothing to order")
	ErrCartClosed          = errors.New("cart is already closed")
	ErrInvalidInput        = errors.New("invalid input")
)

// InsufficientStockError names the line that could not be covered.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (product %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

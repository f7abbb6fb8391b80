package service

import (
	"errors"
	"fmt"

	"toko-beras-pos/internal/model"
	"toko-beras-pos/internal/repository"
	"toko-beras-pos/pkg/validator"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStockExceeded      = errors.New("quantity exceeds available stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrValidation         = errors.New("validation failed")
	ErrNoStockChange      = errors.New("stock already at requested value")
	ErrDuplicateCode      = errors.New("product code already exists")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPaymentShort       = errors.New("amount paid is less than total")
)

// InsufficientStockError is returned when a movement would take stock below
// zero. It matches ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockExceededError is the advisory cart check: the line would ask for more
// than is on the shelf once what is already in the cart is counted.
type StockExceededError struct {
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	InCart    int       `json:"in_cart"`
	Requested int       `json:"requested"`
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("Stock exceeded for %s. Available: %d, In cart: %d, Requested: %d", e.Name, e.Available, e.InCart, e.Requested)
}

func (e *StockExceededError) Is(target error) bool {
	return target == ErrStockExceeded
}

type TransitionError struct {
	Channel model.SaleChannel `json:"channel"`
	From    model.SaleStatus  `json:"from"`
	To      model.SaleStatus  `json:"to"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move %s sale from %s to %s", e.Channel, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validationFailed(errs []*validator.ErrorResponse) error {
	first := errs[0]
	return invalid("field '%s' failed on tag '%s'", first.FailedField, first.Tag)
}

// translate maps repository sentinels onto service sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrDuplicateKey):
		return fmt.Errorf("%w: %s", ErrDuplicateCode, what)
	}
	return err
}

// IsDomainError reports whether err is an expected business outcome rather
// than an infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInsufficientStock, ErrStockExceeded, ErrInvalidTransition,
		ErrValidation, ErrNoStockChange, ErrDuplicateCode, ErrEmptyCart, ErrPaymentShort,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

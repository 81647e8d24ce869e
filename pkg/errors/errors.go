package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the checkout core. Services and repositories wrap
// these so callers can branch with errors.Is without string matching.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal error")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrPromocodeInvalid   = errors.New("invalid or expired promocode")
	ErrPromocodeExhausted = errors.New("promocode usage limit reached")
	ErrBelowMinimumOrder  = errors.New("order amount below promocode minimum")
	ErrPersistence        = errors.New("persistence failure")
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error. Ownership mismatches on cart lines are
// reported through this constructor as well, so a caller cannot distinguish
// "does not exist" from "belongs to someone else".
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// EmptyCart rejects a checkout attempted on a cart with no lines.
func EmptyCart() *AppError {
	return &AppError{
		Code:    "EMPTY_CART",
		Message: "cannot place an order from an empty cart",
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrEmptyCart,
	}
}

// InsufficientStock names the offending product so the client knows which
// line to change before retrying.
func InsufficientStock(productName string, requested, available int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("insufficient stock for %q: requested %d, available %d", productName, requested, available),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientStock,
	}
}

// OutOfStock reports a stock shortfall when the requested and available
// quantities are not known, naming only the product.
func OutOfStock(productID string) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("insufficient stock for product %s", productID),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientStock,
	}
}

// InvalidOrExpiredPromocode covers an unknown code, an inactive code, and a
// code outside its validity window.
func InvalidOrExpiredPromocode(code string) *AppError {
	return &AppError{
		Code:    "INVALID_PROMOCODE",
		Message: fmt.Sprintf("promocode %q is invalid or expired", code),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrPromocodeInvalid,
	}
}

// UsageLimitReached is retryable without the code: the client may omit the
// promocode or accept the undiscounted total.
func UsageLimitReached(code string) *AppError {
	return &AppError{
		Code:    "PROMOCODE_USAGE_LIMIT_REACHED",
		Message: fmt.Sprintf("promocode %q has reached its usage limit", code),
		Status:  http.StatusConflict,
		Err:     ErrPromocodeExhausted,
	}
}

// BelowMinimumOrderAmount reports the minimum so the client can surface it.
func BelowMinimumOrderAmount(code string, minimum decimal.Decimal) *AppError {
	return &AppError{
		Code:    "BELOW_MINIMUM_ORDER_AMOUNT",
		Message: fmt.Sprintf("promocode %q requires a minimum order amount of %s", code, minimum.StringFixed(2)),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrBelowMinimumOrder,
	}
}

// PersistenceFailure wraps an underlying storage fault. The transaction has
// been rolled back in full by the time this is returned.
func PersistenceFailure(err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_FAILURE",
		Message: "the operation could not be committed",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrPersistence, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrPromocodeExhausted):
		return http.StatusConflict
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrPromocodeInvalid),
		errors.Is(err, ErrBelowMinimumOrder):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Package apperror provides structured error handling for the settlement core.
// Every expected failure surfaced to a caller is an *AppError with a stable code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Input errors (400)
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidLine   = "INVALID_LINE"
	CodeMissingReason = "MISSING_REASON"
	CodeInvalidStatus = "INVALID_STATUS"
	CodeBadRequest    = "BAD_REQUEST"

	// Settlement rule violations (422)
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeCreditLimitExceeded = "CREDIT_LIMIT_EXCEEDED"
	CodeExceedsBalance      = "EXCEEDS_BALANCE"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeAlreadyCancelled    = "ALREADY_CANCELLED"
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeIdempotency         = "IDEMPOTENCY_CONFLICT"
	CodeIdempotencyMismatch = "IDEMPOTENCY_MISMATCH"
)

// AppError is the standard error type.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (quantities, balances, field names)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidLine reports a document line that fails quantity/price checks.
func NewInvalidLine(index int, message string) *AppError {
	return &AppError{
		Code:       CodeInvalidLine,
		Message:    fmt.Sprintf("line %d: %s", index+1, message),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"line": index + 1},
	}
}

// NewMissingReason is returned by stock operations that require a justification.
func NewMissingReason(operation string) *AppError {
	return &AppError{
		Code:       CodeMissingReason,
		Message:    fmt.Sprintf("a reason is required for %s", operation),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"operation": operation},
	}
}

// NewInvalidStatus reports an unknown status value.
func NewInvalidStatus(value string, allowed []string) *AppError {
	return &AppError{
		Code:       CodeInvalidStatus,
		Message:    fmt.Sprintf("invalid status %q", value),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"status": value, "allowed": allowed},
	}
}

// NewBadRequest creates a 400 error for requests that are well-formed but not applicable.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       CodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock creates a stock shortage error naming the product.
func NewInsufficientStock(productID, productName string, requested, available decimal.Decimal) *AppError {
	return &AppError{
		Code: CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s: requested %s, available %s",
			productName, requested.String(), available.String()),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":   productID,
			"product_name": productName,
			"requested":    requested.String(),
			"available":    available.String(),
		},
	}
}

// NewCreditLimitExceeded reports a charge that would push a customer over the limit.
func NewCreditLimitExceeded(customerID string, current, projected, limit decimal.Decimal) *AppError {
	available := limit.Sub(current)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return &AppError{
		Code: CodeCreditLimitExceeded,
		Message: fmt.Sprintf("credit limit exceeded: current balance %s, projected balance %s, available credit %s",
			current.StringFixed(2), projected.StringFixed(2), available.StringFixed(2)),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"customer_id":       customerID,
			"current_balance":   current.StringFixed(2),
			"projected_balance": projected.StringFixed(2),
			"available_credit":  available.StringFixed(2),
			"credit_limit":      limit.StringFixed(2),
		},
	}
}

// NewExceedsBalance is returned when a repayment is larger than the outstanding balance.
func NewExceedsBalance(customerID string, amount, balance decimal.Decimal) *AppError {
	return &AppError{
		Code: CodeExceedsBalance,
		Message: fmt.Sprintf("payment %s exceeds outstanding balance %s",
			amount.StringFixed(2), balance.StringFixed(2)),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"customer_id": customerID,
			"amount":      amount.StringFixed(2),
			"balance":     balance.StringFixed(2),
		},
	}
}

// NewAlreadyCancelled is returned when cancelling a cancelled document.
func NewAlreadyCancelled(number string) *AppError {
	return &AppError{
		Code:       CodeAlreadyCancelled,
		Message:    fmt.Sprintf("sale %s is already cancelled", number),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"number": number},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same key is reused for a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyMismatch,
		Message:    "Idempotency key reused with a different request",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

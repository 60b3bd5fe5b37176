package shared

import "fmt"

// DomainError represents a domain-level error.
// Two DomainErrors match under errors.Is when their codes are equal, so a
// sentinel can be re-issued with a more specific message and still compare.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Errorf re-issues a sentinel with a formatted message
func Errorf(sentinel *DomainError, format string, args ...any) *DomainError {
	return NewDomainError(sentinel.Code, fmt.Sprintf(format, args...))
}

// Error codes
const (
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeIncompatibleUnits      = "INCOMPATIBLE_UNITS"
	CodeVersionConflict        = "VERSION_CONFLICT"
	CodeConcurrencyExhausted   = "CONCURRENCY_EXHAUSTED"
	CodeRepositoryUnavailable  = "REPOSITORY_UNAVAILABLE"
	CodeBatchNotFound          = "BATCH_NOT_FOUND"
	CodeIngredientNotFound     = "INGREDIENT_NOT_FOUND"
	CodeInvalidTransactionType = "INVALID_TRANSACTION_TYPE"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidState           = "INVALID_STATE"
	CodeCurrencyMismatch       = "CURRENCY_MISMATCH"
	CodeNotFound               = "NOT_FOUND"
)

// Ledger domain errors
var (
	ErrInvalidQuantity        = NewDomainError(CodeInvalidQuantity, "Quantity must be positive")
	ErrIncompatibleUnits      = NewDomainError(CodeIncompatibleUnits, "Quantities have incompatible units")
	ErrVersionConflict        = NewDomainError(CodeVersionConflict, "Batch was modified by another process")
	ErrConcurrencyExhausted   = NewDomainError(CodeConcurrencyExhausted, "Gave up after repeated concurrent modifications")
	ErrRepositoryUnavailable  = NewDomainError(CodeRepositoryUnavailable, "Ledger storage is unavailable")
	ErrBatchNotFound          = NewDomainError(CodeBatchNotFound, "Batch not found")
	ErrIngredientNotFound     = NewDomainError(CodeIngredientNotFound, "Ingredient not found")
	ErrInvalidTransactionType = NewDomainError(CodeInvalidTransactionType, "Unrecognized stock transaction type")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrCurrencyMismatch       = NewDomainError(CodeCurrencyMismatch, "Money values have different currencies")
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
)

package dto

import (
	"net/http"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
)

// Transport-level error codes. Ledger failures use the shared.Code* values.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = shared.CodeNotFound
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeInvalidInput = shared.CodeInvalidInput
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeTooLarge:   http.StatusRequestEntityTooLarge,

	shared.CodeInvalidQuantity:        http.StatusBadRequest,
	shared.CodeInvalidTransactionType: http.StatusBadRequest,
	shared.CodeInvalidInput:           http.StatusBadRequest,

	shared.CodeBatchNotFound:      http.StatusNotFound,
	shared.CodeIngredientNotFound: http.StatusNotFound,
	shared.CodeNotFound:           http.StatusNotFound,

	shared.CodeVersionConflict:      http.StatusConflict,
	shared.CodeConcurrencyExhausted: http.StatusConflict,

	shared.CodeIncompatibleUnits: http.StatusUnprocessableEntity,
	shared.CodeInvalidState:      http.StatusUnprocessableEntity,
	shared.CodeCurrencyMismatch:  http.StatusUnprocessableEntity,

	shared.CodeRepositoryUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

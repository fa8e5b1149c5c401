package dto

import "net/http"

// Error code constants organized by category

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeAlreadyFinalized is used when an order already has an invoice
	ErrCodeAlreadyFinalized = "ERR_ALREADY_FINALIZED"
	// ErrCodeInsufficientStock is used when stock cannot cover the order
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeChainHalted is used when the invoice ledger refuses appends
	ErrCodeChainHalted = "ERR_CHAIN_HALTED"
	// ErrCodeDocumentInvalid is used when a fiscal document fails validation
	ErrCodeDocumentInvalid = "ERR_DOCUMENT_INVALID"
)

// Infrastructure error codes
const (
	// ErrCodeExternalService is used when a downstream dependency fails
	ErrCodeExternalService = "ERR_EXTERNAL_SERVICE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeAlreadyFinalized:  http.StatusConflict,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeChainHalted:       http.StatusLocked,
	ErrCodeDocumentInvalid:   http.StatusUnprocessableEntity,

	ErrCodeExternalService: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes.
// Domain codes not listed here fall through NormalizeErrorCode unchanged and
// GetHTTPStatus treats the unknown code as internal, so every surfaced code
// must be registered
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ORDER_NOT_FOUND":      ErrCodeNotFound,
	"STOCK_ITEM_NOT_FOUND": ErrCodeNotFound,
	"ITEM_NOT_FOUND":       ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeConflict,
	"ALREADY_FINALIZED":    ErrCodeAlreadyFinalized,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"CHAIN_HALTED":         ErrCodeChainHalted,
	"INVALID_STATE":        ErrCodeInvalidState,
	"INVALID_STATUS":       ErrCodeInvalidState,

	"INVALID_PAYMENT_TRANSITION": ErrCodeInvalidState,
	"INVALID_PAYMENT_STATE":      ErrCodeBadRequest,
	"INVALID_TAX_BASE":           ErrCodeValidation,
	"INVALID_TAX_RATE":           ErrCodeValidation,
	"INVALID_SERIES":             ErrCodeValidation,
	"INVALID_FISCAL_YEAR":        ErrCodeValidation,
	"INVALID_ISSUE_DATE":         ErrCodeValidation,
	"INVALID_REASON":             ErrCodeValidation,
	"INVALID_CREDIT_NOTE":        ErrCodeValidation,
	"INVALID_ORIGINAL":           ErrCodeValidation,
	"INVALID_INPUT":              ErrCodeBadRequest,

	"INVALID_CERTIFICATE":      ErrCodeBadRequest,
	"CERTIFICATE_UNSUPPORTED":  ErrCodeInvalidState,
	"EXTERNAL_SERVICE_FAILURE": ErrCodeExternalService,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeSourceRead   = "SOURCE_READ_FAILED"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeNotFound     = "LOCATOR_NOT_FOUND"
	ErrCodeExhausted    = "ALL_PROVIDERS_EXHAUSTED"
	ErrCodeSinkWrite    = "SINK_WRITE_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeQueueFull    = "QUEUE_FULL"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PriceError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PriceError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PriceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PriceError) Unwrap() error {
	return e.Err
}

// NewPriceError creates a new PriceError.
func NewPriceError(code, message string, err error) *PriceError {
	return &PriceError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *PriceError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

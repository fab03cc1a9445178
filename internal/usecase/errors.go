package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned by usecases and written as-is by the handlers.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	// cause, logged but never sent to the client
	Err error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError picks the code from the status.
func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Code: codeForStatus(status), Message: message}
}

func newCodedError(status int, code, message string) error {
	return &HTTPError{Status: status, Code: code, Message: message}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

const (
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeVendorConflict     = "vendor_conflict"
	CodeInvalidQuantity    = "invalid_quantity"
	CodeInvalidSignature   = "invalid_signature"
	CodePaymentNotVerified = "payment_not_verified"
	CodeTotalMismatch      = "total_mismatch"
	CodeCartChanged        = "cart_changed"
	CodeEmptyCart          = "empty_cart"
	CodeGateway            = "gateway_error"
	CodeStoreUnavailable   = "store_unavailable"
	CodeInternal           = "internal_error"
)

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusConflict:
		return CodeConflict
	case http.StatusBadGateway:
		return CodeGateway
	case http.StatusServiceUnavailable:
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}

func errUnauthorized() error {
	return NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

func errNotFound(what string) error {
	return NewHTTPError(http.StatusNotFound, what+" not found")
}

func errValidation(msg string) error {
	return NewHTTPError(http.StatusBadRequest, msg)
}

func errVendorConflict() error {
	return newCodedError(http.StatusConflict, CodeVendorConflict, "cart holds items from another vendor")
}

func errInvalidQuantity() error {
	return newCodedError(http.StatusBadRequest, CodeInvalidQuantity, "invalid quantity")
}

// errStore wraps a persistence failure. The cause is kept for logging.
func errStore(err error) error {
	return &HTTPError{
		Status:  http.StatusServiceUnavailable,
		Code:    CodeStoreUnavailable,
		Message: "store unavailable",
		Err:     err,
	}
}

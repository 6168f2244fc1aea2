package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a business-rule violation.
type ErrorKind string

const (
	KindInvalidRequest         ErrorKind = "INVALID_REQUEST"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindStoreClosed            ErrorKind = "STORE_CLOSED"
	KindProductUnavailable     ErrorKind = "PRODUCT_UNAVAILABLE"
	KindInsufficientStock      ErrorKind = "INSUFFICIENT_STOCK"
	KindOrderClosed            ErrorKind = "ORDER_CLOSED"
	KindAlreadyCancelled       ErrorKind = "ALREADY_CANCELLED"
	KindCancellationNotAllowed ErrorKind = "CANCELLATION_NOT_ALLOWED"
	KindInvalidTransition      ErrorKind = "INVALID_TRANSITION"
	KindTableNotFree           ErrorKind = "TABLE_NOT_FREE"
)

// DomainError is an expected rejection carrying a client-facing message.
// InsufficientStock errors also fill Product, Stock and Required.
type DomainError struct {
	Kind     ErrorKind
	Message  string
	Product  string
	Stock    int32
	Required int32
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any DomainError of the same kind against a sentinel, so callers
// can write errors.Is(err, service.ErrInsufficientStock).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest         = &DomainError{Kind: KindInvalidRequest}
	ErrNotFound               = &DomainError{Kind: KindNotFound}
	ErrStoreClosed            = &DomainError{Kind: KindStoreClosed}
	ErrProductUnavailable     = &DomainError{Kind: KindProductUnavailable}
	ErrInsufficientStock      = &DomainError{Kind: KindInsufficientStock}
	ErrOrderClosed            = &DomainError{Kind: KindOrderClosed}
	ErrAlreadyCancelled       = &DomainError{Kind: KindAlreadyCancelled}
	ErrCancellationNotAllowed = &DomainError{Kind: KindCancellationNotAllowed}
	ErrInvalidTransition      = &DomainError{Kind: KindInvalidTransition}
	ErrTableNotFree           = &DomainError{Kind: KindTableNotFree}
)

func newDomainError(kind ErrorKind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func insufficientStock(product string, stock, required int32) *DomainError {
	return &DomainError{
		Kind:     KindInsufficientStock,
		Message:  fmt.Sprintf("insufficient stock for %s: have %d, need %d", product, stock, required),
		Product:  product,
		Stock:    stock,
		Required: required,
	}
}

// AsDomainError unwraps err to its DomainError, if any.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrSellerNotFound           = errors.New("seller not found")
	ErrPhotoNotFound            = errors.New("photo not found or already sold")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrNilTransaction           = errors.New("transaction is nil")
	ErrNilPhoto                 = errors.New("photo is nil")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrInternal                 = fmt.Errorf("internal error")
)

// ValidationError carries every violated field at once, keyed by field name
// (or photo id for per-photo violations).
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

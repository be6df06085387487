package service

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned before any other check when the caller
// lacks the permission required for an operation.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError reports bad input shape. It is surfaced to the caller and
// never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError builds a ValidationError from a format string
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a missing order, player, payment or catalog row.
// Callers must not assume any side effect occurred.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Resource, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ReconciliationWarning is a soft warning returned alongside a successful
// result. The ledger tolerates deliberate write-offs (a split whose parts do
// not sum to the original), so these are logged and reported but never fail
// the operation.
type ReconciliationWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes
const (
	WarnSplitAmountMismatch = "split_amount_mismatch"
	WarnOverpayment         = "overpayment"
)

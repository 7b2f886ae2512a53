package product

import (
	"github.com/go-faster/errors"
)

var (
	// ErrValidation matches every input validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCountry is returned when a country token is not supported.
	ErrInvalidCountry = errors.New("invalid country")
	// ErrInvalidDiscount is returned when a discount id is blank or its
	// percent is outside (0, 100).
	ErrInvalidDiscount = errors.New("invalid discount")
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateProduct is returned when a product id is already taken.
	ErrDuplicateProduct = errors.New("product already exists")
	// ErrStoreUnavailable wraps connectivity failures to the database. The
	// caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError describes a rejected input field. It matches
// ErrValidation and, when set, a more specific sentinel such as
// ErrInvalidDiscount.
type ValidationError struct {
	Field  string
	Reason string

	kind error
}

// NewValidationError returns a ValidationError for field. kind may be nil.
func NewValidationError(field, reason string, kind error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, kind: kind}
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Is reports whether target is ErrValidation or the specific kind of e.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.kind != nil && target == e.kind)
}

package postgres

import (
	"fmt"
	"net"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	numericOutOfRange   = "22003"
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
	checkViolation      = "23514"
)

// errCorruptRow marks stored rows that no longer decode into domain values.
// It deliberately does not chain the decode error: a bad row is a store
// fault, never a caller validation failure.
var errCorruptRow = errors.New("corrupt row")

func corruptCountry(id string, cause error) error {
	return errors.Wrapf(errCorruptRow, "product %q: %v", id, cause)
}

// sqlState returns the SQLSTATE of err when it came from the server.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// unavailable reports whether err is a connectivity failure rather than a
// failure of the statement itself.
func unavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// saveProductErr translates a failed product insert.
func saveProductErr(id string, err error) error {
	switch sqlState(err) {
	case uniqueViolation:
		return product.ErrDuplicateProduct
	case checkViolation, numericOutOfRange:
		return product.NewValidationError("basePrice", "does not fit the stored precision", nil)
	}
	return wrapErr(fmt.Sprintf("creating product %q", id), err)
}

// applyDiscountErr translates a failed discount insert.
func applyDiscountErr(productID, discountID string, err error) error {
	switch sqlState(err) {
	case foreignKeyViolation:
		return product.ErrNotFound
	case checkViolation, numericOutOfRange:
		return product.NewValidationError("percent", "does not fit the stored precision", product.ErrInvalidDiscount)
	}
	return wrapErr(fmt.Sprintf("applying discount %q to product %q", discountID, productID), err)
}

// wrapErr annotates err with op, marking connectivity failures with
// product.ErrStoreUnavailable.
func wrapErr(op string, err error) error {
	if unavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, product.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

type createProductRequest struct {
	Name      string
	BasePrice decimal.Decimal
	Country   product.Country
}

type applyDiscountRequest struct {
	DiscountID string
	Percent    decimal.Decimal
}

// decodeCreateProduct parses {"name", "basePrice", "country"}. Unknown
// fields are skipped.
func decodeCreateProduct(body []byte) (createProductRequest, error) {
	var (
		req                           createProductRequest
		hasName, hasPrice, hasCountry bool
	)
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			if err != nil {
				return fieldError("name", "must be a string")
			}
			req.Name, hasName = v, true
		case "basePrice":
			v, err := decodeDecimal(d)
			if errors.Is(err, errOutOfRange) {
				return fieldError("basePrice", "is out of range")
			}
			if err != nil {
				return fieldError("basePrice", "must be a number")
			}
			req.BasePrice, hasPrice = v, true
		case "country":
			v, err := d.Str()
			if err != nil {
				return fieldError("country", "must be a string")
			}
			c, err := product.ParseCountry(v)
			if err != nil {
				return err
			}
			req.Country, hasCountry = c, true
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return req, asRequestError(err)
	}

	switch {
	case !hasName:
		return req, fieldError("name", "is required")
	case !hasPrice:
		return req, fieldError("basePrice", "is required")
	case !hasCountry:
		return req, product.NewValidationError("country", "is required", product.ErrInvalidCountry)
	}
	return req, nil
}

// decodeApplyDiscount parses {"discountId", "percent"}.
func decodeApplyDiscount(body []byte) (applyDiscountRequest, error) {
	var (
		req               applyDiscountRequest
		hasID, hasPercent bool
	)
	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "discountId":
			v, err := d.Str()
			if err != nil {
				return discountError("discountId", "must be a string")
			}
			req.DiscountID, hasID = v, true
		case "percent":
			v, err := decodeDecimal(d)
			if errors.Is(err, errOutOfRange) {
				return discountError("percent", "is out of range")
			}
			if err != nil {
				return discountError("percent", "must be a number")
			}
			req.Percent, hasPercent = v, true
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return req, asRequestError(err)
	}

	switch {
	case !hasID:
		return req, discountError("discountId", "is required")
	case !hasPercent:
		return req, discountError("percent", "is required")
	}
	return req, nil
}

// decodeDecimal reads a JSON number, or a string holding one, without
// passing through float64. Values whose exponent or coefficient are out of
// range are rejected before any arithmetic touches them.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	default:
		return decimal.Decimal{}, errors.New("not a number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !product.Representable(v) {
		return decimal.Decimal{}, errOutOfRange
	}
	return v, nil
}

var errOutOfRange = errors.New("number out of range")

func fieldError(field, reason string) error {
	return product.NewValidationError(field, reason, nil)
}

func discountError(field, reason string) error {
	return product.NewValidationError(field, reason, product.ErrInvalidDiscount)
}

// asRequestError keeps validation errors raised inside the decoder callbacks
// and turns any other decoder failure into a malformed-body error.
func asRequestError(err error) error {
	var vErr *product.ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return product.NewValidationError("body", "malformed JSON: "+err.Error(), nil)
}

func encodeView(e *jx.Encoder, v product.View) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(v.ID)
	e.FieldStart("name")
	e.Str(v.Name)
	e.FieldStart("basePrice")
	e.Raw([]byte(v.BasePrice.String()))
	e.FieldStart("country")
	e.Str(v.Country.String())
	e.FieldStart("discounts")
	e.ArrStart()
	for _, d := range v.Discounts {
		e.ObjStart()
		e.FieldStart("discountId")
		e.Str(d.ID)
		e.FieldStart("percent")
		e.Raw([]byte(d.Percent.String()))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("finalPrice")
	e.Raw([]byte(v.FinalPrice.StringFixed(2)))
	e.ObjEnd()
}

// readBody reads the request body up to maxBodyBytes. On failure it writes
// the response itself and reports false.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeErrorBody(w, http.StatusBadRequest, "cannot read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failed write means the client left.
	_, _ = w.Write(e.Bytes())
}

func writeErrorBody(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

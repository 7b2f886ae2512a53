package importer

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pricing-catalog/internal/domain/catalog"
	"github.com/xenking/pricing-catalog/internal/domain/product"
)

// Creator creates products. catalog.Service implements it.
type Creator interface {
	CreateProduct(ctx context.Context, req catalog.NewProduct) (product.Product, error)
}

// ReadProducts decodes a JSON array of {"name","basePrice","country"}
// objects. basePrice may be a number or a numeric string.
func ReadProducts(r io.Reader) ([]catalog.NewProduct, error) {
	var out []catalog.NewProduct

	d := jx.Decode(r, 4096)
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := readProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(out)+1)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return out, nil
}

func readProduct(d *jx.Decoder) (catalog.NewProduct, error) {
	var p catalog.NewProduct
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			p.Name = v
		case "basePrice":
			v, err := readDecimal(d)
			if err != nil {
				return errors.Wrap(err, "basePrice")
			}
			p.BasePrice = v
		case "country":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "country")
			}
			c, err := product.ParseCountry(v)
			if err != nil {
				return err
			}
			p.Country = c
		default:
			return d.Skip()
		}
		return nil
	})
	return p, err
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	} else {
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	}
	return parseDecimal(raw)
}

// parseDecimal parses s and rejects values too large or too precise to
// compare safely.
func parseDecimal(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !product.Representable(v) {
		return decimal.Decimal{}, errors.Errorf("%q is out of range", s)
	}
	return v, nil
}

// SeedProducts creates every product and returns them with their ids.
// It stops at the first failure.
func SeedProducts(ctx context.Context, c Creator, products []catalog.NewProduct) ([]product.Product, error) {
	created := make([]product.Product, 0, len(products))
	for i, np := range products {
		p, err := c.CreateProduct(ctx, np)
		if err != nil {
			return created, errors.Wrapf(err, "create product %d (%s)", i+1, np.Name)
		}
		created = append(created, p)
	}
	return created, nil
}

package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a catalog item priced in a single country. It owns its
// discounts; removing the product removes them as well.
type Product struct {
	ID        string
	Name      string
	BasePrice decimal.Decimal
	Country   Country
	Discounts []Discount
}

// Discount is a percentage reduction identified by ID within the scope of a
// single product. Percent is always in the open interval (0, 100).
type Discount struct {
	ID      string
	Percent decimal.Decimal
}

// View is a product together with its derived final price. It is computed at
// read time and never stored.
type View struct {
	Product
	FinalPrice decimal.Decimal
}

// NewView projects p into a View priced with the VAT of its country.
func NewView(p Product) View {
	return View{
		Product:    p,
		FinalPrice: p.FinalPrice(p.Country.VAT()),
	}
}

// Repository defines persistence operations for products and their
// discounts. Every method runs in its own transaction.
type Repository interface {
	FindByCountry(ctx context.Context, c Country) ([]Product, error)
	// FindByID reports found=false when no product has the given id.
	FindByID(ctx context.Context, id string) (p Product, found bool, err error)
	Save(ctx context.Context, p Product) (Product, error)
	// ApplyDiscount inserts the (productID, discountID) pair unless it is
	// already present. It returns true only for the call that created the row.
	ApplyDiscount(ctx context.Context, productID, discountID string, percent decimal.Decimal) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

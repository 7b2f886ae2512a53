// Package catalog implements the product catalog use cases on top of a
// product.Repository.
package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

// NewProduct holds the input for creating a product.
type NewProduct struct {
	Name      string
	BasePrice decimal.Decimal
	Country   product.Country
}

// Service encapsulates catalog business logic. It holds no product state of
// its own: every call reads through to the repository.
type Service struct {
	products product.Repository
	newID    func() string
}

// NewService creates a catalog Service backed by the given repository.
func NewService(products product.Repository) *Service {
	return &Service{
		products: products,
		newID:    func() string { return uuid.New().String() },
	}
}

// CreateProduct assigns a fresh id to the product, persists it with no
// discounts and returns the stored product.
func (s *Service) CreateProduct(ctx context.Context, req NewProduct) (product.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return product.Product{}, product.NewValidationError("name", "must not be blank", nil)
	}
	if !product.ValidPrice(req.BasePrice) {
		return product.Product{}, product.NewValidationError("basePrice",
			"must be greater than 0 and less than 10000000000 with at most 2 decimal places", nil)
	}
	if !req.Country.Valid() {
		return product.Product{}, product.NewValidationError("country", "is required", product.ErrInvalidCountry)
	}

	p, err := s.products.Save(ctx, product.Product{
		ID:        s.newID(),
		Name:      name,
		BasePrice: req.BasePrice,
		Country:   req.Country,
		Discounts: []product.Discount{},
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "save product")
	}
	return p, nil
}

// ProductsByCountry returns every product sold in c with its final price
// computed from the country's VAT. No products is not an error.
func (s *Service) ProductsByCountry(ctx context.Context, c product.Country) ([]product.View, error) {
	products, err := s.products.FindByCountry(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "find products by country")
	}

	views := make([]product.View, len(products))
	for i, p := range products {
		views[i] = product.NewView(p)
	}
	return views, nil
}

// Product returns a single product with its final price.
func (s *Service) Product(ctx context.Context, id string) (product.View, error) {
	p, found, err := s.products.FindByID(ctx, id)
	if err != nil {
		return product.View{}, errors.Wrap(err, "find product")
	}
	if !found {
		return product.View{}, product.ErrNotFound
	}
	return product.NewView(p), nil
}

// ApplyDiscount attaches a discount to a product. It reports true when this
// call created the discount and false when the same discount id was already
// present; both are successful outcomes. A repeated discount id never changes
// the stored percent.
func (s *Service) ApplyDiscount(ctx context.Context, productID, discountID string, percent decimal.Decimal) (bool, error) {
	if strings.TrimSpace(discountID) == "" {
		return false, product.NewValidationError("discountId", "must not be blank", product.ErrInvalidDiscount)
	}
	if !product.ValidPercent(percent) {
		return false, product.NewValidationError("percent",
			"must be between 0 and 100 exclusive with at most 4 decimal places", product.ErrInvalidDiscount)
	}

	_, found, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return false, errors.Wrap(err, "find product")
	}
	if !found {
		return false, product.ErrNotFound
	}

	// The store's (product_id, discount_id) key decides the winner; the
	// lookup above only gives a clean NotFound for the common case.
	applied, err := s.products.ApplyDiscount(ctx, productID, discountID, percent)
	if err != nil {
		return false, errors.Wrap(err, "apply discount")
	}
	return applied, nil
}

// DeleteProduct removes a product and, through the store's cascade, all of
// its discounts.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if !deleted {
		return product.ErrNotFound
	}
	return nil
}

// Package handler exposes the catalog over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/pricing-catalog/internal/domain/catalog"
	"github.com/xenking/pricing-catalog/internal/domain/product"
	"github.com/xenking/pricing-catalog/pkg/httpmiddleware"
)

const meterName = "github.com/xenking/pricing-catalog/internal/handler"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Catalog is the set of catalog use cases the handler serves.
type Catalog interface {
	CreateProduct(ctx context.Context, req catalog.NewProduct) (product.Product, error)
	ProductsByCountry(ctx context.Context, c product.Country) ([]product.View, error)
	Product(ctx context.Context, id string) (product.View, error)
	ApplyDiscount(ctx context.Context, productID, discountID string, percent decimal.Decimal) (bool, error)
	DeleteProduct(ctx context.Context, id string) error
}

var _ Catalog = (*catalog.Service)(nil)

// Handler serves the product API, delegating business logic to Catalog.
type Handler struct {
	catalog Catalog

	productsCreated      metric.Int64Counter
	discountApplications metric.Int64Counter
}

// NewHandler constructs a Handler and registers its instruments with mp.
func NewHandler(c Catalog, mp metric.MeterProvider) (*Handler, error) {
	meter := mp.Meter(meterName)

	productsCreated, err := meter.Int64Counter("catalog.products.created",
		metric.WithDescription("Number of products created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create products counter")
	}

	discountApplications, err := meter.Int64Counter("catalog.discount.applications",
		metric.WithDescription("Successful discount applications by outcome (applied or duplicate)"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create discount counter")
	}

	return &Handler{
		catalog:              c,
		productsCreated:      productsCreated,
		discountApplications: discountApplications,
	}, nil
}

// Routes returns a mux with every API route registered under /api.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.handle(mux, "POST /api/products", h.CreateProduct)
	h.handle(mux, "GET /api/products", h.ListProducts)
	h.handle(mux, "GET /api/products/{id}", h.GetProduct)
	h.handle(mux, "PUT /api/products/{id}/discount", h.ApplyDiscount)
	h.handle(mux, "DELETE /api/products/{id}", h.DeleteProduct)
	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, httpmiddleware.Route(fn))
}

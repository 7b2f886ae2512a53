package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/pricing-catalog/internal/domain/catalog"
	"github.com/xenking/pricing-catalog/internal/domain/product"
)

const (
	msgDiscountApplied   = "Discount applied successfully"
	msgDiscountDuplicate = "Discount already applied (idempotent)"
)

var (
	outcomeApplied   = metric.WithAttributes(attribute.String("outcome", "applied"))
	outcomeDuplicate = metric.WithAttributes(attribute.String("outcome", "duplicate"))
)

// CreateProduct handles POST /api/products and responds 201 with the new id.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeCreateProduct(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), catalog.NewProduct{
		Name:      req.Name,
		BasePrice: req.BasePrice,
		Country:   req.Country,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.productsCreated.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("country", p.Country.String())),
	)

	w.Header().Set("Location", "/api/products/"+p.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.ObjEnd()
	})
}

// ListProducts handles GET /api/products?country=XX and responds with every
// product of that country including its final price.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("country")
	if strings.TrimSpace(token) == "" {
		h.writeError(w, r, product.NewValidationError("country", "query parameter is required", product.ErrInvalidCountry))
		return
	}
	c, err := product.ParseCountry(token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views, err := h.catalog.ProductsByCountry(r.Context(), c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, v := range views {
			encodeView(e, v)
		}
		e.ArrEnd()
	})
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	v, err := h.catalog.Product(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeView(e, v)
	})
}

// ApplyDiscount handles PUT /api/products/{id}/discount. Both a newly
// applied and an already present discount are 200 responses, told apart by
// the message and the applied flag.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.PathValue("id"))
	if productID == "" {
		h.writeError(w, r, product.NewValidationError("id", "product id is required", nil))
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeApplyDiscount(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	applied, err := h.catalog.ApplyDiscount(r.Context(), productID, req.DiscountID, req.Percent)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := msgDiscountApplied
	if applied {
		h.discountApplications.Add(r.Context(), 1, outcomeApplied)
	} else {
		msg = msgDiscountDuplicate
		h.discountApplications.Add(r.Context(), 1, outcomeDuplicate)
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		e.FieldStart("applied")
		e.Bool(applied)
		e.ObjEnd()
	})
}

// DeleteProduct handles DELETE /api/products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

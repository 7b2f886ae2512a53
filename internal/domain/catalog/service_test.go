package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

// --- Mock implementations ---

// memoryRepo mimics the store's (product_id, discount_id) uniqueness so that
// service behaviour can be exercised without a database.
type memoryRepo struct {
	mu       sync.Mutex
	products map[string]product.Product

	saveErr  error
	findErr  error
	applyErr error

	applyCalls int
}

func newMemoryRepo(products ...product.Product) *memoryRepo {
	m := &memoryRepo{products: make(map[string]product.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memoryRepo) FindByCountry(_ context.Context, c product.Country) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []product.Product
	for _, p := range m.products {
		if p.Country == c {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (product.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return product.Product{}, false, m.findErr
	}
	p, ok := m.products[id]
	return p, ok, nil
}

func (m *memoryRepo) Save(_ context.Context, p product.Product) (product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return product.Product{}, m.saveErr
	}
	if _, ok := m.products[p.ID]; ok {
		return product.Product{}, product.ErrDuplicateProduct
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryRepo) ApplyDiscount(_ context.Context, productID, discountID string, percent decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applyCalls++
	if m.applyErr != nil {
		return false, m.applyErr
	}
	p, ok := m.products[productID]
	if !ok {
		return false, product.ErrNotFound
	}
	for _, d := range p.Discounts {
		if d.ID == discountID {
			return false, nil
		}
	}
	p.Discounts = append(p.Discounts, product.Discount{ID: discountID, Percent: percent})
	m.products[productID] = p
	return true, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo)
	var n int
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func createWidget(t *testing.T, svc *Service) product.Product {
	t.Helper()

	p, err := svc.CreateProduct(context.Background(), NewProduct{
		Name:      "Widget",
		BasePrice: dec("100.00"),
		Country:   product.Sweden,
	})
	require.NoError(t, err)
	return p
}

// --- Tests ---

func TestCreateProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	seen := make(map[string]bool)
	for range 20 {
		p, err := svc.CreateProduct(context.Background(), NewProduct{
			Name:      "  Widget ",
			BasePrice: dec("100.00"),
			Country:   product.Sweden,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.False(t, seen[p.ID], "id %s returned twice", p.ID)
		seen[p.ID] = true

		assert.Equal(t, "Widget", p.Name)
		assert.Empty(t, p.Discounts)

		stored, found, err := repo.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, p, stored)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     NewProduct
		field   string
		wantErr error
	}{
		{
			name:    "blank name",
			req:     NewProduct{Name: "   ", BasePrice: dec("1"), Country: product.France},
			field:   "name",
			wantErr: product.ErrValidation,
		},
		{
			name:    "zero price",
			req:     NewProduct{Name: "Widget", BasePrice: decimal.Zero, Country: product.France},
			field:   "basePrice",
			wantErr: product.ErrValidation,
		},
		{
			name:    "negative price",
			req:     NewProduct{Name: "Widget", BasePrice: dec("-5"), Country: product.France},
			field:   "basePrice",
			wantErr: product.ErrValidation,
		},
		{
			name:    "sub-cent price",
			req:     NewProduct{Name: "Widget", BasePrice: dec("1.005"), Country: product.France},
			field:   "basePrice",
			wantErr: product.ErrValidation,
		},
		{
			name:    "price beyond stored precision",
			req:     NewProduct{Name: "Widget", BasePrice: dec("1e12"), Country: product.France},
			field:   "basePrice",
			wantErr: product.ErrValidation,
		},
		{
			name:    "price with unbounded exponent",
			req:     NewProduct{Name: "Widget", BasePrice: dec("1e-2000000000"), Country: product.France},
			field:   "basePrice",
			wantErr: product.ErrValidation,
		},
		{
			name:    "missing country",
			req:     NewProduct{Name: "Widget", BasePrice: dec("5")},
			field:   "country",
			wantErr: product.ErrInvalidCountry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			svc := NewService(repo)

			_, err := svc.CreateProduct(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			var vErr *product.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, repo.products)
		})
	}
}

func TestCreateProduct_DuplicateID(t *testing.T) {
	repo := newMemoryRepo(product.Product{ID: "id-1"})
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), NewProduct{
		Name:      "Widget",
		BasePrice: dec("1"),
		Country:   product.Germany,
	})
	require.ErrorIs(t, err, product.ErrDuplicateProduct)
}

func TestCreateProduct_SaveError(t *testing.T) {
	repo := newMemoryRepo()
	repo.saveErr = errors.New("db write failed")
	svc := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), NewProduct{
		Name:      "Widget",
		BasePrice: dec("1"),
		Country:   product.Germany,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save product")
}

func TestProductsByCountry(t *testing.T) {
	repo := newMemoryRepo(
		product.Product{ID: "se", Name: "A", BasePrice: dec("100"), Country: product.Sweden,
			Discounts: []product.Discount{{ID: "d1", Percent: dec("10")}}},
		product.Product{ID: "de", Name: "B", BasePrice: dec("100"), Country: product.Germany},
	)
	svc := NewService(repo)

	views, err := svc.ProductsByCountry(context.Background(), product.Sweden)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "se", views[0].ID)
	assert.Equal(t, "112.50", views[0].FinalPrice.StringFixed(2))

	// Stored data is not touched by the projection.
	stored := repo.products["se"]
	assert.True(t, dec("100").Equal(stored.BasePrice))

	views, err = svc.ProductsByCountry(context.Background(), product.Germany)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "119.00", views[0].FinalPrice.StringFixed(2))
}

func TestProductsByCountry_Empty(t *testing.T) {
	svc := NewService(newMemoryRepo())

	views, err := svc.ProductsByCountry(context.Background(), product.France)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestProductsByCountry_StoreError(t *testing.T) {
	repo := newMemoryRepo()
	repo.findErr = errors.Wrap(product.ErrStoreUnavailable, "dial")
	svc := NewService(repo)

	_, err := svc.ProductsByCountry(context.Background(), product.France)
	require.ErrorIs(t, err, product.ErrStoreUnavailable)
}

func TestProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := createWidget(t, svc)

	v, err := svc.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, v.ID)
	assert.Equal(t, "125.00", v.FinalPrice.StringFixed(2))

	_, err = svc.Product(context.Background(), "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestApplyDiscount_Boundaries(t *testing.T) {
	tests := []struct {
		percent string
		wantErr bool
	}{
		{percent: "0", wantErr: true},
		{percent: "100", wantErr: true},
		{percent: "-10", wantErr: true},
		{percent: "150", wantErr: true},
		{percent: "10.12345", wantErr: true},
		{percent: "99.99999", wantErr: true},
		{percent: "1e-2000000000", wantErr: true},
		{percent: "0.0001"},
		{percent: "99.9999"},
		{percent: "12.5000000"},
	}

	for _, tt := range tests {
		t.Run(tt.percent, func(t *testing.T) {
			repo := newMemoryRepo()
			svc := newTestService(repo)
			p := createWidget(t, svc)

			applied, err := svc.ApplyDiscount(context.Background(), p.ID, "d1", dec(tt.percent))
			if tt.wantErr {
				require.ErrorIs(t, err, product.ErrInvalidDiscount)
				require.ErrorIs(t, err, product.ErrValidation)
				assert.False(t, applied)
				assert.Zero(t, repo.applyCalls, "store must not be touched")
				return
			}
			require.NoError(t, err)
			assert.True(t, applied)
		})
	}
}

func TestApplyDiscount_BlankDiscountID(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := createWidget(t, svc)

	_, err := svc.ApplyDiscount(context.Background(), p.ID, "  ", dec("10"))
	require.ErrorIs(t, err, product.ErrInvalidDiscount)
	assert.Zero(t, repo.applyCalls)
}

func TestApplyDiscount_ProductNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	applied, err := svc.ApplyDiscount(context.Background(), "missing", "d1", dec("10"))
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.False(t, applied)
	assert.Zero(t, repo.applyCalls)
	assert.Empty(t, repo.products)
}

func TestApplyDiscount_Idempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := createWidget(t, svc)
	ctx := context.Background()

	applied, err := svc.ApplyDiscount(ctx, p.ID, "d1", dec("10"))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.ApplyDiscount(ctx, p.ID, "d1", dec("50"))
	require.NoError(t, err)
	assert.False(t, applied)

	v, err := svc.Product(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, v.Discounts, 1)
	assert.True(t, dec("10").Equal(v.Discounts[0].Percent))
	assert.Equal(t, "112.50", v.FinalPrice.StringFixed(2))
}

func TestApplyDiscount_ConcurrentSingleWinner(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	p := createWidget(t, svc)

	const callers = 50
	results := make([]bool, callers)

	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			applied, err := svc.ApplyDiscount(context.Background(), p.ID, "concurrent-discount-1", dec("10"))
			results[i] = applied
			return err
		})
	}
	require.NoError(t, g.Wait())

	var won int
	for _, applied := range results {
		if applied {
			won++
		}
	}
	assert.Equal(t, 1, won)
	assert.Len(t, repo.products[p.ID].Discounts, 1)
}

func TestApplyDiscount_StoreErrorPropagates(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := createWidget(t, svc)
	repo.applyErr = errors.New("disk full")

	_, err := svc.ApplyDiscount(context.Background(), p.ID, "d1", dec("10"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDeleteProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	p := createWidget(t, svc)

	require.NoError(t, svc.DeleteProduct(context.Background(), p.ID))
	require.ErrorIs(t, svc.DeleteProduct(context.Background(), p.ID), product.ErrNotFound)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

const (
	selectProductsSQL = `SELECT p.id, p.name, p.base_price, p.country, d.discount_id, d.percent
		FROM products p
		LEFT JOIN product_discounts d ON d.product_id = p.id`

	findProductsByCountrySQL = selectProductsSQL + `
		WHERE p.country = $1
		ORDER BY p.id, d.created_at, d.discount_id`

	findProductByIDSQL = selectProductsSQL + `
		WHERE p.id = $1
		ORDER BY d.created_at, d.discount_id`

	insertProductSQL = `INSERT INTO products (id, name, base_price, country)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, base_price, country`

	// A conflicting pair is skipped rather than raised, so the affected row
	// count alone tells the winner from the duplicates.
	insertDiscountSQL = `INSERT INTO product_discounts (product_id, discount_id, percent)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, discount_id) DO NOTHING`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

const tracerName = "github.com/xenking/pricing-catalog/internal/storage/postgres"

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Each method runs in its own transaction.
type ProductRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewProductRepository returns a ProductRepository that uses the given pool.
// A nil tp falls back to the global tracer provider.
func NewProductRepository(pool *pgxpool.Pool, tp trace.TracerProvider) *ProductRepository {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &ProductRepository{
		pool:   pool,
		tracer: tp.Tracer(tracerName),
	}
}

// FindByCountry returns every product stored for c together with its
// discounts, ordered by product id.
func (r *ProductRepository) FindByCountry(ctx context.Context, c product.Country) (_ []product.Product, err error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByCountry",
		trace.WithAttributes(attribute.String("catalog.country", c.String())),
	)
	defer func() { endSpan(span, err) }()

	var rows []productRow
	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		result, err := tx.Query(ctx, findProductsByCountrySQL, c.String())
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(result, scanProductRow)
		return err
	})
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("finding products for country %s", c), err)
	}

	return groupProducts(rows)
}

// FindByID returns the product with the given id. found is false when no
// such product exists.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (_ product.Product, found bool, err error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID",
		trace.WithAttributes(attribute.String("catalog.product_id", id)),
	)
	defer func() { endSpan(span, err) }()

	var rows []productRow
	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		result, err := tx.Query(ctx, findProductByIDSQL, id)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(result, scanProductRow)
		return err
	})
	if err != nil {
		return product.Product{}, false, wrapErr(fmt.Sprintf("getting product %q", id), err)
	}

	products, err := groupProducts(rows)
	if err != nil {
		return product.Product{}, false, err
	}
	if len(products) == 0 {
		return product.Product{}, false, nil
	}
	return products[0], true, nil
}

// Save inserts a new product row. It returns product.ErrDuplicateProduct when
// the id is already taken. Discounts on p are ignored.
func (r *ProductRepository) Save(ctx context.Context, p product.Product) (_ product.Product, err error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Save",
		trace.WithAttributes(attribute.String("catalog.product_id", p.ID)),
	)
	defer func() { endSpan(span, err) }()

	var (
		saved   product.Product
		country string
	)
	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, insertProductSQL, p.ID, p.Name, p.BasePrice, p.Country.String()).
			Scan(&saved.ID, &saved.Name, &saved.BasePrice, &country)
	})
	if err != nil {
		return product.Product{}, saveProductErr(p.ID, err)
	}

	saved.Country, err = product.ParseCountry(country)
	if err != nil {
		return product.Product{}, corruptCountry(saved.ID, err)
	}
	saved.Discounts = []product.Discount{}
	return saved, nil
}

// ApplyDiscount inserts the discount unless the (productID, discountID) pair
// already exists, in which case the stored row, including its percent, is
// left untouched. It returns true only when this call inserted the row and
// product.ErrNotFound when the product does not exist.
func (r *ProductRepository) ApplyDiscount(ctx context.Context, productID, discountID string, percent decimal.Decimal) (applied bool, err error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ApplyDiscount",
		trace.WithAttributes(
			attribute.String("catalog.product_id", productID),
			attribute.String("catalog.discount_id", discountID),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("catalog.discount_applied", applied))
		endSpan(span, err)
	}()

	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertDiscountSQL, productID, discountID, percent)
		if err != nil {
			return err
		}
		applied = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, applyDiscountErr(productID, discountID, err)
	}
	return applied, nil
}

// Delete removes the product and, by cascade, its discounts. It reports
// whether a product was removed.
func (r *ProductRepository) Delete(ctx context.Context, id string) (deleted bool, err error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete",
		trace.WithAttributes(attribute.String("catalog.product_id", id)),
	)
	defer func() { endSpan(span, err) }()

	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteProductSQL, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, wrapErr(fmt.Sprintf("deleting product %q", id), err)
	}
	return deleted, nil
}

// productRow is one row of the products/discounts join. Products without
// discounts produce a single row with NULL discount columns.
type productRow struct {
	ID         string
	Name       string
	BasePrice  decimal.Decimal
	Country    string
	DiscountID *string
	Percent    decimal.NullDecimal
}

func scanProductRow(row pgx.CollectableRow) (productRow, error) {
	var r productRow
	err := row.Scan(&r.ID, &r.Name, &r.BasePrice, &r.Country, &r.DiscountID, &r.Percent)
	return r, err
}

// groupProducts folds join rows into products, preserving row order.
func groupProducts(rows []productRow) ([]product.Product, error) {
	products := make([]product.Product, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			c, err := product.ParseCountry(row.Country)
			if err != nil {
				return nil, corruptCountry(row.ID, err)
			}
			products = append(products, product.Product{
				ID:        row.ID,
				Name:      row.Name,
				BasePrice: row.BasePrice,
				Country:   c,
				Discounts: []product.Discount{},
			})
			i = len(products) - 1
			index[row.ID] = i
		}

		if row.DiscountID != nil && row.Percent.Valid {
			products[i].Discounts = append(products[i].Discounts, product.Discount{
				ID:      *row.DiscountID,
				Percent: row.Percent.Decimal,
			})
		}
	}
	return products, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

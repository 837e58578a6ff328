package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price_minor, stock, category, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		product.ID, product.Name, product.Description, product.PriceMinor,
		product.Stock, product.Category, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id))
}

func (r *productRepository) List() ([]domain.Product, error) {
	return r.queryProducts(`
		SELECT id, name, description, price_minor, stock, category, created_at, updated_at
		FROM products
		ORDER BY name ASC, id ASC
	`)
}

func (r *productRepository) ListByCategory(category string) ([]domain.Product, error) {
	return r.queryProducts(`
		SELECT id, name, description, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE category = $1
		ORDER BY name ASC, id ASC
	`, category)
}

func (r *productRepository) ListByPriceRange(minMinor, maxMinor int64) ([]domain.Product, error) {
	return r.queryProducts(`
		SELECT id, name, description, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE price_minor BETWEEN $1 AND $2
		ORDER BY price_minor ASC, id ASC
	`, minMinor, maxMinor)
}

// Update перезаписывает изменяемые поля товара. Остаток меняется только через AdjustStock.
func (r *productRepository) Update(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    price_minor = $3,
		    category = $4,
		    updated_at = $5
		WHERE id = $6
	`,
		product.Name, product.Description, product.PriceMinor,
		product.Category, time.Now().UTC(), product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Exists(id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, id).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

// AdjustStock применяет дельту одним условным UPDATE: ноль затронутых строк
// означает либо отсутствие товара, либо нехватку остатка.
func (r *productRepository) AdjustStock(id string, delta int32) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return adjustStock(ctx, r.db, id, delta)
}

// adjustStock — общая реализация для прямых вызовов и для транзакций заказа.
func adjustStock(ctx context.Context, q queryExecer, id string, delta int32) (domain.Product, error) {
	product, err := scanProduct(q.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $1,
		    updated_at = $2
		WHERE id = $3
		  AND stock + $1 >= 0
		RETURNING id, name, description, price_minor, stock, category, created_at, updated_at
	`, delta, time.Now().UTC(), id))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return domain.Product{}, err
	}

	// Условие не сработало: различаем отсутствие товара и нехватку остатка.
	var name string
	nameErr := q.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, id).Scan(&name)
	if errors.Is(nameErr, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if nameErr != nil {
		return domain.Product{}, fmt.Errorf("check product exists: %w", nameErr)
	}
	return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrInsufficientStock, name)
}

// queryExecer покрывает *sql.DB и *sql.Tx для разделяемых SQL-хелперов.
type queryExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *productRepository) queryProducts(query string, args ...any) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.PriceMinor,
			&p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row *sql.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.PriceMinor,
		&p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)

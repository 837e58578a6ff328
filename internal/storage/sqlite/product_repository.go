package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт SQLite-реализацию ProductRepository.
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
		) VALUES (?,?,?,?,?,?,?,?)
	`,
		product.ID, product.Name, product.Description, product.PriceMinor,
		product.Stock, product.Category, toUnixNano(product.CreatedAt), toUnixNano(product.UpdatedAt),
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
		WHERE id = ?
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
		WHERE category = ?
		ORDER BY name ASC, id ASC
	`, category)
}

func (r *productRepository) ListByPriceRange(minMinor, maxMinor int64) ([]domain.Product, error) {
	return r.queryProducts(`
		SELECT id, name, description, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE price_minor BETWEEN ? AND ?
		ORDER BY price_minor ASC, id ASC
	`, minMinor, maxMinor)
}

// Update перезаписывает изменяемые поля товара. Остаток меняется только через AdjustStock.
func (r *productRepository) Update(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?,
		    description = ?,
		    price_minor = ?,
		    category = ?,
		    updated_at = ?
		WHERE id = ?
	`,
		product.Name, product.Description, product.PriceMinor,
		product.Category, toUnixNano(time.Now()), product.ID,
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

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
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
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

func (r *productRepository) AdjustStock(id string, delta int32) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return adjustStock(ctx, r.db, id, delta)
}

// adjustStock применяет дельту одним условным UPDATE и перечитывает строку.
// Ноль затронутых строк означает либо отсутствие товара, либо нехватку остатка.
func adjustStock(ctx context.Context, q queryExecer, id string, delta int32) (domain.Product, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?1,
		    updated_at = ?2
		WHERE id = ?3
		  AND stock + ?1 >= 0
	`, delta, toUnixNano(time.Now()), id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("adjust stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		var name string
		nameErr := q.QueryRowContext(ctx, `SELECT name FROM products WHERE id = ?`, id).Scan(&name)
		if errors.Is(nameErr, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		if nameErr != nil {
			return domain.Product{}, fmt.Errorf("check product exists: %w", nameErr)
		}
		return domain.Product{}, insufficientStock(name)
	}

	return scanProduct(q.QueryRowContext(ctx, `
		SELECT id, name, description, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE id = ?
	`, id))
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
		var (
			p                  domain.Product
			createdAt, updated int64
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.PriceMinor,
			&p.Stock, &p.Category, &createdAt, &updated,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		p.CreatedAt = fromUnixNano(createdAt)
		p.UpdatedAt = fromUnixNano(updated)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row *sql.Row) (domain.Product, error) {
	var (
		p                  domain.Product
		createdAt, updated int64
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.PriceMinor,
		&p.Stock, &p.Category, &createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.CreatedAt = fromUnixNano(createdAt)
	p.UpdatedAt = fromUnixNano(updated)
	return p, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)

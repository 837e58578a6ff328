package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type orderItemRepository struct {
	db *sql.DB
}

// NewOrderItemRepository создаёт PostgreSQL-реализацию OrderItemRepository.
func NewOrderItemRepository(store *Store) domain.OrderItemRepository {
	return &orderItemRepository{db: store.DB()}
}

func (r *orderItemRepository) Create(item domain.OrderItem) (domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_items (
			id, order_id, product_id, qty, unit_price_minor, subtotal_minor, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		item.ID, item.OrderID, item.ProductID, item.Qty,
		item.UnitPriceMinor, item.SubtotalMinor, item.CreatedAt,
	)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("insert order item: %w", err)
	}
	return item, nil
}

func (r *orderItemRepository) Get(id string) (domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var item domain.OrderItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, product_id, qty, unit_price_minor, subtotal_minor, created_at
		FROM order_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.Qty,
		&item.UnitPriceMinor, &item.SubtotalMinor, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderItem{}, domain.ErrOrderItemNotFound
		}
		return domain.OrderItem{}, fmt.Errorf("scan order item: %w", err)
	}
	return item, nil
}

func (r *orderItemRepository) ListByOrder(orderID string) ([]domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, unit_price_minor, subtotal_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Qty,
			&item.UnitPriceMinor, &item.SubtotalMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return items, nil
}

// Update перезаписывает количественные поля позиции; привязка к заказу не меняется.
func (r *orderItemRepository) Update(item domain.OrderItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET product_id = $1,
		    qty = $2,
		    unit_price_minor = $3,
		    subtotal_minor = $4
		WHERE id = $5
	`,
		item.ProductID, item.Qty, item.UnitPriceMinor, item.SubtotalMinor, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update order item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderItemNotFound
	}
	return nil
}

func (r *orderItemRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderItemNotFound
	}
	return nil
}

func (r *orderItemRepository) DeleteByOrder(orderID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

var _ domain.OrderItemRepository = (*orderItemRepository)(nil)

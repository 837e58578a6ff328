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

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт SQLite-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create пишет шапку, позиции и списывает остатки в одной транзакции.
func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	order.Version = 0

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin create order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, status, total_minor, version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?)
	`,
		order.ID, order.CustomerID, string(order.Status), order.TotalMinor,
		order.Version, toUnixNano(order.CreatedAt), toUnixNano(order.UpdatedAt),
	); err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		item.CreatedAt = now

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, qty, unit_price_minor, subtotal_minor, created_at
			) VALUES (?,?,?,?,?,?,?)
		`,
			item.ID, item.OrderID, item.ProductID, item.Qty,
			item.UnitPriceMinor, item.SubtotalMinor, toUnixNano(item.CreatedAt),
		); err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}

		if _, err := adjustStock(ctx, tx, item.ProductID, -item.Qty); err != nil {
			return domain.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit create order tx: %w", err)
	}
	return order, nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, status, total_minor, version, created_at, updated_at
		FROM orders
		WHERE id = ?
	`, id))
}

func (r *orderRepository) List(limit int) ([]domain.Order, error) {
	return r.queryOrders(`
		SELECT id, customer_id, status, total_minor, version, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limitArg(limit))
}

func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	return r.queryOrders(`
		SELECT id, customer_id, status, total_minor, version, created_at, updated_at
		FROM orders
		WHERE customer_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, customerID, limitArg(limit))
}

func (r *orderRepository) ListByStatus(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return r.queryOrders(`
		SELECT id, customer_id, status, total_minor, version, created_at, updated_at
		FROM orders
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, string(status), limitArg(limit))
}

// Save обновляет шапку условно по версии.
func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?,
		    total_minor = ?,
		    version = version + 1,
		    updated_at = ?
		WHERE id = ?
		  AND version = ?
	`,
		string(order.Status), order.TotalMinor, toUnixNano(time.Now()),
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return r.missingOrConflict(ctx, r.db, order.ID)
	}
	return nil
}

// Cancel возвращает остатки и переводит заказ в cancelled одной транзакцией.
func (r *orderRepository) Cancel(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?,
		    version = version + 1,
		    updated_at = ?
		WHERE id = ?
		  AND version = ?
	`,
		string(domain.OrderStatusCancelled), toUnixNano(time.Now()),
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return r.missingOrConflict(ctx, tx, order.ID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM order_items
		WHERE order_id = ?
	`, order.ID)
	if err != nil {
		return fmt.Errorf("list order items for cancel: %w", err)
	}

	type restock struct {
		productID string
		qty       int32
	}
	restocks := make([]restock, 0)
	for rows.Next() {
		var rs restock
		if err := rows.Scan(&rs.productID, &rs.qty); err != nil {
			rows.Close()
			return fmt.Errorf("scan order item row: %w", err)
		}
		restocks = append(restocks, rs)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate order item rows: %w", err)
	}
	rows.Close()

	for _, rs := range restocks {
		if _, err := adjustStock(ctx, tx, rs.productID, rs.qty); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel order tx: %w", err)
	}
	return nil
}

func (r *orderRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order tx: %w", err)
	}
	return nil
}

func (r *orderRepository) Exists(id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func (r *orderRepository) missingOrConflict(ctx context.Context, q queryExecer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	return domain.ErrOrderVersionConflict
}

func (r *orderRepository) queryOrders(query string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o                  domain.Order
			status             string
			createdAt, updated int64
		)
		if err := rows.Scan(
			&o.ID, &o.CustomerID, &status, &o.TotalMinor,
			&o.Version, &createdAt, &updated,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = fromUnixNano(createdAt)
		o.UpdatedAt = fromUnixNano(updated)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func scanOrder(row *sql.Row) (domain.Order, error) {
	var (
		o                  domain.Order
		status             string
		createdAt, updated int64
	)
	err := row.Scan(&o.ID, &o.CustomerID, &status, &o.TotalMinor, &o.Version, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = fromUnixNano(createdAt)
	o.UpdatedAt = fromUnixNano(updated)
	return o, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)

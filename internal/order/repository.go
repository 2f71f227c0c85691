package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Nagulan13/oboma/internal/apperr"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Order, error)
	// SearchByID matches orders whose id contains fragment, ignoring case.
	// An empty fragment matches every order.
	SearchByID(ctx context.Context, fragment string) ([]Order, error)
	// UpdateStatus applies t only if the order is still in t.From and
	// reports whether a row changed.
	UpdateStatus(ctx context.Context, t Transition) (bool, error)
	FlagReconciliation(ctx context.Context, orderID, reason string) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const selectOrder = `SELECT id, customer_id, status, total_price, order_date, updated_at, updated_by,
       picked_up_at, needs_reconciliation, reconciliation_reason
FROM orders`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var (
		o                   Order
		updatedAt, pickedUp sql.NullTime
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalPrice, &o.OrderDate, &updatedAt, &o.UpdatedBy,
		&pickedUp, &o.NeedsReconciliation, &o.ReconciliationReason)
	if err != nil {
		return Order{}, err
	}
	if updatedAt.Valid {
		o.UpdatedAt = &updatedAt.Time
	}
	if pickedUp.Valid {
		o.PickedUpAt = &pickedUp.Time
	}
	return o, nil
}

func (r *repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, status, total_price, order_date)
         VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.CustomerID, string(o.Status), o.TotalPrice, o.OrderDate,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for pos, it := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, menu_item_id, name, unit_price, quantity, special_request, image_url)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, pos, it.MenuItemID, it.Name, it.UnitPrice, it.Quantity, it.SpecialRequest, it.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
		}
		return Order{}, fmt.Errorf("select order: %w", err)
	}

	orders := []Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (r *repo) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return r.list(ctx, selectOrder+` WHERE customer_id = $1 ORDER BY order_date DESC`, customerID)
}

func (r *repo) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	return r.list(ctx, selectOrder+` WHERE status = $1 ORDER BY order_date ASC`, string(status))
}

func (r *repo) ListBetween(ctx context.Context, from, to time.Time) ([]Order, error) {
	return r.list(ctx, selectOrder+` WHERE order_date >= $1 AND order_date < $2 ORDER BY order_date ASC`, from, to)
}

// searchLimit caps SearchByID results.
const searchLimit = 50

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *repo) SearchByID(ctx context.Context, fragment string) ([]Order, error) {
	return r.list(ctx,
		selectOrder+` WHERE id ILIKE '%' || $1 || '%' ORDER BY order_date DESC LIMIT $2`,
		likeEscaper.Replace(fragment), searchLimit,
	)
}

func (r *repo) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fetches the lines of all orders in one query.
func (r *repo) loadItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, menu_item_id, name, unit_price, quantity, special_request, image_url
         FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.MenuItemID, &it.Name, &it.UnitPrice, &it.Quantity, &it.SpecialRequest, &it.ImageURL); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, t Transition) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
         SET status = $3, updated_by = $4, updated_at = $5,
             picked_up_at = CASE WHEN $3::text = 'completed' THEN COALESCE(picked_up_at, $5) ELSE picked_up_at END
         WHERE id = $1 AND status = $2`,
		t.OrderID, string(t.From), string(t.To), t.UpdatedBy, t.At,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *repo) FlagReconciliation(ctx context.Context, orderID, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET needs_reconciliation = TRUE, reconciliation_reason = $2 WHERE id = $1`,
		orderID, reason,
	)
	if err != nil {
		return fmt.Errorf("flag order for reconciliation: %w", err)
	}
	return nil
}
